package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

type Config struct {
	TelegramBotToken string           `koanf:"telegram_bot_token"`
	TelegramAPIURL   string           `koanf:"telegram_api_url"`
	StoragePath      string           `koanf:"storage_path"`
	HTTPPort         string           `koanf:"http_port"`
	AppEnv           AppEnv           `koanf:"app_env"`
	LogLevel         string           `koanf:"log_level"`
	AllowedUsers     []int64          `koanf:"-"`
	SendRate         float64          `koanf:"send_rate"`
	MediaInterval    int              `koanf:"media_interval"`
	FetchTimeout     int              `koanf:"fetch_timeout"`
	FetchConcurrency int              `koanf:"fetch_concurrency"`
	WatermarkBackend WatermarkBackend `koanf:"watermark_backend"`

	YoutubeAPIKey      string `koanf:"youtube_api_key"`
	TwitchClientID     string `koanf:"twitch_client_id"`
	TwitchClientSecret string `koanf:"twitch_client_secret"`
	TrovoClientID      string `koanf:"trovo_client_id"`

	DirectoryURL      string `koanf:"directory_url"`
	DirectoryLogin    string `koanf:"directory_login"`
	DirectoryPassword string `koanf:"directory_password"`
	DirectoryTTL      int    `koanf:"directory_ttl"`
	DirectoryInterval int    `koanf:"directory_interval"`

	VoiceInterval int `koanf:"voice_interval"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
}

func Load() (*Config, error) {
	k := koanf.New(".")

	configFiles := []string{
		"config.yaml",
		"config.yml",
		"config.json",
		"config.toml",
	}

	configFile, found := lo.Find(configFiles, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		ext := filepath.Ext(configFile)

		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.Errorf("unsupported config file extension: %s", ext)
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	// Environment variables override config file values
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	setDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	if allowedUsers := k.Get("allowed_users"); allowedUsers != nil {
		switch v := allowedUsers.(type) {
		case string:
			cfg.AllowedUsers = ParseAllowedUsers(v)
		case []interface{}:
			cfg.AllowedUsers = lo.FilterMap(v, func(item interface{}, _ int) (int64, bool) {
				switch val := item.(type) {
				case int64:
					return val, true
				case int:
					return int64(val), true
				case float64:
					return int64(val), true
				default:
					return 0, false
				}
			})
		}
	}

	if appEnv, err := ParseAppEnv(k.String("app_env")); err == nil {
		cfg.AppEnv = appEnv
	} else {
		cfg.AppEnv = AppEnvProduction
	}

	backend, err := ParseWatermarkBackend(k.String("watermark_backend"))
	if err != nil {
		return nil, oops.With("watermark_backend", k.String("watermark_backend")).Wrap(err)
	}
	cfg.WatermarkBackend = backend

	if cfg.TelegramBotToken == "" {
		return nil, errors.ErrMissingBotToken
	}

	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"telegram_api_url":   "https://api.telegram.org",
		"storage_path":       "./data",
		"http_port":          "8080",
		"app_env":            "production",
		"log_level":          "info",
		"send_rate":          1.0,
		"media_interval":     60,
		"fetch_timeout":      15,
		"fetch_concurrency":  4,
		"watermark_backend":  "file",
		"directory_url":      "https://www.digitalcombatsimulator.com/en/personal/server/?login=yes&ajax=y",
		"directory_ttl":      30,
		"directory_interval": 60,
		"voice_interval":     60,
		"redis_addr":         "localhost:6379",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}
}

// ParseAllowedUsers parses comma-separated user IDs string into []int64
func ParseAllowedUsers(s string) []int64 {
	if s == "" {
		return []int64{}
	}
	parts := strings.Split(s, ",")
	return lo.FilterMap(parts, func(part string, _ int) (int64, bool) {
		part = strings.TrimSpace(part)
		if part == "" {
			return 0, false
		}
		var id int64
		if _, err := fmt.Sscanf(part, "%d", &id); err == nil {
			return id, true
		}
		return 0, false
	})
}

func (c *Config) MediaPeriod() time.Duration { return seconds(c.MediaInterval) }
func (c *Config) FetchDeadline() time.Duration { return seconds(c.FetchTimeout) }
func (c *Config) DirectoryTTLPeriod() time.Duration { return seconds(c.DirectoryTTL) }
func (c *Config) DirectoryPeriod() time.Duration { return seconds(c.DirectoryInterval) }
func (c *Config) VoicePeriod() time.Duration { return seconds(c.VoiceInterval) }

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
