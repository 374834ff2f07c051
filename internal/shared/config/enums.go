//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package config

// AppEnv represents the application environment
// ENUM(local,production,development,testing)
type AppEnv string

// WatermarkBackend selects where per-link post watermarks are persisted
// ENUM(file,redis)
type WatermarkBackend string
