package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	notification "github.com/reshetovitsme/relaybot/internal/modules/notification/domain"
	"github.com/reshetovitsme/relaybot/internal/shared/errors"
)

const (
	DefaultPort          = 10308
	BlankTime            = "--:--:--"
	MaxDescriptionLength = 715
	MaxNameLength        = 64
	NoDescription        = "No description"
)

var (
	ipPattern      = regexp.MustCompile(`(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})(?::(\d{2,5}))?$`)
	exactIPPattern = regexp.MustCompile(`^(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})(?::(\d{2,5}))?$`)
	lineBreak      = regexp.MustCompile(`(?i)<br\s*/?>`)
	htmlTag        = regexp.MustCompile(`<[^>]+>`)
	timePart       = regexp.MustCompile(`^\d{1,2}$`)
)

// ServerRecord is one entry of a directory snapshot. Records are replaced
// wholesale on refresh and never mutated.
type ServerRecord struct {
	IP             string
	Name           string
	Mission        string
	Players        int
	PlayersMax     int
	Description    string
	MissionTimeRaw string
	FetchedAt      time.Time
}

// NormalizeIP returns the canonical a.b.c.d:port form, adding DefaultPort
// when the port is omitted.
func NormalizeIP(s string) (string, error) {
	m := ipPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", errors.Validation("invalid server address %q", s)
	}
	return canonical(m)
}

// IsIP reports whether s is exactly an address, with or without port.
func IsIP(s string) bool {
	return exactIPPattern.MatchString(strings.TrimSpace(s))
}

func canonical(m []string) (string, error) {
	var octets [4]int
	for i := range octets {
		n, _ := strconv.Atoi(m[i+1])
		if n > 255 {
			return "", errors.Validation("invalid server address octet %d", n)
		}
		octets[i] = n
	}
	port := DefaultPort
	if m[5] != "" {
		port, _ = strconv.Atoi(m[5])
		if port > 65535 {
			return "", errors.Validation("invalid server port %d", port)
		}
	}
	return fmt.Sprintf("%d.%d.%d.%d:%d", octets[0], octets[1], octets[2], octets[3], port), nil
}

// ElapsedMissionTime is the raw mission time advanced by the time since the
// snapshot was fetched. Unparseable or all-zero values render as BlankTime.
func (r ServerRecord) ElapsedMissionTime(now time.Time) string {
	parts := strings.Split(strings.TrimSpace(r.MissionTimeRaw), ":")
	for _, p := range parts {
		if !timePart.MatchString(p) {
			return BlankTime
		}
	}

	var h, m, s int
	switch len(parts) {
	case 2:
		m, _ = strconv.Atoi(parts[0])
		s, _ = strconv.Atoi(parts[1])
	case 3:
		h, _ = strconv.Atoi(parts[0])
		m, _ = strconv.Atoi(parts[1])
		s, _ = strconv.Atoi(parts[2])
	default:
		return BlankTime
	}
	if h == 0 && m == 0 && s == 0 {
		return BlankTime
	}

	total := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
	if elapsed := now.Sub(r.FetchedAt); elapsed > 0 {
		total += elapsed
	}
	secs := int(total / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}

func (r ServerRecord) DisplayName() string {
	return snippet(r.Name, MaxNameLength)
}

func (r ServerRecord) DisplayDescription() string {
	d := strings.TrimSpace(r.Description)
	if d == "" || d == "No" {
		return NoDescription
	}
	d = lineBreak.ReplaceAllString(d, "\n")
	d = htmlTag.ReplaceAllString(d, "")
	return snippet(d, MaxDescriptionLength)
}

func (r ServerRecord) PlayersText() string {
	return fmt.Sprintf("%d / %d", r.Players, r.PlayersMax)
}

// Card renders the record for a status board.
func (r ServerRecord) Card(now time.Time) notification.Card {
	return notification.Card{
		Title:       r.DisplayName(),
		Description: fmt.Sprintf("<code>%s</code>\n%s", r.IP, r.DisplayDescription()),
		Color:       notification.ColorDirectory,
		Fields: []notification.Field{
			{Name: "Players", Value: r.PlayersText(), Inline: true},
			{Name: "Mission", Value: r.Mission, Inline: true},
			{Name: "Mission time", Value: r.ElapsedMissionTime(now), Inline: true},
		},
		Timestamp: now,
	}
}

// NotFoundCard is shown for a tracked address absent from the snapshot.
func NotFoundCard(ip string, cached int) notification.Card {
	return notification.Card{
		Title:       "Server not found",
		Description: fmt.Sprintf("%s is not in the server list (%d servers cached)", ip, cached),
		Color:       notification.ColorUnavailable,
	}
}

func snippet(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return notification.Truncate(s, n-3) + "..."
}

// RawServer is one entry of the directory response. Values may arrive as
// strings or numbers.
type RawServer struct {
	IPAddress   Scalar `json:"IP_ADDRESS"`
	Port        Scalar `json:"PORT"`
	Name        Scalar `json:"NAME"`
	MissionName Scalar `json:"MISSION_NAME"`
	Players     Scalar `json:"PLAYERS"`
	PlayersMax  Scalar `json:"PLAYERS_MAX"`
	Description Scalar `json:"DESCRIPTION"`
	MissionTime Scalar `json:"MISSION_TIME_FORMATTED"`
}

// Record converts a raw entry. Entries without an address or name are invalid.
func (s RawServer) Record(fetchedAt time.Time) (ServerRecord, bool) {
	if s.IPAddress == "" || s.Name == "" {
		return ServerRecord{}, false
	}
	port := string(s.Port)
	if port == "" {
		port = strconv.Itoa(DefaultPort)
	}
	ip, err := NormalizeIP(string(s.IPAddress) + ":" + port)
	if err != nil {
		return ServerRecord{}, false
	}
	players, _ := strconv.Atoi(string(s.Players))
	playersMax, _ := strconv.Atoi(string(s.PlayersMax))
	return ServerRecord{
		IP:             ip,
		Name:           string(s.Name),
		Mission:        string(s.MissionName),
		Players:        players,
		PlayersMax:     playersMax,
		Description:    string(s.Description),
		MissionTimeRaw: string(s.MissionTime),
		FetchedAt:      fetchedAt,
	}, true
}

// Scalar decodes a JSON string, number or bool as its string form.
type Scalar string

func (s *Scalar) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = Scalar(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*s = Scalar(num.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	*s = Scalar(strconv.FormatBool(b))
	return nil
}
