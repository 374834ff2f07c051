package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"sort"
	"strconv"
)

const (
	DefaultQueryPort       = 10011
	DefaultVirtualServerID = 1
)

// VoiceServerConfig identifies a voice server and the query account used to
// read it. Title is display-only.
type VoiceServerConfig struct {
	Host            string `json:"host"`
	Login           string `json:"login"`
	Password        string `json:"password"`
	VirtualServerID int    `json:"virtual_server_id"`
	Title           string `json:"title,omitempty"`
}

// ServerID returns the virtual server id, defaulting to 1.
func (c VoiceServerConfig) ServerID() int {
	if c.VirtualServerID <= 0 {
		return DefaultVirtualServerID
	}
	return c.VirtualServerID
}

// ConfigHash is a deterministic digest of the connection-identifying fields.
// Title does not participate.
func (c VoiceServerConfig) ConfigHash() string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%s:%s:%d", c.Host, c.Login, c.Password, c.ServerID()))
	return hex.EncodeToString(sum[:])
}

// Address returns host:port, adding the default query port when absent.
func (c VoiceServerConfig) Address() string {
	if _, _, err := net.SplitHostPort(c.Host); err == nil {
		return c.Host
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(DefaultQueryPort))
}

// DisplayTitle returns the configured title, falling back to the host.
func (c VoiceServerConfig) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return c.Host
}

// Roster maps channel names to the nicknames of human clients in them.
type Roster map[string][]string

// Channels returns channel names in stable order.
func (r Roster) Channels() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Size returns the number of clients across all channels.
func (r Roster) Size() int {
	n := 0
	for _, nicks := range r {
		n += len(nicks)
	}
	return n
}
