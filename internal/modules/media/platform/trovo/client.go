package trovo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/samber/oops"
)

const DefaultBaseURL = "https://open-api.trovo.live/openplatform"

type User struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	ChannelID string `json:"channel_id"`
}

type Channel struct {
	IsLive       bool        `json:"is_live"`
	LiveTitle    string      `json:"live_title"`
	StartedAt    json.Number `json:"started_at"`
	CategoryName string      `json:"category_name"`
	Thumbnail    string      `json:"thumbnail"`
	ProfilePic   string      `json:"profile_pic"`
	ChannelURL   string      `json:"channel_url"`
	Username     string      `json:"username"`
}

// Client calls the Trovo open platform REST API.
type Client struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
}

func NewClient(baseURL, clientID string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, clientID: clientID, httpClient: httpClient}
}

// User looks up a user by username. A missing user is ErrNotFound.
func (c *Client) User(ctx context.Context, username string) (*User, error) {
	var resp struct {
		Users []User `json:"users"`
	}
	if err := c.post(ctx, "/getusers", map[string]any{"user": []string{username}}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Users) == 0 || resp.Users[0].ChannelID == "" {
		return nil, oops.With("username", username).Wrap(errors.ErrNotFound)
	}
	return &resp.Users[0], nil
}

func (c *Client) Channel(ctx context.Context, channelID string) (*Channel, error) {
	var ch Channel
	if err := c.post(ctx, "/channels/id", map[string]any{"channel_id": channelID}, &ch); err != nil {
		return nil, err
	}
	if ch.ChannelURL == "" {
		return nil, errors.Transient(oops.With("channel_id", channelID).Errorf("invalid response from trovo api"))
	}
	return &ch, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return oops.Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return oops.With("path", path).Wrap(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-ID", c.clientID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Transient(err, "path", path)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.Permanent("trovo rejected client id (status %d)", resp.StatusCode)
	case resp.StatusCode == http.StatusBadRequest:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Validation("trovo rejected request: %s", bytes.TrimSpace(msg))
	case resp.StatusCode/100 != 2:
		return errors.Transient(oops.With("path", path, "status", resp.StatusCode).Errorf("unexpected status"))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Transient(err, "path", path)
	}
	return nil
}
