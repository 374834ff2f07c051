package twitch

import (
	"context"
	"net/http"
	"sync"

	"github.com/nicklaw5/helix/v2"
	"github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/samber/oops"
)

// API is the subset of Helix used by the fetcher.
type API interface {
	User(ctx context.Context, login string) (*helix.User, error)
	Streams(ctx context.Context, login string, limit int) ([]helix.Stream, error)
}

// HelixAPI authenticates with an app access token, refreshed on 401. Each
// call builds a helix client bound to the caller's context; the token is
// shared across them.
type HelixAPI struct {
	opts helix.Options

	mu    sync.Mutex
	token string
}

func NewHelixAPI(clientID, clientSecret string, httpClient *http.Client) (*HelixAPI, error) {
	opts := helix.Options{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}
	if httpClient != nil {
		opts.HTTPClient = httpClient
	}
	if _, err := helix.NewClient(&opts); err != nil {
		return nil, oops.With("context", "failed to create helix client").Wrap(err)
	}
	return &HelixAPI{opts: opts}, nil
}

func (a *HelixAPI) User(ctx context.Context, login string) (*helix.User, error) {
	var users []helix.User
	err := a.call(ctx, func(c *helix.Client) (*helix.ResponseCommon, error) {
		resp, err := c.GetUsers(&helix.UsersParams{Logins: []string{login}})
		if err != nil {
			return nil, err
		}
		users = resp.Data.Users
		return &resp.ResponseCommon, nil
	})
	if err != nil {
		return nil, err
	}
	if len(users) != 1 {
		return nil, oops.With("login", login).Wrap(errors.ErrNotFound)
	}
	return &users[0], nil
}

func (a *HelixAPI) Streams(ctx context.Context, login string, limit int) ([]helix.Stream, error) {
	var streams []helix.Stream
	err := a.call(ctx, func(c *helix.Client) (*helix.ResponseCommon, error) {
		resp, err := c.GetStreams(&helix.StreamsParams{UserLogins: []string{login}, First: limit})
		if err != nil {
			return nil, err
		}
		streams = resp.Data.Streams
		return &resp.ResponseCommon, nil
	})
	return streams, err
}

// call runs fn with a valid app token, retrying once after a 401.
func (a *HelixAPI) call(ctx context.Context, fn func(c *helix.Client) (*helix.ResponseCommon, error)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		if a.token == "" {
			if err := a.refreshToken(ctx); err != nil {
				return err
			}
		}

		client, err := a.clientFor(ctx)
		if err != nil {
			return err
		}
		resp, err := fn(client)
		if err != nil {
			return errors.Transient(err)
		}
		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			a.token = ""
			continue
		}
		return statusError(resp)
	}
	return nil
}

// clientFor returns a helix client bound to ctx carrying the current token.
func (a *HelixAPI) clientFor(ctx context.Context) (*helix.Client, error) {
	opts := a.opts
	opts.AppAccessToken = a.token
	client, err := helix.NewClientWithContext(ctx, &opts)
	if err != nil {
		return nil, oops.With("context", "failed to create helix client").Wrap(err)
	}
	return client, nil
}

func (a *HelixAPI) refreshToken(ctx context.Context) error {
	client, err := a.clientFor(ctx)
	if err != nil {
		return err
	}
	resp, err := client.RequestAppAccessToken(nil)
	if err != nil {
		return errors.Transient(err)
	}
	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.Permanent("twitch rejected client credentials: %s", resp.ErrorMessage)
	case resp.StatusCode != http.StatusOK:
		return errors.Transient(oops.With("status", resp.StatusCode).Errorf("token request failed: %s", resp.ErrorMessage))
	}
	a.token = resp.Data.AccessToken
	return nil
}

func statusError(resp *helix.ResponseCommon) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		return errors.Validation("twitch rejected request: %s", resp.ErrorMessage)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.Permanent("twitch denied access: %s", resp.ErrorMessage)
	default:
		return errors.Transient(oops.With("status", resp.StatusCode).Errorf("helix error: %s", resp.ErrorMessage))
	}
}
