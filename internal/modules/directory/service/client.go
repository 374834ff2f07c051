package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/reshetovitsme/relaybot/internal/modules/directory/domain"
	"github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/samber/oops"
)

// Source performs one authenticated round trip and returns the full server list.
type Source interface {
	FetchServers(ctx context.Context) ([]domain.RawServer, error)
}

// DisabledSource fails every fetch with err. It stands in when credentials
// are missing so lookups degrade to an empty cache.
type DisabledSource struct {
	Err error
}

func (s DisabledSource) FetchServers(context.Context) ([]domain.RawServer, error) {
	return nil, s.Err
}

// HTTPSource logs in with a form post and reads the server list from the
// JSON body of the redirect target.
type HTTPSource struct {
	url        string
	login      string
	password   string
	httpClient *http.Client
}

func NewHTTPSource(endpoint, login, password string, httpClient *http.Client) (*HTTPSource, error) {
	if strings.TrimSpace(login) == "" || strings.TrimSpace(password) == "" {
		return nil, errors.Permanent("directory login or password not set")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPSource{url: endpoint, login: login, password: password, httpClient: httpClient}, nil
}

func (s *HTTPSource) FetchServers(ctx context.Context) ([]domain.RawServer, error) {
	form := url.Values{
		"AUTH_FORM":     {"Y"},
		"TYPE":          {"AUTH"},
		"backurl":       {"/en/personal/server/?ajax=y"},
		"USER_LOGIN":    {s.login},
		"USER_PASSWORD": {s.password},
		"USER_REMEMBER": {"Y"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, oops.With("url", s.url).Wrap(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Transient(err, "url", s.url)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.Permanent("directory rejected credentials (status %d)", resp.StatusCode)
	case resp.StatusCode/100 != 2:
		return nil, errors.Transient(oops.With("url", s.url, "status", resp.StatusCode).Errorf("unexpected status"))
	}

	var body struct {
		Servers []domain.RawServer `json:"SERVERS"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Transient(oops.With("url", s.url).Wrapf(err, "decoding server list"))
	}
	if body.Servers == nil {
		return nil, errors.Transient(oops.With("url", s.url).Errorf("no server list in response"))
	}
	return body.Servers, nil
}
