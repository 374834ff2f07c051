package twitch

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	apperrors "github.com/reshetovitsme/relaybot/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helixStub answers token and users requests regardless of host.
type helixStub struct {
	mu           sync.Mutex
	tokens       []string
	tokenCalls   int
	rejectBearer map[string]bool
	bearers      []string
}

func (s *helixStub) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case strings.HasSuffix(req.URL.Path, "/oauth2/token"):
		token := s.tokens[min(s.tokenCalls, len(s.tokens)-1)]
		s.tokenCalls++
		return jsonResponse(req, http.StatusOK, `{"access_token":"`+token+`","expires_in":3600,"token_type":"bearer"}`), nil
	case strings.HasSuffix(req.URL.Path, "/users"):
		bearer := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
		s.bearers = append(s.bearers, bearer)
		if s.rejectBearer[bearer] {
			return jsonResponse(req, http.StatusUnauthorized, `{"error":"Unauthorized","status":401,"message":"Invalid OAuth token"}`), nil
		}
		return jsonResponse(req, http.StatusOK, `{"data":[{"id":"1","login":"pilot","display_name":"Pilot"}]}`), nil
	}
	return jsonResponse(req, http.StatusNotFound, `{}`), nil
}

func jsonResponse(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

func newStubbedAPI(t *testing.T, stub *helixStub) *HelixAPI {
	t.Helper()
	api, err := NewHelixAPI("client", "secret", &http.Client{Transport: stub})
	require.NoError(t, err)
	return api
}

func TestHelixAPI_SharesTokenAcrossCalls(t *testing.T) {
	stub := &helixStub{tokens: []string{"tok1"}}
	api := newStubbedAPI(t, stub)

	for range 2 {
		user, err := api.User(context.Background(), "pilot")
		require.NoError(t, err)
		assert.Equal(t, "Pilot", user.DisplayName)
	}

	assert.Equal(t, 1, stub.tokenCalls)
	assert.Equal(t, []string{"tok1", "tok1"}, stub.bearers)
}

func TestHelixAPI_RefreshesTokenOnUnauthorized(t *testing.T) {
	stub := &helixStub{tokens: []string{"stale", "fresh"}, rejectBearer: map[string]bool{"stale": true}}
	api := newStubbedAPI(t, stub)

	user, err := api.User(context.Background(), "pilot")
	require.NoError(t, err)
	assert.Equal(t, "pilot", user.Login)

	assert.Equal(t, 2, stub.tokenCalls)
	assert.Equal(t, []string{"stale", "fresh"}, stub.bearers)
}

func TestHelixAPI_HonorsCallerContext(t *testing.T) {
	stub := &helixStub{tokens: []string{"tok1"}}
	api := newStubbedAPI(t, stub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := api.User(ctx, "pilot")
	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
	assert.Zero(t, stub.tokenCalls)
}
