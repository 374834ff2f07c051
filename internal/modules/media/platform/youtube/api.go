package youtube

import (
	"context"
	"net/http"

	"github.com/samber/oops"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// API is the subset of the YouTube Data API used by the fetcher.
type API interface {
	Channels(ctx context.Context, ids []string) ([]*yt.Channel, error)
	PlaylistVideoIDs(ctx context.Context, playlistID string, limit int) ([]string, error)
	Videos(ctx context.Context, ids []string) ([]*yt.Video, error)
}

type serviceAPI struct {
	svc *yt.Service
}

// NewAPI builds an API client authenticated with an API key.
func NewAPI(ctx context.Context, apiKey string, httpClient *http.Client) (API, error) {
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, oops.With("context", "failed to create youtube service").Wrap(err)
	}
	return &serviceAPI{svc: svc}, nil
}

func (a *serviceAPI) Channels(ctx context.Context, ids []string) ([]*yt.Channel, error) {
	resp, err := a.svc.Channels.List([]string{"snippet", "contentDetails"}).
		Id(ids...).
		MaxResults(int64(len(ids))).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *serviceAPI) PlaylistVideoIDs(ctx context.Context, playlistID string, limit int) ([]string, error) {
	resp, err := a.svc.PlaylistItems.List([]string{"contentDetails"}).
		PlaylistId(playlistID).
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
			ids = append(ids, item.ContentDetails.VideoId)
		}
	}
	return ids, nil
}

func (a *serviceAPI) Videos(ctx context.Context, ids []string) ([]*yt.Video, error) {
	resp, err := a.svc.Videos.List([]string{"snippet"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}
