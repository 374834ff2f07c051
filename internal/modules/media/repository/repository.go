package repository

import "context"

// Repository persists per-link high-watermarks.
// SaveWatermark never lowers a stored value; it returns the value in effect
// after the call.
type Repository interface {
	GetWatermark(ctx context.Context, link string) (ts int64, ok bool, err error)
	SaveWatermark(ctx context.Context, link string, ts int64) (int64, error)
}
