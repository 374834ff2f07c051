//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// CacheState is the lifecycle state of the directory snapshot
// ENUM(empty,fresh,stale)
type CacheState string
