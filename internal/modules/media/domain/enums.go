//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// Platform identifies the content platform a link belongs to
// ENUM(youtube,twitch,trovo)
type Platform string
