package domain

// MediaSource is one upstream channel on a known platform. Link is the
// canonical form and the source's identity; Aliases are the tracked links
// that normalize to it.
type MediaSource struct {
	Link     string
	Platform Platform
	Aliases  []string
}

// Post is one upstream item (video upload or stream start).
type Post struct {
	ID          string
	Link        string
	Timestamp   int64 // unix milliseconds
	Title       string
	Description string
	URL         string
	Author      string
	AuthorURL   string
	AuthorIcon  string
	Image       string
	Category    string
}

// PostRecord is the persisted high-watermark for a link.
type PostRecord struct {
	Link                string `json:"link"`
	LastPostedTimestamp int64  `json:"last_posted_timestamp"`
}
