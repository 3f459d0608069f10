package domain

import "time"

// Novel is a raw search result from the Pixiv novel API, before enrichment.
type Novel struct {
	ID         string
	Title      string
	CreateDate string // source-timezone string, e.g. "2024-01-01T12:00:00+09:00"
	AuthorID   string
	AuthorName string
	Caption    string
	Tags       []string
}

// NovelItem is a Novel augmented with the derived fields the sinks render.
type NovelItem struct {
	ID             string
	Title          string
	AuthorName     string
	AuthorID       string
	AuthorURL      string
	WebURL         string
	SchemeURL      string
	PublishedAt    time.Time // normalized to the reference timezone
	PubDate        string    // "2006-01-02 15:04"
	ContentPreview string
	Tags           []string
}
