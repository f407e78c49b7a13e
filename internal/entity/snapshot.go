package entity

import "encoding/json"

// PageSnapshot is the rendered state of a page captured by a harvest.
// It is never persisted.
type PageSnapshot struct {
	URL       string
	Title     string
	RawMarkup string
	// StructuredData holds each embedded JSON-LD block that parsed. Nil when
	// none did.
	StructuredData []json.RawMessage
	ImageURLs      []string
	Links          []string
	Err            error
}

// Failed reports whether the harvest could not capture the page.
func (s *PageSnapshot) Failed() bool {
	return s.Err != nil
}
