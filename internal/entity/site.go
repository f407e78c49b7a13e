package entity

// CandidateSite is a search result the pipeline visits once per run.
type CandidateSite struct {
	URL     string `json:"url" yaml:"url"`
	Title   string `json:"title" yaml:"title"`
	Snippet string `json:"snippet" yaml:"snippet"`
}
