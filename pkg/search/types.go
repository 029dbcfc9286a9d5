package search

import "context"

// Metadata holds the cheap structured signals of a document.
type Metadata struct {
	Title    string
	Headings []string
	Aliases  []string
	Tags     []string
}

// Corpus is the read side of the document repository.
type Corpus interface {
	// Documents enumerates every document path in a stable order.
	Documents(ctx context.Context) ([]string, error)
	// Metadata returns structured signals for path. ok is false when the
	// repository has none.
	Metadata(ctx context.Context, path string) (meta Metadata, ok bool)
	// Read returns the document content.
	Read(ctx context.Context, path string) (string, error)
}

// Query describes one ranking request.
type Query struct {
	Text string
	// ExcludePaths are never returned (the query's own source document,
	// the canvas document).
	ExcludePaths []string
	// Limit is the requested result count, clamped to [3, 12].
	Limit int
}

// Candidate is a ranked document.
type Candidate struct {
	Path    string  `json:"path"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet,omitempty"`
}

// Weights is the scoring policy. Only the relative order of the weights
// carries meaning.
type Weights struct {
	Title   float64 `yaml:"title"`
	Heading float64 `yaml:"heading"`
	Alias   float64 `yaml:"alias"`
	Tag     float64 `yaml:"tag"`
	Content float64 `yaml:"content"`
}

// DefaultWeights returns the stock scoring policy.
func DefaultWeights() Weights {
	return Weights{
		Title:   5,
		Heading: 3,
		Alias:   3,
		Tag:     4,
		Content: 1,
	}
}

// Config encapsulates search parameters.
type Config struct {
	Weights       Weights
	ShortlistSize int
	ContentBudget int
	SnippetWidth  int
	MaxResults    int
	Concurrency   int
}

// DefaultConfig returns default search configuration.
func DefaultConfig() Config {
	return Config{
		Weights:       DefaultWeights(),
		ShortlistSize: 100,
		ContentBudget: 3000,
		SnippetWidth:  120,
		MaxResults:    12,
		Concurrency:   8,
	}
}

const (
	minResults = 3
	maxResults = 12
)

// ResultLimit returns how many results a query may return: the requested
// count and the configured maximum are each clamped to [3, 12], and the
// smaller one wins.
func ResultLimit(requested, max int) int {
	if max <= 0 {
		max = maxResults
	}
	r := clampInt(requested, minResults, maxResults)
	m := clampInt(max, minResults, maxResults)
	if r < m {
		return r
	}
	return m
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
