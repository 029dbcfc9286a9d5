package search

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"canvas-rag-be/internal/pkg/logger"
	"canvas-rag-be/pkg/utils"
	"canvas-rag-be/pkg/worker"
)

// Engine ranks corpus documents against free text using local signals
// only: a metadata pass over the whole corpus, then a content pass over
// the best metadata hits.
type Engine struct {
	corpus Corpus
	config Config
	logger logger.ILogger
}

// NewEngine creates a new relevance engine. logger may be nil.
func NewEngine(corpus Corpus, config Config, logger logger.ILogger) *Engine {
	def := DefaultConfig()
	if config.ShortlistSize <= 0 {
		config.ShortlistSize = def.ShortlistSize
	}
	if config.ContentBudget <= 0 {
		config.ContentBudget = def.ContentBudget
	}
	if config.SnippetWidth <= 0 {
		config.SnippetWidth = def.SnippetWidth
	}
	return &Engine{corpus: corpus, config: config, logger: logger}
}

type scored struct {
	path    string
	title   string
	score   float64
	snippet string
	order   int
}

type contentHit struct {
	score   float64
	snippet string
}

// tokenPattern is a token's matcher, compiled once per Rank call and
// shared by every document job.
type tokenPattern struct {
	re *regexp.Regexp
}

// Rank returns the top documents for q, best first. Documents that fail to
// read contribute only their metadata score.
func (e *Engine) Rank(ctx context.Context, q Query) ([]Candidate, error) {
	tokens := Tokenize(q.Text)
	if len(tokens) == 0 {
		return []Candidate{}, nil
	}

	paths, err := e.corpus.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate corpus: %w", err)
	}

	excluded := make(map[string]bool, len(q.ExcludePaths))
	for _, p := range q.ExcludePaths {
		excluded[p] = true
	}

	// Stage 1: metadata over the full corpus, kept in enumeration order.
	var hits []*scored
	for i, p := range paths {
		if excluded[p] {
			continue
		}
		meta, ok := e.corpus.Metadata(ctx, p)
		if !ok {
			meta = Metadata{}
		}
		if meta.Title == "" {
			meta.Title = titleFromPath(p)
		}
		s := e.metadataScore(meta, tokens)
		if s <= 0 {
			continue
		}
		hits = append(hits, &scored{path: p, title: meta.Title, score: s, order: i})
	}

	shortlist := make([]*scored, len(hits))
	copy(shortlist, hits)
	sort.SliceStable(shortlist, func(i, j int) bool {
		return shortlist[i].score > shortlist[j].score
	})
	if len(shortlist) > e.config.ShortlistSize {
		shortlist = shortlist[:e.config.ShortlistSize]
	}

	// Stage 2: content over the shortlist only.
	patterns := compilePatterns(tokens)
	jobs := make([]worker.Job[contentHit], len(shortlist))
	for i, s := range shortlist {
		p := s.path
		jobs[i] = func(ctx context.Context) contentHit {
			return e.contentScore(ctx, p, patterns)
		}
	}
	limit := worker.EffectiveLimit(e.config.Concurrency, len(jobs))
	contentHits := worker.Run(ctx, jobs, limit)

	for i, s := range shortlist {
		s.score += contentHits[i].score
		if contentHits[i].snippet != "" {
			s.snippet = contentHits[i].snippet
		}
	}

	// hits is still in enumeration order, so the stable sort breaks ties
	// by corpus position.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	limitN := ResultLimit(q.Limit, e.config.MaxResults)
	out := make([]Candidate, 0, limitN)
	for _, s := range hits {
		if len(out) == limitN {
			break
		}
		if excluded[s.path] || s.score <= 0 {
			continue
		}
		out = append(out, Candidate{Path: s.path, Title: s.title, Score: s.score, Snippet: s.snippet})
	}

	if e.logger != nil {
		e.logger.Debug("SEARCH", "Ranked corpus", map[string]interface{}{
			"tokens":    tokens,
			"corpus":    len(paths),
			"matched":   len(hits),
			"shortlist": len(shortlist),
			"returned":  len(out),
		})
	}
	return out, nil
}

func (e *Engine) metadataScore(meta Metadata, tokens []string) float64 {
	w := e.config.Weights
	title := strings.ToLower(meta.Title)
	var score float64
	for _, tok := range tokens {
		b := bare(tok)
		if strings.Contains(title, b) {
			score += w.Title
		}
		if anyContains(meta.Headings, b) {
			score += w.Heading
		}
		if anyContains(meta.Aliases, b) {
			score += w.Alias
		}
		for _, tag := range meta.Tags {
			if strings.EqualFold(strings.TrimLeft(tag, "#"), b) {
				score += w.Tag
				break
			}
		}
	}
	return score
}

func (e *Engine) contentScore(ctx context.Context, p string, patterns []tokenPattern) contentHit {
	content, err := e.corpus.Read(ctx, p)
	if err != nil {
		if e.logger != nil {
			e.logger.Debug("SEARCH", "Skipping unreadable document", map[string]interface{}{
				"path":  p,
				"error": err.Error(),
			})
		}
		return contentHit{}
	}
	content = utils.TruncateRunes(content, e.config.ContentBudget)

	var hit contentHit
	firstAt := -1
	var firstEnd int
	for _, pat := range patterns {
		for _, loc := range boundedMatches(pat.re, content) {
			hit.score += e.config.Weights.Content
			if firstAt < 0 || loc[0] < firstAt {
				firstAt, firstEnd = loc[0], loc[1]
			}
		}
	}
	if firstAt >= 0 {
		hit.snippet = utils.Excerpt(content, firstAt, firstEnd, e.config.SnippetWidth)
	}
	return hit
}

func compilePatterns(tokens []string) []tokenPattern {
	patterns := make([]tokenPattern, 0, len(tokens))
	for _, tok := range tokens {
		patterns = append(patterns, tokenPattern{
			re: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(bare(tok))),
		})
	}
	return patterns
}

// boundedMatches returns every occurrence of re in s that sits on word
// boundaries. A rejected occurrence only advances the scan by one rune,
// so an overlapping valid one (a+a in xa+a+a) is still found.
func boundedMatches(re *regexp.Regexp, s string) [][2]int {
	var out [][2]int
	for offset := 0; offset < len(s); {
		loc := re.FindStringIndex(s[offset:])
		if loc == nil {
			break
		}
		start, end := offset+loc[0], offset+loc[1]
		if end > start && onWordBoundary(s, start, end) {
			out = append(out, [2]int{start, end})
			offset = end
			continue
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		offset = start + size
	}
	return out
}

// onWordBoundary reports whether s[start:end] is not glued to another
// word character on either side.
func onWordBoundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if utils.IsWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if utils.IsWordRune(r) {
			return false
		}
	}
	return true
}

func anyContains(values []string, token string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), token) {
			return true
		}
	}
	return false
}

func titleFromPath(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}
