package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDoc struct {
	meta    Metadata
	content string
	readErr error
}

type memCorpus struct {
	order []string
	docs  map[string]memDoc
}

func newMemCorpus() *memCorpus {
	return &memCorpus{docs: map[string]memDoc{}}
}

func (c *memCorpus) add(path string, doc memDoc) *memCorpus {
	c.order = append(c.order, path)
	c.docs[path] = doc
	return c
}

func (c *memCorpus) Documents(ctx context.Context) ([]string, error) {
	return c.order, nil
}

func (c *memCorpus) Metadata(ctx context.Context, path string) (Metadata, bool) {
	d, ok := c.docs[path]
	return d.meta, ok
}

func (c *memCorpus) Read(ctx context.Context, path string) (string, error) {
	d, ok := c.docs[path]
	if !ok {
		return "", errors.New("not found")
	}
	if d.readErr != nil {
		return "", d.readErr
	}
	return d.content, nil
}

type failingCorpus struct{ memCorpus }

func (c *failingCorpus) Documents(ctx context.Context) ([]string, error) {
	return nil, errors.New("disk gone")
}

func paths(cands []Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Path
	}
	return out
}

func TestRankMetadataScenario(t *testing.T) {
	corpus := newMemCorpus().
		add("doc1.md", memDoc{meta: Metadata{Title: "Rust ownership"}, content: "Rust keeps memory safe."}).
		add("doc2.md", memDoc{meta: Metadata{Title: "Notes", Headings: []string{"Async IO"}}, content: "Nothing else here."}).
		add("doc3.md", memDoc{meta: Metadata{Title: "Gardening"}, content: "Tomatoes and basil, rust on the shed."})

	engine := NewEngine(corpus, DefaultConfig(), nil)
	got, err := engine.Rank(context.Background(), Query{Text: "rust async", Limit: 5})

	require.NoError(t, err)
	assert.Equal(t, []string{"doc1.md", "doc2.md"}, paths(got))
	assert.Equal(t, 6.0, got[0].Score, "title 5 + one content hit")
	assert.Equal(t, 3.0, got[1].Score, "heading 3, no content hit")
	assert.Equal(t, "Rust keeps memory safe.", got[0].Snippet)
}

func TestRankSignalWeights(t *testing.T) {
	corpus := newMemCorpus().
		add("alias.md", memDoc{meta: Metadata{Title: "x", Aliases: []string{"Graph Walks"}}}).
		add("tag.md", memDoc{meta: Metadata{Title: "y", Tags: []string{"#graph"}}}).
		add("title.md", memDoc{meta: Metadata{Title: "Graph theory"}}).
		add("heading.md", memDoc{meta: Metadata{Title: "z", Headings: []string{"On graphs"}}})

	got, err := NewEngine(corpus, DefaultConfig(), nil).Rank(context.Background(), Query{Text: "graph", Limit: 12})

	require.NoError(t, err)
	assert.Equal(t, []string{"title.md", "tag.md", "alias.md", "heading.md"}, paths(got))
	assert.Equal(t, []float64{5, 4, 3, 3}, []float64{got[0].Score, got[1].Score, got[2].Score, got[3].Score})
}

func TestRankTagTokenMatchesTag(t *testing.T) {
	corpus := newMemCorpus().
		add("a.md", memDoc{meta: Metadata{Title: "a", Tags: []string{"go"}}})

	got, err := NewEngine(corpus, DefaultConfig(), nil).Rank(context.Background(), Query{Text: "#go"})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4.0, got[0].Score)
}

func TestRankContentBoundaries(t *testing.T) {
	corpus := newMemCorpus().
		add("a.md", memDoc{
			meta:    Metadata{Title: "Rust"},
			content: "rust, Rust! rusty trust _rust rust_ (rust) #rust",
		})

	got, err := NewEngine(corpus, DefaultConfig(), nil).Rank(context.Background(), Query{Text: "rust"})

	require.NoError(t, err)
	require.Len(t, got, 1)
	// rust, Rust, (rust), #rust count; rusty, trust, _rust, rust_ do not.
	assert.Equal(t, 5.0+4.0, got[0].Score)
}

func TestRankContentOverlappingOccurrences(t *testing.T) {
	corpus := newMemCorpus().
		add("a.md", memDoc{meta: Metadata{Title: "a+a"}, content: "xa+a+a"})

	got, err := NewEngine(corpus, DefaultConfig(), nil).Rank(context.Background(), Query{Text: "a+a"})

	require.NoError(t, err)
	require.Len(t, got, 1)
	// The glued hit at offset 1 is rejected; the one at offset 3 counts.
	assert.Equal(t, 5.0+1.0, got[0].Score)
	assert.Equal(t, "xa+a+a", got[0].Snippet)
}

func TestRankContentBudget(t *testing.T) {
	content := strings.Repeat("filler ", 50) + "needle"
	corpus := newMemCorpus().
		add("a.md", memDoc{meta: Metadata{Title: "needle"}, content: content})

	cfg := DefaultConfig()
	cfg.ContentBudget = 100
	got, err := NewEngine(corpus, cfg, nil).Rank(context.Background(), Query{Text: "needle"})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 5.0, got[0].Score, "occurrence past the budget is ignored")
	assert.Empty(t, got[0].Snippet)
}

func TestRankUnreadableDocumentKeepsMetadataScore(t *testing.T) {
	corpus := newMemCorpus().
		add("broken.md", memDoc{meta: Metadata{Title: "rust"}, readErr: errors.New("permission denied")}).
		add("fine.md", memDoc{meta: Metadata{Title: "rust"}, content: "rust rust"})

	got, err := NewEngine(corpus, DefaultConfig(), nil).Rank(context.Background(), Query{Text: "rust"})

	require.NoError(t, err)
	assert.Equal(t, []string{"fine.md", "broken.md"}, paths(got))
	assert.Equal(t, 5.0, got[1].Score)
}

func TestRankShortlistCarriesOutsidersByMetadataOnly(t *testing.T) {
	corpus := newMemCorpus().
		add("top.md", memDoc{meta: Metadata{Title: "rust", Tags: []string{"rust"}}, content: "nothing"}).
		add("outside.md", memDoc{meta: Metadata{Title: "rust"}, content: "rust rust rust rust rust rust"})

	cfg := DefaultConfig()
	cfg.ShortlistSize = 1
	got, err := NewEngine(corpus, cfg, nil).Rank(context.Background(), Query{Text: "rust"})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "top.md", got[0].Path)
	assert.Equal(t, 9.0, got[0].Score)
	assert.Equal(t, 5.0, got[1].Score)
	assert.Empty(t, got[1].Snippet)
}

func TestRankExcludesSourceAndCapsResults(t *testing.T) {
	corpus := newMemCorpus()
	for i := 0; i < 20; i++ {
		corpus.add(fmt.Sprintf("n%02d.md", i), memDoc{meta: Metadata{Title: "topic"}})
	}

	engine := NewEngine(corpus, DefaultConfig(), nil)
	got, err := engine.Rank(context.Background(), Query{
		Text:         "topic",
		Limit:        4,
		ExcludePaths: []string{"n00.md", "board.canvas"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"n01.md", "n02.md", "n03.md", "n04.md"}, paths(got), "ties keep corpus order")

	got, err = engine.Rank(context.Background(), Query{Text: "topic", Limit: 50})
	require.NoError(t, err)
	assert.Len(t, got, 12)
}

func TestRankIsDeterministic(t *testing.T) {
	corpus := newMemCorpus()
	for i := 0; i < 40; i++ {
		corpus.add(fmt.Sprintf("d%02d.md", i), memDoc{
			meta:    Metadata{Title: fmt.Sprintf("graph %d", i%3), Headings: []string{"cycles"}},
			content: strings.Repeat("graph ", i%5),
		})
	}
	engine := NewEngine(corpus, DefaultConfig(), nil)

	first, err := engine.Rank(context.Background(), Query{Text: "graph cycles", Limit: 12})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := engine.Rank(context.Background(), Query{Text: "graph cycles", Limit: 12})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRankNoTokens(t *testing.T) {
	corpus := newMemCorpus().add("a.md", memDoc{meta: Metadata{Title: "the"}})

	got, err := NewEngine(corpus, DefaultConfig(), nil).Rank(context.Background(), Query{Text: "the of and"})

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRankTitleFallsBackToFileName(t *testing.T) {
	corpus := newMemCorpus().add("folder/Rust Book.md", memDoc{})

	got, err := NewEngine(corpus, DefaultConfig(), nil).Rank(context.Background(), Query{Text: "rust"})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Rust Book", got[0].Title)
}

func TestRankEnumerationError(t *testing.T) {
	_, err := NewEngine(&failingCorpus{}, DefaultConfig(), nil).Rank(context.Background(), Query{Text: "rust"})
	assert.Error(t, err)
}
