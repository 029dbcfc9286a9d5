// Package assembler turns a root node and its upstream chain into one
// context blob plus a sources list.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"canvas-rag-be/internal/pkg/logger"
	"canvas-rag-be/pkg/canvas"
	"canvas-rag-be/pkg/utils"
	"canvas-rag-be/pkg/worker"
)

// DefaultCharBudget is the per-node character budget.
const DefaultCharBudget = 4000

var errNoReader = errors.New("no document reader configured")

// Reader resolves file nodes to document content.
type Reader interface {
	Read(ctx context.Context, path string) (string, error)
}

// Config controls fragment sizes and read parallelism.
type Config struct {
	CharBudget  int
	Concurrency int
}

// Bundle is the assembled context.
type Bundle struct {
	Text    string
	Sources string
	// Parts holds one entry per input node in assembly order, including
	// those that contributed nothing.
	Parts []Part
}

// Part is the contribution of a single node.
type Part struct {
	NodeID   string
	Fragment string
	Citation string
}

type Assembler struct {
	reader Reader
	config Config
	logger logger.ILogger
}

// NewAssembler creates an assembler reading file nodes through reader.
// logger may be nil.
func NewAssembler(reader Reader, config Config, logger logger.ILogger) *Assembler {
	if config.CharBudget <= 0 {
		config.CharBudget = DefaultCharBudget
	}
	return &Assembler{reader: reader, config: config, logger: logger}
}

// Assemble materializes upstream (nearest first, as returned by the walk)
// and root into a bundle. Fragments are ordered farthest ancestor first
// and the root last, so the text reads top to bottom the way the canvas
// is stacked.
func (a *Assembler) Assemble(ctx context.Context, root canvas.Node, upstream []canvas.Node) Bundle {
	ordered := make([]canvas.Node, 0, len(upstream)+1)
	for i := len(upstream) - 1; i >= 0; i-- {
		ordered = append(ordered, upstream[i])
	}
	ordered = append(ordered, root)

	jobs := make([]worker.Job[Part], len(ordered))
	for i, n := range ordered {
		n := n
		jobs[i] = func(ctx context.Context) Part {
			return a.part(ctx, n)
		}
	}
	parts := worker.Run(ctx, jobs, worker.EffectiveLimit(a.config.Concurrency, len(jobs)))

	var fragments, citations []string
	for _, p := range parts {
		if p.Fragment != "" {
			fragments = append(fragments, p.Fragment)
		}
		if p.Citation != "" {
			citations = append(citations, p.Citation)
		}
	}

	return Bundle{
		Text:    strings.Join(fragments, "\n\n"),
		Sources: strings.Join(citations, "\n"),
		Parts:   parts,
	}
}

func (a *Assembler) part(ctx context.Context, n canvas.Node) Part {
	p := Part{NodeID: n.ID}

	switch n.Type {
	case canvas.NodeText:
		text := a.clip(canvas.TextOf(n))
		if text == "" {
			return p
		}
		p.Fragment = text
		p.Citation = fmt.Sprintf("- Text node %s", n.ID)

	case canvas.NodeFile:
		path := canvas.FileOf(n)
		if path == "" {
			p.Citation = fmt.Sprintf("- (missing file) node %s", n.ID)
			return p
		}
		content, err := a.read(ctx, path)
		if err != nil {
			if a.logger != nil {
				a.logger.Debug("ASSEMBLER", "File node unresolved", map[string]interface{}{
					"node":  n.ID,
					"path":  path,
					"error": err.Error(),
				})
			}
			p.Citation = fmt.Sprintf("- [[%s]] (missing file)", path)
			return p
		}
		p.Citation = fmt.Sprintf("- [[%s]]", path)
		if content = a.clip(content); content != "" {
			p.Fragment = fmt.Sprintf("From %s:\n%s", path, content)
		}

	case canvas.NodeLink:
		url := canvas.URLOf(n)
		label := canvas.LabelOf(n)
		switch {
		case url == "" && label == "":
			return p
		case label == "":
			p.Fragment = url
			p.Citation = fmt.Sprintf("- <%s>", url)
		case url == "":
			p.Fragment = label
			p.Citation = fmt.Sprintf("- %s", label)
		default:
			p.Fragment = fmt.Sprintf("%s (%s)", label, url)
			p.Citation = fmt.Sprintf("- [%s](%s)", label, url)
		}

	case canvas.NodeGroup:
		label := canvas.LabelOf(n)
		if label == "" {
			return p
		}
		p.Fragment = label
		p.Citation = fmt.Sprintf("- Group: %s", label)
	}

	return p
}

func (a *Assembler) read(ctx context.Context, path string) (string, error) {
	if a.reader == nil {
		return "", errNoReader
	}
	return a.reader.Read(ctx, path)
}

func (a *Assembler) clip(s string) string {
	return strings.TrimSpace(utils.TruncateRunes(strings.TrimSpace(s), a.config.CharBudget))
}
