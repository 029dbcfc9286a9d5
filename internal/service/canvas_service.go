package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"canvas-rag-be/internal/config"
	"canvas-rag-be/internal/dto"
	"canvas-rag-be/internal/pkg/logger"
	"canvas-rag-be/internal/vault"
	"canvas-rag-be/pkg/canvas"
	"canvas-rag-be/pkg/events"
	"canvas-rag-be/pkg/layout"
	"canvas-rag-be/pkg/llm"
	"canvas-rag-be/pkg/rag/assembler"
	"canvas-rag-be/pkg/rag/upstream"
	"canvas-rag-be/pkg/search"
	"canvas-rag-be/pkg/utils"
)

var (
	ErrDisabled         = errors.New("ai is disabled")
	ErrNodeNotFound     = errors.New("node not found")
	ErrCanvasNotFound   = errors.New("canvas not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrAskFailed        = errors.New("ask failed")
)

// AnswerEdgeLabel labels the edge from a root node to its answer note.
const AnswerEdgeLabel = "answer"

// DocumentStore is the document repository the service works against.
// *vault.Vault implements it.
type DocumentStore interface {
	search.Corpus
	Write(ctx context.Context, p string, content string) error
	Remove(ctx context.Context, p string) error
	EnsureFolder(ctx context.Context, p string) error
	Exists(p string) bool
	ReadCanvas(ctx context.Context, p string) (*canvas.Graph, error)
	WriteCanvas(ctx context.Context, p string, g *canvas.Graph) error
}

type ICanvasService interface {
	AssembleContext(ctx context.Context, req *dto.ContextRequest) (*dto.ContextBundle, error)
	FindRelated(ctx context.Context, req *dto.RelatedRequest) ([]*dto.RankedItem, error)
	PlaceChild(ctx context.Context, req *dto.PlaceRequest) (*dto.MutationOutcome, error)
	Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error)
	CancelAsk() bool
	ExportContext(ctx context.Context, req *dto.ExportRequest) (*dto.ExportResponse, error)
}

type canvasService struct {
	store     DocumentStore
	provider  llm.LLMProvider
	publisher IPublisherService
	guard     *RequestGuard
	engine    *search.Engine
	assembler *assembler.Assembler
	cfg       *config.Config
	logger    logger.ILogger
	now       func() time.Time
}

// NewCanvasService wires the canvas operations. provider may be nil when
// AI is disabled and publisher may be nil when events are not wanted.
func NewCanvasService(
	store DocumentStore,
	provider llm.LLMProvider,
	publisher IPublisherService,
	guard *RequestGuard,
	cfg *config.Config,
	log logger.ILogger,
) ICanvasService {
	if log == nil {
		log = logger.NewNop()
	}
	if guard == nil {
		guard = NewRequestGuard()
	}

	engine := search.NewEngine(store, search.Config{
		Weights:       cfg.Search.Weights,
		ShortlistSize: cfg.Search.ShortlistSize,
		ContentBudget: cfg.Search.ContentBudget,
		SnippetWidth:  cfg.Search.SnippetWidth,
		MaxResults:    cfg.Search.MaxResults,
		Concurrency:   cfg.Search.Concurrency,
	}, log)

	asm := assembler.NewAssembler(store, assembler.Config{
		CharBudget:  cfg.Context.CharBudget,
		Concurrency: cfg.Context.Concurrency,
	}, log)

	return &canvasService{
		store:     store,
		provider:  provider,
		publisher: publisher,
		guard:     guard,
		engine:    engine,
		assembler: asm,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
	}
}

func (s *canvasService) AssembleContext(ctx context.Context, req *dto.ContextRequest) (*dto.ContextBundle, error) {
	hops := upstream.ClampHops(hopsOrDefault(req.HopLimit, s.cfg.Context.HopLimit), upstream.MaxInteractiveHops)

	g, root, err := s.loadRoot(ctx, req.CanvasPath, req.RootId)
	if err != nil {
		return nil, err
	}

	walk, bundle := s.assemble(ctx, g, root, hops)
	return &dto.ContextBundle{
		Text:    bundle.Text,
		Sources: bundle.Sources,
		Nodes:   contextNodes(root, walk),
	}, nil
}

func (s *canvasService) FindRelated(ctx context.Context, req *dto.RelatedRequest) ([]*dto.RankedItem, error) {
	_, root, err := s.loadRoot(ctx, req.CanvasPath, req.RootId)
	if err != nil {
		return nil, err
	}

	text, source := s.queryText(ctx, root)
	exclude := []string{vault.Normalize(req.CanvasPath)}
	if source != "" {
		exclude = append(exclude, source)
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.Search.DefaultTopK
	}

	candidates, err := s.engine.Rank(ctx, search.Query{
		Text:         text,
		ExcludePaths: exclude,
		Limit:        topK,
	})
	if err != nil {
		return nil, err
	}

	result := make([]*dto.RankedItem, 0, len(candidates))
	for _, c := range candidates {
		result = append(result, &dto.RankedItem{
			Path:    c.Path,
			Title:   c.Title,
			Score:   c.Score,
			Snippet: c.Snippet,
		})
	}

	s.logger.Info("CANVAS", "Related documents ranked", map[string]interface{}{
		"canvas":  req.CanvasPath,
		"root_id": req.RootId,
		"results": len(result),
	})
	return result, nil
}

func (s *canvasService) PlaceChild(ctx context.Context, req *dto.PlaceRequest) (*dto.MutationOutcome, error) {
	docPath := vault.Normalize(req.DocPath)
	if !s.store.Exists(docPath) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, docPath)
	}

	g, parent, err := s.loadRoot(ctx, req.CanvasPath, req.ParentId)
	if err != nil {
		return nil, err
	}

	outcome := s.attachFile(g, parent, docPath, req.Label)
	outcome.CanvasPath = req.CanvasPath
	if err := s.store.WriteCanvas(ctx, req.CanvasPath, g); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NodePlaced, map[string]interface{}{
		"canvas_path": req.CanvasPath,
		"parent_id":   parent.ID,
		"node_id":     outcome.NodeId,
		"doc_path":    docPath,
	})
	return outcome, nil
}

func (s *canvasService) Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error) {
	if !s.cfg.Ai.Enabled || s.provider == nil {
		return &dto.AskResponse{Status: dto.AskStatusDisabled}, ErrDisabled
	}

	ctx, release := s.guard.Acquire(ctx, RequestAsk)
	defer release()

	hops := upstream.ClampHops(hopsOrDefault(req.HopLimit, s.cfg.Context.HopLimit), upstream.MaxInteractiveHops)
	g, root, err := s.loadRoot(ctx, req.CanvasPath, req.RootId)
	if err != nil {
		return nil, err
	}
	_, bundle := s.assemble(ctx, g, root, hops)

	answer, err := s.provider.Chat(ctx, s.askMessages(req.Question, bundle))
	if err != nil {
		if llm.IsCancelled(err) {
			return &dto.AskResponse{Status: dto.AskStatusCancelled}, err
		}
		return &dto.AskResponse{Status: dto.AskStatusFailed, Error: err.Error()}, fmt.Errorf("%w: %w", ErrAskFailed, err)
	}

	// A newer ask may have preempted this one while the answer was in
	// flight; it owns the canvas now.
	if err := ctx.Err(); err != nil {
		s.logger.Info("CANVAS", "Ask preempted before writing", map[string]interface{}{"root_id": req.RootId})
		return &dto.AskResponse{Status: dto.AskStatusCancelled}, &llm.AbortError{Cause: err}
	}

	// Reload so edits made during the request are kept. The note is only
	// written once the root is known to still exist.
	g, root, err = s.loadRoot(ctx, req.CanvasPath, req.RootId)
	if err != nil {
		return nil, err
	}

	notePath, err := s.writeAnswerNote(ctx, req.Question, answer, bundle.Sources)
	if err != nil {
		return nil, err
	}

	outcome := s.attachFile(g, root, notePath, AnswerEdgeLabel)
	outcome.CanvasPath = req.CanvasPath
	if err := s.store.WriteCanvas(ctx, req.CanvasPath, g); err != nil {
		if rmErr := s.store.Remove(context.WithoutCancel(ctx), notePath); rmErr != nil {
			s.logger.Warn("CANVAS", "Failed to remove orphan answer note", map[string]interface{}{
				"note_path": notePath,
				"error":     rmErr.Error(),
			})
		}
		return nil, err
	}

	s.publish(ctx, events.AnswerGenerated, map[string]interface{}{
		"canvas_path": req.CanvasPath,
		"root_id":     root.ID,
		"node_id":     outcome.NodeId,
		"note_path":   notePath,
	})

	return &dto.AskResponse{
		Status:   dto.AskStatusOk,
		Answer:   answer,
		NotePath: notePath,
		Sources:  bundle.Sources,
		Outcome:  outcome,
	}, nil
}

func (s *canvasService) CancelAsk() bool {
	cancelled := s.guard.Cancel(RequestAsk)
	if cancelled {
		s.logger.Info("CANVAS", "Ask cancelled by caller", nil)
	}
	return cancelled
}

func (s *canvasService) ExportContext(ctx context.Context, req *dto.ExportRequest) (*dto.ExportResponse, error) {
	ctx, release := s.guard.Acquire(ctx, RequestExport)
	defer release()

	hops := upstream.ClampHops(hopsOrDefault(req.HopLimit, s.cfg.Context.ExportHopLimit), upstream.MaxExportHops)
	g, root, err := s.loadRoot(ctx, req.CanvasPath, req.RootId)
	if err != nil {
		return nil, err
	}
	walk, bundle := s.assemble(ctx, g, root, hops)
	if err := ctx.Err(); err != nil {
		return nil, &llm.AbortError{Cause: err}
	}

	now := s.now()
	notePath := vault.Normalize(req.NotePath)
	if notePath == "" {
		name := fmt.Sprintf("%s-%s.md", utils.Slugify(nodeTitle(root), 48), now.Format("20060102-150405"))
		notePath = path.Join(s.cfg.Vault.ExportFolder, name)
	} else if !strings.EqualFold(path.Ext(notePath), ".md") {
		notePath += ".md"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Context: %s\n\n", nodeTitle(root))
	fmt.Fprintf(&b, "Canvas: [[%s]]\n\n", req.CanvasPath)
	b.WriteString(bundle.Text)
	if bundle.Sources != "" {
		b.WriteString("\n\n## Sources\n\n")
		b.WriteString(bundle.Sources)
	}
	b.WriteString("\n")

	if dir := path.Dir(notePath); dir != "." {
		if err := s.store.EnsureFolder(ctx, dir); err != nil {
			return nil, err
		}
	}
	if err := s.store.Write(ctx, notePath, b.String()); err != nil {
		return nil, err
	}

	s.publish(ctx, events.ContextExported, map[string]interface{}{
		"canvas_path": req.CanvasPath,
		"root_id":     root.ID,
		"note_path":   notePath,
	})

	return &dto.ExportResponse{
		NotePath:   notePath,
		NodeCount:  len(walk.Nodes) + 1,
		Characters: len([]rune(bundle.Text)),
		ExportedAt: now,
	}, nil
}

func (s *canvasService) loadRoot(ctx context.Context, canvasPath, rootID string) (*canvas.Graph, canvas.Node, error) {
	g, err := s.store.ReadCanvas(ctx, canvasPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, canvas.Node{}, fmt.Errorf("%w: %s", ErrCanvasNotFound, canvasPath)
		}
		return nil, canvas.Node{}, err
	}
	root, ok := g.Lookup(rootID)
	if !ok {
		return nil, canvas.Node{}, fmt.Errorf("%w: %s", ErrNodeNotFound, rootID)
	}
	return g, root, nil
}

func (s *canvasService) assemble(ctx context.Context, g *canvas.Graph, root canvas.Node, hops int) (upstream.Result, assembler.Bundle) {
	walk := upstream.Walk(g, root.ID, hops)
	bundle := s.assembler.Assemble(ctx, root, walk.Nodes)

	s.logger.Debug("CANVAS", "Context assembled", map[string]interface{}{
		"root_id": root.ID,
		"hops":    hops,
		"nodes":   len(walk.Nodes) + 1,
		"chars":   len(bundle.Text),
	})
	return walk, bundle
}

func (s *canvasService) askMessages(question string, bundle assembler.Bundle) []llm.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Question:\n%s\n\n", strings.TrimSpace(question))
	b.WriteString("Context:\n")
	if bundle.Text != "" {
		b.WriteString(bundle.Text)
	} else {
		b.WriteString("(none)")
	}
	if bundle.Sources != "" {
		b.WriteString("\n\nSources:\n")
		b.WriteString(bundle.Sources)
	}
	fmt.Fprintf(&b, "\n\nKeep the answer under %d tokens.", s.cfg.Ai.MaxTokens)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: s.cfg.Ai.SystemPrompt},
		{Role: llm.RoleUser, Content: b.String()},
	}
}

func (s *canvasService) writeAnswerNote(ctx context.Context, question, answer, sources string) (string, error) {
	folder := s.cfg.Vault.AnswerFolder
	if folder != "" {
		if err := s.store.EnsureFolder(ctx, folder); err != nil {
			return "", err
		}
	}

	base := fmt.Sprintf("%s-%s", utils.Slugify(question, 48), s.now().Format("20060102-150405"))
	notePath := path.Join(folder, base+".md")
	for i := 2; s.store.Exists(notePath); i++ {
		notePath = path.Join(folder, fmt.Sprintf("%s-%d.md", base, i))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", utils.TruncateRunes(utils.CollapseWhitespace(question), 120))
	b.WriteString(strings.TrimSpace(answer))
	b.WriteString("\n")
	if sources != "" {
		b.WriteString("\n## Sources\n\n")
		b.WriteString(sources)
		b.WriteString("\n")
	}

	if err := s.store.Write(ctx, notePath, b.String()); err != nil {
		return "", err
	}
	return notePath, nil
}

// attachFile places a file node under parent and links it with an edge
// from the parent's bottom to the child's top.
func (s *canvasService) attachFile(g *canvas.Graph, parent canvas.Node, docPath, label string) *dto.MutationOutcome {
	size := layout.Size{Width: s.cfg.Layout.NodeWidth, Height: s.cfg.Layout.NodeHeight}
	if size.Width <= 0 || size.Height <= 0 {
		size = layout.DefaultSize
	}
	pos := layout.Place(g.Nodes(), parent, size, s.cfg.Layout.Options)

	node := canvas.NewFileNode(g.NewID(), docPath, canvas.Rect{
		X:      pos.X,
		Y:      pos.Y,
		Width:  size.Width,
		Height: size.Height,
	})
	g.AppendNode(node)

	edge := canvas.Edge{
		ID:       g.NewID(),
		FromNode: parent.ID,
		FromSide: canvas.SideBottom,
		ToNode:   node.ID,
		ToSide:   canvas.SideTop,
		Label:    strings.TrimSpace(label),
	}
	g.AppendEdge(edge)

	return &dto.MutationOutcome{NodeId: node.ID, EdgeId: edge.ID, X: pos.X, Y: pos.Y}
}

// queryText derives the ranking query from a node. source is the
// document the node itself points at, if any.
func (s *canvasService) queryText(ctx context.Context, n canvas.Node) (text string, source string) {
	switch n.Type {
	case canvas.NodeText:
		return canvas.TextOf(n), ""
	case canvas.NodeFile:
		p := vault.Normalize(canvas.FileOf(n))
		if p == "" {
			return "", ""
		}
		content, err := s.store.Read(ctx, p)
		if err != nil {
			s.logger.Debug("CANVAS", "Root document unreadable, ranking by name", map[string]interface{}{
				"path":  p,
				"error": err.Error(),
			})
			return nodeTitle(n), p
		}
		return nodeTitle(n) + "\n" + utils.TruncateRunes(content, s.cfg.Search.ContentBudget), p
	case canvas.NodeLink:
		return strings.TrimSpace(canvas.LabelOf(n) + " " + canvas.URLOf(n)), ""
	case canvas.NodeGroup:
		return canvas.LabelOf(n), ""
	}
	return "", ""
}

func (s *canvasService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.New(eventType, data)); err != nil {
		s.logger.Warn("CANVAS", "Failed to publish event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}

func hopsOrDefault(requested *int, fallback int) int {
	if requested == nil {
		return fallback
	}
	return *requested
}

// nodeTitle is a short human name for n.
func nodeTitle(n canvas.Node) string {
	var title string
	switch n.Type {
	case canvas.NodeFile:
		title = strings.TrimSuffix(path.Base(canvas.FileOf(n)), path.Ext(canvas.FileOf(n)))
	case canvas.NodeText:
		title = firstLine(canvas.TextOf(n))
	default:
		title = canvas.LabelOf(n)
		if title == "" {
			title = canvas.URLOf(n)
		}
	}
	title = utils.TruncateRunes(strings.TrimSpace(strings.TrimLeft(title, "# ")), 80)
	if title == "" {
		return n.ID
	}
	return title
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func contextNodes(root canvas.Node, walk upstream.Result) []dto.ContextNode {
	nodes := make([]dto.ContextNode, 0, len(walk.Nodes)+1)
	for i := len(walk.Nodes) - 1; i >= 0; i-- {
		n := walk.Nodes[i]
		nodes = append(nodes, dto.ContextNode{Id: n.ID, Type: string(n.Type), Hops: walk.Hops[n.ID]})
	}
	return append(nodes, dto.ContextNode{Id: root.ID, Type: string(root.Type)})
}
