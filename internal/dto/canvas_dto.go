package dto

import "time"

// Ask outcomes reported to the caller.
const (
	AskStatusOk        = "ok"
	AskStatusDisabled  = "disabled"
	AskStatusCancelled = "cancelled"
	AskStatusFailed    = "failed"
)

type ContextRequest struct {
	CanvasPath string `json:"canvas_path" validate:"required"`
	RootId     string `json:"root_id" validate:"required"`
	// HopLimit falls back to the configured default when omitted.
	HopLimit *int `json:"hop_limit" validate:"omitempty,min=0"`
}

type ContextNode struct {
	Id   string `json:"id"`
	Type string `json:"type"`
	Hops int    `json:"hops"`
}

type ContextBundle struct {
	Text    string        `json:"text"`
	Sources string        `json:"sources"`
	Nodes   []ContextNode `json:"nodes"`
}

type RelatedRequest struct {
	CanvasPath string `json:"canvas_path" validate:"required"`
	RootId     string `json:"root_id" validate:"required"`
	TopK       int    `json:"top_k" validate:"omitempty,min=0"`
}

type RankedItem struct {
	Path    string  `json:"path"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet,omitempty"`
}

type PlaceRequest struct {
	CanvasPath string `json:"canvas_path" validate:"required"`
	ParentId   string `json:"parent_id" validate:"required"`
	DocPath    string `json:"doc_path" validate:"required"`
	Label      string `json:"label" validate:"max=200"`
}

type MutationOutcome struct {
	CanvasPath string  `json:"canvas_path"`
	NodeId     string  `json:"node_id"`
	EdgeId     string  `json:"edge_id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

type AskRequest struct {
	CanvasPath string `json:"canvas_path" validate:"required"`
	RootId     string `json:"root_id" validate:"required"`
	Question   string `json:"question" validate:"required,max=4000"`
	HopLimit   *int   `json:"hop_limit" validate:"omitempty,min=0"`
}

type AskResponse struct {
	Status   string           `json:"status"`
	Answer   string           `json:"answer,omitempty"`
	NotePath string           `json:"note_path,omitempty"`
	Sources  string           `json:"sources,omitempty"`
	Outcome  *MutationOutcome `json:"outcome,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type ExportRequest struct {
	CanvasPath string `json:"canvas_path" validate:"required"`
	RootId     string `json:"root_id" validate:"required"`
	HopLimit   *int   `json:"hop_limit" validate:"omitempty,min=0"`
	// NotePath is optional; a dated note in the export folder is used
	// otherwise.
	NotePath string `json:"note_path"`
}

type ExportResponse struct {
	NotePath   string    `json:"note_path"`
	NodeCount  int       `json:"node_count"`
	Characters int       `json:"characters"`
	ExportedAt time.Time `json:"exported_at"`
}

