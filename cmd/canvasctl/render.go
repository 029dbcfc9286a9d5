package main

import (
	"fmt"
	"strings"

	"canvas-rag-be/internal/dto"
	"canvas-rag-be/pkg/events"

	"github.com/fatih/color"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
	dimColor    = color.New(color.FgHiBlack)
	warnColor   = color.New(color.FgYellow)
	errColor    = color.New(color.FgRed, color.Bold)
)

func (a *app) info(format string, args ...interface{}) {
	dimColor.Fprintf(a.out, format+"\n", args...)
}

func (a *app) printError(err error) {
	errColor.Fprintf(a.out, "Error: %v\n", err)
}

func (a *app) printContext(res *dto.ContextBundle) error {
	if done, err := a.emit(res); done {
		return err
	}
	headerColor.Fprintln(a.out, "Context")
	fmt.Fprintln(a.out, res.Text)
	if res.Sources != "" {
		fmt.Fprintln(a.out)
		headerColor.Fprintln(a.out, "Sources")
		fmt.Fprintln(a.out, res.Sources)
	}
	return nil
}

func (a *app) printRelated(items []*dto.RankedItem) error {
	if done, err := a.emit(items); done {
		return err
	}
	if len(items) == 0 {
		warnColor.Fprintln(a.out, "No related documents")
		return nil
	}
	for i, it := range items {
		headerColor.Fprintf(a.out, "%2d. %s", i+1, it.Title)
		dimColor.Fprintf(a.out, "  %s  (%.0f)\n", it.Path, it.Score)
		if it.Snippet != "" {
			fmt.Fprintf(a.out, "    %s\n", it.Snippet)
		}
	}
	return nil
}

func (a *app) printOutcome(verb, doc string, res *dto.MutationOutcome) error {
	if done, err := a.emit(res); done {
		return err
	}
	okColor.Fprintf(a.out, "%s %s as node %s at (%.0f, %.0f)\n", verb, doc, res.NodeId, res.X, res.Y)
	return nil
}

func (a *app) printAnswer(res *dto.AskResponse) error {
	if done, err := a.emit(res); done {
		return err
	}
	fmt.Fprintln(a.out, strings.TrimSpace(res.Answer))
	fmt.Fprintln(a.out)
	okColor.Fprintf(a.out, "Saved to %s", res.NotePath)
	if res.Outcome != nil {
		okColor.Fprintf(a.out, " (node %s)", res.Outcome.NodeId)
	}
	fmt.Fprintln(a.out)
	return nil
}

func (a *app) printExport(res *dto.ExportResponse) error {
	if done, err := a.emit(res); done {
		return err
	}
	okColor.Fprintf(a.out, "Exported %d nodes (%d chars) to %s\n", res.NodeCount, res.Characters, res.NotePath)
	return nil
}

func (a *app) printEvent(e events.Event) error {
	if done, err := a.emit(map[string]interface{}{
		"type":        e.EventType(),
		"data":        e.Payload(),
		"occurred_at": e.Timestamp(),
	}); done {
		return err
	}
	dimColor.Fprintf(a.out, "%s ", e.Timestamp().Local().Format("15:04:05"))
	headerColor.Fprintf(a.out, "%s", e.EventType())
	for _, k := range []string{"canvas_path", "node_id", "note_path"} {
		if v, ok := e.Payload()[k]; ok {
			fmt.Fprintf(a.out, " %s=%v", k, v)
		}
	}
	fmt.Fprintln(a.out)
	return nil
}
