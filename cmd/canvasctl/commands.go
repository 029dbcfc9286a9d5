package main

import (
	"strings"

	"canvas-rag-be/internal/dto"

	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "canvasctl",
		Short:         "Retrieval tools for canvas files in a markdown vault",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&a.vaultRoot, "vault", "", "vault root (overrides VAULT_ROOT)")
	rootCmd.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print machine readable JSON")

	rootCmd.AddCommand(
		newContextCmd(a),
		newRelatedCmd(a),
		newPlaceCmd(a),
		newAskCmd(a),
		newExportCmd(a),
		newWatchCmd(a),
	)
	wrapErrors(rootCmd, a)
	return rootCmd
}

// wrapErrors prints a command failure in the CLI's own style before cobra
// returns it, and closes the service whatever the outcome.
func wrapErrors(cmd *cobra.Command, a *app) {
	for _, c := range cmd.Commands() {
		run := c.RunE
		if run == nil {
			continue
		}
		c.RunE = func(cmd *cobra.Command, args []string) error {
			defer a.shutdown()
			err := run(cmd, args)
			if err != nil {
				a.printError(err)
			}
			return err
		}
	}
}

// optionalInt returns nil unless the flag was set explicitly.
func optionalInt(cmd *cobra.Command, name string, v int) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func newContextCmd(a *app) *cobra.Command {
	var hops int
	cmd := &cobra.Command{
		Use:   "context <canvas> <node-id>",
		Short: "Print the upstream context of a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.AssembleContext(cmd.Context(), &dto.ContextRequest{
				CanvasPath: args[0],
				RootId:     args[1],
				HopLimit:   optionalInt(cmd, "hops", hops),
			})
			if err != nil {
				return err
			}
			return a.printContext(res)
		},
	}
	cmd.Flags().IntVar(&hops, "hops", 0, "hop limit (0-12, default from config)")
	return cmd
}

func newRelatedCmd(a *app) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "related <canvas> <node-id>",
		Short: "Rank vault documents against a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.FindRelated(cmd.Context(), &dto.RelatedRequest{
				CanvasPath: args[0],
				RootId:     args[1],
				TopK:       topK,
			})
			if err != nil {
				return err
			}
			return a.printRelated(res)
		},
	}
	cmd.Flags().IntVar(&topK, "top", 0, "number of results (3-12, default from config)")
	return cmd
}

func newPlaceCmd(a *app) *cobra.Command {
	var label string
	cmd := &cobra.Command{
		Use:   "place <canvas> <parent-id> <document>",
		Short: "Add a document as a child of a node",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.PlaceChild(cmd.Context(), &dto.PlaceRequest{
				CanvasPath: args[0],
				ParentId:   args[1],
				DocPath:    args[2],
				Label:      label,
			})
			if err != nil {
				return err
			}
			return a.printOutcome("Placed", args[2], res)
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "edge label")
	return cmd
}

func newAskCmd(a *app) *cobra.Command {
	var hops int
	cmd := &cobra.Command{
		Use:   "ask <canvas> <node-id> <question...>",
		Short: "Ask the language model about a node and attach the answer",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.Ask(cmd.Context(), &dto.AskRequest{
				CanvasPath: args[0],
				RootId:     args[1],
				Question:   strings.Join(args[2:], " "),
				HopLimit:   optionalInt(cmd, "hops", hops),
			})
			if err != nil {
				return err
			}
			return a.printAnswer(res)
		},
	}
	cmd.Flags().IntVar(&hops, "hops", 0, "hop limit (0-12, default from config)")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		hops int
		out  string
	)
	cmd := &cobra.Command{
		Use:   "export <canvas> <node-id>",
		Short: "Write the upstream context of a node to a note",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.ExportContext(cmd.Context(), &dto.ExportRequest{
				CanvasPath: args[0],
				RootId:     args[1],
				HopLimit:   optionalInt(cmd, "hops", hops),
				NotePath:   out,
			})
			if err != nil {
				return err
			}
			return a.printExport(res)
		},
	}
	cmd.Flags().IntVar(&hops, "hops", 0, "hop limit (0-10, default from config)")
	cmd.Flags().StringVar(&out, "out", "", "note path inside the vault")
	return cmd
}
