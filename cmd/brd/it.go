package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"brdflow/internal/app"
	"brdflow/internal/domain"
	"brdflow/internal/engine"
	"brdflow/internal/repo"
)

func itCmd() *cobra.Command {
	it := &cobra.Command{Use: "it", Short: "IT execution workflow for approved BRDs"}
	it.AddCommand(itInitCmd())
	it.AddCommand(itShowCmd())
	it.AddCommand(itStageCmd())
	it.AddCommand(itTextCmd("notes", "Replace feasibility notes", engine.Engine.SetFeasibilityNotes))
	it.AddCommand(itFeasibilityCmd())
	it.AddCommand(itFinancialCmd())
	it.AddCommand(itTextCmd("timeline", "Replace the delivery timeline", engine.Engine.SetTimeline))
	it.AddCommand(itTextCmd("sit", "Replace SIT notes", engine.Engine.SetSitNotes))
	return it
}

func itInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <id>",
		Short: "Create the IT workflow for an approved request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if _, err := env.Engine.InitWorkflow(ctx, args[0], actorID()); err != nil {
					return err
				}
				return showIT(ctx, env.Engine, args[0])
			})
		},
	}
}

func itShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show stages, feasibility and progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				return showIT(ctx, env.Engine, args[0])
			})
		},
	}
}

func itStageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stage <id> <stage> <status>",
		Short: "Set a stage status (not_started, in_progress, done)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if err := env.Engine.SetStage(ctx, args[0], domain.Stage(args[1]), domain.StageStatus(args[2]), actorID()); err != nil {
					return err
				}
				return showIT(ctx, env.Engine, args[0])
			})
		},
	}
}

func itTextCmd(use, short string, set func(engine.Engine, context.Context, string, string, string) error) *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if err := set(env.Engine, ctx, args[0], text, actorID()); err != nil {
					return err
				}
				return showIT(ctx, env.Engine, args[0])
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "new text")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func itFeasibilityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feasibility <id> <decision>",
		Short: "Record feasibility (pending, feasible, needs_info, not_feasible)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if err := env.Engine.RecordFeasibilityDecision(ctx, args[0], domain.FeasibilityStatus(args[1]), actorID()); err != nil {
					return err
				}
				return showIT(ctx, env.Engine, args[0])
			})
		},
	}
}

func itFinancialCmd() *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "financial <id> <decision>",
		Short: "Record the financial head's decision (approved, disapproved)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if err := env.Engine.RecordFinancialDecision(ctx, args[0], domain.FinancialDecision(args[1]), comment, actorID()); err != nil {
					return err
				}
				return showIT(ctx, env.Engine, args[0])
			})
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "financial head comment")
	return cmd
}

func showIT(ctx context.Context, e engine.Engine, id string) error {
	w, err := e.Workflow(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("no IT workflow for %s (request must be approved; run brd it init)", id)
	}
	if err != nil {
		return err
	}
	f, err := e.Feasibility(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		f, err = domain.DefaultFeasibility(id), nil
	}
	if err != nil {
		return err
	}
	if viper.GetBool("json") {
		return printJSON(map[string]any{
			"workflow":    w,
			"feasibility": f,
			"percent":     engine.CompletionPercent(w),
		})
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"#", "Stage", "Status"})
	for i, st := range domain.Stages {
		tw.AppendRow(table.Row{i + 1, st, w.Stages[st]})
	}
	tw.AppendFooter(table.Row{"", "Complete", fmt.Sprintf("%d%%", engine.CompletionPercent(w))})
	tw.Render()
	current := "none"
	if st, ok := engine.CurrentStage(w); ok {
		current = string(st)
	}
	fmt.Printf("Current stage: %s\n", current)
	fmt.Printf("Feasibility: %s\n", f.Status)
	if f.Notes != "" {
		fmt.Printf("Notes: %s\n", f.Notes)
	}
	if w.Timeline != "" {
		fmt.Printf("Timeline: %s\n", w.Timeline)
	}
	if w.SitNotes != "" {
		fmt.Printf("SIT: %s\n", w.SitNotes)
	}
	return nil
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "IT dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				s, err := env.Engine.Summary(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(s)
				}
				counts := newTable()
				counts.AppendHeader(table.Row{"Approved", "Pending", "Feasible", "Needs info", "Not feasible", "In progress", "Delivered"})
				counts.AppendRow(table.Row{
					s.Approved,
					s.Feasibility[domain.FeasibilityPending],
					s.Feasibility[domain.FeasibilityFeasible],
					s.Feasibility[domain.FeasibilityNeedsInfo],
					s.Feasibility[domain.FeasibilityNotFeasible],
					s.InProgress,
					s.Delivered,
				})
				counts.Render()
				if len(s.FinancialQueue) > 0 {
					fmt.Printf("Awaiting financial approval: %v\n", s.FinancialQueue)
				}
				progress := newTable()
				progress.AppendHeader(table.Row{"Request", "Title", "Current stage", "Complete"})
				for _, row := range s.Progress {
					progress.AppendRow(table.Row{row.RequestID, row.Title, row.CurrentStage, fmt.Sprintf("%d%%", row.Percent)})
				}
				progress.Render()
				return nil
			})
		},
	}
}
