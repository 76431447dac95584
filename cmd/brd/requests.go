package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"brdflow/internal/app"
	"brdflow/internal/document"
	"brdflow/internal/domain"
	"brdflow/internal/engine"
	"brdflow/internal/repo"
)

func requestCmd() *cobra.Command {
	req := &cobra.Command{Use: "request", Short: "Manage stakeholder requests"}
	req.AddCommand(requestCreateCmd())
	req.AddCommand(requestListCmd())
	req.AddCommand(requestShowCmd())
	req.AddCommand(requestThreadCmd())
	req.AddCommand(requestReplyCmd())
	return req
}

func requestCreateCmd() *cobra.Command {
	var opts engine.RequestCreateOptions
	var origin string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a stakeholder request",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.CreatedBy = domain.Origin(origin)
			opts.ActorID = actorID()
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				r, err := env.Engine.CreateRequest(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(r)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "request id (generated when empty)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "request title")
	cmd.Flags().StringVar(&opts.Brief, "brief", "", "short description of the ask")
	cmd.Flags().StringVar(&opts.ReqType, "type", "", "request type")
	cmd.Flags().StringVar(&opts.Owner, "owner", "", "owning business unit")
	cmd.Flags().StringVar(&opts.Tenant, "tenant", "", "tenant or bank")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "priority (defaults to P2)")
	cmd.Flags().StringVar(&origin, "origin", "stakeholder", "creator (stakeholder, ba)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("brief")
	return cmd
}

func requestListCmd() *cobra.Command {
	var status, origin string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				items, err := env.Engine.Requests(ctx, repo.RequestFilters{
					Status: domain.RequestStatus(status),
					Origin: domain.Origin(origin),
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Origin", "Priority", "Created"})
				for _, r := range items {
					createdBy := r.CreatedBy
					if createdBy == "" {
						createdBy = domain.OriginStakeholder
					}
					tw.AppendRow(table.Row{r.ID, r.ReqTitle, document.StatusLabel(r.Status), createdBy, r.Priority, r.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&origin, "origin", "", "origin filter (stakeholder, ba)")
	return cmd
}

func requestShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a request with its threads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				r, err := env.Engine.Request(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(r)
				}
				fmt.Printf("%s  %s [%s]\n", r.ID, r.ReqTitle, document.StatusLabel(r.Status))
				fmt.Printf("Owner: %s  Tenant: %s  Priority: %s\n", r.Owner, r.Tenant, r.Priority)
				fmt.Printf("Brief: %s\n", r.Brief)
				if r.ReviewerComment != "" {
					fmt.Printf("Reviewer comment: %s\n", r.ReviewerComment)
				}
				if len(r.Threads) == 0 {
					return nil
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Date", "Title", "Participants", "Notes"})
				for _, t := range r.Threads {
					tw.AppendRow(table.Row{t.ID, t.Date, t.Title, t.Participants, t.Notes})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func requestThreadCmd() *cobra.Command {
	var t domain.ConversationThread
	cmd := &cobra.Command{
		Use:   "thread <id>",
		Short: "Attach a conversation thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				r, err := env.Engine.AddThread(ctx, args[0], t, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(r.Threads[len(r.Threads)-1])
			})
		},
	}
	cmd.Flags().StringVar(&t.Title, "title", "", "thread title")
	cmd.Flags().StringVar(&t.Date, "date", "", "meeting date")
	cmd.Flags().StringVar(&t.Time, "time", "", "meeting time")
	cmd.Flags().StringVar(&t.Participants, "participants", "", "participants")
	cmd.Flags().StringVar(&t.Transcript, "transcript", "", "transcript")
	cmd.Flags().StringVar(&t.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func requestReplyCmd() *cobra.Command {
	var from, text string
	cmd := &cobra.Command{
		Use:   "reply <id>",
		Short: "Post a follow-up message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				r, err := env.Engine.Reply(ctx, args[0], engine.ReplyFrom(from), text, actorID())
				if err != nil {
					return err
				}
				fmt.Printf("%s now %s with %d threads\n", r.ID, document.StatusLabel(r.Status), len(r.Threads))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "stakeholder", "author team (stakeholder, ba, it)")
	cmd.Flags().StringVar(&text, "text", "", "message")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func brdCmd() *cobra.Command {
	b := &cobra.Command{Use: "brd", Short: "Draft, generate and review BRDs"}
	b.AddCommand(brdDraftCmd())
	b.AddCommand(brdGenerateCmd())
	b.AddCommand(brdSendCmd())
	b.AddCommand(brdReviewCmd())
	b.AddCommand(brdDocCmd())
	b.AddCommand(brdPDFCmd())
	return b
}

// applyDraftInput overlays a YAML file and key=value pairs onto m.
func applyDraftInput(m *domain.BRDMasterData, filePath string, sets []string) error {
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(data, m); err != nil {
			return fmt.Errorf("invalid draft yaml: %w", err)
		}
	}
	for _, kv := range sets {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --set %q (want key=value)", kv)
		}
		if err := m.Set(strings.TrimSpace(key), value); err != nil {
			return err
		}
	}
	return nil
}

func brdDraftCmd() *cobra.Command {
	var filePath string
	var sets []string
	cmd := &cobra.Command{
		Use:   "draft <id>",
		Short: "Save BRD draft fields",
		Long:  "Starts from the saved draft (or one seeded from the request), applies --file then each --set, and saves it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				r, err := env.Engine.Request(ctx, args[0])
				if err != nil {
					return err
				}
				m := domain.DefaultMaster(r)
				if r.BRDMaster != nil {
					m = *r.BRDMaster
				}
				if err := applyDraftInput(&m, filePath, sets); err != nil {
					return err
				}
				r, err = env.Engine.SaveDraft(ctx, r.ID, m, actorID())
				if err != nil {
					return err
				}
				fmt.Printf("Saved draft for %s (%s)\n", r.ID, document.StatusLabel(r.Status))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "YAML file with draft fields")
	cmd.Flags().StringArrayVar(&sets, "set", []string{}, "field=value (repeatable)")
	return cmd
}

func brdGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <id>",
		Short: "Fill blank draft fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				r, err := env.Engine.GenerateDraft(ctx, args[0], actorID())
				if err != nil {
					return err
				}
				fmt.Printf("Generated draft for %s at %s\n", r.ID, r.AIGeneratedAt)
				return nil
			})
		},
	}
}

func brdSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <id>",
		Short: "Send BRD for stakeholder review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				r, err := env.Engine.SendForReview(ctx, args[0], actorID())
				if err != nil {
					return err
				}
				fmt.Printf("Sent %s for review at %s\n", r.ID, r.SentAt)
				return nil
			})
		},
	}
}

func brdReviewCmd() *cobra.Command {
	var decision, comment string
	cmd := &cobra.Command{
		Use:   "review <id>",
		Short: "Record stakeholder review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				r, err := env.Engine.RecordReview(ctx, args[0], domain.RequestStatus(decision), comment, actorID())
				if err != nil {
					return err
				}
				fmt.Printf("%s is %s\n", r.ID, document.StatusLabel(r.Status))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&decision, "decision", "", "approved or changes_requested")
	cmd.Flags().StringVar(&comment, "comment", "", "reviewer comment")
	_ = cmd.MarkFlagRequired("decision")
	return cmd
}

func brdDocCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doc <id>",
		Short: "Print the BRD text document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				r, err := env.Engine.Request(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Println(document.Build(r, draftOf(r)))
				return nil
			})
		},
	}
}

func brdPDFCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "pdf <id>",
		Short: "Render the masked BRD PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				r, err := env.Engine.Request(ctx, args[0])
				if err != nil {
					return err
				}
				doc, err := env.Renderer.Render(r, draftOf(r))
				if err != nil {
					return err
				}
				path := out
				if path == "" {
					path = "BRD_" + r.ID + ".pdf"
				}
				if err := os.WriteFile(path, doc.Bytes, 0o644); err != nil {
					return err
				}
				fmt.Printf("Wrote %s (%d pages)\n", path, doc.Pages)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default BRD_<id>.pdf)")
	return cmd
}

func draftOf(r domain.StakeholderRequest) domain.BRDMasterData {
	if r.BRDMaster != nil {
		return *r.BRDMaster
	}
	return domain.DefaultMaster(r)
}
