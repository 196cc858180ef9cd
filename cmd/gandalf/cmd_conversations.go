package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/gandalf/internal/conversation"
	"github.com/felixgeelhaar/gandalf/internal/domain"
)

var (
	deleteAll    bool
	exportOutput string
	exportFormat string
)

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"conv"},
	Short:   "List, show, export or delete saved conversations",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations, most recent first",
	Args:  cobra.NoArgs,
	RunE: withStorage(func(cmd *cobra.Command, a *app, args []string) error {
		ctx := cmd.Context()
		metas, err := a.conversations.ListMetadata(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(metas) == 0 {
			fmt.Fprintln(out, "No conversations yet. Start one with 'gandalf'.")
			return nil
		}
		current, _, _ := a.conversations.Current(ctx)
		for _, m := range metas {
			marker := "  "
			if m.ID == current {
				marker = successStyle.Render("* ")
			}
			fmt.Fprintf(out, "%s%s  %s  %s\n", marker, m.ID,
				mutedStyle.Render(fmt.Sprintf("%s · %d msgs", formatMillis(m.UpdatedAt), m.MessageCount)),
				m.Title)
		}
		return nil
	}),
}

var conversationsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a conversation transcript and its hint progress",
	Args:  cobra.MaximumNArgs(1),
	RunE: withStorage(func(cmd *cobra.Command, a *app, args []string) error {
		ctx := cmd.Context()
		conv, err := loadConversationArg(cmd, a, args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, newMarkdown(a.renderer, 80).Render(conversation.Markdown(conv)))

		states, err := a.hintRepo.ConversationHints(ctx, conv.ID)
		if err != nil {
			return fmt.Errorf("load hints: %w", err)
		}
		printHintSummary(out, states)
		return nil
	}),
}

var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a conversation with its hints and whiteboard",
	Args: func(cmd *cobra.Command, args []string) error {
		if deleteAll {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: withStorage(func(cmd *cobra.Command, a *app, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		if deleteAll {
			if err := a.conversations.ClearAll(ctx); err != nil {
				return err
			}
			if err := a.hintRepo.ClearAll(ctx); err != nil {
				return err
			}
			n, err := a.whiteboards.ClearAll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Deleted all conversations, hints and %d whiteboards\n", n)
			return nil
		}
		if err := a.conversations.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Deleted %s\n", args[0])
		return nil
	}),
}

var conversationsExportCmd = &cobra.Command{
	Use:   "export [id]",
	Short: "Export a conversation as markdown or JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: withStorage(func(cmd *cobra.Command, a *app, args []string) error {
		conv, err := loadConversationArg(cmd, a, args)
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("create %s: %w", exportOutput, err)
			}
			defer f.Close()
			w = f
		}
		if err := exportConversation(w, conv, exportFormat); err != nil {
			return err
		}
		if exportOutput != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %s to %s\n", conv.ID, exportOutput)
		}
		return nil
	}),
}

func init() {
	conversationsDeleteCmd.Flags().BoolVar(&deleteAll, "all", false, "delete every conversation, hint and whiteboard")
	conversationsExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to a file instead of stdout")
	conversationsExportCmd.Flags().StringVar(&exportFormat, "format", "markdown", "markdown or json")

	conversationsCmd.AddCommand(conversationsListCmd, conversationsShowCmd, conversationsDeleteCmd, conversationsExportCmd)
}

// withStorage runs fn with an app that has storage but no tutor.
func withStorage(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}

// loadConversationArg loads the named conversation, or the current one.
func loadConversationArg(cmd *cobra.Command, a *app, args []string) (domain.Conversation, error) {
	ctx := cmd.Context()
	if len(args) == 1 {
		return a.conversations.Load(ctx, args[0])
	}
	id, ok, err := a.conversations.Current(ctx)
	if err != nil {
		return domain.Conversation{}, err
	}
	if !ok {
		return domain.Conversation{}, fmt.Errorf("no current conversation; pass an ID from 'gandalf conversations list'")
	}
	return a.conversations.Load(ctx, id)
}

func exportConversation(w io.Writer, conv domain.Conversation, format string) error {
	switch format {
	case "markdown", "md":
		_, err := io.WriteString(w, conversation.Markdown(conv))
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(conv)
	default:
		return fmt.Errorf("unknown format %q (valid: markdown, json)", format)
	}
}

func printHintSummary(w io.Writer, states []domain.HintState) {
	if len(states) == 0 {
		return
	}
	fmt.Fprintln(w, titleStyle.Render("Hints"))
	for _, st := range states {
		levels := make([]int, 0, len(st.HintHistory))
		seen := map[domain.HintLevel]bool{}
		for _, e := range st.HintHistory {
			if !seen[e.Level] {
				seen[e.Level] = true
				levels = append(levels, int(e.Level))
			}
		}
		sort.Ints(levels)
		fmt.Fprintf(w, "  %s  reached %s · %d requested · levels shown %v\n",
			st.ProblemID, levelLabel(st.CurrentLevel), st.HintsRequested, levels)
	}
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}
