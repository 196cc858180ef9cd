package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/gandalf/internal/domain"
	"github.com/felixgeelhaar/gandalf/internal/whiteboard"
)

var whiteboardConversation string

var whiteboardCmd = &cobra.Command{
	Use:     "whiteboard",
	Aliases: []string{"wb"},
	Short:   "Attach a drawing to a conversation so the tutor can see it",
	Long: `Import an Excalidraw scene (.excalidraw JSON) into a conversation. The
tutor receives a text description of the drawing with every chat turn.
Commands act on the current conversation unless --conversation is set.`,
}

var whiteboardImportCmd = &cobra.Command{
	Use:   "import <file.excalidraw>",
	Short: "Save a drawing for the conversation",
	Args:  cobra.ExactArgs(1),
	RunE: withStorage(func(cmd *cobra.Command, a *app, args []string) error {
		id, err := whiteboardTarget(cmd, a)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		var scene struct {
			Elements []domain.WhiteboardElement `json:"elements"`
			AppState map[string]any             `json:"appState"`
		}
		if err := json.Unmarshal(data, &scene); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}

		wb, err := a.whiteboards.Save(cmd.Context(), id, scene.Elements, scene.AppState)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %d elements to %s\n", len(wb.Elements), id)
		return nil
	}),
}

var whiteboardShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Describe the saved drawing the way the tutor sees it",
	Args:  cobra.NoArgs,
	RunE: withStorage(func(cmd *cobra.Command, a *app, args []string) error {
		id, err := whiteboardTarget(cmd, a)
		if err != nil {
			return err
		}
		wb, err := a.whiteboards.Load(cmd.Context(), id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !whiteboard.HasContent(wb) {
			fmt.Fprintln(out, "No whiteboard saved for", id)
			return nil
		}
		fmt.Fprintln(out, whiteboard.Describe(wb.Elements))
		if texts := whiteboard.ExtractText(wb.Elements); len(texts) > 0 {
			fmt.Fprintln(out, mutedStyle.Render("Text: "+strings.Join(texts, " | ")))
		}
		if whiteboard.HasGeometricShapes(wb.Elements) {
			fmt.Fprintln(out, mutedStyle.Render("Contains shapes or connectors."))
		}
		return nil
	}),
}

var whiteboardClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the conversation's drawing",
	Args:  cobra.NoArgs,
	RunE: withStorage(func(cmd *cobra.Command, a *app, args []string) error {
		id, err := whiteboardTarget(cmd, a)
		if err != nil {
			return err
		}
		if err := a.whiteboards.Clear(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Cleared whiteboard for", id)
		return nil
	}),
}

var whiteboardListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved drawings",
	Args:  cobra.NoArgs,
	RunE: withStorage(func(cmd *cobra.Command, a *app, args []string) error {
		ctx := cmd.Context()
		entries, err := a.whiteboards.List(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, e := range entries {
			fmt.Fprintf(out, "%s  %s\n", e.ConversationID,
				mutedStyle.Render(fmt.Sprintf("%s · %d elements", formatMillis(e.Timestamp), e.ElementCount)))
		}
		size, err := a.whiteboards.Size(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("%d whiteboards, %d bytes", len(entries), size)))
		return nil
	}),
}

func init() {
	whiteboardCmd.PersistentFlags().StringVar(&whiteboardConversation, "conversation", "", "conversation ID (default: current)")
	whiteboardCmd.AddCommand(whiteboardImportCmd, whiteboardShowCmd, whiteboardClearCmd, whiteboardListCmd)
}

func whiteboardTarget(cmd *cobra.Command, a *app) (string, error) {
	if whiteboardConversation != "" {
		return whiteboardConversation, nil
	}
	conv, err := loadConversationArg(cmd, a, nil)
	if err != nil {
		return "", err
	}
	return conv.ID, nil
}
