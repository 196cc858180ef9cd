package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/gandalf/internal/mathtext"
)

var (
	renderHTML     bool
	renderSegments bool
)

var renderCmd = &cobra.Command{
	Use:   "render [text]",
	Short: "Typeset LaTeX math in text",
	Long: `Typeset $...$, $$...$$, \(...\) and \[...\] math as Unicode, or as HTML
spans for KaTeX with --html. Reads stdin when no text is given.`,
	Example: `  gandalf render 'Area is $\pi r^2$'
  echo '$$\frac{a}{b}$$' | gandalf render --html`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if len(args) == 0 {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			text = strings.TrimRight(string(data), "\n")
		}

		logger := newLogger(flagVerbose)
		var r *mathtext.Renderer
		if renderHTML {
			r = mathtext.NewRenderer(mathtext.HTMLTypesetter{}, mathtext.WithLogger(logger))
		} else {
			r = mathtext.NewRenderer(mathtext.UnicodeTypesetter{}, mathtext.WithLogger(logger))
		}

		out := cmd.OutOrStdout()
		if renderSegments {
			printSegments(out, r.Render(text))
			return nil
		}
		if renderHTML {
			fmt.Fprintln(out, r.HTML(text))
			return nil
		}
		fmt.Fprintln(out, r.Text(text))
		return nil
	},
}

func init() {
	renderCmd.Flags().BoolVar(&renderHTML, "html", false, "emit HTML for client-side KaTeX")
	renderCmd.Flags().BoolVar(&renderSegments, "segments", false, "list each segment with its output")
}

func printSegments(w io.Writer, rendered []mathtext.Rendered) {
	for i, seg := range rendered {
		status := successStyle.Render("ok")
		if seg.Failed() {
			status = errorStyle.Render("failed: " + seg.Err.Error())
		}
		if !seg.IsMath() {
			status = mutedStyle.Render("text")
		}
		fmt.Fprintf(w, "%2d %-13s %s\n   %q\n   → %s\n", i, seg.Type, status, seg.Source(), seg.Output)
	}
}
