package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/gandalf/internal/conversation"
	"github.com/felixgeelhaar/gandalf/internal/domain"
	"github.com/felixgeelhaar/gandalf/internal/hints"
)

var (
	hintLevel      int
	hintContext    []string
	hintDifficulty string
	hintLanguage   string
	hintJSON       bool
	hintFrom       string
)

var hintCmd = &cobra.Command{
	Use:   "hint [problem]",
	Short: "Get one hint for a problem without starting a conversation",
	Example: `  gandalf hint "Solve 2x + 3 = 11"
  gandalf hint --level 2 --language de "Find the derivative of x^2 sin x"
  gandalf hint --conversation conv_1700000000000_ab12cd34e --level 1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.connect(ctx, flagMode); err != nil {
			return err
		}

		req, err := hintRequest(a, cmd, strings.Join(args, " "))
		if errors.Is(err, domain.ErrEmptyProblem) {
			return errors.New("give a problem or --conversation with a question in it")
		}
		if err != nil {
			return err
		}
		resp, err := a.hints.Hint(ctx, req)
		if err != nil {
			a.logger.Debug("hint failed", "error", err)
			return errors.New(hints.Message(err))
		}

		out := cmd.OutOrStdout()
		if hintJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}
		body := titleStyle.Render("Hint · "+levelLabel(resp.Level)) + "\n\n" + a.renderer.Text(resp.Hint)
		fmt.Fprintln(out, hintBoxStyle.Render(body))
		if resp.HasNext {
			fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("Still stuck? Try --level %d.", int(resp.Level)+1)))
		}
		return nil
	},
}

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "List hint levels",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		for _, l := range domain.HintLevels() {
			fmt.Fprintf(out, "%s  %s\n", keyStyle.Render(fmt.Sprintf("%d %-15s", int(l), l)), l.Description())
		}
	},
}

func init() {
	f := hintCmd.Flags()
	f.IntVarP(&hintLevel, "level", "l", 0, "hint level from 0 (gentle nudge) to 4 (full example)")
	f.StringArrayVar(&hintContext, "context", nil, "earlier conversation line to send along (repeatable)")
	f.StringVar(&hintDifficulty, "difficulty", "", "elementary, middle-school, high-school or college")
	f.StringVar(&hintLanguage, "language", "", "response language: en, es, fr, de, zh or ja")
	f.BoolVar(&hintJSON, "json", false, "print the raw response as JSON")
	f.StringVar(&hintFrom, "conversation", "", "take the problem and context from a saved conversation")
}

// hintRequest builds a validated request, filling unset preferences from
// storage. With --conversation the latest question is the default problem
// and the newest messages lead the context.
func hintRequest(a *app, cmd *cobra.Command, problem string) (hints.Request, error) {
	lines := []string{}
	if hintFrom != "" {
		conv, err := a.conversations.Load(cmd.Context(), hintFrom)
		if err != nil {
			return hints.Request{}, fmt.Errorf("load conversation %s: %w", hintFrom, err)
		}
		if problem == "" {
			problem = hints.ProblemText(conv)
		}
		lines = conversation.RecentContext(conv, hints.MaxContextLines)
	}

	level, err := domain.ParseHintLevel(hintLevel)
	if err != nil {
		return hints.Request{}, err
	}
	difficulty, language := a.preferences(cmd.Context())
	if hintDifficulty != "" {
		if difficulty, err = domain.ParseDifficulty(hintDifficulty); err != nil {
			return hints.Request{}, err
		}
	}
	if hintLanguage != "" {
		if language, err = domain.ParseLanguage(hintLanguage); err != nil {
			return hints.Request{}, err
		}
	}

	req := hints.Request{
		Problem:    problem,
		Context:    append(lines, hintContext...),
		Level:      level,
		Difficulty: difficulty,
		Language:   language,
	}
	return req, req.Validate()
}
