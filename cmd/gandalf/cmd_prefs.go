package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/gandalf/internal/domain"
)

var (
	prefsDifficulty string
	prefsLanguage   string
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or set the learner's difficulty and language",
	Example: `  gandalf prefs
  gandalf prefs --difficulty middle-school --language fr`,
	Args: cobra.NoArgs,
	RunE: withStorage(func(cmd *cobra.Command, a *app, args []string) error {
		ctx := cmd.Context()
		if prefsDifficulty != "" {
			d, err := domain.ParseDifficulty(prefsDifficulty)
			if err != nil {
				return err
			}
			if err := a.conversations.SetDifficulty(ctx, d); err != nil {
				return err
			}
		}
		if prefsLanguage != "" {
			l, err := domain.ParseLanguage(prefsLanguage)
			if err != nil {
				return err
			}
			if err := a.conversations.SetLanguage(ctx, l); err != nil {
				return err
			}
		}

		d, l := a.preferences(ctx)
		printPreferences(cmd.OutOrStdout(), d, l)
		return nil
	}),
}

func init() {
	prefsCmd.Flags().StringVar(&prefsDifficulty, "difficulty", "", "elementary, middle-school, high-school or college")
	prefsCmd.Flags().StringVar(&prefsLanguage, "language", "", "en, es, fr, de, zh or ja")
}

func printPreferences(w io.Writer, current domain.Difficulty, lang domain.Language) {
	fmt.Fprintln(w, titleStyle.Render("Difficulty"))
	for _, d := range domain.Difficulties() {
		cfg := d.Config()
		marker := "  "
		if d == current {
			marker = successStyle.Render("* ")
		}
		fmt.Fprintf(w, "%s%-14s %s\n", marker, d, mutedStyle.Render(cfg.Description))
	}
	fmt.Fprintln(w, titleStyle.Render("Language"))
	for _, l := range domain.Languages() {
		cfg := l.Config()
		marker := "  "
		if l == lang {
			marker = successStyle.Render("* ")
		}
		fmt.Fprintf(w, "%s%-3s %s %s\n", marker, l, cfg.NativeName, mutedStyle.Render("("+cfg.Name+")"))
	}
}
