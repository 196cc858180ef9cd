// Command gandalf is the terminal client for the Socratic math tutor.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	flagMode    string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "gandalf",
	Short: "Socratic math tutor",
	Long: `Gandalf guides you through math problems with questions and
progressive hints instead of handing over answers.

Run without a command to start or resume a conversation. Hints and chat
go through the gandalfd daemon when it is running, or run in-process
with the configured LLM providers otherwise.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runChat,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "gandalf %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagMode, "mode", modeAuto, "where hints and chat run: auto, daemon or local")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "log debug output to stderr")
	addChatFlags(rootCmd)

	rootCmd.AddCommand(
		chatCmd,
		hintCmd,
		levelsCmd,
		renderCmd,
		conversationsCmd,
		whiteboardCmd,
		prefsCmd,
		mcpCmd,
		initCmd,
		doctorCmd,
		configCmd,
		providerCmd,
		startCmd,
		stopCmd,
		statusCmd,
		logsCmd,
		versionCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
