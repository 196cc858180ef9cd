package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/gandalf/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "First-time setup: config directory, default config and an API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render("Gandalf · First-Time Setup"))
		fmt.Fprintln(out)

		fmt.Fprint(out, "Creating gandalf directory... ")
		dir, err := config.EnsureGandalfDir()
		if err != nil {
			return fmt.Errorf("create directories: %w", err)
		}
		fmt.Fprintln(out, "✓", dir)

		configPath := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			fmt.Fprint(out, "Creating default configuration... ")
			if err := config.SaveLocalConfig(config.DefaultLocalConfig()); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Fprintln(out, "✓")
		} else {
			fmt.Fprintln(out, "Configuration already exists ✓")
		}

		cfg, err := config.LoadLocalConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Gandalf supports Claude, OpenAI, Gemini and Ollama (local).")
		if p := cfg.LLM.Providers[cfg.LLM.DefaultProvider]; p != nil && p.APIKey == "" && cfg.LLM.DefaultProvider != "ollama" {
			fmt.Fprintf(out, "Enter %s API key (or press Enter to skip): ", cfg.LLM.DefaultProvider)
			key, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if key = strings.TrimSpace(key); key != "" {
				if err := config.SaveSecrets(map[string]string{cfg.LLM.DefaultProvider: key}); err != nil {
					fmt.Fprintln(out, errorStyle.Render("  ⚠ Failed to save: "+err.Error()))
				} else {
					fmt.Fprintln(out, successStyle.Render("  ✓ Saved"))
				}
			}
		} else {
			fmt.Fprintf(out, "Default provider %s: ready ✓\n", cfg.LLM.DefaultProvider)
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, "Next steps:")
		fmt.Fprintln(out, "  1. gandalf start    # start the daemon (optional)")
		fmt.Fprintln(out, "  2. gandalf doctor   # verify configuration")
		fmt.Fprintln(out, "  3. gandalf          # ask your first question")
		return nil
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, providers, storage and the daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Checking gandalf setup...")
		allGood := true
		fail := func(format string, a ...any) {
			allGood = false
			fmt.Fprintln(out, errorStyle.Render("✗ "+fmt.Sprintf(format, a...)))
		}

		fmt.Fprint(out, "Directory: ")
		dir, err := config.GandalfDir()
		if err != nil {
			fail("%v", err)
		} else if _, err := os.Stat(dir); os.IsNotExist(err) {
			fail("not created (run 'gandalf init')")
		} else {
			fmt.Fprintln(out, "✓", dir)
		}

		fmt.Fprint(out, "Config:    ")
		cfg, err := config.LoadLocalConfig()
		if err != nil {
			fail("%v", err)
			return nil
		}
		fmt.Fprintln(out, "✓ loaded")

		fmt.Fprint(out, "Storage:   ")
		a, err := newApp(ctx, cfg, dir, newLogger(flagVerbose))
		if err != nil {
			fail("%v", err)
		} else {
			n, err := a.conversations.ListMetadata(ctx)
			if err != nil {
				fail("%v", err)
			} else {
				fmt.Fprintf(out, "✓ %s (%d conversations)\n", cfg.Client.Storage.Backend, len(n))
			}
			a.Close()
		}

		fmt.Fprintln(out, "\nLLM Providers:")
		for _, name := range sortedProviders(cfg) {
			p := cfg.LLM.Providers[name]
			if !p.Enabled {
				continue
			}
			fmt.Fprintf(out, "  %s: ", name)
			switch {
			case name == "ollama":
				if err := checkOllama(p.URL); err != nil {
					fmt.Fprintln(out, errorStyle.Render("✗ "+err.Error()))
				} else {
					fmt.Fprintf(out, "✓ available (model: %s)\n", p.Model)
				}
			case p.APIKey != "":
				fmt.Fprintf(out, "✓ configured (model: %s)\n", p.Model)
			default:
				fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("✗ no API key (run 'gandalf provider set-key %s')", name)))
			}
		}

		fmt.Fprint(out, "\nDaemon:    ")
		if daemonHealthy(ctx, (&app{cfg: cfg}).daemonURL()) {
			fmt.Fprintln(out, "✓ running")
		} else {
			fmt.Fprintln(out, mutedStyle.Render("not running (hints and chat run in-process)"))
		}

		fmt.Fprintln(out)
		if allGood {
			fmt.Fprintln(out, successStyle.Render("All checks passed! ✓"))
		} else {
			fmt.Fprintln(out, "Some checks failed. Please fix the issues above.")
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadLocalConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		dir, _ := config.GandalfDir()
		printConfig(cmd.OutOrStdout(), cfg, dir)
		return nil
	},
}

var providerCmd = &cobra.Command{
	Use:   "provider",
	Short: "Manage LLM providers",
}

var providerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured providers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadLocalConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		out := cmd.OutOrStdout()
		for _, name := range sortedProviders(cfg) {
			p := cfg.LLM.Providers[name]
			status := "disabled"
			if p.Enabled {
				status = "needs API key"
				if p.APIKey != "" || name == "ollama" {
					status = "ready"
				}
			}
			def := ""
			if name == cfg.LLM.DefaultProvider {
				def = " (default)"
			}
			fmt.Fprintf(out, "  %s%s\n    status: %s\n    model:  %s\n", name, def, status, p.Model)
			if name == "ollama" && p.URL != "" {
				fmt.Fprintf(out, "    url:    %s\n", p.URL)
			}
		}
		return nil
	},
}

var providerSetKeyCmd = &cobra.Command{
	Use:   "set-key <provider>",
	Short: "Save an API key to secrets.yaml",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		cfg, err := config.LoadLocalConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if _, ok := cfg.LLM.Providers[name]; !ok {
			return fmt.Errorf("unknown provider: %s (valid: %s)", name, strings.Join(sortedProviders(cfg), ", "))
		}
		out := cmd.OutOrStdout()
		if name == "ollama" {
			fmt.Fprintln(out, "Ollama doesn't require an API key.")
			return nil
		}

		fmt.Fprintf(out, "Enter %s API key: ", name)
		key, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read input: %w", err)
		}
		if key = strings.TrimSpace(key); key == "" {
			return errors.New("API key cannot be empty")
		}

		secrets := map[string]string{name: key}
		for other, p := range cfg.LLM.Providers {
			if other != name && p.APIKey != "" {
				secrets[other] = p.APIKey
			}
		}
		if err := config.SaveSecrets(secrets); err != nil {
			return fmt.Errorf("save secrets: %w", err)
		}
		fmt.Fprintln(out, successStyle.Render("✓ API key saved for "+name))
		fmt.Fprintln(out, "Restart the daemon for changes to take effect.")
		return nil
	},
}

func init() {
	providerCmd.AddCommand(providerListCmd, providerSetKeyCmd)
}

func sortedProviders(cfg *config.LocalConfig) []string {
	names := make([]string, 0, len(cfg.LLM.Providers))
	for name := range cfg.LLM.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func printConfig(w io.Writer, cfg *config.LocalConfig, dir string) {
	fmt.Fprintln(w, titleStyle.Render("Gandalf Configuration"))

	fmt.Fprintln(w, "Daemon:")
	fmt.Fprintf(w, "  bind: %s:%d\n", cfg.Daemon.Bind, cfg.Daemon.Port)
	fmt.Fprintf(w, "  log_level: %s\n", cfg.Daemon.LogLevel)
	fmt.Fprintf(w, "  rate_limit_per_minute: %d\n", cfg.Daemon.RateLimitPerMinute)

	fmt.Fprintln(w, "\nLLM:")
	fmt.Fprintf(w, "  default_provider: %s\n", cfg.LLM.DefaultProvider)
	for _, name := range sortedProviders(cfg) {
		p := cfg.LLM.Providers[name]
		if !p.Enabled {
			continue
		}
		key := "✗"
		if p.APIKey != "" || name == "ollama" {
			key = "✓"
		}
		fmt.Fprintf(w, "  %s: model=%s key=%s\n", name, p.Model, key)
	}

	fmt.Fprintln(w, "\nTutor:")
	fmt.Fprintf(w, "  default_difficulty: %s\n", cfg.Tutor.DefaultDifficulty)
	fmt.Fprintf(w, "  default_language: %s\n", cfg.Tutor.DefaultLanguage)

	fmt.Fprintln(w, "\nClient:")
	fmt.Fprintf(w, "  daemon_url: %s\n", (&app{cfg: cfg}).daemonURL())
	fmt.Fprintf(w, "  storage: %s\n", cfg.Client.Storage.Backend)
	if cfg.Client.Storage.Backend == "redis" {
		fmt.Fprintf(w, "  redis_addr: %s\n", cfg.Client.Storage.RedisAddr)
	}

	fmt.Fprintf(w, "\nConfig path: %s\n", filepath.Join(dir, "config.yaml"))
}

func checkOllama(url string) error {
	if url == "" {
		url = "http://localhost:11434"
	}
	resp, err := http.Get(strings.TrimRight(url, "/") + "/api/tags")
	if err != nil {
		return fmt.Errorf("not reachable at %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}
