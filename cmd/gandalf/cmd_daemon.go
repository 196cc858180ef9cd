package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/gandalf/internal/config"
)

const (
	daemonBinary = "gandalfd"
	pidFile      = "gandalfd.pid"
)

var logsBytes int64

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the gandalfd daemon in the background",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		url, err := configuredDaemonURL()
		if err != nil {
			return err
		}
		if daemonHealthy(cmd.Context(), url) {
			fmt.Fprintln(out, "✓ Daemon is already running")
			return nil
		}

		dir, err := config.EnsureGandalfDir()
		if err != nil {
			return fmt.Errorf("setup gandalf directory: %w", err)
		}
		path, err := findDaemonBinary()
		if err != nil {
			return fmt.Errorf("find daemon binary: %w", err)
		}

		proc := exec.Command(path)
		proc.Dir = dir
		configureDaemonProcess(proc)
		if err := proc.Start(); err != nil {
			return fmt.Errorf("start daemon: %w", err)
		}

		fmt.Fprint(out, "Starting daemon...")
		for i := 0; i < 30; i++ {
			time.Sleep(100 * time.Millisecond)
			if daemonHealthy(cmd.Context(), url) {
				fmt.Fprintln(out, successStyle.Render(" ✓"))
				fmt.Fprintf(out, "Daemon running at %s\n", url)
				return nil
			}
			fmt.Fprint(out, ".")
		}
		fmt.Fprintln(out, errorStyle.Render(" ✗"))
		return errors.New("daemon failed to start (check logs with 'gandalf logs')")
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		url, err := configuredDaemonURL()
		if err != nil {
			return err
		}
		if !daemonHealthy(cmd.Context(), url) {
			fmt.Fprintln(out, "Daemon is not running")
			return nil
		}

		dir, err := config.GandalfDir()
		if err != nil {
			return err
		}
		pid, err := readPID(filepath.Join(dir, pidFile))
		if err != nil {
			return err
		}
		process, err := os.FindProcess(pid)
		if err != nil {
			return fmt.Errorf("find process: %w", err)
		}

		fmt.Fprint(out, "Stopping daemon...")
		if err := process.Signal(syscall.SIGTERM); err != nil {
			return fmt.Errorf("send signal: %w", err)
		}
		for i := 0; i < 50; i++ {
			time.Sleep(100 * time.Millisecond)
			if !daemonHealthy(cmd.Context(), url) {
				fmt.Fprintln(out, successStyle.Render(" ✓"))
				return nil
			}
			fmt.Fprint(out, ".")
		}
		fmt.Fprintln(out, errorStyle.Render(" ✗"))
		return errors.New("daemon did not stop gracefully")
	},
}

// daemonStatus is the body of GET /v1/status.
type daemonStatus struct {
	Status            string   `json:"status"`
	Version           string   `json:"version"`
	LLMProviders      []string `json:"llm_providers"`
	DefaultProvider   string   `json:"default_provider"`
	DefaultDifficulty string   `json:"default_difficulty"`
	DefaultLanguage   string   `json:"default_language"`
	RateLimit         int      `json:"rate_limit"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		url, err := configuredDaemonURL()
		if err != nil {
			return err
		}
		if !daemonHealthy(cmd.Context(), url) {
			fmt.Fprintln(out, "Status: stopped")
			return nil
		}

		st, err := fetchStatus(cmd, url)
		if err != nil {
			return err
		}
		printStatus(out, url, st)
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent daemon logs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := config.GandalfDir()
		if err != nil {
			return err
		}
		logPath := filepath.Join(dir, "logs", "gandalfd.log")
		file, err := os.Open(logPath)
		if os.IsNotExist(err) {
			fmt.Fprintln(cmd.OutOrStdout(), "No log file found. Start the daemon first.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer file.Close()
		return tailLines(cmd.OutOrStdout(), file, logsBytes)
	},
}

func init() {
	logsCmd.Flags().Int64Var(&logsBytes, "bytes", 4096, "how much of the end of the log to show")
}

func configuredDaemonURL() (string, error) {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	return (&app{cfg: cfg}).daemonURL(), nil
}

func fetchStatus(cmd *cobra.Command, url string) (daemonStatus, error) {
	var st daemonStatus
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url+"/v1/status", nil)
	if err != nil {
		return st, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return st, fmt.Errorf("get status: %w", err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("parse status: %w", err)
	}
	return st, nil
}

func printStatus(w io.Writer, url string, st daemonStatus) {
	limit := "off"
	if st.RateLimit > 0 {
		limit = fmt.Sprintf("%d/min per client", st.RateLimit)
	}
	fmt.Fprintf(w, "Status:     %s\n", st.Status)
	fmt.Fprintf(w, "Version:    %s\n", st.Version)
	fmt.Fprintf(w, "Providers:  %s\n", strings.Join(st.LLMProviders, ", "))
	if st.DefaultProvider != "" {
		fmt.Fprintf(w, "Default:    %s\n", st.DefaultProvider)
	}
	fmt.Fprintf(w, "Difficulty: %s\n", st.DefaultDifficulty)
	fmt.Fprintf(w, "Language:   %s\n", st.DefaultLanguage)
	fmt.Fprintf(w, "Rate limit: %s\n", limit)
	fmt.Fprintf(w, "Address:    %s\n", url)
}

// tailLines prints the last n bytes of f, starting at a line boundary.
func tailLines(w io.Writer, f *os.File, n int64) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	offset := info.Size() - n
	if offset < 0 {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReader(f)
	if offset > 0 {
		_, _ = reader.ReadString('\n')
	}
	_, err = io.Copy(w, reader)
	return err
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse PID: %w", err)
	}
	return pid, nil
}

// findDaemonBinary looks in PATH, then next to this binary.
func findDaemonBinary() (string, error) {
	if path, err := exec.LookPath(daemonBinary); err == nil {
		return path, nil
	}
	if self, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(self), daemonBinary)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	for _, path := range []string{"./" + daemonBinary, "./cmd/gandalfd/" + daemonBinary} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s binary not found (build with 'go build ./cmd/gandalfd')", daemonBinary)
}
