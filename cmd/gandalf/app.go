package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/felixgeelhaar/gandalf/internal/config"
	"github.com/felixgeelhaar/gandalf/internal/conversation"
	"github.com/felixgeelhaar/gandalf/internal/daemon"
	"github.com/felixgeelhaar/gandalf/internal/domain"
	"github.com/felixgeelhaar/gandalf/internal/hints"
	"github.com/felixgeelhaar/gandalf/internal/llm"
	"github.com/felixgeelhaar/gandalf/internal/mathtext"
	"github.com/felixgeelhaar/gandalf/internal/storage/backend"
	"github.com/felixgeelhaar/gandalf/internal/tutor"
	"github.com/felixgeelhaar/gandalf/internal/whiteboard"
)

const (
	modeAuto   = "auto"
	modeDaemon = "daemon"
	modeLocal  = "local"
)

var errDaemonNotRunning = errors.New("daemon is not running (start it with 'gandalf start')")

// chatStreamer is satisfied by the daemon client and the in-process tutor.
type chatStreamer interface {
	ChatStream(ctx context.Context, req tutor.ChatRequest) (<-chan tutor.StreamChunk, error)
}

// app holds the stores and tutoring services a command works with.
type app struct {
	cfg    *config.LocalConfig
	dir    string
	logger *slog.Logger

	conversations *conversation.Store
	hintRepo      *hints.Repository
	whiteboards   *whiteboard.Store
	renderer      *mathtext.Renderer

	// Set by connect.
	hints    hints.Service
	chat     chatStreamer
	remote   bool
	registry *llm.Registry

	closeStorage func() error
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openApp loads configuration and opens storage.
func openApp(ctx context.Context) (*app, error) {
	dir, err := config.EnsureGandalfDir()
	if err != nil {
		return nil, fmt.Errorf("ensure gandalf dir: %w", err)
	}
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return newApp(ctx, cfg, dir, newLogger(flagVerbose))
}

func newApp(ctx context.Context, cfg *config.LocalConfig, dir string, logger *slog.Logger) (*app, error) {
	kv, closeStorage, err := backend.Open(ctx, cfg.Client.Storage.BackendConfig(dir), logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a := &app{
		cfg:          cfg,
		dir:          dir,
		logger:       logger,
		hintRepo:     hints.NewRepository(kv, logger),
		whiteboards:  whiteboard.NewStore(kv, logger),
		renderer:     mathtext.NewRenderer(mathtext.UnicodeTypesetter{}, mathtext.WithLogger(logger)),
		closeStorage: closeStorage,
	}
	a.conversations = conversation.NewStore(kv,
		conversation.WithLogger(logger),
		conversation.WithCleaners(a.hintRepo.DeleteConversation, a.whiteboards.Clear),
		conversation.WithDefaults(cfg.Tutor.DefaultDifficulty, cfg.Tutor.DefaultLanguage),
	)
	return a, nil
}

// connect picks the daemon or in-process tutoring according to mode.
func (a *app) connect(ctx context.Context, mode string) error {
	switch mode {
	case modeDaemon:
		if !daemonHealthy(ctx, a.daemonURL()) {
			return errDaemonNotRunning
		}
		a.useDaemon()
	case modeLocal:
		a.useLocal()
	case modeAuto, "":
		if daemonHealthy(ctx, a.daemonURL()) {
			a.useDaemon()
		} else {
			a.logger.Debug("daemon unreachable, running tutor in-process", "url", a.daemonURL())
			a.useLocal()
		}
	default:
		return fmt.Errorf("unknown mode %q (valid: auto, daemon, local)", mode)
	}
	return nil
}

func (a *app) useDaemon() {
	url := a.daemonURL()
	a.hints = hints.NewClient(hints.ClientConfig{BaseURL: url})
	a.chat = tutor.NewClient(tutor.ClientConfig{BaseURL: url})
	a.remote = true
}

func (a *app) useLocal() {
	a.registry = daemon.NewRegistry(a.cfg, a.logger)
	svc := tutor.NewService(a.registry, daemon.TutorConfig(a.cfg), a.logger)
	a.hints = svc
	a.chat = svc
	a.remote = false
}

func (a *app) daemonURL() string {
	if a.cfg.Client.DaemonURL != "" {
		return strings.TrimRight(a.cfg.Client.DaemonURL, "/")
	}
	return fmt.Sprintf("http://%s:%d", a.cfg.Daemon.Bind, a.cfg.Daemon.Port)
}

// preferences returns the stored difficulty and language, falling back
// to the configured defaults.
func (a *app) preferences(ctx context.Context) (domain.Difficulty, domain.Language) {
	return a.conversations.Difficulty(ctx), a.conversations.Language(ctx)
}

func (a *app) Close() error {
	var errs []error
	if a.registry != nil {
		errs = append(errs, a.registry.Close())
	}
	if a.closeStorage != nil {
		errs = append(errs, a.closeStorage())
	}
	return errors.Join(errs...)
}

// daemonHealthy checks the daemon's health endpoint.
func daemonHealthy(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/v1/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
