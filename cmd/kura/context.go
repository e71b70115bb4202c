package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"kura/internal/config"
	"kura/internal/decision"
	"kura/internal/locators"
	"kura/internal/logging"
	"kura/internal/pipeline"
	"kura/internal/progress"
	"kura/internal/prompt"
	"kura/internal/services"
	"kura/internal/store"
)

type commandContext struct {
	configFlag     *string
	logLevelFlag   *string
	nonInteractive *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	// stdinTerminal reports whether prompts can be shown; replaced in tests.
	stdinTerminal func() bool
}

func newCommandContext(configFlag, logLevelFlag *string, nonInteractive *bool) *commandContext {
	return &commandContext{
		configFlag:     configFlag,
		logLevelFlag:   logLevelFlag,
		nonInteractive: nonInteractive,
		stdinTerminal: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		},
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil {
			if level := strings.ToLower(strings.TrimSpace(*c.logLevelFlag)); level != "" {
				cfg.Logging.Level = level
				if err := cfg.Validate(); err != nil {
					c.configErr = err
					return
				}
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// session is everything one batch command holds for its lifetime.
type session struct {
	logger  *slog.Logger
	driver  *pipeline.Driver
	closers []io.Closer
}

func (s *session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// withDriver takes the run lock, opens the store and runs fn with a driver.
// The context carries a fresh run id so every log line of the run correlates.
func (c *commandContext) withDriver(cmd *cobra.Command, fn func(context.Context, *pipeline.Driver) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	s, err := c.openSession(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	runID := uuid.NewString()
	ctx := services.WithRunID(cmd.Context(), runID)
	s.logger.Debug("run started", logging.String(logging.FieldRunID, runID), logging.String("command", cmd.CommandPath()))
	return fn(ctx, s.driver)
}

func (c *commandContext) openSession(cfg *config.Config, errOut io.Writer) (*session, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	s := &session{logger: logger}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock %s: %w", cfg.LockPath(), err)
	}
	if !locked {
		return nil, fmt.Errorf("another kura run holds %s", cfg.LockPath())
	}
	s.closers = append(s.closers, closerFunc(lock.Unlock))

	st, err := store.Open(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append(s.closers, st)

	registry, err := locators.Build(cfg, logger)
	if err != nil {
		s.Close()
		return nil, err
	}

	var opts []pipeline.Option
	confirmer, closer := c.confirmer(cfg, logger)
	if closer != nil {
		s.closers = append(s.closers, closer)
	}
	opts = append(opts, pipeline.WithConfirmer(confirmer))
	if f, ok := errOut.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		opts = append(opts, pipeline.WithProgress(progress.NewBar(f)))
	}
	s.driver = pipeline.New(cfg, st, registry, logger, opts...)
	return s, nil
}

// confirmer returns the terminal prompt when one is available, otherwise the
// scripted policy named by workflow.non_interactive.
func (c *commandContext) confirmer(cfg *config.Config, logger *slog.Logger) (decision.Confirmer, io.Closer) {
	if (c.nonInteractive == nil || !*c.nonInteractive) && c.stdinTerminal() {
		term, err := prompt.NewTerminal()
		if err == nil {
			return term, term
		}
		if !errors.Is(err, prompt.ErrNotInteractive) {
			logging.WarnWithContext(logger, "terminal prompt unavailable", "prompt_unavailable",
				logging.Error(err),
				logging.String(logging.FieldImpact, "ambiguous matches follow workflow.non_interactive"),
				logging.String(logging.FieldErrorHint, "run from an interactive terminal"))
		}
	}
	return scriptedFor(cfg.Workflow.NonInteractive), nil
}

func scriptedFor(mode string) *decision.Scripted {
	switch mode {
	case config.NonInteractiveReject:
		return &decision.Scripted{Fallback: decision.RejectAll}
	case config.NonInteractiveAcceptFirst:
		return &decision.Scripted{Fallback: decision.AcceptFirst}
	default:
		return &decision.Scripted{Fallback: decision.Defer}
	}
}

// withStore opens the store without taking the run lock, for read-only commands.
func (c *commandContext) withStore(fn func(*config.Config, *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(cfg, st)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
