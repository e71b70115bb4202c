package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kura/internal/candidate"
	"kura/internal/config"
	"kura/internal/decision"
	"kura/internal/filer"
	"kura/internal/logging"
	"kura/internal/progress"
	"kura/internal/reconcile"
	"kura/internal/store"
)

// Store is the record storage the driver works against.
type Store interface {
	reconcile.GameStore
	Get(ctx context.Context, id string) (*store.Game, error)
	List(ctx context.Context) ([]*store.Game, error)
	Insert(ctx context.Context, game *store.Game) error
	MarkDeleted(ctx context.Context, id string, deleted bool) error
}

// Driver runs batch operations over the configured directories and store.
type Driver struct {
	cfg        *config.Config
	store      Store
	registry   *candidate.Registry
	gate       *decision.Gate
	filer      *filer.Filer
	reconciler *reconcile.Reconciler
	finder     ExecutableFinder
	engines    EngineDetector
	progress   progress.Reporter
	now        func() time.Time
	logger     *slog.Logger
}

// Option customises the Driver.
type Option func(*Driver)

// WithConfirmer sets the collaborator consulted for ambiguous matches.
func WithConfirmer(confirmer decision.Confirmer) Option {
	return func(d *Driver) {
		d.gate.Confirmer = confirmer
	}
}

// WithProgress sets the progress reporter.
func WithProgress(reporter progress.Reporter) Option {
	return func(d *Driver) {
		d.progress = progress.OrNop(reporter)
	}
}

// WithExecutableFinder overrides how a library directory's executable is chosen.
func WithExecutableFinder(finder ExecutableFinder) Option {
	return func(d *Driver) {
		if finder != nil {
			d.finder = finder
		}
	}
}

// WithEngineDetector installs an engine detector used during scans.
func WithEngineDetector(detector EngineDetector) Option {
	return func(d *Driver) {
		d.engines = detector
	}
}

// WithReconciler replaces the catalog reconciler.
func WithReconciler(r *reconcile.Reconciler) Option {
	return func(d *Driver) {
		if r != nil {
			d.reconciler = r
		}
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		if now != nil {
			d.now = now
		}
	}
}

// New constructs a Driver.
func New(cfg *config.Config, st Store, registry *candidate.Registry, logger *slog.Logger, opts ...Option) *Driver {
	logger = logging.NewComponentLogger(logger, "pipeline")
	d := &Driver{
		cfg:      cfg,
		store:    st,
		registry: registry,
		gate: &decision.Gate{
			Ask:            cfg.Decision.AskThreshold,
			Accept:         cfg.Decision.AcceptThreshold,
			MaxSuggestions: cfg.Decision.MaxResultsToSuggest,
			Logger:         logger,
		},
		filer:      filer.New(logger),
		reconciler: reconcile.New(cfg, st, logger),
		finder:     NewExtensionFinder(cfg.Workflow.ExecutableExtensions),
		progress:   progress.Nop{},
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) concurrency() int {
	if n := d.cfg.Locators.Concurrency; n > 0 {
		return n
	}
	return 1
}

// unsortedDirectories lists the candidate directories under every unsorted
// root, in root order and then name order. Unreadable roots are logged and
// skipped.
func (d *Driver) unsortedDirectories(ctx context.Context) []string {
	var dirs []string
	for _, root := range d.cfg.Paths.UnsortedDirs {
		subdirs, err := subdirectories(root)
		if err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, d.logger), "unsorted directory unreadable", "unsorted_root_unreadable",
				logging.String(logging.FieldDirectory, root),
				logging.Error(err),
				logging.String(logging.FieldImpact, "directories under this root were not processed"),
				logging.String(logging.FieldErrorHint, "check paths.unsorted_dirs"))
			continue
		}
		dirs = append(dirs, subdirs...)
	}
	return dirs
}

// subdirectories returns the non-hidden directories directly under root,
// sorted by name.
func subdirectories(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	dirs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		isDir := entry.IsDir()
		if !isDir && entry.Type()&fs.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(root, entry.Name())); err == nil {
				isDir = info.IsDir()
			}
		}
		if isDir {
			dirs = append(dirs, filepath.Join(root, entry.Name()))
		}
	}
	return dirs, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
