package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"kura/internal/catalog"
	"kura/internal/config"
	"kura/internal/logging"
	"kura/internal/services"
	"kura/internal/store"
)

// GameStore is the slice of store.Store the reconciler needs.
type GameStore interface {
	ListActive(ctx context.Context) ([]*store.Game, error)
	GetByExternalID(ctx context.Context, externalID string) (*store.Game, error)
	SetExternalID(ctx context.Context, id, externalID string) error
	Modify(ctx context.Context, id string, fn func(*store.Game) error) (*store.Game, error)
}

// Report counts per-element outcomes of one pass.
type Report struct {
	Created int
	Updated int
	Skipped int
	Failed  int
}

func (r Report) String() string {
	return fmt.Sprintf("created=%d updated=%d skipped=%d failed=%d", r.Created, r.Updated, r.Skipped, r.Failed)
}

// Reconciler runs export and import against one platform document.
type Reconciler struct {
	store           GameStore
	catalogPath     string
	backupDir       string
	backupKeep      int
	platform        string
	languages       []string
	onlyUpdateNewer bool
	frontendOwned   catalog.FieldSet
	newID           func() string
	logger          *slog.Logger
}

// Option customises the Reconciler.
type Option func(*Reconciler)

// WithIDGenerator overrides how fresh external ids are produced.
func WithIDGenerator(fn func() string) Option {
	return func(r *Reconciler) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// WithCatalogPath points the reconciler at a document other than the one
// derived from the catalog settings.
func WithCatalogPath(path string) Option {
	return func(r *Reconciler) {
		if strings.TrimSpace(path) != "" {
			r.catalogPath = path
		}
	}
}

// New constructs a Reconciler bound to cfg.
func New(cfg *config.Config, st GameStore, logger *slog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:           st,
		catalogPath:     cfg.CatalogPath(),
		backupDir:       cfg.Catalog.BackupDir,
		backupKeep:      cfg.Catalog.BackupKeep,
		platform:        cfg.Catalog.Platform,
		languages:       append([]string(nil), cfg.Locators.PreferredLanguages...),
		onlyUpdateNewer: cfg.Catalog.OnlyUpdateNewer,
		frontendOwned:   catalog.FrontendOwnedFields(),
		newID:           uuid.NewString,
		logger:          logging.NewComponentLogger(logger, "reconcile"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CatalogPath returns the document this reconciler reads and writes.
func (r *Reconciler) CatalogPath() string {
	return r.catalogPath
}

func (r *Reconciler) requireCatalog(operation string) error {
	if strings.TrimSpace(r.catalogPath) == "" {
		return services.Wrap(services.ErrConfiguration, "reconcile", operation, "catalog.launchbox_dir is not configured", nil)
	}
	return nil
}

func (r *Reconciler) recordFailure(logger *slog.Logger, msg, code string, err error) {
	logging.WarnWithContext(logger, msg, "reconcile_record_failed",
		logging.String(logging.FieldCode, code),
		logging.Error(err),
		logging.String(logging.FieldImpact, "record was left unchanged"),
		logging.String(logging.FieldErrorHint, "fix the entry and run the command again"))
}
