package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"kura/internal/fileutil"
	"kura/internal/logging"
	"kura/internal/services"
	"kura/internal/store"
)

// ExecutableFinder picks the launchable file inside a library directory.
// Find returns "" with a nil error when nothing qualifies.
type ExecutableFinder interface {
	Find(dir string) (string, error)
}

// EngineDetector names the engine a title was built with, or "".
type EngineDetector interface {
	Detect(dir, executable string) string
}

// ExtensionFinder selects the first file, by name, whose extension is in its
// list. When the directory has no match it descends into its first
// subdirectory in sorted order, then falls back to a full walk.
type ExtensionFinder struct {
	extensions map[string]struct{}
}

// NewExtensionFinder returns a finder for the given extensions. Matching is
// case-insensitive and tolerates a missing leading dot.
func NewExtensionFinder(extensions []string) *ExtensionFinder {
	f := &ExtensionFinder{extensions: make(map[string]struct{}, len(extensions))}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		f.extensions[ext] = struct{}{}
	}
	return f
}

// Find implements ExecutableFinder.
func (f *ExtensionFinder) Find(dir string) (string, error) {
	if len(f.extensions) == 0 {
		return "", nil
	}
	path, err := f.descend(dir)
	if err != nil || path != "" {
		return path, err
	}
	err = filepath.WalkDir(dir, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() && f.matches(entry.Name()) {
			path = p
			return fs.SkipAll
		}
		return nil
	})
	return path, err
}

func (f *ExtensionFinder) descend(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var first string
	for _, entry := range entries {
		if entry.IsDir() {
			if first == "" {
				first = entry.Name()
			}
			continue
		}
		if f.matches(entry.Name()) {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	if first == "" {
		return "", nil
	}
	return f.descend(filepath.Join(dir, first))
}

func (f *ExtensionFinder) matches(name string) bool {
	_, ok := f.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ScanSummary counts Scan outcomes.
type ScanSummary struct {
	Directories int
	Added       int
	Updated     int
	Restored    int
	Removed     int
	Ignored     int
	Failed      int
}

// Scan reconciles the store with the library directory. Each directory whose
// name a locator claims gets a record. Records whose directory vanished are
// flagged deleted whether or not a locator still claims them, and
// reappearing ones are restored. Every element is
// attempted and failures are counted.
func (d *Driver) Scan(ctx context.Context) (ScanSummary, error) {
	ctx = services.WithPhase(ctx, "scan")
	logger := logging.WithContext(ctx, d.logger)
	var summary ScanSummary

	root := d.cfg.Paths.LibraryDir
	dirs, err := subdirectories(root)
	if err != nil {
		return summary, services.Wrap(services.ErrConfiguration, "pipeline", "scan", "library directory unreadable: "+root, err)
	}
	sort.Strings(dirs)
	summary.Directories = len(dirs)

	d.progress.Start("scan", len(dirs))
	present := make(map[string]struct{}, len(dirs))
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			d.progress.Done()
			return summary, err
		}
		code := filepath.Base(dir)
		d.progress.Advance(code)
		present[code] = struct{}{}
		loc, ok := d.registry.ForCode(code)
		if !ok {
			summary.Ignored++
			logger.Debug("library directory not claimed by any locator", logging.String(logging.FieldDirectory, dir))
			continue
		}
		switch outcome, err := d.scanOne(ctx, dir, code, loc.Name()); {
		case err != nil:
			summary.Failed++
			d.warnRecord(ctx, code, "library scan failed for record", err)
		case outcome == scanAdded:
			summary.Added++
		case outcome == scanRestored:
			summary.Restored++
		case outcome == scanUpdated:
			summary.Updated++
		}
	}
	d.progress.Done()

	games, err := d.store.ListActive(ctx)
	if err != nil {
		return summary, err
	}
	for _, game := range games {
		if _, ok := present[game.ID]; ok {
			continue
		}
		if err := d.store.MarkDeleted(ctx, game.ID, true); err != nil {
			summary.Failed++
			d.warnRecord(ctx, game.ID, "could not flag missing record", err)
			continue
		}
		summary.Removed++
		logger.Info("library directory missing; record flagged deleted", logging.String(logging.FieldCode, game.ID))
	}

	logger.Info("library scan complete",
		logging.Int("directories", summary.Directories),
		logging.Int("added", summary.Added),
		logging.Int("updated", summary.Updated),
		logging.Int("restored", summary.Restored),
		logging.Int("removed", summary.Removed),
		logging.Int("ignored", summary.Ignored),
		logging.Int("failed", summary.Failed))
	return summary, nil
}

type scanOutcome int

const (
	scanUnchanged scanOutcome = iota
	scanAdded
	scanUpdated
	scanRestored
)

func (d *Driver) scanOne(ctx context.Context, dir, code, source string) (scanOutcome, error) {
	ctx = services.WithRecordID(services.WithDirectory(ctx, dir), code)
	existing, err := d.store.Get(ctx, code)
	if err != nil {
		return scanUnchanged, err
	}
	if existing == nil {
		game := store.NewGame(code, source, d.now())
		game.RootFolder = dir
		d.locate(ctx, game)
		if err := d.store.Insert(ctx, game); err != nil {
			return scanUnchanged, err
		}
		return scanAdded, nil
	}

	outcome := scanUnchanged
	if existing.Deleted {
		if err := d.store.MarkDeleted(ctx, code, false); err != nil {
			return scanUnchanged, err
		}
		outcome = scanRestored
	}
	if !d.needsExecutable(existing, dir) {
		return outcome, nil
	}
	_, err = d.store.Modify(ctx, code, func(g *store.Game) error {
		g.RootFolder = dir
		d.locate(ctx, g)
		g.ForceExecutableUpdate = false
		g.DateModified = d.now().UTC()
		return nil
	})
	if err != nil {
		return outcome, err
	}
	if outcome == scanUnchanged {
		outcome = scanUpdated
	}
	return outcome, nil
}

func (d *Driver) needsExecutable(g *store.Game, dir string) bool {
	if g.ForceExecutableUpdate || g.RootFolder != dir || g.ApplicationPath == "" {
		return true
	}
	ok, err := fileutil.Exists(g.ApplicationPath)
	return err != nil || !ok
}

// locate fills the application path and engine for g from disk.
func (d *Driver) locate(ctx context.Context, g *store.Game) {
	exe, err := d.finder.Find(g.RootFolder)
	if err != nil && !isNotExist(err) {
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "executable search failed", "executable_search_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "record has no application path"),
			logging.String(logging.FieldErrorHint, "check directory permissions"))
	}
	g.ApplicationPath = exe
	if d.engines != nil && exe != "" {
		if engine := d.engines.Detect(g.RootFolder, exe); engine != "" {
			g.Engine = engine
		}
	}
}

func (d *Driver) warnRecord(ctx context.Context, id, msg string, err error) {
	hint := "re-run once the cause is fixed"
	if errors.Is(err, services.ErrStore) {
		hint = "check the store database file and disk space"
	}
	logging.WarnWithContext(logging.WithContext(ctx, d.logger), msg, "record_failed",
		logging.String(logging.FieldCode, id),
		logging.Error(err),
		logging.String("error_kind", services.Kind(err)),
		logging.String(logging.FieldImpact, "record left as it was"),
		logging.String(logging.FieldErrorHint, hint))
}
