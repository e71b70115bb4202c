package pipeline

import (
	"context"

	"kura/internal/logging"
	"kura/internal/reconcile"
	"kura/internal/services"
)

// Import copies newer catalog edits back into the store.
func (d *Driver) Import(ctx context.Context) (reconcile.Report, error) {
	return d.reconciler.Import(services.WithPhase(ctx, "import"))
}

// Export writes the store into the catalog document.
func (d *Driver) Export(ctx context.Context) (reconcile.Report, error) {
	return d.reconciler.Export(services.WithPhase(ctx, "export"))
}

// SyncSummary collects the per-phase results of SyncAll.
type SyncSummary struct {
	Import      *reconcile.Report
	Scan        ScanSummary
	Gather      GatherSummary
	Organize    OrganizeSummary
	Rescan      ScanSummary
	Download    DownloadSummary
	Export      *reconcile.Report
	CatalogUsed bool
}

// SyncAll runs every phase in order: import, scan, gather, organize, scan,
// download, export. The catalog phases are skipped when no catalog is
// configured. The first phase error stops the run.
func (d *Driver) SyncAll(ctx context.Context) (SyncSummary, error) {
	logger := logging.WithContext(ctx, d.logger)
	var summary SyncSummary
	summary.CatalogUsed = d.reconciler.CatalogPath() != ""

	if summary.CatalogUsed {
		report, err := d.Import(ctx)
		if err != nil {
			return summary, err
		}
		summary.Import = &report
	} else {
		logger.Info("catalog not configured; skipping import and export")
	}

	var err error
	if summary.Scan, err = d.Scan(ctx); err != nil {
		return summary, err
	}
	if summary.Gather, err = d.GatherCodes(ctx, false); err != nil {
		return summary, err
	}
	if summary.Organize, err = d.Organize(ctx); err != nil {
		return summary, err
	}
	if summary.Rescan, err = d.Scan(ctx); err != nil {
		return summary, err
	}
	if summary.Download, err = d.DownloadSources(ctx); err != nil {
		return summary, err
	}

	if summary.CatalogUsed {
		report, err := d.Export(ctx)
		if err != nil {
			return summary, err
		}
		summary.Export = &report
	}
	logger.Info("sync complete",
		logging.Int("filed", summary.Organize.Filed),
		logging.Int("added", summary.Rescan.Added),
		logging.Int("downloaded", summary.Download.Updated))
	return summary, nil
}
