package filer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"kura/internal/logging"
	"kura/internal/services"
)

// Result describes what File did.
type Result struct {
	Source      string
	Destination string
	// Duplicate is true when <targetRoot>/<code> already existed.
	Duplicate bool
	// AlreadyFiled is true when the source was gone and the destination present.
	AlreadyFiled bool
}

// Filer moves resolved directories into the library.
type Filer struct {
	logger *slog.Logger
}

// New constructs a Filer.
func New(logger *slog.Logger) *Filer {
	return &Filer{logger: logging.NewComponentLogger(logger, "filer")}
}

// File moves sourceDir to <targetRoot>/<code>/<base(sourceDir)> with a single
// rename. An existing code directory is a duplicate copy and only warns; an
// existing destination is a collision and fails with services.ErrCollision.
// Re-running after a successful move reports AlreadyFiled.
func (f *Filer) File(ctx context.Context, code, sourceDir, targetRoot string) (Result, error) {
	logger := logging.WithContext(ctx, f.logger).With(logging.String(logging.FieldCode, code))

	code = strings.TrimSpace(code)
	if code == "" || strings.ContainsAny(code, `/\`) || code == "." || code == ".." {
		return Result{}, services.Wrap(services.ErrValidation, "filer", "validate code", fmt.Sprintf("invalid canonical code %q", code), nil)
	}
	sourceDir = filepath.Clean(sourceDir)
	name := filepath.Base(sourceDir)
	codeDir := filepath.Join(targetRoot, code)
	dest := filepath.Join(codeDir, name)
	result := Result{Source: sourceDir, Destination: dest}

	srcInfo, srcErr := os.Stat(sourceDir)
	if srcErr != nil && !errors.Is(srcErr, fs.ErrNotExist) {
		return result, classify("stat source", srcErr)
	}
	if _, err := os.Stat(dest); err == nil {
		if srcErr != nil {
			result.AlreadyFiled = true
			logger.Debug("directory already filed", logging.String("destination", dest))
			return result, nil
		}
		logging.WarnWithContext(logger, "destination already exists; directory left in place", "filer_collision",
			logging.String("source", sourceDir),
			logging.String("destination", dest),
			logging.String(logging.FieldImpact, "directory was not filed"),
			logging.String(logging.FieldErrorHint, "compare both copies and remove one"))
		return result, services.Wrap(services.ErrCollision, "filer", "check destination", fmt.Sprintf("%s already exists", dest), nil)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return result, classify("stat destination", err)
	}
	if srcErr != nil {
		return result, services.Wrap(services.ErrNotFound, "filer", "stat source", fmt.Sprintf("%s vanished before filing", sourceDir), srcErr)
	}
	if !srcInfo.IsDir() {
		return result, services.Wrap(services.ErrValidation, "filer", "stat source", fmt.Sprintf("%s is not a directory", sourceDir), nil)
	}

	if info, err := os.Stat(codeDir); err == nil {
		if !info.IsDir() {
			return result, services.Wrap(services.ErrCollision, "filer", "check code directory", fmt.Sprintf("%s exists and is not a directory", codeDir), nil)
		}
		result.Duplicate = true
		logging.WarnWithContext(logger, "code directory already exists; filing additional copy", "filer_duplicate",
			logging.String("code_dir", codeDir),
			logging.String(logging.FieldImpact, "library holds more than one copy of this code"),
			logging.String(logging.FieldErrorHint, "remove the redundant copy if it is not intentional"))
	} else if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(codeDir, 0o755); err != nil {
			return result, classify("create code directory", err)
		}
	} else {
		return result, classify("stat code directory", err)
	}

	if err := os.Rename(sourceDir, dest); err != nil {
		return result, classify("rename", err)
	}
	logger.Info("directory filed",
		logging.String("source", sourceDir),
		logging.String("destination", dest),
		logging.Bool("duplicate", result.Duplicate))
	return result, nil
}

// unavailableErrors indicate the library filesystem is offline rather than
// that this particular directory is bad.
var unavailableErrors = []error{
	syscall.ENODEV,
	syscall.ENOTCONN,
	syscall.EHOSTDOWN,
	syscall.EHOSTUNREACH,
	syscall.ETIMEDOUT,
	syscall.EIO,
	syscall.ESTALE,
}

func classify(operation string, err error) error {
	for _, target := range unavailableErrors {
		if errors.Is(err, target) {
			return services.Wrap(services.ErrTransient, "filer", operation, "library filesystem unavailable", err)
		}
	}
	if errors.Is(err, syscall.EXDEV) {
		return services.Wrap(services.ErrValidation, "filer", operation, "source and library are on different filesystems", err)
	}
	return services.Wrap(services.ErrValidation, "filer", operation, "filesystem error", err)
}
