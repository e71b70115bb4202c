package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/natefinch/atomic"
)

// BackupTimeLayout is the timestamp embedded in backup file names.
const BackupTimeLayout = "20060102-150405"

// Exists reports whether path exists. Errors other than "not exist" are returned.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Backup copies src into backupDir as <base>-<timestamp><ext> and returns the
// new path. Backups taken within the same second get a -N suffix.
func Backup(src, backupDir string, now time.Time) (string, error) {
	if strings.TrimSpace(backupDir) == "" {
		return "", errors.New("backup directory not configured")
	}
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	base, ext := splitName(src)
	stamp := now.Format(BackupTimeLayout)

	dst := filepath.Join(backupDir, base+"-"+stamp+ext)
	for n := 1; ; n++ {
		taken, err := Exists(dst)
		if err != nil {
			return "", err
		}
		if !taken {
			break
		}
		dst = filepath.Join(backupDir, fmt.Sprintf("%s-%s-%d%s", base, stamp, n, ext))
	}
	if err := CopyVerified(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// CopyVerified writes src to dst through a temp file and rename, then compares
// SHA-256 digests of both. dst is removed on mismatch.
func CopyVerified(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	want := sha256.New()
	if err := atomic.WriteFile(dst, io.TeeReader(in, want)); err != nil {
		return fmt.Errorf("write copy: %w", err)
	}
	got, err := digest(dst)
	if err != nil {
		return err
	}
	if !bytes.Equal(want.Sum(nil), got) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy of %s does not match the source", src)
	}
	return nil
}

func digest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open copy: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("read copy: %w", err)
	}
	return h.Sum(nil), nil
}

// PruneBackups removes the oldest backups of original in backupDir until at
// most keep remain, and returns how many files were removed.
func PruneBackups(backupDir, original string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	base, ext := splitName(original)
	matches, err := filepath.Glob(filepath.Join(backupDir, base+"-*"+ext))
	if err != nil {
		return 0, fmt.Errorf("list backups: %w", err)
	}
	type backup struct {
		path  string
		stamp time.Time
		seq   int
	}
	var backups []backup
	for _, path := range matches {
		rest := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), base+"-"), ext)
		if len(rest) < len(BackupTimeLayout) {
			continue
		}
		stamp, err := time.Parse(BackupTimeLayout, rest[:len(BackupTimeLayout)])
		if err != nil {
			continue
		}
		seq := 0
		if suffix := rest[len(BackupTimeLayout):]; suffix != "" {
			if seq, err = strconv.Atoi(strings.TrimPrefix(suffix, "-")); err != nil || !strings.HasPrefix(suffix, "-") {
				continue
			}
		}
		backups = append(backups, backup{path: path, stamp: stamp, seq: seq})
	}
	if len(backups) <= keep {
		return 0, nil
	}
	slices.SortFunc(backups, func(a, b backup) int {
		if c := a.stamp.Compare(b.stamp); c != 0 {
			return c
		}
		return a.seq - b.seq
	})
	removed := 0
	for _, b := range backups[:len(backups)-keep] {
		if err := os.Remove(b.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove backup: %w", err)
		}
		removed++
	}
	return removed, nil
}

func splitName(path string) (string, string) {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(filepath.Base(path), ext), ext
}
