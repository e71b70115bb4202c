package catalog

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"

	"kura/internal/fileutil"
	"kura/internal/services"
)

const header = `<?xml version="1.0" standalone="yes"?>` + "\n"

// Load reads the platform file at path. A missing or empty file yields an
// empty document.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Document{}, nil
		}
		return nil, services.Wrap(services.ErrValidation, "catalog", "read", path, err)
	}
	return Decode(data, path)
}

// Decode parses a platform document. source labels errors.
func Decode(data []byte, source string) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Document{}, nil
	}
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, services.Wrap(services.ErrValidation, "catalog", "decode", source, err)
	}
	return &doc, nil
}

// Encode renders doc with the LaunchBox header and two-space indentation.
func Encode(doc *Document) ([]byte, error) {
	if doc == nil {
		doc = &Document{}
	}
	out := *doc
	out.XMLName = xml.Name{Local: "LaunchBox"}
	body, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "catalog", "encode", "", err)
	}
	var buf bytes.Buffer
	buf.Grow(len(header) + len(body) + 1)
	buf.WriteString(header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Save backs up the current file at path into backupDir, then replaces it
// atomically with doc. It returns the backup path, or "" when there was no
// previous file.
func Save(path string, doc *Document, backupDir string) (string, error) {
	data, err := Encode(doc)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "catalog", "create platform dir", filepath.Dir(path), err)
	}

	var backup string
	exists, err := fileutil.Exists(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "catalog", "stat", path, err)
	}
	if exists {
		backup, err = fileutil.Backup(path, backupDir, time.Now())
		if err != nil {
			return "", services.Wrap(services.ErrConfiguration, "catalog", "backup", path, err)
		}
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return backup, services.Wrap(services.ErrTransient, "catalog", "write", path, err)
	}
	return backup, nil
}
