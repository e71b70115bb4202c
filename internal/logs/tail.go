package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const maxLineBytes = 1024 * 1024

// Last returns up to limit of the newest entries matching filter and the
// offset just past the end of the file. A missing file yields no entries.
func Last(path string, limit int, filter Filter) ([]Entry, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	ring := make([]Entry, limit)
	count, next := 0, 0
	offset, err := scan(file, func(e Entry) {
		if !filter.Match(e) {
			return
		}
		ring[next] = e
		next = (next + 1) % limit
		if count < limit {
			count++
		}
	})
	if err != nil {
		return nil, 0, err
	}

	entries := make([]Entry, count)
	start := 0
	if count == limit {
		start = next
	}
	for i := range count {
		entries[i] = ring[(start+i)%limit]
	}
	return entries, offset, nil
}

// Follow emits entries appended after offset until ctx ends, polling every
// interval. A file that shrank is read again from the start.
func Follow(ctx context.Context, path string, offset int64, filter Filter, interval time.Duration, emit func(Entry)) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, filter, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, filter Filter, emit func(Entry)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	consumed, err := scan(file, func(e Entry) {
		if filter.Match(e) {
			emit(e)
		}
	})
	if err != nil {
		return offset, err
	}
	return consumed, nil
}

// scan parses complete lines from the current position and returns the
// offset after the last complete line. A trailing partial line is left for
// the next read.
func scan(file *os.File, fn func(Entry)) (int64, error) {
	pos, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("determine log offset: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return pos, nil
		}
		if err != nil {
			return pos, fmt.Errorf("read log file: %w", err)
		}
		pos += int64(len(line))
		if len(line) > maxLineBytes {
			continue
		}
		if entry, ok := Parse(line); ok {
			fn(entry)
		}
	}
}
