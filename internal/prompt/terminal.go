package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"

	"kura/internal/candidate"
	"kura/internal/decision"
)

// ErrNotInteractive is returned when stdin is not a terminal.
var ErrNotInteractive = errors.New("prompt: stdin is not a terminal")

// LineReader reads one answer after displaying a prompt.
type LineReader interface {
	Prompt(prompt string) (string, error)
}

// Terminal asks the user through a line editor. It satisfies
// decision.Confirmer.
type Terminal struct {
	mu     sync.Mutex
	reader LineReader
	out    io.Writer
	closer io.Closer
}

// NewTerminal opens a liner session on the controlling terminal.
func NewTerminal() (*Terminal, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return nil, ErrNotInteractive
	}
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	return &Terminal{reader: state, out: os.Stdout, closer: state}, nil
}

// NewWithReader builds a Terminal over an arbitrary reader and writer.
func NewWithReader(reader LineReader, out io.Writer) *Terminal {
	if out == nil {
		out = io.Discard
	}
	return &Terminal{reader: reader, out: out}
}

// Close restores the terminal state.
func (t *Terminal) Close() error {
	if t == nil || t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

// ConfirmOne implements decision.Confirmer.
func (t *Terminal) ConfirmOne(ctx context.Context, subject decision.Subject, option candidate.Scored) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "\n%s\n", header(subject))
	fmt.Fprintf(t.out, "  %s\n", describe(option))
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		answer, err := t.read("Use this match? [y/n]: ")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(t.out, "Please answer y or n.")
	}
}

// Choose implements decision.Confirmer. 0 or "n" selects none.
func (t *Terminal) Choose(ctx context.Context, subject decision.Subject, options []candidate.Scored) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "\n%s\n", header(subject))
	for idx, option := range options {
		fmt.Fprintf(t.out, "  %d) %s\n", idx+1, describe(option))
	}
	fmt.Fprintln(t.out, "  0) none of these")
	for {
		if err := ctx.Err(); err != nil {
			return -1, err
		}
		answer, err := t.read(fmt.Sprintf("Choose [0-%d]: ", len(options)))
		if err != nil {
			return -1, err
		}
		if strings.EqualFold(answer, "n") || strings.EqualFold(answer, "none") {
			return -1, nil
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 0 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintf(t.out, "Enter a number between 0 and %d.\n", len(options))
	}
}

func (t *Terminal) read(prompt string) (string, error) {
	answer, err := t.reader.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return "", decision.ErrDeferred
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func header(subject decision.Subject) string {
	if subject.Directory != "" {
		return fmt.Sprintf("Which entry matches %q (%s)?", subject.Name, subject.Directory)
	}
	return fmt.Sprintf("Which entry matches %q?", subject.Name)
}

func describe(option candidate.Scored) string {
	name := option.DisplayName
	if name == "" {
		name = "(no title)"
	}
	return fmt.Sprintf("%s  %s  [%s, score %.1f]", option.Code, name, option.SourceID, option.Score)
}
