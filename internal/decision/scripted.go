package decision

import (
	"context"
	"sync"

	"kura/internal/candidate"
)

// Scripted is a deterministic Confirmer. Answers are consumed in order; when
// they run out Fallback applies. An answer of -1 means "none", any other value
// picks that option (ConfirmOne treats 0 as yes).
type Scripted struct {
	Answers  []int
	Fallback Policy

	mu    sync.Mutex
	calls []Call
}

// Policy decides what Scripted does once its answers are exhausted.
type Policy int

const (
	// Defer returns ErrDeferred.
	Defer Policy = iota
	// RejectAll answers "none".
	RejectAll
	// AcceptFirst picks the best option.
	AcceptFirst
)

// Call records one question asked of a Scripted confirmer.
type Call struct {
	Subject Subject
	Options []candidate.Scored
	Single  bool
}

func (s *Scripted) next() (int, error) {
	if len(s.Answers) > 0 {
		answer := s.Answers[0]
		s.Answers = s.Answers[1:]
		return answer, nil
	}
	switch s.Fallback {
	case RejectAll:
		return -1, nil
	case AcceptFirst:
		return 0, nil
	default:
		return 0, ErrDeferred
	}
}

// ConfirmOne implements Confirmer.
func (s *Scripted) ConfirmOne(_ context.Context, subject Subject, option candidate.Scored) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Subject: subject, Options: []candidate.Scored{option}, Single: true})
	answer, err := s.next()
	if err != nil {
		return false, err
	}
	return answer == 0, nil
}

// Choose implements Confirmer.
func (s *Scripted) Choose(_ context.Context, subject Subject, options []candidate.Scored) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]candidate.Scored, len(options))
	copy(cp, options)
	s.calls = append(s.calls, Call{Subject: subject, Options: cp})
	return s.next()
}

// Calls returns the questions asked so far.
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}
