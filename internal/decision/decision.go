package decision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"kura/internal/candidate"
	"kura/internal/logging"
)

// Kind tags the outcome of a gate evaluation.
type Kind int

const (
	// NoCandidates means nothing reached the ask threshold; the directory is left alone.
	NoCandidates Kind = iota
	// Accepted carries the chosen code.
	Accepted
	// Rejected means a human declined every suggestion; callers persist noMatch.
	Rejected
)

func (k Kind) String() string {
	switch k {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "no_candidates"
	}
}

// Decision is the result of Gate.Decide.
type Decision struct {
	Kind      Kind
	Candidate candidate.Scored
	// Escalated is true when a confirmer was consulted.
	Escalated bool
}

// Code returns the accepted code, or "" for any other outcome.
func (d Decision) Code() string {
	if d.Kind != Accepted {
		return ""
	}
	return d.Candidate.Code
}

// Subject identifies what is being decided, for prompts and logs.
type Subject struct {
	Directory string
	Name      string
}

// ErrDeferred is returned by confirmers that decline to decide now. The
// directory stays untouched and is offered again on the next run.
var ErrDeferred = errors.New("decision deferred")

// Confirmer is the human-in-the-loop collaborator.
type Confirmer interface {
	// ConfirmOne asks a yes/no question about a single remaining candidate.
	ConfirmOne(ctx context.Context, subject Subject, option candidate.Scored) (bool, error)
	// Choose presents options best-first and returns the chosen index, or -1 for none.
	Choose(ctx context.Context, subject Subject, options []candidate.Scored) (int, error)
}

// Outcome classifies a scored list without consulting anyone.
type Outcome int

const (
	OutcomeNoMatch Outcome = iota
	OutcomeAutoAccept
	OutcomeEscalate
)

// Gate applies the accept/ask thresholds.
type Gate struct {
	Ask            float64
	Accept         float64
	MaxSuggestions int
	Confirmer      Confirmer
	Logger         *slog.Logger
}

// Ranked drops entries below the ask threshold and sorts the rest by score,
// best first. Ties keep discovery order.
func (g *Gate) Ranked(scored []candidate.Scored) []candidate.Scored {
	kept := make([]candidate.Scored, 0, len(scored))
	for _, entry := range scored {
		if entry.Score < g.Ask {
			continue
		}
		kept = append(kept, entry)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	return kept
}

// Classify reports what Decide would do with scored before any prompt.
func (g *Gate) Classify(scored []candidate.Scored) Outcome {
	ranked := g.Ranked(scored)
	switch {
	case len(ranked) == 0:
		return OutcomeNoMatch
	case ranked[0].Score >= g.Accept:
		return OutcomeAutoAccept
	default:
		return OutcomeEscalate
	}
}

// Decide turns a merged scored list into a decision. Confirmer errors are
// returned unchanged and no decision is made.
func (g *Gate) Decide(ctx context.Context, subject Subject, scored []candidate.Scored) (Decision, error) {
	logger := logging.WithContext(ctx, logging.NewComponentLogger(g.Logger, "decision"))
	ranked := g.Ranked(scored)

	if len(ranked) == 0 {
		logger.Debug("no candidate reached ask threshold",
			logging.Args(logging.DecisionAttrs("identification", "no_candidates", fmt.Sprintf("best below %.1f", g.Ask))...)...)
		return Decision{Kind: NoCandidates}, nil
	}

	best := ranked[0]
	if best.Score >= g.Accept {
		best.Accepted = true
		attrs := logging.DecisionAttrs("identification", "auto_accepted", fmt.Sprintf("score %.1f >= %.1f", best.Score, g.Accept))
		attrs = append(attrs, logging.String(logging.FieldCode, best.Code))
		logger.Info("candidate accepted", logging.Args(attrs...)...)
		return Decision{Kind: Accepted, Candidate: best}, nil
	}

	if g.Confirmer == nil {
		return Decision{}, fmt.Errorf("decide %q: %w", subject.Name, ErrDeferred)
	}

	if len(ranked) == 1 {
		ok, err := g.Confirmer.ConfirmOne(ctx, subject, best)
		if err != nil {
			return Decision{}, err
		}
		if !ok {
			logger.Info("candidate rejected",
				logging.Args(logging.DecisionAttrs("identification", "rejected", "single suggestion declined")...)...)
			return Decision{Kind: Rejected, Escalated: true}, nil
		}
		best.Accepted = true
		logger.Info("candidate confirmed",
			logging.Args(append(logging.DecisionAttrs("identification", "confirmed", "single suggestion"), logging.String(logging.FieldCode, best.Code))...)...)
		return Decision{Kind: Accepted, Candidate: best, Escalated: true}, nil
	}

	limit := g.MaxSuggestions
	if limit <= 0 || limit > len(ranked) {
		limit = len(ranked)
	}
	options := make([]candidate.Scored, limit)
	copy(options, ranked[:limit])

	idx, err := g.Confirmer.Choose(ctx, subject, options)
	if err != nil {
		return Decision{}, err
	}
	if idx < 0 {
		logger.Info("candidates rejected",
			logging.Args(logging.DecisionAttrs("identification", "rejected", fmt.Sprintf("none of %d suggestions chosen", len(options)))...)...)
		return Decision{Kind: Rejected, Escalated: true}, nil
	}
	if idx >= len(options) {
		return Decision{}, fmt.Errorf("decide %q: choice %d out of range", subject.Name, idx)
	}
	chosen := options[idx]
	chosen.Accepted = true
	logger.Info("candidate chosen",
		logging.Args(append(logging.DecisionAttrs("identification", "confirmed", fmt.Sprintf("option %d of %d", idx+1, len(options))), logging.String(logging.FieldCode, chosen.Code))...)...)
	return Decision{Kind: Accepted, Candidate: chosen, Escalated: true}, nil
}
