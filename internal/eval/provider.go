package eval

import (
	"context"
	"time"
)

// Evaluation is a provider-agnostic score for one position. ScoreCP is
// centipawns from the side to move's perspective; Mate is plies to mate
// when forced (0 otherwise).
type Evaluation struct {
	ScoreCP  int    `json:"score_cp"`
	Mate     int    `json:"mate,omitempty"`
	Depth    int    `json:"depth,omitempty"`
	BestMove string `json:"best_move,omitempty"`
	Source   string `json:"source"`
}

// Options bound one provider call.
type Options struct {
	Timeout time.Duration
	Color   string // seat the request is scoped to, informational
}

// Provider is a pluggable evaluation backend. Exactly one networked
// provider is active at a time; the heuristic provider is always enabled
// and acts as the last resort.
type Provider interface {
	Name() string
	Enabled() bool
	Evaluate(ctx context.Context, fen string, opts Options) (Evaluation, error)
	BestMove(ctx context.Context, fen string, opts Options) (string, error)
}

type staticErr string

func (e staticErr) Error() string { return string(e) }

const (
	ErrDisabled = staticErr("evaluation provider disabled")
	ErrNoMove   = staticErr("evaluation provider returned no move")
)
