package eval

import (
	"context"
	"strings"

	"github.com/park285/chess-match-server/internal/evalcache"
	"github.com/park285/chess-match-server/internal/obslog"
	"go.uber.org/zap"
)

// Facade fronts the configured providers: the active networked provider
// first, the heuristic evaluator as the last resort. Evaluations are
// cached by canonical FEN; best-move requests never are, because callers
// need a decision for the position as it stands.
type Facade struct {
	providers []Provider
	cache     *evalcache.Cache[Evaluation]
}

func NewFacade(cache *evalcache.Cache[Evaluation], providers ...Provider) *Facade {
	return &Facade{providers: providers, cache: cache}
}

// active returns the first enabled provider.
func (f *Facade) active() Provider {
	for _, p := range f.providers {
		if p != nil && p.Enabled() {
			return p
		}
	}
	return nil
}

// Evaluate scores a position, consulting the cache first. A provider
// failure from the active provider falls through to the next enabled one;
// failures are never cached.
func (f *Facade) Evaluate(ctx context.Context, fen string, opts Options) (Evaluation, error) {
	key := cacheKey(fen)
	if f.cache != nil {
		if ev, ok := f.cache.Get(key); ok {
			return ev, nil
		}
	}

	var lastErr error = ErrDisabled
	for _, p := range f.providers {
		if p == nil || !p.Enabled() {
			continue
		}
		ev, err := p.Evaluate(ctx, fen, opts)
		if err != nil {
			lastErr = err
			obslog.L().Debug("eval_provider_error",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}
		if f.cache != nil {
			f.cache.Put(key, ev)
		}
		return ev, nil
	}
	return Evaluation{}, lastErr
}

// BestMove asks the active provider chain for a move. Never cached.
func (f *Facade) BestMove(ctx context.Context, fen string, opts Options) (string, Provider, error) {
	var lastErr error = ErrDisabled
	for _, p := range f.providers {
		if p == nil || !p.Enabled() {
			continue
		}
		mv, err := p.BestMove(ctx, fen, opts)
		if err != nil {
			lastErr = err
			obslog.L().Debug("eval_provider_error",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}
		mv = strings.ToLower(strings.TrimSpace(mv))
		if mv == "" {
			lastErr = ErrNoMove
			continue
		}
		return mv, p, nil
	}
	return "", nil, lastErr
}

// ActiveName reports the provider a request would hit first.
func (f *Facade) ActiveName() string {
	if p := f.active(); p != nil {
		return p.Name()
	}
	return ""
}

func cacheKey(fen string) string {
	return strings.TrimSpace(fen)
}
