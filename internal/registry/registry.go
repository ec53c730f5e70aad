// Package registry maps match ids to live actors, spawning them on
// demand from durable snapshots and restarting them after a panic.
package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-match-server/internal/match"
	"github.com/park285/chess-match-server/internal/obslog"
)

// maxRestarts caps supervised restarts per match id; beyond it the
// actor stays down until the next Resolve re-hydrates it from the
// snapshot.
const maxRestarts = 3

type Registry struct {
	deps    match.Deps
	baseCtx context.Context

	mu       sync.Mutex
	actors   map[string]*match.Actor
	spawning map[string]chan struct{}
	restarts map[string]int
}

func New(baseCtx context.Context, deps match.Deps) *Registry {
	return &Registry{
		deps:     deps,
		baseCtx:  baseCtx,
		actors:   make(map[string]*match.Actor),
		spawning: make(map[string]chan struct{}),
		restarts: make(map[string]int),
	}
}

// Create spawns an actor for a brand-new match id.
func (r *Registry) Create(ctx context.Context) (*match.Actor, error) {
	id := uuid.NewString()
	a, err := r.spawn(ctx, id)
	if err != nil {
		return nil, err
	}
	obslog.L().Info("match_created", zap.String("match_id", id))
	return a, nil
}

// Resolve returns the live actor for id, reviving it from its snapshot
// when no actor is running. Unknown ids yield match.ErrNotFound.
func (r *Registry) Resolve(ctx context.Context, id string) (*match.Actor, error) {
	r.mu.Lock()
	if a, ok := r.actors[id]; ok && a.Alive() {
		r.mu.Unlock()
		return a, nil
	}
	r.mu.Unlock()

	exists, err := r.deps.Store.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, match.ErrNotFound
	}
	return r.spawn(ctx, id)
}

// RestoreAll revives every persisted match at startup so in-flight
// games survive a process restart.
func (r *Registry) RestoreAll(ctx context.Context) error {
	ids, err := r.deps.Store.ListIDs(ctx)
	if err != nil {
		return err
	}
	restored := 0
	for _, id := range ids {
		if _, err := r.Resolve(ctx, id); err != nil {
			if errors.Is(err, match.ErrNotFound) {
				continue
			}
			obslog.L().Warn("match_restore_failed",
				zap.String("match_id", id),
				zap.Error(err),
			)
			continue
		}
		restored++
	}
	obslog.L().Info("match_restore_done", zap.Int("restored", restored))
	return nil
}

// StopAll shuts every live actor down and waits for the loops to exit.
func (r *Registry) StopAll() {
	r.mu.Lock()
	actors := make([]*match.Actor, 0, len(r.actors))
	for _, a := range r.actors {
		actors = append(actors, a)
	}
	r.mu.Unlock()
	for _, a := range actors {
		a.Stop()
	}
	for _, a := range actors {
		<-a.Done()
	}
}

// spawn starts one actor per id at a time. Hydration reads the store,
// so it runs outside the registry lock; concurrent callers for the
// same id wait on the in-flight spawn and then pick up its result.
func (r *Registry) spawn(ctx context.Context, id string) (*match.Actor, error) {
	for {
		r.mu.Lock()
		if a, ok := r.actors[id]; ok && a.Alive() {
			r.mu.Unlock()
			return a, nil
		}
		wait, inflight := r.spawning[id]
		if !inflight {
			wait = make(chan struct{})
			r.spawning[id] = wait
			r.mu.Unlock()
			break
		}
		r.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	a, err := match.Start(r.baseCtx, id, r.deps)

	r.mu.Lock()
	done := r.spawning[id]
	delete(r.spawning, id)
	if err == nil {
		r.actors[id] = a
		go r.supervise(id, a)
	}
	r.mu.Unlock()
	close(done)
	return a, err
}

// supervise watches one actor; a panicked loop is replaced by a fresh
// actor hydrated from the last persisted snapshot.
func (r *Registry) supervise(id string, a *match.Actor) {
	<-a.Done()

	r.mu.Lock()
	if r.actors[id] == a {
		delete(r.actors, id)
	}
	if !a.Panicked() {
		r.mu.Unlock()
		return
	}
	r.restarts[id]++
	attempts := r.restarts[id]
	r.mu.Unlock()

	if attempts > maxRestarts {
		obslog.L().Error("match_actor_gave_up",
			zap.String("match_id", id),
			zap.Int("restarts", attempts-1),
		)
		return
	}
	if _, err := r.spawn(r.baseCtx, id); err != nil {
		obslog.L().Error("match_actor_restart_failed",
			zap.String("match_id", id),
			zap.Error(err),
		)
		return
	}
	obslog.L().Warn("match_actor_restarted",
		zap.String("match_id", id),
		zap.Int("attempt", attempts),
	)
}
