package gateway

import (
	"encoding/json"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/chess-match-server/internal/obslog"
)

// presence counts live websocket subscriptions per match. This is the
// sole source of the spectator number reported on views.
type presence struct {
	mu     sync.Mutex
	counts map[string]int
}

func newPresence() *presence {
	return &presence{counts: make(map[string]int)}
}

func (p *presence) add(matchID string) {
	p.mu.Lock()
	p.counts[matchID]++
	p.mu.Unlock()
}

func (p *presence) remove(matchID string) {
	p.mu.Lock()
	if p.counts[matchID] > 1 {
		p.counts[matchID]--
	} else {
		delete(p.counts, matchID)
	}
	p.mu.Unlock()
}

func (p *presence) count(matchID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[matchID]
}

// handleWS streams serialized state frames for one match: the current
// view immediately on attach, then every broadcast frame until either
// side closes. Frames are relayed verbatim; only the spectator count on
// the initial view is gateway-stamped.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	a, err := s.reg.Resolve(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	frames, cancelSub, err := s.sub.Subscribe(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		cancelSub()
		obslog.L().Debug("ws_accept_failed",
			zap.String("match_id", id),
			zap.Error(err),
		)
		return
	}
	defer cancelSub()
	defer c.Close(websocket.StatusNormalClosure, "")

	s.presence.add(id)
	defer s.presence.remove(id)

	// The stream is write-only; CloseRead surfaces peer disconnects
	// through the returned context.
	ctx := c.CloseRead(r.Context())

	if view, verr := a.State(ctx); verr == nil {
		s.stamp(id, view)
		if raw, merr := json.Marshal(view); merr == nil {
			if werr := c.Write(ctx, websocket.MessageText, raw); werr != nil {
				return
			}
		}
	}

	for {
		select {
		case raw, ok := <-frames:
			if !ok {
				return
			}
			if err := c.Write(ctx, websocket.MessageText, raw); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
