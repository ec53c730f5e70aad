package match

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-match-server/internal/eval"
	"github.com/park285/chess-match-server/internal/obslog"
)

func robotToken() string { return "robot:" + uuid.NewString() }

// decideRobotSchedule arms or disarms the robot timer for the current
// session state. At most one timer is pending; a fire carries the
// generation it was armed with so stale fires are discarded.
func (a *Actor) decideRobotSchedule() {
	s := a.sess
	r := s.Robot
	if r == nil || s.Status != StatusActive || s.game.Turn() != r.Seat.color() {
		a.cancelRobotTimer()
		return
	}
	if r.timer != nil {
		return
	}
	r.generation++
	gen := r.generation
	delay := r.Delay
	if delay <= 0 {
		delay = a.deps.RobotDelay
	}
	r.timer = time.AfterFunc(delay, func() {
		a.post(func() result { return a.handleRobotFire(gen) })
	})
}

func (a *Actor) cancelRobotTimer() {
	r := a.sess.Robot
	if r == nil || r.timer == nil {
		return
	}
	r.timer.Stop()
	r.timer = nil
	r.generation++
}

// handleRobotFire runs inside the loop when the delay elapses. The
// session may have moved on since the timer was armed, so everything
// is re-validated before a move is selected.
func (a *Actor) handleRobotFire(gen uint64) result {
	s := a.sess
	r := s.Robot
	if r == nil || gen != r.generation {
		return result{}
	}
	r.timer = nil
	if s.Status != StatusActive || s.game.Turn() != r.Seat.color() {
		return result{}
	}

	from, to, promo, strategy := a.selectRobotMove(r)
	if from == "" {
		// No legal move should mean the game already ended; the
		// outcome mapping on the last commit handles that.
		obslog.L().Warn("robot_no_move",
			zap.String("match_id", a.id),
			zap.String("seat", string(r.Seat)),
		)
		return result{}
	}

	mv, err := s.game.Apply(from, to, promo)
	if err != nil && strategy == StrategyEngine {
		// The provider's move did not survive board validation.
		r.LastError = err.Error()
		obslog.L().Warn("robot_engine_move_rejected",
			zap.String("match_id", a.id),
			zap.String("uci", from+to+promo),
			zap.Error(err),
		)
		from, to, promo = a.randomLegalMove()
		if from == "" {
			return result{}
		}
		strategy = StrategyFallback
		mv, err = s.game.Apply(from, to, promo)
	}
	if err != nil {
		obslog.L().Error("robot_move_failed",
			zap.String("match_id", a.id),
			zap.Error(err),
		)
		return result{}
	}

	r.Mode = strategy
	if strategy == StrategyEngine {
		r.LastError = ""
	}
	if p := s.participant(r.Seat); p != nil {
		p.Strategy = strategy
	}
	a.commitMove(r.Seat, mv)
	return result{}
}

// selectRobotMove asks the evaluation facade first and falls back to a
// uniformly random legal move when no provider can answer. Promotion
// defaults to queen on the fallback path.
func (a *Actor) selectRobotMove(r *RobotConfig) (from, to, promo string, strategy Strategy) {
	s := a.sess
	if a.deps.Eval != nil {
		ctx, cancel := context.WithTimeout(a.ctx, a.deps.EvalTimeout)
		mv, _, err := a.deps.Eval.BestMove(ctx, s.game.FEN(), eval.Options{
			Timeout: a.deps.EvalTimeout,
			Color:   string(r.Seat),
		})
		cancel()
		if err == nil && len(mv) >= 4 {
			return mv[:2], mv[2:4], mv[4:], StrategyEngine
		}
		if err != nil {
			r.LastError = err.Error()
		} else {
			r.LastError = "provider returned unusable move"
		}
		obslog.L().Debug("robot_engine_unavailable",
			zap.String("match_id", a.id),
			zap.String("reason", r.LastError),
		)
	} else {
		r.LastError = "no evaluation facade configured"
	}

	from, to, promo = a.randomLegalMove()
	if from == "" {
		return "", "", "", StrategyFallback
	}
	return from, to, promo, StrategyFallback
}

// randomLegalMove picks uniformly from the enumerated legal moves.
func (a *Actor) randomLegalMove() (from, to, promo string) {
	cands := a.sess.game.LegalMoves()
	if len(cands) == 0 {
		return "", "", ""
	}
	c := cands[a.rng.Intn(len(cands))]
	return c.From, c.To, c.Promotion
}
