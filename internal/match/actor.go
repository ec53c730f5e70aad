package match

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-match-server/internal/broadcast"
	"github.com/park285/chess-match-server/internal/eval"
	"github.com/park285/chess-match-server/internal/obslog"
	"github.com/park285/chess-match-server/internal/rules"
	"github.com/park285/chess-match-server/internal/store"
	"github.com/park285/chess-match-server/pkg/matchdto"
)

// ioTimeout bounds store and broadcast calls issued from the loop so a
// stuck backend cannot wedge the mailbox forever.
const ioTimeout = 3 * time.Second

// Deps are the collaborators one actor needs. All of them are shared
// across actors and must be safe for concurrent use.
type Deps struct {
	Store       store.SnapshotStore
	Broadcast   broadcast.Publisher
	Eval        *eval.Facade
	RobotDelay  time.Duration
	EvalTimeout time.Duration
}

type result struct {
	seat    Seat
	role    string
	view    *matchdto.StateView
	squares []string
	err     error
}

// request is one mailbox envelope. reply is nil for fire-and-forget
// messages and buffered otherwise, so the loop never blocks on a caller
// that gave up.
type request struct {
	run   func() result
	reply chan result
}

// Actor owns one session and serializes every operation on it through
// its mailbox. The loop goroutine is the only one that touches sess.
type Actor struct {
	id       string
	deps     Deps
	mailbox  chan request
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	panicked atomic.Bool

	sess *Session
	rng  *rand.Rand
}

// Start hydrates the session from the snapshot store (fresh if absent)
// and launches the mailbox loop. A corrupt snapshot is logged and
// replaced by a fresh session rather than propagated.
func Start(parent context.Context, id string, deps Deps) (*Actor, error) {
	ctx, cancel := context.WithCancel(parent)
	a := &Actor{
		id:      id,
		deps:    deps,
		mailbox: make(chan request, 32),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	loadCtx, loadCancel := context.WithTimeout(ctx, ioTimeout)
	raw, ok, err := deps.Store.Get(loadCtx, id)
	loadCancel()
	if err != nil {
		cancel()
		return nil, err
	}
	if ok {
		sess, derr := decodeSnapshot(id, raw, deps.RobotDelay)
		if derr != nil {
			obslog.L().Warn("match_snapshot_corrupt",
				zap.String("match_id", id),
				zap.Error(derr),
			)
			sess = newSession(id, time.Now().UTC())
		}
		a.sess = sess
	} else {
		a.sess = newSession(id, time.Now().UTC())
	}

	go a.loop()
	return a, nil
}

func (a *Actor) ID() string            { return a.id }
func (a *Actor) Done() <-chan struct{} { return a.done }
func (a *Actor) Panicked() bool        { return a.panicked.Load() }

// Stop shuts the loop down. Pending askers get ErrActorStopped.
func (a *Actor) Stop() { a.cancel() }

func (a *Actor) Alive() bool {
	select {
	case <-a.done:
		return false
	default:
		return true
	}
}

func (a *Actor) loop() {
	defer close(a.done)
	defer func() {
		if r := recover(); r != nil {
			a.panicked.Store(true)
			obslog.L().Error("match_actor_panic",
				zap.String("match_id", a.id),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
		a.cancelRobotTimer()
		a.cancel()
	}()

	// A hydrated session may already be waiting on the robot.
	a.decideRobotSchedule()

	for {
		select {
		case <-a.ctx.Done():
			return
		case req := <-a.mailbox:
			res := req.run()
			if req.reply != nil {
				req.reply <- res
			}
		}
	}
}

func (a *Actor) ask(ctx context.Context, run func() result) result {
	req := request{run: run, reply: make(chan result, 1)}
	select {
	case a.mailbox <- req:
	case <-ctx.Done():
		return result{err: ctx.Err()}
	case <-a.ctx.Done():
		return result{err: ErrActorStopped}
	}
	select {
	case res := <-req.reply:
		return res
	case <-ctx.Done():
		return result{err: ctx.Err()}
	case <-a.ctx.Done():
		return result{err: ErrActorStopped}
	}
}

func (a *Actor) post(run func() result) {
	select {
	case a.mailbox <- request{run: run}:
	case <-a.ctx.Done():
	}
}

// Join claims a seat for the identity, or reconnects it if already
// seated. Seat choice is random while both seats are open.
func (a *Actor) Join(ctx context.Context, token, name string) (Seat, *matchdto.StateView, error) {
	res := a.ask(ctx, func() result { return a.handleJoin(token, name) })
	return res.seat, res.view, res.err
}

// Connect reports the caller's role without claiming anything. Seated
// identities are marked connected; everyone else is a spectator (or
// "waiting" while the match has open seats).
func (a *Actor) Connect(ctx context.Context, token string) (*matchdto.JoinResult, error) {
	res := a.ask(ctx, func() result { return a.handleConnect(token) })
	if res.err != nil {
		return nil, res.err
	}
	return &matchdto.JoinResult{Seat: string(res.seat), Role: res.role, State: res.view}, nil
}

// Role reports the caller's role without touching any state, unlike
// Connect which flips the connected flag for seated identities.
func (a *Actor) Role(ctx context.Context, token string) (*matchdto.JoinResult, error) {
	res := a.ask(ctx, func() result { return a.handleRole(token) })
	if res.err != nil {
		return nil, res.err
	}
	return &matchdto.JoinResult{Seat: string(res.seat), Role: res.role, State: res.view}, nil
}

// AddRobot seats the automated opponent on the requested side.
func (a *Actor) AddRobot(ctx context.Context, seat string) (*matchdto.StateView, error) {
	res := a.ask(ctx, func() result { return a.handleAddRobot(seat) })
	return res.view, res.err
}

// Destinations lists the legal target squares for the caller's piece.
func (a *Actor) Destinations(ctx context.Context, token, square string) ([]string, error) {
	res := a.ask(ctx, func() result { return a.handleDestinations(token, square) })
	return res.squares, res.err
}

// ApplyMove plays one move for the seated caller.
func (a *Actor) ApplyMove(ctx context.Context, token, from, to, promotion string) (*matchdto.StateView, error) {
	res := a.ask(ctx, func() result { return a.handleApplyMove(token, from, to, promotion) })
	return res.view, res.err
}

// Resign ends the game in the opponent's favor.
func (a *Actor) Resign(ctx context.Context, token string) (*matchdto.StateView, error) {
	res := a.ask(ctx, func() result { return a.handleResign(token) })
	return res.view, res.err
}

// Leave marks the identity disconnected. Fire-and-forget: unknown
// tokens are ignored and the caller never waits.
func (a *Actor) Leave(token string) {
	a.post(func() result { return a.handleLeave(token) })
}

// State returns the analysis-refreshed view of the session.
func (a *Actor) State(ctx context.Context) (*matchdto.StateView, error) {
	res := a.ask(ctx, func() result { return a.handleState() })
	return res.view, res.err
}

func (a *Actor) handleJoin(token, name string) result {
	s := a.sess
	token = strings.TrimSpace(token)
	if token == "" {
		return result{err: ErrNotAuthorized}
	}
	if seat, ok := s.seatOf(token); ok {
		p := s.participant(seat)
		if !p.Connected {
			p.Connected = true
			a.touchAndPublish()
		}
		return result{seat: seat, role: "player", view: s.buildView()}
	}

	empty := s.emptySeats()
	if len(empty) == 0 {
		return result{err: ErrSlotTaken}
	}
	seat := empty[0]
	if len(empty) == 2 {
		seat = empty[a.rng.Intn(len(empty))]
	}
	s.setParticipant(seat, &Participant{
		Token:     token,
		Name:      strings.TrimSpace(name),
		Connected: true,
	})
	if s.Status == StatusWaiting && s.bothSeated() {
		s.Status = StatusActive
		s.invalidateEval()
	}
	a.touchAndPublish()
	a.decideRobotSchedule()
	obslog.L().Info("match_seat_claimed",
		zap.String("match_id", a.id),
		zap.String("seat", string(seat)),
		zap.String("status", string(s.Status)),
	)
	return result{seat: seat, role: "player", view: s.buildView()}
}

func (a *Actor) handleConnect(token string) result {
	s := a.sess
	token = strings.TrimSpace(token)
	if seat, ok := s.seatOf(token); ok {
		p := s.participant(seat)
		if !p.Connected {
			p.Connected = true
			a.touchAndPublish()
		}
		return result{seat: seat, role: "player", view: s.buildView()}
	}
	role := "spectator"
	if s.Status == StatusWaiting {
		role = "waiting"
	}
	return result{role: role, view: s.buildView()}
}

func (a *Actor) handleRole(token string) result {
	s := a.sess
	if seat, ok := s.seatOf(strings.TrimSpace(token)); ok {
		return result{seat: seat, role: "player", view: s.buildView()}
	}
	role := "spectator"
	if s.Status == StatusWaiting {
		role = "waiting"
	}
	return result{role: role, view: s.buildView()}
}

func (a *Actor) handleAddRobot(seatStr string) result {
	s := a.sess
	seat := Seat(strings.ToLower(strings.TrimSpace(seatStr)))
	if !seat.Valid() {
		return result{err: ErrInvalidSeat}
	}
	if s.Robot != nil {
		return result{err: ErrRobotAlreadyPresent}
	}
	if s.participant(seat) != nil {
		return result{err: ErrSlotTaken}
	}

	s.setParticipant(seat, &Participant{
		Token:     robotToken(),
		Name:      "Robot",
		Connected: true,
		Robot:     true,
		Strategy:  StrategyEngine,
	})
	s.Robot = &RobotConfig{
		Seat:  seat,
		Delay: a.deps.RobotDelay,
		Mode:  StrategyEngine,
	}
	if s.Status == StatusWaiting && s.bothSeated() {
		s.Status = StatusActive
		s.invalidateEval()
	}
	a.touchAndPublish()
	a.decideRobotSchedule()
	obslog.L().Info("robot_seated",
		zap.String("match_id", a.id),
		zap.String("seat", string(seat)),
	)
	return result{seat: seat, view: s.buildView()}
}

func (a *Actor) handleDestinations(token, square string) result {
	s := a.sess
	seat, ok := s.seatOf(strings.TrimSpace(token))
	if !ok {
		return result{err: ErrNotAuthorized}
	}
	if !rules.ValidSquare(square) {
		return result{err: ErrInvalidSquare}
	}
	owner, occupied, err := s.game.PieceAt(square)
	if err != nil {
		return result{err: ErrInvalidSquare}
	}
	if !occupied {
		return result{err: ErrEmptySquare}
	}
	if seatFromColor(owner) != seat {
		return result{err: ErrNotAuthorized}
	}
	if s.game.Turn() != seat.color() {
		return result{err: ErrNotYourTurn}
	}
	squares, err := s.game.Destinations(square)
	if err != nil {
		return result{err: ErrInvalidSquare}
	}
	return result{squares: squares}
}

func (a *Actor) handleApplyMove(token, from, to, promotion string) result {
	s := a.sess
	seat, ok := s.seatOf(strings.TrimSpace(token))
	if !ok {
		return result{err: ErrNotAuthorized}
	}
	if s.Status != StatusActive {
		return result{err: ErrGameNotActive}
	}
	if s.game.Turn() != seat.color() {
		return result{err: ErrNotYourTurn}
	}

	mv, err := s.game.Apply(from, to, promotion)
	if err != nil {
		return result{err: mapRulesErr(err)}
	}
	a.commitMove(seat, mv)
	return result{seat: seat, view: s.buildView()}
}

func (a *Actor) handleResign(token string) result {
	s := a.sess
	seat, ok := s.seatOf(strings.TrimSpace(token))
	if !ok {
		return result{err: ErrNotAuthorized}
	}
	if s.Status != StatusActive {
		return result{err: ErrGameNotActive}
	}
	s.Status = StatusResigned
	s.Winner = seat.Other()
	s.invalidateEval()
	a.cancelRobotTimer()
	a.touchAndPublish()
	obslog.L().Info("match_resigned",
		zap.String("match_id", a.id),
		zap.String("seat", string(seat)),
	)
	return result{seat: seat, view: s.buildView()}
}

func (a *Actor) handleLeave(token string) result {
	s := a.sess
	seat, ok := s.seatOf(strings.TrimSpace(token))
	if !ok {
		return result{}
	}
	p := s.participant(seat)
	if !p.Connected {
		return result{}
	}
	p.Connected = false
	a.touchAndPublish()
	obslog.L().Info("match_participant_left",
		zap.String("match_id", a.id),
		zap.String("seat", string(seat)),
	)
	return result{}
}

func (a *Actor) handleState() result {
	a.refreshEval()
	return result{view: a.sess.buildView()}
}

// commitMove records a validated, already-applied move: descriptor,
// outcome mapping, persistence, broadcast, robot rescheduling.
func (a *Actor) commitMove(seat Seat, mv rules.MoveResult) {
	s := a.sess
	lm := &LastMove{
		From: mv.UCI[:2],
		To:   mv.UCI[2:4],
		UCI:  mv.UCI,
		SAN:  mv.SAN,
		Seat: seat,
	}
	if len(mv.UCI) > 4 {
		lm.Promotion = mv.UCI[4:]
	}
	s.LastMove = lm
	s.invalidateEval()

	verdict := s.game.Outcome()
	switch verdict.Kind {
	case rules.VerdictCheckmate:
		s.Status = StatusCompleted
		s.Winner = seatFromColor(verdict.Winner)
	case rules.VerdictStalemate:
		s.Status = StatusStalemate
	case rules.VerdictDraw:
		s.Status = StatusDrawn
	}
	if s.Status.Terminal() {
		a.cancelRobotTimer()
	}
	a.touchAndPublish()
	a.decideRobotSchedule()
	obslog.L().Info("match_move_applied",
		zap.String("match_id", a.id),
		zap.String("seat", string(seat)),
		zap.String("uci", mv.UCI),
		zap.String("status", string(s.Status)),
	)
}

// touchAndPublish persists the snapshot and then broadcasts the fresh
// view, in that order, so a crash between the two loses a frame but
// never durable state.
func (a *Actor) touchAndPublish() {
	a.sess.UpdatedAt = time.Now().UTC()
	a.persist()
	a.publish()
}

func (a *Actor) persist() {
	raw, err := encodeSnapshot(a.sess)
	if err != nil {
		obslog.L().Error("match_snapshot_encode_failed",
			zap.String("match_id", a.id),
			zap.Error(err),
		)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()
	if err := a.deps.Store.Put(ctx, a.id, raw); err != nil {
		obslog.L().Error("match_snapshot_put_failed",
			zap.String("match_id", a.id),
			zap.Error(err),
		)
	}
}

func (a *Actor) publish() {
	if a.deps.Broadcast == nil {
		return
	}
	raw, err := json.Marshal(a.sess.buildView())
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()
	if err := a.deps.Broadcast.Publish(ctx, a.id, raw); err != nil {
		obslog.L().Warn("match_broadcast_failed",
			zap.String("match_id", a.id),
			zap.Error(err),
		)
	}
}

// refreshEval recomputes the cached analysis when the (position,
// status, winner) key changed. Provider failures leave the view
// without an evaluation block; they never fail the state read.
func (a *Actor) refreshEval() {
	s := a.sess
	if a.deps.Eval == nil {
		return
	}
	fen := s.game.FEN()
	if e := s.evalCache; e != nil && e.fen == fen && e.status == s.Status && e.winner == s.Winner {
		return
	}
	ctx, cancel := context.WithTimeout(a.ctx, a.deps.EvalTimeout)
	defer cancel()
	ev, err := a.deps.Eval.Evaluate(ctx, fen, eval.Options{
		Timeout: a.deps.EvalTimeout,
		Color:   string(seatFromColor(s.game.Turn())),
	})
	if err != nil {
		s.evalCache = nil
		obslog.L().Debug("match_eval_unavailable",
			zap.String("match_id", a.id),
			zap.Error(err),
		)
		return
	}
	s.evalCache = &evalEntry{fen: fen, status: s.Status, winner: s.Winner, value: ev}
}

func mapRulesErr(err error) error {
	switch {
	case errors.Is(err, rules.ErrInvalidSquare):
		return ErrInvalidSquare
	case errors.Is(err, rules.ErrIllegalMove):
		return ErrIllegalMove
	default:
		return err
	}
}
