package match

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/park285/chess-match-server/internal/broadcast"
	"github.com/park285/chess-match-server/internal/eval"
	"github.com/park285/chess-match-server/internal/evalcache"
	"github.com/park285/chess-match-server/internal/rules"
	"github.com/park285/chess-match-server/internal/store"
	"github.com/park285/chess-match-server/pkg/matchdto"
)

func startTestActor(t *testing.T, id string, deps Deps) *Actor {
	t.Helper()
	if deps.Store == nil {
		deps.Store = store.NewMemoryStore()
	}
	if deps.RobotDelay == 0 {
		deps.RobotDelay = 10 * time.Millisecond
	}
	if deps.EvalTimeout == 0 {
		deps.EvalTimeout = 200 * time.Millisecond
	}
	a, err := Start(context.Background(), id, deps)
	if err != nil {
		t.Fatalf("start actor: %v", err)
	}
	t.Cleanup(func() {
		a.Stop()
		<-a.Done()
	})
	return a
}

// seatTokens joins alice and bob and reports which token holds which
// seat; seat assignment is random while both seats are open.
func seatTokens(t *testing.T, a *Actor) (white, black string) {
	t.Helper()
	ctx := context.Background()
	seatA, _, err := a.Join(ctx, "alice", "Alice")
	if err != nil {
		t.Fatalf("join alice: %v", err)
	}
	if _, _, err := a.Join(ctx, "bob", "Bob"); err != nil {
		t.Fatalf("join bob: %v", err)
	}
	if seatA == SeatWhite {
		return "alice", "bob"
	}
	return "bob", "alice"
}

func waitState(t *testing.T, a *Actor, cond func(*matchdto.StateView) bool) *matchdto.StateView {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		view, err := a.State(context.Background())
		if err != nil {
			t.Fatalf("state: %v", err)
		}
		if cond(view) {
			return view
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
	return nil
}

func TestJoinSeatsAndActivation(t *testing.T) {
	a := startTestActor(t, "m-join", Deps{})
	ctx := context.Background()

	seatA, view, err := a.Join(ctx, "alice", "Alice")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if !seatA.Valid() {
		t.Fatalf("seat = %q", seatA)
	}
	if view.Status != string(StatusWaiting) {
		t.Fatalf("status = %s", view.Status)
	}

	seatB, view, err := a.Join(ctx, "bob", "Bob")
	if err != nil {
		t.Fatalf("join bob: %v", err)
	}
	if seatB != seatA.Other() {
		t.Fatalf("bob seat = %q, alice seat = %q", seatB, seatA)
	}
	if view.Status != string(StatusActive) {
		t.Fatalf("status after both joined = %s", view.Status)
	}

	// Rejoin is idempotent for a seated identity.
	again, _, err := a.Join(ctx, "alice", "")
	if err != nil || again != seatA {
		t.Fatalf("rejoin: seat=%q err=%v", again, err)
	}

	if _, _, err := a.Join(ctx, "carol", "Carol"); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("third join: %v", err)
	}
	if _, _, err := a.Join(ctx, "", ""); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("blank token: %v", err)
	}
}

func TestMoveTurnAndAuthorization(t *testing.T) {
	a := startTestActor(t, "m-turns", Deps{})
	ctx := context.Background()
	white, black := seatTokens(t, a)

	if _, err := a.ApplyMove(ctx, "mallory", "e2", "e4", ""); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("stranger move: %v", err)
	}
	if _, err := a.ApplyMove(ctx, black, "e7", "e5", ""); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("black first: %v", err)
	}

	view, err := a.ApplyMove(ctx, white, "e2", "e4", "")
	if err != nil {
		t.Fatalf("white move: %v", err)
	}
	if view.MoveCount != 1 || view.LastMove == nil || view.LastMove.UCI != "e2e4" {
		t.Fatalf("view after move: count=%d last=%+v", view.MoveCount, view.LastMove)
	}
	if view.Turn != string(SeatBlack) {
		t.Fatalf("turn = %s", view.Turn)
	}

	if _, err := a.ApplyMove(ctx, white, "d2", "d4", ""); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("white twice: %v", err)
	}
	if _, err := a.ApplyMove(ctx, black, "e7", "e6", "x"); err != nil {
		t.Fatalf("black reply with junk promotion: %v", err)
	}
	if _, err := a.ApplyMove(ctx, white, "e4", "e6", ""); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("illegal move: %v", err)
	}
	if _, err := a.ApplyMove(ctx, white, "e9", "e4", ""); !errors.Is(err, ErrInvalidSquare) {
		t.Fatalf("invalid square: %v", err)
	}
}

func TestMoveRequiresActiveMatch(t *testing.T) {
	a := startTestActor(t, "m-waiting", Deps{})
	ctx := context.Background()

	if _, _, err := a.Join(ctx, "alice", ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := a.ApplyMove(ctx, "alice", "e2", "e4", ""); !errors.Is(err, ErrGameNotActive) {
		t.Fatalf("move while waiting: %v", err)
	}
}

func TestDestinationGuards(t *testing.T) {
	a := startTestActor(t, "m-dest", Deps{})
	ctx := context.Background()
	white, black := seatTokens(t, a)

	if _, err := a.Destinations(ctx, "mallory", "e2"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("stranger: %v", err)
	}
	if _, err := a.Destinations(ctx, white, "e4"); !errors.Is(err, ErrEmptySquare) {
		t.Fatalf("empty square: %v", err)
	}
	if _, err := a.Destinations(ctx, white, "e7"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("opponent piece: %v", err)
	}
	if _, err := a.Destinations(ctx, black, "e7"); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("out of turn: %v", err)
	}
	if _, err := a.Destinations(ctx, white, "zz"); !errors.Is(err, ErrInvalidSquare) {
		t.Fatalf("bad square: %v", err)
	}

	squares, err := a.Destinations(ctx, white, "e2")
	if err != nil {
		t.Fatalf("destinations: %v", err)
	}
	if len(squares) != 2 {
		t.Fatalf("e2 destinations = %v", squares)
	}
}

func TestResignFlow(t *testing.T) {
	a := startTestActor(t, "m-resign", Deps{})
	ctx := context.Background()
	white, black := seatTokens(t, a)

	if _, err := a.Resign(ctx, "mallory"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("stranger resign: %v", err)
	}
	view, err := a.Resign(ctx, white)
	if err != nil {
		t.Fatalf("resign: %v", err)
	}
	if view.Status != string(StatusResigned) || view.Winner != string(SeatBlack) {
		t.Fatalf("after resign: status=%s winner=%s", view.Status, view.Winner)
	}
	if _, err := a.ApplyMove(ctx, black, "e7", "e5", ""); !errors.Is(err, ErrGameNotActive) {
		t.Fatalf("move after resign: %v", err)
	}
	if _, err := a.Resign(ctx, black); !errors.Is(err, ErrGameNotActive) {
		t.Fatalf("double resign: %v", err)
	}
}

func TestCheckmateCompletesMatch(t *testing.T) {
	a := startTestActor(t, "m-mate", Deps{})
	ctx := context.Background()
	white, black := seatTokens(t, a)

	moves := []struct {
		token, from, to string
	}{
		{white, "e2", "e4"}, {black, "e7", "e5"},
		{white, "f1", "c4"}, {black, "b8", "c6"},
		{white, "d1", "h5"}, {black, "g8", "f6"},
		{white, "h5", "f7"},
	}
	var view *matchdto.StateView
	var err error
	for _, mv := range moves {
		view, err = a.ApplyMove(ctx, mv.token, mv.from, mv.to, "")
		if err != nil {
			t.Fatalf("apply %s%s: %v", mv.from, mv.to, err)
		}
	}
	if view.Status != string(StatusCompleted) || view.Winner != string(SeatWhite) {
		t.Fatalf("after mate: status=%s winner=%s", view.Status, view.Winner)
	}
	if _, err := a.ApplyMove(ctx, black, "a7", "a6", ""); !errors.Is(err, ErrGameNotActive) {
		t.Fatalf("move after mate: %v", err)
	}
}

func TestConnectRoles(t *testing.T) {
	a := startTestActor(t, "m-connect", Deps{})
	ctx := context.Background()

	res, err := a.Connect(ctx, "carol")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if res.Role != "waiting" || res.Seat != "" {
		t.Fatalf("role while waiting = %+v", res)
	}

	white, _ := seatTokens(t, a)

	res, err = a.Connect(ctx, "carol")
	if err != nil || res.Role != "spectator" {
		t.Fatalf("spectator connect: %+v err=%v", res, err)
	}
	res, err = a.Connect(ctx, white)
	if err != nil || res.Role != "player" || res.Seat != string(SeatWhite) {
		t.Fatalf("player connect: %+v err=%v", res, err)
	}
}

func TestRoleQueryDoesNotMutate(t *testing.T) {
	a := startTestActor(t, "m-role", Deps{})
	ctx := context.Background()

	res, err := a.Role(ctx, "carol")
	if err != nil || res.Role != "waiting" {
		t.Fatalf("role while waiting: %+v err=%v", res, err)
	}

	white, _ := seatTokens(t, a)
	a.Leave(white)
	waitState(t, a, func(v *matchdto.StateView) bool {
		return v.White != nil && !v.White.Connected
	})

	// Unlike connect, the role query must not flip the connected flag.
	res, err = a.Role(ctx, white)
	if err != nil || res.Role != "player" || res.Seat != string(SeatWhite) {
		t.Fatalf("player role: %+v err=%v", res, err)
	}
	if res.State.White.Connected {
		t.Fatal("role query reconnected the caller")
	}
	res, err = a.Role(ctx, "carol")
	if err != nil || res.Role != "spectator" {
		t.Fatalf("spectator role: %+v err=%v", res, err)
	}

	if _, err := a.Connect(ctx, white); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitState(t, a, func(v *matchdto.StateView) bool {
		return v.White != nil && v.White.Connected
	})
}

func TestLeaveMarksDisconnected(t *testing.T) {
	a := startTestActor(t, "m-leave", Deps{})
	white, _ := seatTokens(t, a)

	a.Leave(white)
	a.Leave("nobody") // unknown tokens are silently ignored

	view := waitState(t, a, func(v *matchdto.StateView) bool {
		w := v.White
		return w != nil && !w.Connected
	})
	if view.Status != string(StatusActive) {
		t.Fatalf("leave must not end the game: %s", view.Status)
	}

	// Rejoining flips the flag back.
	if _, _, err := a.Join(context.Background(), white, ""); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	waitState(t, a, func(v *matchdto.StateView) bool {
		return v.White != nil && v.White.Connected
	})
}

func TestAddRobotGuards(t *testing.T) {
	a := startTestActor(t, "m-robot-guards", Deps{RobotDelay: time.Hour})
	ctx := context.Background()

	if _, err := a.AddRobot(ctx, "pink"); !errors.Is(err, ErrInvalidSeat) {
		t.Fatalf("bad seat: %v", err)
	}
	if _, err := a.AddRobot(ctx, "white"); err != nil {
		t.Fatalf("add robot: %v", err)
	}
	if _, err := a.AddRobot(ctx, "black"); !errors.Is(err, ErrRobotAlreadyPresent) {
		t.Fatalf("second robot: %v", err)
	}
}

func TestAddRobotOccupiedSeat(t *testing.T) {
	a := startTestActor(t, "m-robot-occupied", Deps{RobotDelay: time.Hour})
	ctx := context.Background()

	seat, _, err := a.Join(ctx, "alice", "")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := a.AddRobot(ctx, string(seat)); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("robot on occupied seat: %v", err)
	}
}

func TestRobotFallbackMove(t *testing.T) {
	// No evaluation facade at all forces the uniform-random fallback.
	a := startTestActor(t, "m-robot-fallback", Deps{RobotDelay: 10 * time.Millisecond})
	ctx := context.Background()

	if _, err := a.AddRobot(ctx, "white"); err != nil {
		t.Fatalf("add robot: %v", err)
	}
	if _, _, err := a.Join(ctx, "alice", ""); err != nil {
		t.Fatalf("join: %v", err)
	}

	view := waitState(t, a, func(v *matchdto.StateView) bool { return v.MoveCount == 1 })
	if view.LastMove.Seat != string(SeatWhite) {
		t.Fatalf("mover = %s", view.LastMove.Seat)
	}
	if view.Robot == nil || view.Robot.Mode != string(StrategyFallback) {
		t.Fatalf("robot view = %+v", view.Robot)
	}
	if view.Robot.LastError == "" {
		t.Fatal("fallback must record why the engine path was skipped")
	}
	if view.White == nil || view.White.Strategy != string(StrategyFallback) {
		t.Fatalf("participant strategy = %+v", view.White)
	}

	// The fallback move must come from the enumerated legal set for the
	// position it was played in (here: the initial position).
	legal := map[string]bool{}
	for _, mv := range rules.NewGame().LegalMoves() {
		legal[mv.UCI] = true
	}
	if !legal[view.LastMove.UCI] {
		t.Fatalf("fallback move %s not in legal set", view.LastMove.UCI)
	}
}

func TestRobotFallbackWhenProviderDisabled(t *testing.T) {
	// A facade whose only networked provider is disabled must yield the
	// fallback path, with the reason recorded.
	facade := eval.NewFacade(nil, eval.NewRemoteProvider("", time.Second))
	a := startTestActor(t, "m-robot-disabled", Deps{
		Eval:       facade,
		RobotDelay: 10 * time.Millisecond,
	})
	ctx := context.Background()

	if _, err := a.AddRobot(ctx, "white"); err != nil {
		t.Fatalf("add robot: %v", err)
	}
	if _, _, err := a.Join(ctx, "alice", ""); err != nil {
		t.Fatalf("join: %v", err)
	}

	view := waitState(t, a, func(v *matchdto.StateView) bool { return v.MoveCount == 1 })
	if view.Robot.Mode != string(StrategyFallback) || view.Robot.LastError == "" {
		t.Fatalf("robot view = %+v", view.Robot)
	}
}

func TestRobotEngineMoveAndAlternation(t *testing.T) {
	facade := eval.NewFacade(evalcache.New[eval.Evaluation](16), eval.NewHeuristicProvider())
	a := startTestActor(t, "m-robot-engine", Deps{
		Eval:       facade,
		RobotDelay: 10 * time.Millisecond,
	})
	ctx := context.Background()

	if _, err := a.AddRobot(ctx, "black"); err != nil {
		t.Fatalf("add robot: %v", err)
	}
	if _, _, err := a.Join(ctx, "alice", ""); err != nil {
		t.Fatalf("join: %v", err)
	}

	if _, err := a.ApplyMove(ctx, "alice", "e2", "e4", ""); err != nil {
		t.Fatalf("human move: %v", err)
	}
	view := waitState(t, a, func(v *matchdto.StateView) bool { return v.MoveCount == 2 })
	if view.LastMove.Seat != string(SeatBlack) {
		t.Fatalf("mover = %s", view.LastMove.Seat)
	}
	if view.Robot.Mode != string(StrategyEngine) || view.Robot.LastError != "" {
		t.Fatalf("robot view = %+v", view.Robot)
	}
	if view.Turn != string(SeatWhite) {
		t.Fatalf("turn after robot reply = %s", view.Turn)
	}
}

func TestResignCancelsRobotTimer(t *testing.T) {
	a := startTestActor(t, "m-robot-cancel", Deps{RobotDelay: 80 * time.Millisecond})
	ctx := context.Background()

	if _, err := a.AddRobot(ctx, "white"); err != nil {
		t.Fatalf("add robot: %v", err)
	}
	if _, _, err := a.Join(ctx, "alice", ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	// The robot's timer is armed; resigning must disarm it.
	if _, err := a.Resign(ctx, "alice"); err != nil {
		t.Fatalf("resign: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	view, err := a.State(ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if view.MoveCount != 0 || view.Status != string(StatusResigned) {
		t.Fatalf("robot moved after resign: count=%d status=%s", view.MoveCount, view.Status)
	}
}

func TestStaleTimerGenerationIgnored(t *testing.T) {
	a := startTestActor(t, "m-robot-stale", Deps{RobotDelay: time.Hour})
	ctx := context.Background()

	if _, err := a.AddRobot(ctx, "white"); err != nil {
		t.Fatalf("add robot: %v", err)
	}
	if _, _, err := a.Join(ctx, "alice", ""); err != nil {
		t.Fatalf("join: %v", err)
	}

	// Stop the loop so the handler can be driven directly.
	a.Stop()
	<-a.Done()

	gen := a.sess.Robot.generation
	a.handleRobotFire(gen + 1)
	if got := a.sess.game.MoveCount(); got != 0 {
		t.Fatalf("stale fire applied a move: %d", got)
	}

	a.handleRobotFire(gen)
	if got := a.sess.game.MoveCount(); got != 1 {
		t.Fatalf("current fire should move: %d", got)
	}
}

func TestSnapshotPersistAndRestore(t *testing.T) {
	snapshots := store.NewMemoryStore()
	ctx := context.Background()

	a, err := Start(ctx, "m-restore", Deps{
		Store:       snapshots,
		RobotDelay:  time.Hour,
		EvalTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	white, black := seatTokens(t, a)
	if _, err := a.ApplyMove(ctx, white, "e2", "e4", ""); err != nil {
		t.Fatalf("move: %v", err)
	}
	a.Stop()
	<-a.Done()

	b, err := Start(ctx, "m-restore", Deps{
		Store:       snapshots,
		RobotDelay:  time.Hour,
		EvalTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer func() {
		b.Stop()
		<-b.Done()
	}()

	view, err := b.State(ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if view.MoveCount != 1 || view.Status != string(StatusActive) {
		t.Fatalf("restored: count=%d status=%s", view.MoveCount, view.Status)
	}
	if view.Turn != string(SeatBlack) {
		t.Fatalf("restored turn = %s", view.Turn)
	}
	if view.White.Token != white || view.Black.Token != black {
		t.Fatalf("restored seats: %+v %+v", view.White, view.Black)
	}

	// The restored actor keeps playing.
	if _, err := b.ApplyMove(ctx, black, "e7", "e5", ""); err != nil {
		t.Fatalf("move after restore: %v", err)
	}
}

func TestCorruptSnapshotStartsFresh(t *testing.T) {
	snapshots := store.NewMemoryStore()
	ctx := context.Background()
	if err := snapshots.Put(ctx, "m-corrupt", []byte("not json")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	a := startTestActor(t, "m-corrupt", Deps{Store: snapshots})
	view, err := a.State(ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if view.Status != string(StatusWaiting) || view.MoveCount != 0 {
		t.Fatalf("fresh session expected: %+v", view)
	}
}

func TestStateViewStableAcrossReads(t *testing.T) {
	facade := eval.NewFacade(evalcache.New[eval.Evaluation](16), eval.NewHeuristicProvider())
	a := startTestActor(t, "m-stable", Deps{Eval: facade})
	ctx := context.Background()
	seatTokens(t, a)

	first, err := a.State(ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	second, err := a.State(ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	rawA, _ := json.Marshal(first)
	rawB, _ := json.Marshal(second)
	if string(rawA) != string(rawB) {
		t.Fatalf("views differ:\n%s\n%s", rawA, rawB)
	}
	if first.Evaluation == nil {
		t.Fatal("expected an evaluation block")
	}
}

type countingProvider struct {
	calls int
	fail  bool
}

func (p *countingProvider) Name() string  { return "counting" }
func (p *countingProvider) Enabled() bool { return true }

func (p *countingProvider) Evaluate(context.Context, string, eval.Options) (eval.Evaluation, error) {
	p.calls++
	if p.fail {
		return eval.Evaluation{}, errors.New("unavailable")
	}
	return eval.Evaluation{ScoreCP: 7, Source: "counting"}, nil
}

func (p *countingProvider) BestMove(context.Context, string, eval.Options) (string, error) {
	return "", errors.New("unavailable")
}

func TestStateEvalRefreshKeyedByPosition(t *testing.T) {
	p := &countingProvider{}
	// No facade-level cache, so every provider call is visible.
	facade := eval.NewFacade(nil, p)
	a := startTestActor(t, "m-eval-key", Deps{Eval: facade})
	ctx := context.Background()
	white, _ := seatTokens(t, a)

	if _, err := a.State(ctx); err != nil {
		t.Fatalf("state: %v", err)
	}
	if _, err := a.State(ctx); err != nil {
		t.Fatalf("state: %v", err)
	}
	if p.calls != 1 {
		t.Fatalf("unchanged position re-evaluated: %d calls", p.calls)
	}

	if _, err := a.ApplyMove(ctx, white, "e2", "e4", ""); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := a.State(ctx); err != nil {
		t.Fatalf("state: %v", err)
	}
	if p.calls != 2 {
		t.Fatalf("moved position not re-evaluated: %d calls", p.calls)
	}
}

func TestStateSurvivesEvalFailure(t *testing.T) {
	facade := eval.NewFacade(nil, &countingProvider{fail: true})
	a := startTestActor(t, "m-eval-fail", Deps{Eval: facade})
	seatTokens(t, a)

	view, err := a.State(context.Background())
	if err != nil {
		t.Fatalf("state must absorb provider failure: %v", err)
	}
	if view.Evaluation != nil {
		t.Fatalf("evaluation should be absent: %+v", view.Evaluation)
	}
}

func TestBroadcastAfterPersist(t *testing.T) {
	snapshots := store.NewMemoryStore()
	bus := broadcast.NewMemoryBroadcaster()
	ctx := context.Background()

	frames, cancel, err := bus.Subscribe(ctx, "m-bcast")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	a := startTestActor(t, "m-bcast", Deps{Store: snapshots, Broadcast: bus})
	white, _ := seatTokens(t, a)
	if _, err := a.ApplyMove(ctx, white, "e2", "e4", ""); err != nil {
		t.Fatalf("move: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case raw := <-frames:
			var v matchdto.StateView
			if err := json.Unmarshal(raw, &v); err != nil {
				t.Fatalf("frame: %v", err)
			}
			if v.MoveCount != 1 {
				continue
			}
			// By the time the frame is out, the snapshot is durable.
			stored, ok, err := snapshots.Get(ctx, "m-bcast")
			if err != nil || !ok {
				t.Fatalf("snapshot missing: ok=%v err=%v", ok, err)
			}
			var snap snapshot
			if err := json.Unmarshal(stored, &snap); err != nil {
				t.Fatalf("snapshot decode: %v", err)
			}
			if len(snap.MovesUCI) != 1 || snap.MovesUCI[0] != "e2e4" {
				t.Fatalf("snapshot history = %v", snap.MovesUCI)
			}
			return
		case <-deadline:
			t.Fatal("no move frame received")
		}
	}
}
