package match

import (
	"time"

	"github.com/park285/chess-match-server/internal/eval"
	"github.com/park285/chess-match-server/internal/rules"
)

// Seat identifies one of the two playing roles.
type Seat string

const (
	SeatWhite Seat = "white"
	SeatBlack Seat = "black"
)

func (s Seat) Valid() bool { return s == SeatWhite || s == SeatBlack }

func (s Seat) Other() Seat {
	if s == SeatWhite {
		return SeatBlack
	}
	return SeatWhite
}

func (s Seat) color() rules.Color {
	if s == SeatWhite {
		return rules.White
	}
	return rules.Black
}

func seatFromColor(c rules.Color) Seat {
	if c == rules.White {
		return SeatWhite
	}
	return SeatBlack
}

// Status is the match lifecycle state. Terminal states are sinks.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusResigned  Status = "resigned"
	StatusDrawn     Status = "drawn"
	StatusStalemate Status = "stalemate"
	StatusTimeout   Status = "timeout"
	StatusAbandoned Status = "abandoned"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusResigned, StatusDrawn, StatusStalemate, StatusTimeout, StatusAbandoned:
		return true
	default:
		return false
	}
}

// Strategy records which move-selection path an automated participant
// last used.
type Strategy string

const (
	StrategyEngine   Strategy = "engine"
	StrategyFallback Strategy = "fallback"
)

// Participant occupies one seat, human or automated.
type Participant struct {
	Token     string   `json:"token"`
	Name      string   `json:"name,omitempty"`
	Connected bool     `json:"connected"`
	Robot     bool     `json:"robot"`
	Strategy  Strategy `json:"strategy,omitempty"`
}

// LastMove is the descriptor of the most recently applied move.
type LastMove struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	UCI       string `json:"uci"`
	SAN       string `json:"san"`
	Seat      Seat   `json:"seat"`
}

// RobotConfig drives the automated opponent. The timer handle and
// generation counter are transient and never persisted.
type RobotConfig struct {
	Seat      Seat
	Delay     time.Duration
	Mode      Strategy
	LastError string

	timer      *time.Timer
	generation uint64
}

// evalEntry caches the last computed evaluation together with the
// (position, status, winner) key it was computed for.
type evalEntry struct {
	fen    string
	status Status
	winner Seat
	value  eval.Evaluation
}

// Session is the root aggregate, owned exclusively by one actor.
type Session struct {
	ID        string
	Status    Status
	White     *Participant
	Black     *Participant
	LastMove  *LastMove
	Winner    Seat
	Robot     *RobotConfig
	CreatedAt time.Time
	UpdatedAt time.Time

	game      *rules.Game
	evalCache *evalEntry
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Status:    StatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
		game:      rules.NewGame(),
	}
}

func (s *Session) participant(seat Seat) *Participant {
	if seat == SeatWhite {
		return s.White
	}
	return s.Black
}

func (s *Session) setParticipant(seat Seat, p *Participant) {
	if seat == SeatWhite {
		s.White = p
	} else {
		s.Black = p
	}
}

func (s *Session) bothSeated() bool { return s.White != nil && s.Black != nil }

// seatOf resolves an identity token to the seat it occupies.
func (s *Session) seatOf(token string) (Seat, bool) {
	if s.White != nil && s.White.Token == token {
		return SeatWhite, true
	}
	if s.Black != nil && s.Black.Token == token {
		return SeatBlack, true
	}
	return "", false
}

func (s *Session) emptySeats() []Seat {
	var out []Seat
	if s.White == nil {
		out = append(out, SeatWhite)
	}
	if s.Black == nil {
		out = append(out, SeatBlack)
	}
	return out
}

// invalidateEval drops the cached analysis; called whenever position,
// status or winner changes.
func (s *Session) invalidateEval() { s.evalCache = nil }

type staticErr string

func (e staticErr) Error() string { return string(e) }

// Caller-facing error taxonomy. All of these are recoverable by the
// caller and never logged as failures.
const (
	ErrSlotTaken           = staticErr("slot_taken")
	ErrRobotAlreadyPresent = staticErr("robot_already_present")
	ErrInvalidSeat         = staticErr("invalid_seat")
	ErrNotAuthorized       = staticErr("not_authorized")
	ErrNotYourTurn         = staticErr("not_your_turn")
	ErrGameNotActive       = staticErr("game_not_active")
	ErrEmptySquare         = staticErr("empty_square")
	ErrInvalidSquare       = staticErr("invalid_square")
	ErrIllegalMove         = staticErr("illegal_move")
	ErrNotFound            = staticErr("not_found")
	ErrActorStopped        = staticErr("match actor stopped")
)
