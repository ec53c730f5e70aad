package match

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/park285/chess-match-server/internal/rules"
)

// snapshotVersion tags the persisted schema. Hydration accepts older
// versions and fills defaults; unknown newer versions are rejected.
const snapshotVersion = 1

type participantSnapshot struct {
	Token     string   `json:"token"`
	Name      string   `json:"name,omitempty"`
	Connected bool     `json:"connected"`
	Robot     bool     `json:"robot"`
	Strategy  Strategy `json:"strategy,omitempty"`
}

type robotSnapshot struct {
	Seat      Seat     `json:"seat"`
	DelayMS   int64    `json:"delay_ms"`
	Mode      Strategy `json:"mode,omitempty"`
	LastError string   `json:"last_error,omitempty"`
}

type snapshot struct {
	Version   int                  `json:"version"`
	ID        string               `json:"id"`
	MovesUCI  []string             `json:"moves_uci"`
	Status    Status               `json:"status"`
	White     *participantSnapshot `json:"white,omitempty"`
	Black     *participantSnapshot `json:"black,omitempty"`
	LastMove  *LastMove            `json:"last_move,omitempty"`
	Winner    Seat                 `json:"winner,omitempty"`
	Robot     *robotSnapshot       `json:"robot,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

func snapshotParticipant(p *Participant) *participantSnapshot {
	if p == nil {
		return nil
	}
	return &participantSnapshot{
		Token:     p.Token,
		Name:      p.Name,
		Connected: p.Connected,
		Robot:     p.Robot,
		Strategy:  p.Strategy,
	}
}

func restoreParticipant(p *participantSnapshot) *Participant {
	if p == nil {
		return nil
	}
	return &Participant{
		Token:     p.Token,
		Name:      p.Name,
		Connected: p.Connected,
		Robot:     p.Robot,
		Strategy:  p.Strategy,
	}
}

// encodeSnapshot serializes the durable subset of the session. Timer
// handles, the live rules game and cached analysis stay out; the game
// is rebuilt from the move history on hydrate.
func encodeSnapshot(s *Session) ([]byte, error) {
	snap := snapshot{
		Version:   snapshotVersion,
		ID:        s.ID,
		MovesUCI:  s.game.MovesUCI(),
		Status:    s.Status,
		White:     snapshotParticipant(s.White),
		Black:     snapshotParticipant(s.Black),
		LastMove:  s.LastMove,
		Winner:    s.Winner,
		Robot:     nil,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Robot != nil {
		snap.Robot = &robotSnapshot{
			Seat:      s.Robot.Seat,
			DelayMS:   s.Robot.Delay.Milliseconds(),
			Mode:      s.Robot.Mode,
			LastError: s.Robot.LastError,
		}
	}
	return json.Marshal(&snap)
}

// decodeSnapshot rebuilds a session from persisted bytes. Missing
// fields from pre-version payloads get defaults; a corrupt move
// history or unreadable payload is an error and the caller decides
// whether to start fresh.
func decodeSnapshot(id string, raw []byte, defaultDelay time.Duration) (*Session, error) {
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version > snapshotVersion {
		return nil, fmt.Errorf("snapshot version %d not supported", snap.Version)
	}

	game, err := rules.Rebuild(snap.MovesUCI)
	if err != nil {
		return nil, fmt.Errorf("replay history: %w", err)
	}

	now := time.Now().UTC()
	s := &Session{
		ID:        id,
		Status:    snap.Status,
		White:     restoreParticipant(snap.White),
		Black:     restoreParticipant(snap.Black),
		LastMove:  snap.LastMove,
		Winner:    snap.Winner,
		CreatedAt: snap.CreatedAt,
		UpdatedAt: snap.UpdatedAt,
		game:      game,
	}
	if s.Status == "" {
		s.Status = StatusWaiting
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	if snap.Robot != nil {
		delay := time.Duration(snap.Robot.DelayMS) * time.Millisecond
		if delay <= 0 {
			delay = defaultDelay
		}
		mode := snap.Robot.Mode
		if mode == "" {
			mode = StrategyEngine
		}
		s.Robot = &RobotConfig{
			Seat:      snap.Robot.Seat,
			Delay:     delay,
			Mode:      mode,
			LastError: snap.Robot.LastError,
		}
	}
	return s, nil
}
