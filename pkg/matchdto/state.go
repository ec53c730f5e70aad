package matchdto

import "time"

// StateView is the serialized, broadcast-ready view of one match session.
type StateView struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	FEN       string    `json:"fen"`
	Turn      string    `json:"turn"`
	MovesUCI  []string  `json:"moves_uci"`
	MovesSAN  []string  `json:"moves_san"`
	MoveCount int       `json:"move_count"`
	White     *SeatView `json:"white,omitempty"`
	Black     *SeatView `json:"black,omitempty"`
	Winner    string    `json:"winner,omitempty"`

	LastMove   *LastMoveView   `json:"last_move,omitempty"`
	Robot      *RobotView      `json:"robot,omitempty"`
	Evaluation *EvaluationView `json:"evaluation,omitempty"`

	// Spectators is reported by the presence layer, never authoritative here.
	Spectators int `json:"spectators"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SeatView struct {
	Token     string `json:"token"`
	Name      string `json:"name,omitempty"`
	Connected bool   `json:"connected"`
	Robot     bool   `json:"robot"`
	Strategy  string `json:"strategy,omitempty"`
}

type LastMoveView struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	UCI       string `json:"uci"`
	SAN       string `json:"san"`
	Seat      string `json:"seat"`
}

type RobotView struct {
	Seat      string `json:"seat"`
	Mode      string `json:"mode"`
	DelayMS   int64  `json:"delay_ms"`
	LastError string `json:"last_error,omitempty"`
}

type EvaluationView struct {
	ScoreCP  int    `json:"score_cp"`
	Mate     int    `json:"mate,omitempty"`
	Depth    int    `json:"depth,omitempty"`
	BestMove string `json:"best_move,omitempty"`
	Source   string `json:"source"`
}

// JoinResult carries the seat assignment returned by create/join/connect.
type JoinResult struct {
	Seat  string     `json:"seat,omitempty"`
	Role  string     `json:"role"`
	State *StateView `json:"state,omitempty"`
}
