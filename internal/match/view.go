package match

import (
	"github.com/park285/chess-match-server/pkg/matchdto"
)

func seatView(p *Participant) *matchdto.SeatView {
	if p == nil {
		return nil
	}
	return &matchdto.SeatView{
		Token:     p.Token,
		Name:      p.Name,
		Connected: p.Connected,
		Robot:     p.Robot,
		Strategy:  string(p.Strategy),
	}
}

// buildView projects the session into the wire representation. Two
// calls against an unchanged session produce identical views except
// for the externally supplied spectator count, which the gateway
// stamps on afterwards.
func (s *Session) buildView() *matchdto.StateView {
	v := &matchdto.StateView{
		ID:        s.ID,
		Status:    string(s.Status),
		FEN:       s.game.FEN(),
		Turn:      string(seatFromColor(s.game.Turn())),
		MovesUCI:  s.game.MovesUCI(),
		MovesSAN:  s.game.MovesSAN(),
		MoveCount: s.game.MoveCount(),
		White:     seatView(s.White),
		Black:     seatView(s.Black),
		Winner:    string(s.Winner),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.LastMove != nil {
		v.LastMove = &matchdto.LastMoveView{
			From:      s.LastMove.From,
			To:        s.LastMove.To,
			Promotion: s.LastMove.Promotion,
			UCI:       s.LastMove.UCI,
			SAN:       s.LastMove.SAN,
			Seat:      string(s.LastMove.Seat),
		}
	}
	if s.Robot != nil {
		v.Robot = &matchdto.RobotView{
			Seat:      string(s.Robot.Seat),
			Mode:      string(s.Robot.Mode),
			DelayMS:   s.Robot.Delay.Milliseconds(),
			LastError: s.Robot.LastError,
		}
	}
	if e := s.evalCache; e != nil && e.fen == v.FEN && e.status == s.Status && e.winner == s.Winner {
		v.Evaluation = &matchdto.EvaluationView{
			ScoreCP:  e.value.ScoreCP,
			Mate:     e.value.Mate,
			Depth:    e.value.Depth,
			BestMove: e.value.BestMove,
			Source:   e.value.Source,
		}
	}
	return v
}
