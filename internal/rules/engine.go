// Package rules wraps the chess rules engine. Nothing outside this
// package imports the chess library; the session core sees only squares,
// UCI strings and verdicts.
package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// VerdictKind is the terminal classification derived from a position.
type VerdictKind string

const (
	VerdictOngoing   VerdictKind = "ongoing"
	VerdictCheckmate VerdictKind = "checkmate"
	VerdictStalemate VerdictKind = "stalemate"
	VerdictDraw      VerdictKind = "draw"
)

type Verdict struct {
	Kind   VerdictKind
	Winner Color // set only for checkmate
}

type MoveResult struct {
	UCI string
	SAN string
	FEN string
}

type CandidateMove struct {
	From      string
	To        string
	Promotion string
	UCI       string
}

type staticErr string

func (e staticErr) Error() string { return string(e) }

const (
	ErrIllegalMove   = staticErr("illegal move")
	ErrInvalidSquare = staticErr("invalid square")
)

// Game owns one replayable chess position plus its move history.
type Game struct {
	inner *nchess.Game
}

func NewGame() *Game {
	return &Game{inner: nchess.NewGame()}
}

// Rebuild replays a stored UCI history from the start position. Used by
// snapshot hydration; a history the engine rejects is a corrupt snapshot.
func Rebuild(movesUCI []string) (*Game, error) {
	g := NewGame()
	notation := nchess.UCINotation{}
	for _, mv := range movesUCI {
		move, err := notation.Decode(g.inner.Position(), strings.ToLower(strings.TrimSpace(mv)))
		if err != nil {
			return nil, fmt.Errorf("decode move %s: %w", mv, err)
		}
		if err := g.inner.Move(move, nil); err != nil {
			return nil, fmt.Errorf("apply move %s: %w", mv, err)
		}
	}
	return g, nil
}

// FromFEN starts a game at an arbitrary position. Move history is empty;
// callers that need history must Rebuild instead.
func FromFEN(fen string) (*Game, error) {
	opt, err := nchess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	return &Game{inner: nchess.NewGame(opt)}, nil
}

func (g *Game) FEN() string {
	return g.inner.FEN()
}

func (g *Game) Turn() Color {
	return colorFrom(g.inner.Position().Turn())
}

// PieceAt reports the owner of the piece on the given square. The second
// return is false for an empty square.
func (g *Game) PieceAt(square string) (Color, bool, error) {
	sq, err := parseSquare(square)
	if err != nil {
		return "", false, err
	}
	piece := g.inner.Position().Board().Piece(sq)
	if piece == nchess.NoPiece {
		return "", false, nil
	}
	return colorFrom(piece.Color()), true, nil
}

// Apply validates and plays from→to for the side to move. The promotion
// letter (q/r/b/n) is honored when given; an empty letter on a promoting
// move defaults to queen.
func (g *Game) Apply(from, to, promotion string) (MoveResult, error) {
	fromSq, err := parseSquare(from)
	if err != nil {
		return MoveResult{}, err
	}
	toSq, err := parseSquare(to)
	if err != nil {
		return MoveResult{}, err
	}

	promo := normalizePromotion(promotion)
	uci := fromSq.String() + toSq.String() + promo
	pos := g.inner.Position()
	notation := nchess.UCINotation{}
	move, err := notation.Decode(pos, uci)
	if err != nil {
		if promo == "" && g.promotes(fromSq, toSq) {
			uci = fromSq.String() + toSq.String() + "q"
			move, err = notation.Decode(pos, uci)
		}
		if err != nil {
			return MoveResult{}, ErrIllegalMove
		}
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, move)
	if err := g.inner.Move(move, nil); err != nil {
		return MoveResult{}, ErrIllegalMove
	}
	return MoveResult{UCI: uci, SAN: san, FEN: g.inner.FEN()}, nil
}

// Outcome derives the terminal verdict from the current position.
func (g *Game) Outcome() Verdict {
	switch g.inner.Outcome() {
	case nchess.WhiteWon:
		return Verdict{Kind: VerdictCheckmate, Winner: White}
	case nchess.BlackWon:
		return Verdict{Kind: VerdictCheckmate, Winner: Black}
	case nchess.Draw:
		if g.inner.Method() == nchess.Stalemate {
			return Verdict{Kind: VerdictStalemate}
		}
		return Verdict{Kind: VerdictDraw}
	default:
		return Verdict{Kind: VerdictOngoing}
	}
}

// Destinations enumerates the legal destination squares for the piece on
// `from`, asking the engine to validate each candidate move in turn.
func (g *Game) Destinations(from string) ([]string, error) {
	fromSq, err := parseSquare(from)
	if err != nil {
		return nil, err
	}
	pos := g.inner.Position()
	notation := nchess.UCINotation{}
	var out []string
	for file := nchess.FileA; file <= nchess.FileH; file++ {
		for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
			toSq := nchess.NewSquare(file, rank)
			if toSq == fromSq {
				continue
			}
			uci := fromSq.String() + toSq.String()
			if _, err := notation.Decode(pos, uci); err == nil {
				out = append(out, toSq.String())
				continue
			}
			if _, err := notation.Decode(pos, uci+"q"); err == nil {
				out = append(out, toSq.String())
			}
		}
	}
	return out, nil
}

// LegalMoves enumerates every legal move for the side to move. Promotion
// candidates carry the queen default.
func (g *Game) LegalMoves() []CandidateMove {
	pos := g.inner.Position()
	board := pos.Board()
	turn := pos.Turn()
	var out []CandidateMove
	for file := nchess.FileA; file <= nchess.FileH; file++ {
		for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
			fromSq := nchess.NewSquare(file, rank)
			piece := board.Piece(fromSq)
			if piece == nchess.NoPiece || piece.Color() != turn {
				continue
			}
			dests, err := g.Destinations(fromSq.String())
			if err != nil {
				continue
			}
			for _, to := range dests {
				toSq, err := parseSquare(to)
				if err != nil {
					continue
				}
				promo := ""
				if piece.Type() == nchess.Pawn && g.promotes(fromSq, toSq) {
					promo = "q"
				}
				out = append(out, CandidateMove{
					From:      fromSq.String(),
					To:        to,
					Promotion: promo,
					UCI:       fromSq.String() + to + promo,
				})
			}
		}
	}
	return out
}

func (g *Game) MovesUCI() []string {
	moves := g.inner.Moves()
	out := make([]string, 0, len(moves))
	for _, mv := range moves {
		out = append(out, mv.String())
	}
	return out
}

func (g *Game) MovesSAN() []string {
	moves := g.inner.Moves()
	positions := g.inner.Positions()
	notation := nchess.AlgebraicNotation{}
	out := make([]string, len(moves))
	for i, mv := range moves {
		if i < len(positions) {
			out[i] = notation.Encode(positions[i], mv)
		}
	}
	return out
}

func (g *Game) MoveCount() int {
	return len(g.inner.Moves())
}

// promotes reports whether a pawn move from→to reaches a promotion rank.
func (g *Game) promotes(from, to nchess.Square) bool {
	piece := g.inner.Position().Board().Piece(from)
	if piece == nchess.NoPiece || piece.Type() != nchess.Pawn {
		return false
	}
	return to.Rank() == nchess.Rank8 || to.Rank() == nchess.Rank1
}

func ValidSquare(s string) bool {
	_, err := parseSquare(s)
	return err == nil
}

func parseSquare(s string) (nchess.Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return 0, ErrInvalidSquare
	}
	file := nchess.FileA + nchess.File(s[0]-'a')
	rank := nchess.Rank1 + nchess.Rank(s[1]-'1')
	return nchess.NewSquare(file, rank), nil
}

func normalizePromotion(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	switch p {
	case "q", "r", "b", "n":
		return p
	default:
		return ""
	}
}

func colorFrom(c nchess.Color) Color {
	if c == nchess.White {
		return White
	}
	return Black
}
