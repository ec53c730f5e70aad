package eval

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/park285/chess-match-server/internal/rules"
)

// Piece values in centipawns, classic material count.
var pieceCP = map[byte]int{
	'p': 100, 'n': 300, 'b': 300, 'r': 500, 'q': 900,
}

// HeuristicProvider is the always-available local evaluator: material
// balance for scores, one-ply greedy material search for move selection.
type HeuristicProvider struct {
	mu   sync.Mutex
	rand *rand.Rand
}

func NewHeuristicProvider() *HeuristicProvider {
	return &HeuristicProvider{rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (p *HeuristicProvider) Name() string { return "heuristic" }

func (p *HeuristicProvider) Enabled() bool { return true }

func (p *HeuristicProvider) Evaluate(_ context.Context, fen string, _ Options) (Evaluation, error) {
	score, err := materialCP(fen)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluation{ScoreCP: score, Depth: 0, Source: p.Name()}, nil
}

// BestMove picks the legal move with the best resulting material for the
// side to move, breaking ties uniformly at random.
func (p *HeuristicProvider) BestMove(_ context.Context, fen string, _ Options) (string, error) {
	game, err := rules.FromFEN(fen)
	if err != nil {
		return "", err
	}
	moves := game.LegalMoves()
	if len(moves) == 0 {
		return "", ErrNoMove
	}

	best := make([]string, 0, 4)
	bestScore := -1 << 31
	for _, mv := range moves {
		probe, err := rules.FromFEN(fen)
		if err != nil {
			continue
		}
		res, err := probe.Apply(mv.From, mv.To, mv.Promotion)
		if err != nil {
			continue
		}
		// Score after the move, from the mover's perspective: the side
		// to move has flipped, so negate.
		after, err := materialCP(res.FEN)
		if err != nil {
			continue
		}
		score := -after
		if score > bestScore {
			bestScore = score
			best = best[:0]
		}
		if score == bestScore {
			best = append(best, mv.UCI)
		}
	}
	if len(best) == 0 {
		return "", ErrNoMove
	}
	p.mu.Lock()
	pick := best[p.rand.Intn(len(best))]
	p.mu.Unlock()
	return pick, nil
}

// materialCP scores the board field of a FEN from the side to move's
// perspective.
func materialCP(fen string) (int, error) {
	fields := strings.Fields(strings.TrimSpace(fen))
	if len(fields) < 2 {
		return 0, staticErr("malformed fen")
	}
	white, black := 0, 0
	for i := 0; i < len(fields[0]); i++ {
		ch := fields[0][i]
		if v, ok := pieceCP[ch]; ok {
			black += v
			continue
		}
		if v, ok := pieceCP[ch|0x20]; ok && ch >= 'A' && ch <= 'Z' {
			white += v
		}
	}
	diff := white - black
	if fields[1] == "b" {
		diff = -diff
	}
	return diff, nil
}
