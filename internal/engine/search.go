package engine

import (
	"sort"
	"time"

	"github.com/corentings/chess/v2"
)

// evaluator scores a position from the side to move's point of view, in
// pawn units.
type evaluator func(pos *chess.Position) float64

// searchState carries the per-search budgets shared down the tree.
type searchState struct {
	nodes    uint64
	maxNodes uint64
	deadline time.Time
	aborted  bool
}

func (st *searchState) step() bool {
	st.nodes++
	if st.maxNodes > 0 && st.nodes > st.maxNodes {
		st.aborted = true
	}
	if !st.deadline.IsZero() && st.nodes%1024 == 0 && time.Now().After(st.deadline) {
		st.aborted = true
	}
	return !st.aborted
}

// isTactical reports captures, en passant and promotions, the move
// classes quiescence keeps searching.
func isTactical(pos *chess.Position, m chess.Move) bool {
	if pos.Board().Piece(m.S2()) != chess.NoPiece {
		return true
	}
	return m.HasTag(chess.EnPassant) || m.Promo() != chess.NoPieceType
}

// orderMoves sorts captures of the most valuable victims first.
func orderMoves(pos *chess.Position, moves []chess.Move) {
	b := pos.Board()
	victim := func(m chess.Move) float64 {
		p := b.Piece(m.S2())
		if p == chess.NoPiece {
			return 0
		}
		return classicalValues[p.Type()]
	}
	sort.SliceStable(moves, func(i, j int) bool {
		return victim(moves[i]) > victim(moves[j])
	})
}

// negamax is a plain alpha-beta search over the rules library's
// immutable positions.
func negamax(pos *chess.Position, depth, qplies int, alpha, beta float64, eval evaluator, st *searchState) float64 {
	if !st.step() {
		return eval(pos)
	}
	switch pos.Status() {
	case chess.Checkmate:
		// Prefer faster mates: more remaining depth means found
		// earlier in the game tree.
		return -(mateScore + float64(depth))
	case chess.Stalemate:
		return 0
	}
	if depth <= 0 {
		return quiesce(pos, qplies, alpha, beta, eval, st)
	}

	moves := pos.ValidMoves()
	orderMoves(pos, moves)
	best := -2.0 * mateScore
	for _, m := range moves {
		child := pos.Update(&m)
		if child == nil {
			continue
		}
		score := -negamax(child, depth-1, qplies, -beta, -alpha, eval, st)
		if score > best {
			best = score
		}
		if score > alpha {
			alpha = score
		}
		if alpha >= beta || st.aborted {
			break
		}
	}
	return best
}

// quiesce searches tactical moves only, to a bounded depth.
func quiesce(pos *chess.Position, qplies int, alpha, beta float64, eval evaluator, st *searchState) float64 {
	standPat := eval(pos)
	if qplies <= 0 || st.aborted {
		return standPat
	}
	if standPat >= beta {
		return beta
	}
	if standPat > alpha {
		alpha = standPat
	}

	var tactical []chess.Move
	for _, m := range pos.ValidMoves() {
		if isTactical(pos, m) {
			tactical = append(tactical, m)
		}
	}
	orderMoves(pos, tactical)
	for _, m := range tactical {
		if !st.step() {
			break
		}
		child := pos.Update(&m)
		if child == nil {
			continue
		}
		score := -quiesce(child, qplies-1, -beta, -alpha, eval, st)
		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}
	return alpha
}

// rootMove pairs a legal root move with its search score.
type rootMove struct {
	move  chess.Move
	score float64
}

// searchRoot scores every legal move and returns them best first. The
// returned slice is empty for terminal positions.
func searchRoot(g *chess.Game, depth, qplies int, eval evaluator, st *searchState) (float64, []rootMove) {
	pos := g.Position()
	moves := pos.ValidMoves()
	if len(moves) == 0 {
		return 0, nil
	}
	orderMoves(pos, moves)

	scored := make([]rootMove, 0, len(moves))
	for _, m := range moves {
		child := pos.Update(&m)
		if child == nil {
			continue
		}
		score := -negamax(child, depth-1, qplies, -2*mateScore, 2*mateScore, eval, st)
		scored = append(scored, rootMove{move: m, score: score})
		if st.aborted {
			break
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if len(scored) == 0 {
		return 0, nil
	}
	return scored[0].score, scored
}

// moveStrings flattens scored root moves into coordinate notation.
func moveStrings(scored []rootMove) []string {
	out := make([]string, len(scored))
	for i, rm := range scored {
		out[i] = MoveString(rm.move)
	}
	return out
}
