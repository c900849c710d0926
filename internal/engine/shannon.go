package engine

import (
	"fmt"

	"github.com/corentings/chess/v2"
)

// Shannon implements the evaluation from Shannon's 1949 paper:
// classical material, a mobility term, and (optionally) doubled and
// isolated pawn penalties, driven through a fixed-depth search.
type Shannon struct {
	maxPlies int
	qPlies   int
	mateTest bool
	pawnRule bool
}

// NewShannon returns the Shannon backend with its paper defaults.
func NewShannon() *Shannon {
	return &Shannon{maxPlies: 1, qPlies: 7, mateTest: true}
}

func (s *Shannon) Name() string { return "Shannon" }

func (s *Shannon) Options() []Option {
	return []Option{
		{Name: "maxplies", Type: "spin", Default: "1", Min: 0, Max: 1024},
		{Name: "qplies", Type: "spin", Default: "7", Min: 0, Max: 1024},
		{Name: "matetest", Type: "check", Default: "true"},
		{Name: "pawnrule", Type: "check", Default: "false"},
		chess960Option,
	}
}

func (s *Shannon) SetOption(name, value string) error {
	switch name {
	case "maxplies":
		n, err := spinValue(value)
		if err != nil {
			return err
		}
		s.maxPlies = n
	case "qplies":
		n, err := spinValue(value)
		if err != nil {
			return err
		}
		s.qPlies = n
	case "matetest":
		s.mateTest = checkValue(value)
	case "pawnrule":
		s.pawnRule = checkValue(value)
	case "UCI_Chess960":
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOption, name)
	}
	return nil
}

func (s *Shannon) SetMaxDepth(depth int) {
	s.maxPlies = depth
}

func (s *Shannon) evaluate(pos *chess.Position) float64 {
	score := materialBalance(pos, classicalValues)
	if s.pawnRule {
		score += pawnStructure(pos)
	}
	score *= sideSign(pos)
	// Shannon's 0.1(M - M') mobility term, approximated with the side
	// to move's own mobility; the opponent's is not cheaply available.
	score += 0.1 * float64(len(pos.ValidMoves()))
	return score
}

func (s *Shannon) ComputeMove(g *chess.Game) (Telemetry, []string, error) {
	st := &searchState{}
	score, scored := searchRoot(g, s.maxPlies, s.qPlies, s.evaluate, st)
	if len(scored) == 0 {
		return Telemetry{}, nil, nil
	}
	if s.mateTest {
		scored = preferImmediateMate(g.Position(), scored)
		score = scored[0].score
	}
	t := Telemetry{Score: score, Depth: s.maxPlies, Nodes: st.nodes}
	return t, moveStrings(scored), nil
}

// preferImmediateMate promotes a move that mates on the spot to the
// front of the list, regardless of search score.
func preferImmediateMate(pos *chess.Position, scored []rootMove) []rootMove {
	for i, rm := range scored {
		child := pos.Update(&rm.move)
		if child != nil && child.Status() == chess.Checkmate {
			out := make([]rootMove, 0, len(scored))
			out = append(out, scored[i])
			out = append(out, scored[:i]...)
			out = append(out, scored[i+1:]...)
			return out
		}
	}
	return scored
}
