package engine

import (
	"fmt"

	"github.com/corentings/chess/v2"
)

// Bare is the minimal backend: classical material plus piece-square
// tables, nothing else. The pstab option scales the table term in
// tenths of a pawn.
type Bare struct {
	maxPlies int
	pstab    int
	mateTest bool
}

// NewBare returns the bare backend.
func NewBare() *Bare {
	return &Bare{maxPlies: 3, pstab: 5, mateTest: true}
}

func (b *Bare) Name() string { return "Bare" }

func (b *Bare) Options() []Option {
	return []Option{
		{Name: "maxplies", Type: "spin", Default: "3", Min: 0, Max: 1024},
		{Name: "pstab", Type: "spin", Default: "5", Min: 0, Max: 1024},
		{Name: "matetest", Type: "check", Default: "true"},
		chess960Option,
	}
}

func (b *Bare) SetOption(name, value string) error {
	switch name {
	case "maxplies":
		n, err := spinValue(value)
		if err != nil {
			return err
		}
		b.maxPlies = n
	case "pstab":
		n, err := spinValue(value)
		if err != nil {
			return err
		}
		b.pstab = n
	case "matetest":
		b.mateTest = checkValue(value)
	case "UCI_Chess960":
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOption, name)
	}
	return nil
}

func (b *Bare) SetMaxDepth(depth int) {
	b.maxPlies = depth
}

func (b *Bare) evaluate(pos *chess.Position) float64 {
	score := materialBalance(pos, classicalValues)
	score += pstBalance(pos, float64(b.pstab)/10)
	return score * sideSign(pos)
}

func (b *Bare) ComputeMove(g *chess.Game) (Telemetry, []string, error) {
	st := &searchState{}
	score, scored := searchRoot(g, b.maxPlies, 0, b.evaluate, st)
	if len(scored) == 0 {
		return Telemetry{}, nil, nil
	}
	if b.mateTest {
		scored = preferImmediateMate(g.Position(), scored)
		score = scored[0].score
	}
	t := Telemetry{Score: score, Depth: b.maxPlies, Nodes: st.nodes}
	return t, moveStrings(scored), nil
}
