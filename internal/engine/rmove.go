package engine

import (
	"math/rand"

	"github.com/corentings/chess/v2"
)

// RMove plays a uniformly random legal move. It exists as a baseline
// opponent and as the cheapest possible backend for protocol testing.
type RMove struct{}

// NewRMove returns the random mover.
func NewRMove() *RMove {
	return &RMove{}
}

func (r *RMove) Name() string { return "Random Mover" }

func (r *RMove) Options() []Option {
	return []Option{chess960Option}
}

func (r *RMove) SetOption(name, value string) error {
	if name == "UCI_Chess960" {
		return nil
	}
	return ErrUnknownOption
}

// SetMaxDepth is a no-op; there is no search.
func (r *RMove) SetMaxDepth(depth int) {}

func (r *RMove) ComputeMove(g *chess.Game) (Telemetry, []string, error) {
	moves := g.ValidMoves()
	if len(moves) == 0 {
		return Telemetry{}, nil, nil
	}
	pick := moves[rand.Intn(len(moves))]
	return Telemetry{Nodes: 1}, []string{MoveString(pick)}, nil
}
