package engine

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/corentings/chess/v2"
)

// TuroChamp is the default backend, modeled on Turing and Champernowne's
// 1948 paper machine: material with Turing's piece values plus a
// per-piece square-root mobility term, searched shallowly with a capture
// quiescence. The error and learning options deliberately weaken or
// bias move selection for play against humans.
type TuroChamp struct {
	maxPlies int
	qPlies   int
	pstab    int
	mateTest bool

	moveError      int // centipawns of random noise on every score
	blunderError   int // centipawns subtracted from the top move
	blunderPercent int // chance of applying blunderError

	easyLearn       int     // pick among the top N moves
	easyLambda      float64 // exponential weighting for the pick
	playerAdvantage int     // centipawn target advantage for the opponent
}

// NewTuroChamp returns the TuroChamp backend with paper defaults.
func NewTuroChamp() *TuroChamp {
	return &TuroChamp{maxPlies: 1, qPlies: 7, mateTest: true, easyLambda: 2}
}

func (t *TuroChamp) Name() string { return "TuroChamp" }

func (t *TuroChamp) Options() []Option {
	return []Option{
		{Name: "maxplies", Type: "spin", Default: "1", Min: 0, Max: 1024},
		{Name: "qplies", Type: "spin", Default: "7", Min: 0, Max: 1024},
		{Name: "pstab", Type: "spin", Default: "0", Min: 0, Max: 1024},
		{Name: "matetest", Type: "check", Default: "true"},
		{Name: "MoveError", Type: "spin", Default: "0", Min: 0, Max: 1024},
		{Name: "BlunderError", Type: "spin", Default: "0", Min: 0, Max: 1024},
		{Name: "BlunderPercent", Type: "spin", Default: "0", Min: 0, Max: 1024},
		{Name: "EasyLearn", Type: "spin", Default: "0", Min: 0, Max: 1024},
		{Name: "EasyLambda", Type: "spin", Default: "20", Min: 1, Max: 1024},
		{Name: "PlayerAdvantage", Type: "spin", Default: "0", Min: -1024, Max: 1024},
		chess960Option,
	}
}

func (t *TuroChamp) SetOption(name, value string) error {
	n, numErr := spinValue(value)
	switch name {
	case "maxplies":
		if numErr != nil {
			return numErr
		}
		t.maxPlies = n
	case "qplies":
		if numErr != nil {
			return numErr
		}
		t.qPlies = n
	case "pstab":
		if numErr != nil {
			return numErr
		}
		t.pstab = n
	case "matetest":
		t.mateTest = checkValue(value)
	case "MoveError":
		if numErr != nil {
			return numErr
		}
		t.moveError = n
	case "BlunderError":
		if numErr != nil {
			return numErr
		}
		t.blunderError = n
	case "BlunderPercent":
		if numErr != nil {
			return numErr
		}
		t.blunderPercent = n
	case "EasyLearn":
		if numErr != nil {
			return numErr
		}
		t.easyLearn = n
	case "EasyLambda":
		if numErr != nil {
			return numErr
		}
		t.easyLambda = float64(n) / 10 // spin in tenths
	case "PlayerAdvantage":
		if numErr != nil {
			return numErr
		}
		t.playerAdvantage = n
	case "UCI_Chess960":
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOption, name)
	}
	return nil
}

func (t *TuroChamp) SetMaxDepth(depth int) {
	t.maxPlies = depth
}

// evaluate is Turing's value function: material ratio terms reduced to a
// balance, plus the square root of each piece's mobility.
func (t *TuroChamp) evaluate(pos *chess.Position) float64 {
	score := materialBalance(pos, turingValues)
	score += pstBalance(pos, float64(t.pstab)/10)
	score *= sideSign(pos)

	perPiece := make(map[chess.Square]int)
	for _, m := range pos.ValidMoves() {
		perPiece[m.S1()]++
	}
	var mobility float64
	for _, n := range perPiece {
		mobility += math.Sqrt(float64(n))
	}
	return score + 0.1*mobility
}

func (t *TuroChamp) ComputeMove(g *chess.Game) (Telemetry, []string, error) {
	st := &searchState{}
	_, scored := searchRoot(g, t.maxPlies, t.qPlies, t.evaluate, st)
	if len(scored) == 0 {
		return Telemetry{}, nil, nil
	}
	if t.mateTest {
		scored = preferImmediateMate(g.Position(), scored)
	}
	scored = t.applyErrors(scored)
	scored = t.applyEasyPick(scored)
	tele := Telemetry{Score: scored[0].score, Depth: t.maxPlies, Nodes: st.nodes}
	return tele, moveStrings(scored), nil
}

// applyErrors perturbs root scores per the MoveError and Blunder
// options, then restores best-first order.
func (t *TuroChamp) applyErrors(scored []rootMove) []rootMove {
	if t.moveError > 0 {
		amp := float64(t.moveError) / 100
		for i := range scored {
			scored[i].score += amp * (rand.Float64() - 0.5)
		}
	}
	if t.blunderError > 0 && t.blunderPercent > 0 && rand.Intn(100) < t.blunderPercent {
		scored[0].score -= float64(t.blunderError) / 100
	}
	if t.moveError > 0 || t.blunderError > 0 {
		resortRootMoves(scored)
	}
	return scored
}

// applyEasyPick selects among the top EasyLearn candidates, either
// aiming at the configured opponent advantage or by exponentially
// weighted random choice.
func (t *TuroChamp) applyEasyPick(scored []rootMove) []rootMove {
	if t.easyLearn <= 0 || len(scored) < 2 {
		return scored
	}
	n := t.easyLearn
	if n > len(scored) {
		n = len(scored)
	}
	pick := 0
	if t.playerAdvantage != 0 {
		target := -float64(t.playerAdvantage) / 100
		best := math.Inf(1)
		for i := 0; i < n; i++ {
			if d := math.Abs(scored[i].score - target); d < best {
				best = d
				pick = i
			}
		}
	} else {
		lambda := t.easyLambda
		if lambda <= 0 {
			lambda = 1
		}
		var total float64
		weights := make([]float64, n)
		for i := 0; i < n; i++ {
			weights[i] = math.Exp(-float64(i) / lambda)
			total += weights[i]
		}
		r := rand.Float64() * total
		for i := 0; i < n; i++ {
			r -= weights[i]
			if r <= 0 {
				pick = i
				break
			}
		}
	}
	if pick != 0 {
		chosen := scored[pick]
		rest := append([]rootMove{}, scored[:pick]...)
		rest = append(rest, scored[pick+1:]...)
		scored = append([]rootMove{chosen}, rest...)
	}
	return scored
}

func resortRootMoves(scored []rootMove) {
	for i := 1; i < len(scored); i++ {
		for j := i; j > 0 && scored[j].score > scored[j-1].score; j-- {
			scored[j], scored[j-1] = scored[j-1], scored[j]
		}
	}
}
