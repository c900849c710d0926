package engine

import (
	"fmt"
	"time"

	"github.com/corentings/chess/v2"

	"github.com/matrogers/turochamp/internal/book"
)

// Newt is the strongest in-process backend: alpha-beta over material
// and piece-square tables with a node budget, simple clock management
// and an opening book.
type Newt struct {
	depth    int
	qPlies   int
	pstab    int // tenths of a pawn
	maxNodes uint64
	mateTest bool

	useBook  bool
	bookPath string
	book     *book.Book
	bookErr  bool

	tc TimeControl
}

// NewNewt returns the Newt backend with its defaults.
func NewNewt() *Newt {
	return &Newt{
		depth:    4,
		qPlies:   6,
		pstab:    1,
		maxNodes: 1000000,
		mateTest: true,
		useBook:  true,
		bookPath: "Elo2400.bin",
	}
}

func (n *Newt) Name() string { return "Newt" }

func (n *Newt) Options() []Option {
	return []Option{
		{Name: "depth", Type: "spin", Default: "4", Min: 0, Max: 1024},
		{Name: "qplies", Type: "spin", Default: "6", Min: 0, Max: 1024},
		{Name: "pstab", Type: "spin", Default: "1", Min: 0, Max: 1024},
		{Name: "maxnodes", Type: "spin", Default: "1000000", Min: 0, Max: 1000000000},
		{Name: "usebook", Type: "check", Default: "true"},
		{Name: "bookpath", Type: "string", Default: "Elo2400.bin"},
		{Name: "matetest", Type: "check", Default: "true"},
		chess960Option,
	}
}

func (n *Newt) SetOption(name, value string) error {
	switch name {
	case "depth":
		d, err := spinValue(value)
		if err != nil {
			return err
		}
		n.depth = d
	case "qplies":
		q, err := spinValue(value)
		if err != nil {
			return err
		}
		n.qPlies = q
	case "pstab":
		p, err := spinValue(value)
		if err != nil {
			return err
		}
		n.pstab = p
	case "maxnodes":
		m, err := spinValue(value)
		if err != nil {
			return err
		}
		n.maxNodes = uint64(m)
	case "usebook":
		n.useBook = checkValue(value)
	case "bookpath":
		n.bookPath = value
		n.book = nil
		n.bookErr = false
	case "matetest":
		n.mateTest = checkValue(value)
	case "UCI_Chess960":
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOption, name)
	}
	return nil
}

func (n *Newt) SetMaxDepth(depth int) {
	n.depth = depth
}

// SetTimeControl stores the clock from the latest timed go command.
func (n *Newt) SetTimeControl(tc TimeControl) {
	n.tc = tc
	if tc.Nodes > 0 {
		n.maxNodes = tc.Nodes
	}
}

func (n *Newt) evaluate(pos *chess.Position) float64 {
	score := materialBalance(pos, classicalValues)
	score += pstBalance(pos, float64(n.pstab)/10)
	return score * sideSign(pos)
}

// probeBook returns a book move when the book is enabled, loadable and
// has this position. Load failures disable the book until the path
// changes.
func (n *Newt) probeBook(pos *chess.Position) (string, bool) {
	if !n.useBook || n.bookErr {
		return "", false
	}
	if n.book == nil {
		b, err := book.Load(n.bookPath)
		if err != nil {
			n.bookErr = true
			return "", false
		}
		n.book = b
	}
	m, ok := n.book.Probe(pos)
	if !ok {
		return "", false
	}
	return MoveString(m), true
}

// moveDeadline allocates wall time for one move from the stored clock.
func (n *Newt) moveDeadline(pos *chess.Position) time.Time {
	if n.tc.MoveTime > 0 {
		return time.Now().Add(n.tc.MoveTime)
	}
	ourTime := n.tc.WTime
	if pos.Turn() == chess.Black {
		ourTime = n.tc.BTime
	}
	if ourTime <= 0 {
		return time.Time{}
	}
	movesToGo := n.tc.MovesToGo
	if movesToGo <= 0 {
		movesToGo = 30
	}
	alloc := ourTime / time.Duration(movesToGo)
	if max := ourTime * 9 / 10; alloc > max {
		alloc = max
	}
	if alloc < 10*time.Millisecond {
		alloc = 10 * time.Millisecond
	}
	return time.Now().Add(alloc)
}

func (n *Newt) ComputeMove(g *chess.Game) (Telemetry, []string, error) {
	pos := g.Position()
	if mv, ok := n.probeBook(pos); ok {
		return Telemetry{Depth: 0, Nodes: 0}, []string{mv}, nil
	}

	st := &searchState{maxNodes: n.maxNodes, deadline: n.moveDeadline(pos)}
	score, scored := searchRoot(g, n.depth, n.qPlies, n.evaluate, st)
	if len(scored) == 0 {
		return Telemetry{}, nil, nil
	}
	if n.mateTest {
		scored = preferImmediateMate(pos, scored)
		score = scored[0].score
	}
	t := Telemetry{Score: score, Depth: n.depth, Nodes: st.nodes}
	return t, moveStrings(scored), nil
}
