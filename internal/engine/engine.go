package engine

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/corentings/chess/v2"

	"github.com/matrogers/turochamp/internal/storage"
)

// ErrUnknownOption is returned by SetOption for names a backend does not
// recognize. The dispatcher ignores these silently; GUIs probe freely.
var ErrUnknownOption = errors.New("unknown option")

// Telemetry describes one completed search.
type Telemetry struct {
	Score float64 // pawns, from the engine's point of view
	Depth int
	Nodes uint64
}

// Option describes one tunable for the "uci" option block.
type Option struct {
	Name    string
	Type    string // "spin", "check" or "string"
	Default string
	Min     int
	Max     int
}

// String renders the option in UCI wire format.
func (o Option) String() string {
	if o.Type == "spin" {
		return fmt.Sprintf("option name %s type spin default %s min %d max %d",
			o.Name, o.Default, o.Min, o.Max)
	}
	return fmt.Sprintf("option name %s type %s default %s", o.Name, o.Type, o.Default)
}

// TimeControl carries the clock portion of a "go" command.
type TimeControl struct {
	WTime     time.Duration
	BTime     time.Duration
	MoveTime  time.Duration
	MovesToGo int
	Nodes     uint64
}

// Engine is the swappable move computer behind the protocol adapter.
// Implementations must treat the game as read-only; background searches
// are handed clones by the search controller.
type Engine interface {
	// Name is the display name used for id lines and file names.
	Name() string
	// Options lists the tunables the backend accepts.
	Options() []Option
	// SetOption applies one tunable by name. Unknown names return
	// ErrUnknownOption.
	SetOption(name, value string) error
	// SetMaxDepth overrides the search depth; the controller drives
	// this during iterative deepening.
	SetMaxDepth(depth int)
	// ComputeMove returns the ordered candidate moves for the side to
	// move, best first, in coordinate notation. An empty slice means
	// the engine produced nothing (terminal position or failure).
	ComputeMove(g *chess.Game) (Telemetry, []string, error)
}

// TimeAware backends receive the clock from timed "go" commands.
type TimeAware interface {
	SetTimeControl(tc TimeControl)
}

// Closer backends hold external resources (a child process, a book
// file) and are shut down on quit.
type Closer interface {
	Close() error
}

// New selects a backend by its command-line token. The store may be nil;
// only the adaptive backend uses it.
func New(name string, store *storage.Store) (Engine, error) {
	switch name {
	case "", "ptc", "turochamp":
		return NewTuroChamp(), nil
	case "shannon":
		return NewShannon(), nil
	case "bare":
		return NewBare(), nil
	case "newt":
		return NewNewt(), nil
	case "rmove":
		return NewRMove(), nil
	case "adapt":
		return NewAdapt(store), nil
	}
	return nil, fmt.Errorf("unknown engine %q", name)
}

// chess960Option is shared by every in-process backend.
var chess960Option = Option{Name: "UCI_Chess960", Type: "check", Default: "false"}

func spinValue(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("bad spin value %q: %w", v, err)
	}
	return n, nil
}

func checkValue(v string) bool {
	return v == "true"
}

// promoLetters maps promotion piece types to their coordinate-notation
// suffix.
var promoLetters = map[chess.PieceType]string{
	chess.Queen:  "q",
	chess.Rook:   "r",
	chess.Bishop: "b",
	chess.Knight: "n",
}

// MoveString encodes a move in coordinate notation (e2e4, e7e8q).
func MoveString(m chess.Move) string {
	return m.S1().String() + m.S2().String() + promoLetters[m.Promo()]
}
