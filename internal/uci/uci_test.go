package uci

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/corentings/chess/v2"
	"github.com/rs/zerolog"

	"github.com/matrogers/turochamp/internal/engine"
	"github.com/matrogers/turochamp/internal/game"
	"github.com/matrogers/turochamp/internal/record"
)

// scriptedEngine replies with a fixed move list, after an optional
// per-call delay so background-search timing can be exercised.
type scriptedEngine struct {
	moves []string
	delay time.Duration
	depth int
}

func (s *scriptedEngine) Name() string { return "Scripted" }

func (s *scriptedEngine) Options() []engine.Option { return nil }

func (s *scriptedEngine) SetOption(name, value string) error { return engine.ErrUnknownOption }

func (s *scriptedEngine) SetMaxDepth(depth int) { s.depth = depth }
func (s *scriptedEngine) ComputeMove(g *chess.Game) (engine.Telemetry, []string, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return engine.Telemetry{Depth: s.depth}, s.moves, nil
}

// runScript feeds input lines through a dispatcher and returns the
// emitted output lines.
func runScript(t *testing.T, eng engine.Engine, sess *game.Session, input string) []string {
	t.Helper()
	var out bytes.Buffer
	pgn := record.NewPGNWriter(false, "", eng.Name())
	d := New(eng, sess, nil, pgn, zerolog.Nop(), strings.NewReader(input), &out)
	if err := d.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var lines []string
	for _, l := range strings.Split(out.String(), "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func TestEndToEndUCIHandshakeAndSearch(t *testing.T) {
	eng, err := engine.New("turochamp", nil)
	if err != nil {
		t.Fatal(err)
	}
	lines := runScript(t, eng, game.NewSession(),
		"uci\nisready\nposition startpos moves e2e4\ngo depth 1\nquit\n")

	var idIdx, uciokIdx, readyIdx, bestIdx = -1, -1, -1, -1
	var best string
	for i, l := range lines {
		switch {
		case strings.HasPrefix(l, "id name ") && idIdx < 0:
			idIdx = i
		case l == "uciok":
			uciokIdx = i
		case l == "readyok":
			readyIdx = i
		case strings.HasPrefix(l, "bestmove "):
			if bestIdx >= 0 {
				t.Fatalf("second bestmove line: %q", l)
			}
			bestIdx = i
			best = strings.TrimPrefix(l, "bestmove ")
		}
	}
	if idIdx < 0 || uciokIdx < 0 || readyIdx < 0 || bestIdx < 0 {
		t.Fatalf("missing protocol lines in %v", lines)
	}
	if !(idIdx < uciokIdx && uciokIdx < readyIdx && readyIdx < bestIdx) {
		t.Fatalf("protocol lines out of order in %v", lines)
	}

	// The reply must be legal for Black after 1.e4.
	g := chess.NewGame()
	if err := g.PushNotationMove("e2e4", chess.UCINotation{}, nil); err != nil {
		t.Fatal(err)
	}
	if err := g.PushNotationMove(best, chess.UCINotation{}, nil); err != nil {
		t.Errorf("bestmove %q is not a legal reply to 1.e4: %v", best, err)
	}
}

func TestMalformedPromotionBecomesQueen(t *testing.T) {
	sess := game.NewSession()
	eng := &scriptedEngine{} // replies with nothing
	// White pawn one step from promotion; the incoming token has six
	// characters but no promotion letter.
	runScript(t, eng, sess, "setboard 4k3/P7/8/8/8/8/8/4K3 w - - 0 1\na7a8nn\nquit\n")

	p := sess.Position().Board().Piece(chess.A8)
	if p.Type() != chess.Queen || p.Color() != chess.White {
		t.Errorf("piece on a8 = %v, want a white queen", p)
	}
}

func TestStopWithoutSearchEmitsNullMove(t *testing.T) {
	lines := runScript(t, &scriptedEngine{}, game.NewSession(), "uci\nstop\nstop\nquit\n")
	var sentinels int
	for _, l := range lines {
		if l == "bestmove 0000" {
			sentinels++
		}
	}
	if sentinels != 2 {
		t.Errorf("got %d null-move replies, want one per stop", sentinels)
	}
}

func TestTimedSearchStopYieldsExactlyOneBestmove(t *testing.T) {
	eng := &scriptedEngine{moves: []string{"e2e4"}, delay: 10 * time.Millisecond}
	lines := runScript(t, eng, game.NewSession(), "uci\ngo wtime 60000 btime 60000\nstop\nquit\n")

	var bestmoves int
	for _, l := range lines {
		if strings.HasPrefix(l, "bestmove ") {
			bestmoves++
		}
	}
	if bestmoves != 1 {
		t.Errorf("got %d bestmove lines, want exactly 1 in %v", bestmoves, lines)
	}
}

func TestXBoardUserMoveGetsReply(t *testing.T) {
	eng := &scriptedEngine{moves: []string{"e7e5"}}
	sess := game.NewSession()
	lines := runScript(t, eng, sess, "xboard\ne2e4\nquit\n")

	if len(lines) == 0 || !strings.HasPrefix(lines[0], "feature myname=") {
		t.Fatalf("missing feature line in %v", lines)
	}
	var reply string
	for _, l := range lines {
		if strings.HasPrefix(l, "move ") {
			reply = strings.TrimPrefix(l, "move ")
		}
	}
	if reply != "e7e5" {
		t.Errorf("engine reply = %q, want e7e5", reply)
	}
	if got := len(sess.Game().Moves()); got != 2 {
		t.Errorf("board has %d moves, want both sides applied", got)
	}
}

func TestSetOptionAcknowledged(t *testing.T) {
	eng, err := engine.New("shannon", nil)
	if err != nil {
		t.Fatal(err)
	}
	lines := runScript(t, eng, game.NewSession(),
		"uci\nsetoption name maxplies value 2\nsetoption name nosuch value 1\nquit\n")

	var acked bool
	for _, l := range lines {
		if l == "# maxplies: 2" {
			acked = true
		}
		if strings.Contains(l, "nosuch") {
			t.Errorf("unknown option was not ignored silently: %q", l)
		}
	}
	if !acked {
		t.Error("applied option was not acknowledged")
	}
}

func TestShredderFENPositionAccepted(t *testing.T) {
	sess := game.NewSession()
	// Four-field FEN straight into a moves list, as Shredder sends it.
	runScript(t, &scriptedEngine{}, sess,
		"position fen rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - moves e2e4 e7e5\nquit\n")

	if got := len(sess.Game().Moves()); got != 2 {
		t.Errorf("board has %d moves, want 2", got)
	}
}
