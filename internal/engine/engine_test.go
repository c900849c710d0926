package engine

import (
	"errors"
	"testing"

	"github.com/corentings/chess/v2"
)

func TestRegistrySelectsBackends(t *testing.T) {
	cases := []struct {
		token string
		name  string
	}{
		{"", "TuroChamp"},
		{"ptc", "TuroChamp"},
		{"turochamp", "TuroChamp"},
		{"shannon", "Shannon"},
		{"bare", "Bare"},
		{"newt", "Newt"},
		{"rmove", "Random Mover"},
	}
	for _, c := range cases {
		eng, err := New(c.token, nil)
		if err != nil {
			t.Fatalf("New(%q): %v", c.token, err)
		}
		if eng.Name() != c.name {
			t.Errorf("New(%q).Name() = %q, want %q", c.token, eng.Name(), c.name)
		}
	}

	if _, err := New("deepblue", nil); err == nil {
		t.Error("expected an error for an unknown backend token")
	}
}

func TestSetOptionUnknownName(t *testing.T) {
	eng := NewShannon()
	err := eng.SetOption("hashsize", "64")
	if !errors.Is(err, ErrUnknownOption) {
		t.Errorf("got %v, want ErrUnknownOption", err)
	}
}

func TestSetOptionCoercions(t *testing.T) {
	tc := NewTuroChamp()

	// EasyLambda arrives in tenths.
	if err := tc.SetOption("EasyLambda", "25"); err != nil {
		t.Fatal(err)
	}
	if tc.easyLambda != 2.5 {
		t.Errorf("easyLambda = %v, want 2.5", tc.easyLambda)
	}

	if err := tc.SetOption("maxplies", "not-a-number"); err == nil {
		t.Error("expected an error for a non-numeric spin value")
	}

	a := NewAdapt(nil)
	// ev and alim arrive in hundredths, lambda in tenths.
	for opt, val := range map[string]string{"ev": "150", "alim": "300", "lambda": "20"} {
		if err := a.SetOption(opt, val); err != nil {
			t.Fatalf("SetOption(%s): %v", opt, err)
		}
	}
	if a.ev != 1.5 || a.aLim != 3 || a.lambda != 2 {
		t.Errorf("coerced values = %v %v %v, want 1.5 3 2", a.ev, a.aLim, a.lambda)
	}
}

func TestMoveString(t *testing.T) {
	g := chess.NewGame()
	for _, m := range g.ValidMoves() {
		s := MoveString(m)
		if len(s) != 4 {
			t.Errorf("MoveString(%v) = %q, want a 4-char token from the start position", m, s)
		}
	}
}

func TestOptionStringFormats(t *testing.T) {
	spin := Option{Name: "maxplies", Type: "spin", Default: "1", Min: 0, Max: 1024}
	if got := spin.String(); got != "option name maxplies type spin default 1 min 0 max 1024" {
		t.Errorf("spin format: %q", got)
	}
	check := Option{Name: "matetest", Type: "check", Default: "true"}
	if got := check.String(); got != "option name matetest type check default true" {
		t.Errorf("check format: %q", got)
	}
}

func TestRMoveOnlyPlaysLegalMoves(t *testing.T) {
	eng := NewRMove()
	g := chess.NewGame()
	legal := make(map[string]bool)
	for _, m := range g.ValidMoves() {
		legal[MoveString(m)] = true
	}
	for i := 0; i < 20; i++ {
		_, moves, err := eng.ComputeMove(g)
		if err != nil {
			t.Fatal(err)
		}
		if len(moves) == 0 {
			t.Fatal("no move from the start position")
		}
		if !legal[moves[0]] {
			t.Fatalf("illegal move %q", moves[0])
		}
	}
}

func TestRMoveTerminalPosition(t *testing.T) {
	eng := NewRMove()
	// Fool's mate: White is checkmated, no moves exist.
	g := gameFromFEN(t, "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	_, moves, err := eng.ComputeMove(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(moves) != 0 {
		t.Errorf("expected no moves in a mated position, got %v", moves)
	}
}

func TestShannonTakesHangingQueen(t *testing.T) {
	eng := NewShannon()
	// Black queen hangs on d4; any one-ply material count must grab it.
	g := gameFromFEN(t, "rnb1kbnr/pppppppp/8/8/3q4/4P3/PPPP1PPP/RNBQKBNR w KQkq - 0 1")
	_, moves, err := eng.ComputeMove(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(moves) == 0 {
		t.Fatal("no move computed")
	}
	if moves[0] != "e3d4" {
		t.Errorf("best move = %q, want e3d4", moves[0])
	}
}

func TestBareFindsMateInOne(t *testing.T) {
	eng := NewBare()
	// Back-rank mate: Ra1-a8 mates immediately.
	g := gameFromFEN(t, "6k1/5ppp/8/8/8/8/8/R3K3 w Q - 0 1")
	_, moves, err := eng.ComputeMove(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(moves) == 0 {
		t.Fatal("no move computed")
	}
	if moves[0] != "a1a8" {
		t.Errorf("best move = %q, want a1a8", moves[0])
	}
}

func TestStartPositionEvaluatesLevel(t *testing.T) {
	g := chess.NewGame()
	pos := g.Position()
	if v := materialBalance(pos, classicalValues); v != 0 {
		t.Errorf("material balance of start position = %v, want 0", v)
	}
	if v := pstBalance(pos, 1); v != 0 {
		t.Errorf("piece-square balance of start position = %v, want 0", v)
	}
	if v := pawnStructure(pos); v != 0 {
		t.Errorf("pawn structure of start position = %v, want 0", v)
	}
}

func TestSearchRespectsNodeBudget(t *testing.T) {
	eng := NewNewt()
	eng.useBook = false
	if err := eng.SetOption("maxnodes", "500"); err != nil {
		t.Fatal(err)
	}
	if err := eng.SetOption("depth", "12"); err != nil {
		t.Fatal(err)
	}
	g := chess.NewGame()
	tel, moves, err := eng.ComputeMove(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(moves) == 0 {
		t.Fatal("budgeted search produced no move")
	}
	// The budget check runs once per node, so the overshoot is at most
	// the work of the node in flight.
	if tel.Nodes > 2000 {
		t.Errorf("node count %d blew the 500-node budget", tel.Nodes)
	}
}

func TestParseInfoLine(t *testing.T) {
	line := "info depth 12 seldepth 18 multipv 2 score cp -35 nodes 123456 nps 1000000 pv e7e5 g1f3"
	c, pv, ok := parseInfoLine(line)
	if !ok {
		t.Fatal("line not recognized")
	}
	if pv != 2 {
		t.Errorf("multipv = %d, want 2", pv)
	}
	if c.move != "e7e5" {
		t.Errorf("move = %q, want e7e5", c.move)
	}
	if c.score != -0.35 {
		t.Errorf("score = %v, want -0.35", c.score)
	}
	if c.depth != 12 || c.nodes != 123456 {
		t.Errorf("depth/nodes = %d/%d", c.depth, c.nodes)
	}

	if _, _, ok := parseInfoLine("info string using book"); ok {
		t.Error("info line without a pv should be ignored")
	}
	if _, _, ok := parseInfoLine("bestmove e2e4"); ok {
		t.Error("non-info line should be ignored")
	}
}

func TestAdaptChoosesNearestToTarget(t *testing.T) {
	a := NewAdapt(nil)
	a.ev = 1
	a.aLim = 2
	a.trueVal = true
	cands := []candidate{
		{move: "a2a3", score: 3.0},
		{move: "e2e4", score: 1.2},
		{move: "h2h4", score: -0.5},
	}
	if got := a.choose(cands); got.move != "e2e4" {
		t.Errorf("chose %q, want e2e4 (closest to +1.00)", got.move)
	}

	// The clamp pulls an extreme target back into range.
	a.ev = 10
	if got := a.choose(cands); got.move != "e2e4" {
		t.Errorf("chose %q, want e2e4 (target clamped to +2.00)", got.move)
	}
}

func gameFromFEN(t *testing.T, fen string) *chess.Game {
	t.Helper()
	opt, err := chess.FEN(fen)
	if err != nil {
		t.Fatalf("FEN %q: %v", fen, err)
	}
	return chess.NewGame(opt)
}
