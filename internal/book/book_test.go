package book

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/corentings/chess/v2"
)

func TestPositionKeyIsDeterministic(t *testing.T) {
	a := chess.NewGame().Position()
	b := chess.NewGame().Position()
	if PositionKey(a) != PositionKey(b) {
		t.Error("identical positions hash differently")
	}

	g := chess.NewGame()
	if err := g.PushNotationMove("e2e4", chess.UCINotation{}, nil); err != nil {
		t.Fatal(err)
	}
	if PositionKey(a) == PositionKey(g.Position()) {
		t.Error("different positions share a key")
	}
}

func TestProbeReturnsStoredMove(t *testing.T) {
	pos := chess.NewGame().Position()
	b := New()
	b.Add(PositionKey(pos), chess.E2, chess.E4, chess.NoPieceType, 10)

	m, ok := b.Probe(pos)
	if !ok {
		t.Fatal("position not found")
	}
	if m.S1() != chess.E2 || m.S2() != chess.E4 {
		t.Errorf("probe = %v, want e2e4", m)
	}
}

func TestProbeMissReturnsFalse(t *testing.T) {
	b := New()
	if _, ok := b.Probe(chess.NewGame().Position()); ok {
		t.Error("empty book reported a hit")
	}
}

func TestProbeDecodesCastlingAsKingTakesRook(t *testing.T) {
	fen := "r3k2r/pppppppp/8/8/8/8/PPPPPPPP/R3K2R w KQkq - 0 1"
	opt, err := chess.FEN(fen)
	if err != nil {
		t.Fatal(err)
	}
	pos := chess.NewGame(opt).Position()

	b := New()
	b.Add(PositionKey(pos), chess.E1, chess.H1, chess.NoPieceType, 1)

	m, ok := b.Probe(pos)
	if !ok {
		t.Fatal("castling entry not found")
	}
	if m.S1() != chess.E1 || m.S2() != chess.G1 {
		t.Errorf("probe = %v, want the short castle e1g1", m)
	}
}

func TestProbeKeepsNonKingBackRankMovesLiteral(t *testing.T) {
	// A queen sliding e1-h1 shares the castling encoding's squares but
	// must not be rewritten to e1g1.
	fen := "7k/8/8/8/8/8/8/K3Q3 w - - 0 1"
	opt, err := chess.FEN(fen)
	if err != nil {
		t.Fatal(err)
	}
	pos := chess.NewGame(opt).Position()

	b := New()
	b.Add(PositionKey(pos), chess.E1, chess.H1, chess.NoPieceType, 1)

	m, ok := b.Probe(pos)
	if !ok {
		t.Fatal("entry not found")
	}
	if m.S1() != chess.E1 || m.S2() != chess.H1 {
		t.Errorf("probe = %v, want the literal queen move e1h1", m)
	}
}

func TestLoadReaderParsesEntries(t *testing.T) {
	pos := chess.NewGame().Position()
	key := PositionKey(pos)

	// One record: key, move (g1f3), weight, learn.
	var buf bytes.Buffer
	data := uint16(chess.F3&63) | uint16(chess.G1&63)<<6
	var rec [16]byte
	binary.BigEndian.PutUint64(rec[0:8], key)
	binary.BigEndian.PutUint16(rec[8:10], data)
	binary.BigEndian.PutUint16(rec[10:12], 100)
	buf.Write(rec[:])

	b, err := LoadReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b.Size() != 1 {
		t.Fatalf("size = %d, want 1", b.Size())
	}
	m, ok := b.Probe(pos)
	if !ok {
		t.Fatal("loaded entry not found")
	}
	if m.S1() != chess.G1 || m.S2() != chess.F3 {
		t.Errorf("probe = %v, want g1f3", m)
	}
}

func TestProbeSkipsIllegalEntries(t *testing.T) {
	pos := chess.NewGame().Position()
	b := New()
	// e2e5 is not a legal pawn move; the probe must fall through to the
	// legal entry regardless of weight order.
	b.Add(PositionKey(pos), chess.E2, chess.E5, chess.NoPieceType, 100)
	b.Add(PositionKey(pos), chess.D2, chess.D4, chess.NoPieceType, 1)

	m, ok := b.Probe(pos)
	if !ok {
		t.Fatal("no legal entry found")
	}
	if m.S1() != chess.D2 || m.S2() != chess.D4 {
		t.Errorf("probe = %v, want d2d4", m)
	}
}
