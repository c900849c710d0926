package book

import (
	"encoding/binary"
	"io"
	"math/rand"
	"os"
	"sort"

	"github.com/corentings/chess/v2"
)

// Entry is one stored book move for a position.
type Entry struct {
	data   uint16
	Weight uint16
}

// Book is a Polyglot-format opening book indexed by position key.
type Book struct {
	entries map[uint64][]Entry
}

// New creates an empty book.
func New() *Book {
	return &Book{entries: make(map[uint64][]Entry)}
}

// Load reads a Polyglot book file.
func Load(filename string) (*Book, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadReader(f)
}

// LoadReader reads Polyglot entries: 8-byte key, 2-byte move, 2-byte
// weight, 4 bytes of learn data (ignored), all big-endian.
func LoadReader(r io.Reader) (*Book, error) {
	b := New()
	var entry [16]byte
	for {
		if _, err := io.ReadFull(r, entry[:]); err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		key := binary.BigEndian.Uint64(entry[0:8])
		data := binary.BigEndian.Uint16(entry[8:10])
		weight := binary.BigEndian.Uint16(entry[10:12])
		b.entries[key] = append(b.entries[key], Entry{data: data, Weight: weight})
	}
	return b, nil
}

// Add inserts an entry for a position key. Used by tests and book
// conversion tooling.
func (b *Book) Add(key uint64, from, to chess.Square, promo chess.PieceType, weight uint16) {
	data := uint16(to&63) | uint16(from&63)<<6
	switch promo {
	case chess.Knight:
		data |= 1 << 12
	case chess.Bishop:
		data |= 2 << 12
	case chess.Rook:
		data |= 3 << 12
	case chess.Queen:
		data |= 4 << 12
	}
	b.entries[key] = append(b.entries[key], Entry{data: data, Weight: weight})
}

// Size returns the number of unique positions in the book.
func (b *Book) Size() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// Probe looks the position up and returns a legal move by weighted
// random selection, or false when the position is out of book.
func (b *Book) Probe(pos *chess.Position) (chess.Move, bool) {
	if b == nil {
		return chess.Move{}, false
	}
	entries, ok := b.entries[PositionKey(pos)]
	if !ok || len(entries) == 0 {
		return chess.Move{}, false
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Weight > sorted[j].Weight
	})

	var total uint32
	for _, e := range sorted {
		total += uint32(e.Weight)
	}
	pick := uint32(0)
	if total > 0 {
		pick = rand.Uint32() % total
	}
	var cumulative uint32
	for _, e := range sorted {
		cumulative += uint32(e.Weight)
		if pick < cumulative {
			if m, ok := matchLegal(pos, e.data); ok {
				return m, true
			}
		}
	}
	// Weighted pick was illegal for this position (stale book entry);
	// fall back to the first legal entry of any weight.
	for _, e := range sorted {
		if m, ok := matchLegal(pos, e.data); ok {
			return m, true
		}
	}
	return chess.Move{}, false
}

// matchLegal decodes a Polyglot move and finds the matching legal move,
// which carries the correct castling/en-passant tags.
func matchLegal(pos *chess.Position, data uint16) (chess.Move, bool) {
	from := chess.Square((data >> 6) & 63)
	to := chess.Square(data & 63)

	// Polyglot encodes castling as king-takes-rook. Only a king on the
	// from-square makes this a castle; a rook or queen sliding along the
	// back rank keeps its literal destination.
	if pos.Board().Piece(from).Type() == chess.King {
		switch {
		case from == chess.E1 && to == chess.H1:
			to = chess.G1
		case from == chess.E1 && to == chess.A1:
			to = chess.C1
		case from == chess.E8 && to == chess.H8:
			to = chess.G8
		case from == chess.E8 && to == chess.A8:
			to = chess.C8
		}
	}

	var promo chess.PieceType
	switch (data >> 12) & 7 {
	case 1:
		promo = chess.Knight
	case 2:
		promo = chess.Bishop
	case 3:
		promo = chess.Rook
	case 4:
		promo = chess.Queen
	}

	for _, m := range pos.ValidMoves() {
		if m.S1() != from || m.S2() != to {
			continue
		}
		if m.Promo() != promo {
			continue
		}
		return m, true
	}
	return chess.Move{}, false
}
