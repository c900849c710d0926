package book

import (
	"github.com/corentings/chess/v2"
)

// Zobrist keys for book position hashing, derived from a fixed-seed
// xorshift generator so every process builds the identical table.
var (
	pieceKeys      [12][64]uint64 // [piece kind][square]
	castlingKeys   [4]uint64      // KQkq
	enPassantKeys  [8]uint64      // by file
	sideToMoveKey  uint64
	polyglotPieceK = map[chess.Color]map[chess.PieceType]int{
		chess.White: {
			chess.Pawn: 6, chess.Knight: 7, chess.Bishop: 8,
			chess.Rook: 9, chess.Queen: 10, chess.King: 11,
		},
		chess.Black: {
			chess.Pawn: 0, chess.Knight: 1, chess.Bishop: 2,
			chess.Rook: 3, chess.Queen: 4, chess.King: 5,
		},
	}
)

func init() {
	var s uint64 = 0x37b4a4b3f0d1c0d0
	rng := func() uint64 {
		s ^= s >> 12
		s ^= s << 25
		s ^= s >> 27
		return s * 0x2545F4914F6CDD1D
	}
	for piece := 0; piece < 12; piece++ {
		for sq := 0; sq < 64; sq++ {
			pieceKeys[piece][sq] = rng()
		}
	}
	for i := range castlingKeys {
		castlingKeys[i] = rng()
	}
	for i := range enPassantKeys {
		enPassantKeys[i] = rng()
	}
	sideToMoveKey = rng()
}

// PositionKey computes the book hash of a position.
func PositionKey(pos *chess.Position) uint64 {
	var hash uint64

	b := pos.Board()
	for i := 0; i < 64; i++ {
		sq := chess.Square(i)
		p := b.Piece(sq)
		if p == chess.NoPiece {
			continue
		}
		hash ^= pieceKeys[polyglotPieceK[p.Color()][p.Type()]][i]
	}

	rights := pos.CastleRights()
	if rights.CanCastle(chess.White, chess.KingSide) {
		hash ^= castlingKeys[0]
	}
	if rights.CanCastle(chess.White, chess.QueenSide) {
		hash ^= castlingKeys[1]
	}
	if rights.CanCastle(chess.Black, chess.KingSide) {
		hash ^= castlingKeys[2]
	}
	if rights.CanCastle(chess.Black, chess.QueenSide) {
		hash ^= castlingKeys[3]
	}

	if ep := pos.EnPassantSquare(); ep != chess.NoSquare && epCapturable(pos, ep) {
		hash ^= enPassantKeys[int(ep.File())]
	}

	if pos.Turn() == chess.White {
		hash ^= sideToMoveKey
	}
	return hash
}

// epCapturable reports whether a pawn of the side to move actually
// stands next to the en passant square; only then does the square
// contribute to the key.
func epCapturable(pos *chess.Position, ep chess.Square) bool {
	b := pos.Board()
	file := int(ep.File())
	rank := 4 // white pawns capture from rank 5 (index 4)
	if pos.Turn() == chess.Black {
		rank = 3
	}
	want := chess.Pawn
	for _, f := range []int{file - 1, file + 1} {
		if f < 0 || f > 7 {
			continue
		}
		p := b.Piece(chess.Square(f + 8*rank))
		if p != chess.NoPiece && p.Type() == want && p.Color() == pos.Turn() {
			return true
		}
	}
	return false
}
