package engine

import (
	"github.com/corentings/chess/v2"
)

// Piece values in pawn units. Turing's set keeps the bishop slightly
// ahead of the knight and the queen at ten; Shannon's is the classical
// one.
var (
	turingValues = map[chess.PieceType]float64{
		chess.Pawn:   1,
		chess.Knight: 3,
		chess.Bishop: 3.5,
		chess.Rook:   5,
		chess.Queen:  10,
	}
	classicalValues = map[chess.PieceType]float64{
		chess.Pawn:   1,
		chess.Knight: 3,
		chess.Bishop: 3,
		chess.Rook:   5,
		chess.Queen:  9,
	}
)

// mateScore is the pawn-unit magnitude for a forced mate.
const mateScore = 1000

// Piece-square tables in centipawns from White's point of view, index 0
// being a8 (the conventional visual layout).
var pawnTable = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightTable = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopTable = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookTable = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var queenTable [64]int

var kingTable = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

func init() {
	for i := range queenTable {
		queenTable[i] = rookTable[i] + bishopTable[i]
	}
}

func pstFor(pt chess.PieceType) *[64]int {
	switch pt {
	case chess.Pawn:
		return &pawnTable
	case chess.Knight:
		return &knightTable
	case chess.Bishop:
		return &bishopTable
	case chess.Rook:
		return &rookTable
	case chess.Queen:
		return &queenTable
	case chess.King:
		return &kingTable
	}
	return nil
}

// pstIndex maps a square to the visual table index for the given color.
func pstIndex(sq chess.Square, c chess.Color) int {
	file := int(sq.File())
	rank := int(sq.Rank())
	if c == chess.White {
		return file + 8*(7-rank)
	}
	return file + 8*rank
}

// materialBalance sums piece values from White's point of view.
func materialBalance(pos *chess.Position, values map[chess.PieceType]float64) float64 {
	var score float64
	b := pos.Board()
	for i := 0; i < 64; i++ {
		p := b.Piece(chess.Square(i))
		if p == chess.NoPiece || p.Type() == chess.King {
			continue
		}
		v := values[p.Type()]
		if p.Color() == chess.White {
			score += v
		} else {
			score -= v
		}
	}
	return score
}

// pstBalance sums piece-square bonuses in pawn units from White's point
// of view, scaled by weight.
func pstBalance(pos *chess.Position, weight float64) float64 {
	if weight == 0 {
		return 0
	}
	var score float64
	b := pos.Board()
	for i := 0; i < 64; i++ {
		sq := chess.Square(i)
		p := b.Piece(sq)
		if p == chess.NoPiece {
			continue
		}
		bonus := float64(pstFor(p.Type())[pstIndex(sq, p.Color())]) / 100
		if p.Color() == chess.White {
			score += bonus
		} else {
			score -= bonus
		}
	}
	return score * weight
}

// pawnStructure applies Shannon's doubled/isolated pawn penalties from
// White's point of view (0.5 per defect).
func pawnStructure(pos *chess.Position) float64 {
	var whiteFiles, blackFiles [8]int
	b := pos.Board()
	for i := 0; i < 64; i++ {
		p := b.Piece(chess.Square(i))
		if p == chess.NoPiece || p.Type() != chess.Pawn {
			continue
		}
		file := int(chess.Square(i).File())
		if p.Color() == chess.White {
			whiteFiles[file]++
		} else {
			blackFiles[file]++
		}
	}
	penalty := func(files [8]int) float64 {
		var pen float64
		for f, n := range files {
			if n > 1 {
				pen += 0.5 * float64(n-1) // doubled
			}
			if n > 0 {
				left := f == 0 || files[f-1] == 0
				right := f == 7 || files[f+1] == 0
				if left && right {
					pen += 0.5 * float64(n) // isolated
				}
			}
		}
		return pen
	}
	return penalty(blackFiles) - penalty(whiteFiles)
}

// sideSign converts a White-POV score to the side to move's view.
func sideSign(pos *chess.Position) float64 {
	if pos.Turn() == chess.White {
		return 1
	}
	return -1
}
