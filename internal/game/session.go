package game

import (
	"fmt"

	"github.com/corentings/chess/v2"
)

// Session owns the single live game the adapter plays on. All mutations
// happen on the dispatcher goroutine; search tasks only ever see clones.
type Session struct {
	game     *chess.Game
	chess960 bool
}

// NewSession starts a session at the standard starting position.
func NewSession() *Session {
	return &Session{game: chess.NewGame()}
}

// Game returns the live game.
func (s *Session) Game() *chess.Game {
	return s.game
}

// Position returns the current position.
func (s *Session) Position() *chess.Position {
	return s.game.Position()
}

// FEN returns the FEN of the current position.
func (s *Session) FEN() string {
	return s.game.FEN()
}

// SetChess960 records the Chess960 mode flag. Castling encoding of
// loaded FENs is handled by the rules library either way.
func (s *Session) SetChess960(enabled bool) {
	s.chess960 = enabled
}

// Chess960 reports whether Chess960 mode is on.
func (s *Session) Chess960() bool {
	return s.chess960
}

// Reset replaces the game with a fresh one from the starting position.
func (s *Session) Reset() {
	s.game = chess.NewGame()
}

// LoadFEN replaces the game with one built from the given FEN. The
// current game is left untouched when the FEN does not parse.
func (s *Session) LoadFEN(fen string) error {
	opt, err := chess.FEN(fen)
	if err != nil {
		return fmt.Errorf("bad FEN %q: %w", fen, err)
	}
	s.game = chess.NewGame(opt)
	return nil
}

// PushUCI applies one coordinate-notation move to the game.
func (s *Session) PushUCI(move string) error {
	if err := s.game.PushNotationMove(move, chess.UCINotation{}, nil); err != nil {
		return fmt.Errorf("illegal move %q: %w", move, err)
	}
	return nil
}

// SetPosition sets up a position from a FEN (empty string means the
// starting position) and a trailing move list.
//
// When the FEN matches the current position exactly, the moves are
// appended to the existing game instead of a freshly parsed one. This
// keeps game history (and any engine state keyed to it) across the
// per-move "position fen ... moves ..." updates UCI GUIs send.
func (s *Session) SetPosition(fen string, moves []string) error {
	switch {
	case fen == "":
		s.game = chess.NewGame()
	case s.game.FEN() == fen:
		// Continuation of the current game; keep it.
	default:
		if err := s.LoadFEN(fen); err != nil {
			return err
		}
	}
	for _, m := range moves {
		if err := s.PushUCI(m); err != nil {
			return err
		}
	}
	return nil
}
