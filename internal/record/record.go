package record

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/matrogers/turochamp/internal/game"
)

// NewLogger opens the protocol log. Disabled logging returns a no-op
// logger and a nil closer. The log captures every line crossing the
// pipe, tagged with its direction, which is the only way to debug a
// GUI conversation after the fact.
func NewLogger(enabled bool, path, engineName string) (zerolog.Logger, *os.File, error) {
	if !enabled {
		return zerolog.Nop(), nil, nil
	}
	if path == "" {
		path = defaultFileName(engineName, ".log")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log %s: %w", path, err)
	}
	logger := zerolog.New(f).With().Timestamp().Logger()
	return logger, f, nil
}

// PGNWriter persists the game after every move so a crash never loses
// the score sheet. A disabled writer drops every call.
type PGNWriter struct {
	enabled bool
	path    string
}

// NewPGNWriter builds a writer. An empty path derives the file name
// from the engine name.
func NewPGNWriter(enabled bool, path, engineName string) *PGNWriter {
	if path == "" {
		path = defaultFileName(engineName, ".pgn")
	}
	return &PGNWriter{enabled: enabled, path: path}
}

// Write rewrites the PGN file with the current game. The engine is
// credited on the side it plays; the opponent stays anonymous.
func (w *PGNWriter) Write(s *game.Session, engineName string, engineIsWhite bool) error {
	if w == nil || !w.enabled {
		return nil
	}
	white, black := "Opponent", engineName
	if engineIsWhite {
		white, black = engineName, "Opponent"
	}
	g := s.Game()
	g.AddTagPair("Date", time.Now().Format("2006.01.02"))
	g.AddTagPair("White", white)
	g.AddTagPair("Black", black)
	return os.WriteFile(w.path, []byte(g.String()+"\n"), 0o644)
}

// defaultFileName turns an engine display name into a file name next to
// the working directory, e.g. "Random Mover" -> "random_mover.pgn".
func defaultFileName(engineName, ext string) string {
	name := strings.ToLower(strings.ReplaceAll(engineName, " ", "_"))
	if name == "" {
		name = "turochamp"
	}
	return name + ext
}
