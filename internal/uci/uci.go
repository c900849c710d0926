package uci

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/corentings/chess/v2"
	"github.com/rs/zerolog"

	"github.com/matrogers/turochamp/internal/engine"
	"github.com/matrogers/turochamp/internal/game"
	"github.com/matrogers/turochamp/internal/record"
	"github.com/matrogers/turochamp/internal/search"
	"github.com/matrogers/turochamp/internal/storage"
)

const authorName = "M. Rogers"

// nullMove is emitted when no move could be computed.
const nullMove = "0000"

// Dispatcher owns the read-dispatch loop. It speaks both UCI and
// XBoard; the GUI's mode-switch command decides which reply vocabulary
// is used. All board mutations happen on the loop goroutine; the
// background search only ever sees clones.
type Dispatcher struct {
	in  io.Reader
	out io.Writer
	mu  sync.Mutex // guards out; the search task emits on completion

	log   zerolog.Logger
	eng   engine.Engine
	ctrl  *search.Controller
	sess  *game.Session
	pgn   *record.PGNWriter
	store *storage.Store

	isUCI       bool
	engineWhite bool // which side the engine plays, valid once engineMoved
	engineMoved bool
	recorded    bool
	applied     map[string]string
}

// New wires a dispatcher over the given streams. Pass os.Stdin and
// os.Stdout in production; tests substitute buffers.
func New(eng engine.Engine, sess *game.Session, store *storage.Store, pgn *record.PGNWriter, log zerolog.Logger, in io.Reader, out io.Writer) *Dispatcher {
	return &Dispatcher{
		in:      in,
		out:     out,
		log:     log,
		eng:     eng,
		ctrl:    search.NewController(eng),
		sess:    sess,
		pgn:     pgn,
		store:   store,
		applied: make(map[string]string),
	}
}

// Controller exposes the search controller for instrumentation.
func (d *Dispatcher) Controller() *search.Controller {
	return d.ctrl
}

// Run processes commands until quit or end of input.
func (d *Dispatcher) Run() error {
	scanner := bufio.NewScanner(d.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		d.log.Info().Str("dir", "recv").Msg(line)
		if !d.dispatch(line) {
			return nil
		}
	}
	return scanner.Err()
}

// dispatch handles one command line. It returns false on quit.
// Classification is by first token, most specific form first, so
// commands sharing a prefix cannot shadow each other.
func (d *Dispatcher) dispatch(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "quit":
		d.cancelSilently()
		return false
	case "xboard":
		d.isUCI = false
		d.send(fmt.Sprintf("feature myname=%q setboard=1 done=1", d.eng.Name()))
	case "uci":
		d.isUCI = true
		d.send("id name " + d.eng.Name())
		d.send("id author " + authorName)
		for _, opt := range d.eng.Options() {
			d.send(opt.String())
		}
		d.send("uciok")
	case "new", "ucinewgame":
		d.resetGame()
	case "isready":
		d.send("readyok")
	case "position":
		d.handlePosition(fields)
	case "setboard":
		if len(fields) > 1 {
			if err := d.sess.LoadFEN(strings.Join(fields[1:], " ")); err != nil {
				d.send("# Bad FEN")
			}
		}
	case "setoption":
		d.handleSetOption(fields)
	case "go":
		d.handleGo(fields)
	case "stop", "force", "?":
		d.cancelAndEmit()
	default:
		d.handleMoveToken(fields[0])
	}
	return true
}

// handlePosition applies "position startpos [moves ...]" and
// "position fen <fields> [moves ...]".
func (d *Dispatcher) handlePosition(fields []string) {
	if len(fields) < 2 {
		return
	}
	switch fields[1] {
	case "startpos":
		if err := d.sess.SetPosition("", movesAfter(fields, 2)); err != nil {
			d.send("# " + err.Error())
		}
	case "fen":
		// Shredder FENs drop the move counters; splice defaults in so
		// the six-field slice below always lines up.
		if len(fields) > 6 && fields[6] == "moves" {
			patched := append([]string{}, fields[:6]...)
			patched = append(patched, "0", "1")
			fields = append(patched, fields[6:]...)
		}
		if len(fields) < 8 {
			d.send("# Bad FEN")
			return
		}
		fen := strings.Join(fields[2:8], " ")
		if err := d.sess.SetPosition(fen, movesAfter(fields, 8)); err != nil {
			d.send("# " + err.Error())
		}
	}
}

// movesAfter returns the tokens following a "moves" keyword expected at
// index i, or nil when absent.
func movesAfter(fields []string, i int) []string {
	if len(fields) > i && fields[i] == "moves" {
		return fields[i+1:]
	}
	return nil
}

// handleSetOption forwards "setoption name <N> value <V>" to the
// backend and acknowledges applied options with a comment line.
// Unknown names are ignored without complaint, as GUIs probe freely.
func (d *Dispatcher) handleSetOption(fields []string) {
	if len(fields) < 5 || fields[1] != "name" {
		return
	}
	name := fields[2]
	var value string
	for i := 3; i < len(fields); i++ {
		if fields[i] == "value" {
			value = strings.Join(fields[i+1:], " ")
			break
		}
	}
	if err := d.eng.SetOption(name, value); err != nil {
		if !errors.Is(err, engine.ErrUnknownOption) {
			d.send("# " + err.Error())
		}
		return
	}
	if name == "UCI_Chess960" {
		d.sess.SetChess960(value == "true")
	}
	d.send(fmt.Sprintf("# %s: %s", name, value))
	d.applied[name] = value
	if err := d.store.SaveOptions(d.eng.Name(), d.applied); err != nil {
		d.log.Error().Err(err).Msg("save options")
	}
}

// handleGo parses the search request and runs either the synchronous
// fixed-depth path or the cancellable background deepening path.
func (d *Dispatcher) handleGo(fields []string) {
	if d.ctrl.Searching() {
		// The previous search was never stopped; abandon it quietly.
		d.ctrl.CancelAndCollect()
	}

	var depth int
	var tc engine.TimeControl
	hasClock := false
	for i := 1; i < len(fields)-1; i++ {
		n, err := strconv.Atoi(fields[i+1])
		if err != nil {
			continue
		}
		switch fields[i] {
		case "depth":
			depth = n
		case "movetime":
			tc.MoveTime = time.Duration(n) * time.Millisecond
			hasClock = true
		case "wtime":
			tc.WTime = time.Duration(n) * time.Millisecond
			hasClock = true
		case "btime":
			tc.BTime = time.Duration(n) * time.Millisecond
			hasClock = true
		case "movestogo":
			tc.MovesToGo = n
			hasClock = true
		case "nodes":
			tc.Nodes = uint64(n)
			hasClock = true
		}
	}
	if ta, ok := d.eng.(engine.TimeAware); ok {
		ta.SetTimeControl(tc)
	}

	if depth > 0 && !hasClock {
		res, err := d.ctrl.SearchDepth(d.sess, depth)
		if err != nil || res.Best() == "" {
			if err != nil {
				d.log.Error().Err(err).Msg("search failed")
			}
			d.send(d.moveWord() + " " + nullMove)
			return
		}
		d.playEngineMove(res.Best())
		return
	}

	d.ctrl.Start(d.sess, depth, func(res search.Result) {
		// Natural completion: announce the move but leave the board to
		// the foreground, which will receive the next position command.
		if res.Best() == "" {
			d.send(d.moveWord() + " " + nullMove)
			return
		}
		d.send(d.moveWord() + " " + res.Best())
	})
}

// cancelAndEmit implements stop, force and "?": halt the background
// search and answer with the best completed iteration, or the null
// move when nothing finished. Safe to call with no search running.
func (d *Dispatcher) cancelAndEmit() {
	res, ok := d.ctrl.CancelAndCollect()
	if !ok || res.Best() == "" {
		d.send(d.moveWord() + " " + nullMove)
		return
	}
	d.playEngineMove(res.Best())
}

// cancelSilently abandons any running search without emitting.
func (d *Dispatcher) cancelSilently() {
	if d.ctrl.Searching() {
		d.ctrl.CancelAndCollect()
	}
}

// handleMoveToken treats a bare coordinate-move token as the opponent's
// move and replies with the engine's. Anything else is ignored.
func (d *Dispatcher) handleMoveToken(tok string) {
	if !looksLikeMove(tok) {
		return
	}
	if len(tok) == 6 {
		// Some GUIs emit six-character promotion moves with the piece
		// letter missing; a queen is the only sensible reading.
		tok = tok[:4] + "q"
	}
	if err := d.sess.PushUCI(tok); err != nil {
		d.send("# " + err.Error())
		return
	}
	d.writePGN()
	d.checkOutcome()
	if d.sess.Game().Outcome() != chess.NoOutcome {
		return
	}
	_, moves, err := d.eng.ComputeMove(d.sess.Game())
	if err != nil {
		d.log.Error().Err(err).Msg("compute move failed")
		return
	}
	if len(moves) > 0 {
		d.playEngineMove(moves[0])
	}
}

// looksLikeMove reports whether tok starts with two board squares.
func looksLikeMove(tok string) bool {
	if len(tok) < 4 || len(tok) > 6 {
		return false
	}
	file := func(c byte) bool { return c >= 'a' && c <= 'h' }
	rank := func(c byte) bool { return c >= '1' && c <= '8' }
	return file(tok[0]) && rank(tok[1]) && file(tok[2]) && rank(tok[3])
}

// playEngineMove applies the engine's move to the live board, announces
// it and persists the game record.
func (d *Dispatcher) playEngineMove(mv string) {
	if !d.engineMoved {
		d.engineWhite = d.sess.Position().Turn() == chess.White
		d.engineMoved = true
	}
	if err := d.sess.PushUCI(mv); err != nil {
		d.log.Error().Err(err).Str("move", mv).Msg("engine move rejected by board")
		d.send(d.moveWord() + " " + nullMove)
		return
	}
	d.send(d.moveWord() + " " + mv)
	d.writePGN()
	d.checkOutcome()
}

func (d *Dispatcher) moveWord() string {
	if d.isUCI {
		return "bestmove"
	}
	return "move"
}

func (d *Dispatcher) writePGN() {
	if err := d.pgn.Write(d.sess, d.eng.Name(), d.engineWhite); err != nil {
		d.send("# Could not write PGN file")
	}
}

// checkOutcome folds a finished game into the stats store, once.
func (d *Dispatcher) checkOutcome() {
	if d.recorded {
		return
	}
	outcome := d.sess.Game().Outcome()
	if outcome == chess.NoOutcome {
		return
	}
	d.recorded = true
	won := d.engineMoved && ((outcome == chess.WhiteWon) == d.engineWhite) && outcome != chess.Draw
	if err := d.store.RecordGame(storage.GameResult{
		Engine: d.eng.Name(),
		Won:    won,
		Draw:   outcome == chess.Draw,
	}); err != nil {
		d.log.Error().Err(err).Msg("record game")
	}
}

// resetGame abandons any search and starts a fresh game.
func (d *Dispatcher) resetGame() {
	d.cancelSilently()
	d.sess.Reset()
	d.engineMoved = false
	d.recorded = false
}

// send writes one protocol line, teeing it into the log.
func (d *Dispatcher) send(line string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintln(d.out, line)
	d.log.Info().Str("dir", "send").Msg(line)
}
