package engine

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/corentings/chess/v2"

	"github.com/matrogers/turochamp/internal/book"
	"github.com/matrogers/turochamp/internal/storage"
)

// Adapt fronts an external UCI engine and plays at the opponent's
// level: it asks the engine for its top moves (MultiPV) and picks the
// one whose evaluation lands closest to a target advantage, instead of
// the strongest. A rolling estimate of the evaluations actually played
// is persisted across sessions.
type Adapt struct {
	numMov  int     // candidate moves requested from the engine
	mTime   int     // seconds per move for the engine
	ev      float64 // target evaluation, pawns
	aLim    float64 // clamp on the target, pawns
	lambda  float64 // selection temperature
	trueVal bool    // deterministic closest-to-target pick

	useBook  bool
	waitBook bool
	bookPath string
	book     *book.Book
	bookErr  bool

	enginePath string
	proc       *uciProcess

	store    *storage.Store
	strength float64
}

// NewAdapt returns the adaptive backend. The store may be nil, in which
// case the strength estimate only lives for the process.
func NewAdapt(store *storage.Store) *Adapt {
	a := &Adapt{
		numMov:     20,
		mTime:      3,
		ev:         1,
		aLim:       2,
		lambda:     1,
		trueVal:    true,
		useBook:    true,
		waitBook:   true,
		bookPath:   "Elo2400.bin",
		enginePath: "stockfish",
		store:      store,
	}
	if v, err := store.LoadStrength(); err == nil {
		a.strength = v
	}
	return a
}

func (a *Adapt) Name() string { return "Simple Adaptive Engine" }

func (a *Adapt) Options() []Option {
	return []Option{
		{Name: "nummov", Type: "spin", Default: "20", Min: 1, Max: 1024},
		{Name: "mtime", Type: "spin", Default: "3", Min: 1, Max: 1024},
		{Name: "ev", Type: "spin", Default: "100", Min: -1024, Max: 1024},
		{Name: "alim", Type: "spin", Default: "200", Min: 0, Max: 1024},
		{Name: "lambda", Type: "spin", Default: "10", Min: 1, Max: 1024},
		{Name: "enginepath", Type: "string", Default: "stockfish"},
		{Name: "trueval", Type: "check", Default: "true"},
		{Name: "usebook", Type: "check", Default: "true"},
		{Name: "bookpath", Type: "string", Default: "Elo2400.bin"},
		{Name: "waitbook", Type: "check", Default: "true"},
	}
}

func (a *Adapt) SetOption(name, value string) error {
	switch name {
	case "nummov":
		n, err := spinValue(value)
		if err != nil {
			return err
		}
		a.numMov = n
	case "mtime":
		n, err := spinValue(value)
		if err != nil {
			return err
		}
		a.mTime = n
	case "ev":
		n, err := spinValue(value)
		if err != nil {
			return err
		}
		a.ev = float64(n) / 100 // spin in hundredths
	case "alim":
		n, err := spinValue(value)
		if err != nil {
			return err
		}
		a.aLim = float64(n) / 100
	case "lambda":
		n, err := spinValue(value)
		if err != nil {
			return err
		}
		a.lambda = float64(n) / 10 // spin in tenths
	case "enginepath":
		a.enginePath = value
		a.shutdown()
	case "trueval":
		a.trueVal = checkValue(value)
	case "usebook":
		a.useBook = checkValue(value)
	case "bookpath":
		a.bookPath = value
		a.book = nil
		a.bookErr = false
	case "waitbook":
		a.waitBook = checkValue(value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOption, name)
	}
	return nil
}

// SetMaxDepth is accepted but ignored: the external engine searches on
// its own clock, and re-searching per deepening iteration would waste
// its time budget.
func (a *Adapt) SetMaxDepth(depth int) {}

// Close shuts the external engine down and persists the strength slot.
func (a *Adapt) Close() error {
	a.shutdown()
	return a.store.SaveStrength(a.strength)
}

func (a *Adapt) shutdown() {
	if a.proc != nil {
		a.proc.close()
		a.proc = nil
	}
}

func (a *Adapt) probeBook(pos *chess.Position) (string, bool) {
	if !a.useBook || a.bookErr {
		return "", false
	}
	if a.book == nil {
		b, err := book.Load(a.bookPath)
		if err != nil {
			a.bookErr = true
			return "", false
		}
		a.book = b
	}
	m, ok := a.book.Probe(pos)
	if !ok {
		return "", false
	}
	return MoveString(m), true
}

func (a *Adapt) ComputeMove(g *chess.Game) (Telemetry, []string, error) {
	pos := g.Position()
	if mv, ok := a.probeBook(pos); ok {
		if !a.waitBook && a.proc == nil {
			// Warm the external engine up while still in book.
			if proc, err := startUCIProcess(a.enginePath, a.numMov); err == nil {
				a.proc = proc
			}
		}
		return Telemetry{}, []string{mv}, nil
	}

	if a.proc == nil {
		proc, err := startUCIProcess(a.enginePath, a.numMov)
		if err != nil {
			return Telemetry{}, nil, err
		}
		a.proc = proc
	}

	cands, err := a.proc.search(pos.String(), a.mTime, a.numMov)
	if err != nil {
		a.shutdown()
		return Telemetry{}, nil, err
	}
	if len(cands) == 0 {
		return Telemetry{}, nil, nil
	}

	pick := a.choose(cands)
	a.strength = 0.9*a.strength + 0.1*pick.score
	_ = a.store.SaveStrength(a.strength)

	moves := make([]string, 0, len(cands))
	moves = append(moves, pick.move)
	for _, c := range cands {
		if c.move != pick.move {
			moves = append(moves, c.move)
		}
	}
	t := Telemetry{Score: pick.score, Depth: pick.depth, Nodes: pick.nodes}
	return t, moves, nil
}

// choose selects the candidate whose score is nearest the clamped
// target advantage, deterministically or by temperature-weighted draw.
func (a *Adapt) choose(cands []candidate) candidate {
	target := a.ev
	if target > a.aLim {
		target = a.aLim
	}
	if target < -a.aLim {
		target = -a.aLim
	}

	if a.trueVal {
		best := cands[0]
		bestDist := math.Inf(1)
		for _, c := range cands {
			if d := math.Abs(c.score - target); d < bestDist {
				bestDist = d
				best = c
			}
		}
		return best
	}

	lambda := a.lambda
	if lambda <= 0 {
		lambda = 1
	}
	var total float64
	weights := make([]float64, len(cands))
	for i, c := range cands {
		weights[i] = math.Exp(-math.Abs(c.score-target) / lambda)
		total += weights[i]
	}
	r := rand.Float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return cands[i]
		}
	}
	return cands[len(cands)-1]
}

// candidate is one MultiPV line from the external engine.
type candidate struct {
	move  string
	score float64 // pawns, side to move's view
	depth int
	nodes uint64
}

// uciProcess drives an external UCI engine over pipes.
type uciProcess struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan string
}

// startUCIProcess launches the binary and completes the UCI handshake.
func startUCIProcess(path string, multiPV int) (*uciProcess, error) {
	cmd := exec.Command(path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", path, err)
	}

	p := &uciProcess{
		cmd:   cmd,
		stdin: stdin,
		lines: make(chan string, 1024),
	}
	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			p.lines <- scanner.Text()
		}
		close(p.lines)
	}()

	if err := p.send("uci"); err != nil {
		p.close()
		return nil, err
	}
	if err := p.waitFor("uciok", 10*time.Second); err != nil {
		p.close()
		return nil, err
	}
	if err := p.send(fmt.Sprintf("setoption name MultiPV value %d", multiPV)); err != nil {
		p.close()
		return nil, err
	}
	if err := p.send("isready"); err != nil {
		p.close()
		return nil, err
	}
	if err := p.waitFor("readyok", 10*time.Second); err != nil {
		p.close()
		return nil, err
	}
	return p, nil
}

func (p *uciProcess) send(line string) error {
	_, err := io.WriteString(p.stdin, line+"\n")
	if err != nil {
		return fmt.Errorf("write to engine: %w", err)
	}
	return nil
}

// waitFor discards lines until one equals want.
func (p *uciProcess) waitFor(want string, timeout time.Duration) error {
	deadline := time.After(timeout)
	for {
		select {
		case line, ok := <-p.lines:
			if !ok {
				return fmt.Errorf("engine exited waiting for %q", want)
			}
			if strings.TrimSpace(line) == want {
				return nil
			}
		case <-deadline:
			return fmt.Errorf("timeout waiting for %q", want)
		}
	}
}

// search runs one timed search and collects the final MultiPV lines.
func (p *uciProcess) search(fen string, seconds, multiPV int) ([]candidate, error) {
	if err := p.send("position fen " + fen); err != nil {
		return nil, err
	}
	if err := p.send(fmt.Sprintf("go movetime %d", seconds*1000)); err != nil {
		return nil, err
	}

	latest := make(map[int]candidate)
	deadline := time.After(time.Duration(seconds)*time.Second + 10*time.Second)
	for {
		select {
		case line, ok := <-p.lines:
			if !ok {
				return nil, fmt.Errorf("engine exited during search")
			}
			if strings.HasPrefix(line, "bestmove") {
				out := make([]candidate, 0, len(latest))
				for i := 1; i <= multiPV; i++ {
					if c, ok := latest[i]; ok {
						out = append(out, c)
					}
				}
				return out, nil
			}
			if c, pv, ok := parseInfoLine(line); ok {
				latest[pv] = c
			}
		case <-deadline:
			return nil, fmt.Errorf("timeout waiting for bestmove")
		}
	}
}

// parseInfoLine extracts multipv rank, score and first pv move from an
// info line. Lines without a pv are ignored.
func parseInfoLine(line string) (candidate, int, bool) {
	if !strings.HasPrefix(line, "info") {
		return candidate{}, 0, false
	}
	fields := strings.Fields(line)
	c := candidate{}
	pv := 1
	havePV := false
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "multipv":
			if i+1 < len(fields) {
				pv, _ = strconv.Atoi(fields[i+1])
			}
		case "depth":
			if i+1 < len(fields) {
				c.depth, _ = strconv.Atoi(fields[i+1])
			}
		case "nodes":
			if i+1 < len(fields) {
				c.nodes, _ = strconv.ParseUint(fields[i+1], 10, 64)
			}
		case "score":
			if i+2 < len(fields) {
				n, _ := strconv.Atoi(fields[i+2])
				if fields[i+1] == "mate" {
					if n >= 0 {
						c.score = mateScore
					} else {
						c.score = -mateScore
					}
				} else {
					c.score = float64(n) / 100
				}
			}
		case "pv":
			if i+1 < len(fields) {
				c.move = fields[i+1]
				havePV = true
			}
		}
	}
	return c, pv, havePV
}

// close asks the engine to quit and reaps the process, forcefully after
// a grace period.
func (p *uciProcess) close() {
	_ = p.send("quit")
	_ = p.stdin.Close()
	done := make(chan struct{})
	go func() {
		_ = p.cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		_ = p.cmd.Process.Kill()
		<-done
	}
}
