package search

import (
	"sync/atomic"
	"time"

	"github.com/matrogers/turochamp/internal/engine"
	"github.com/matrogers/turochamp/internal/game"
)

// maxDepth caps background iterative deepening when no depth was given.
const maxDepth = 64

// joinTimeout bounds how long a cancel waits for the background search
// to notice the stop flag before giving up on the join.
const joinTimeout = 200 * time.Millisecond

// Result is one finished (or interrupted) search.
type Result struct {
	Moves     []string // best first, coordinate notation
	Telemetry engine.Telemetry
}

// Best returns the top move, or "" when the search produced nothing.
func (r Result) Best() string {
	if len(r.Moves) == 0 {
		return ""
	}
	return r.Moves[0]
}

// task is the shared state of one background search. Every Start
// allocates a fresh task, so a straggler that outlived its join timeout
// keeps writing into its own defunct slot and can never disturb the
// flags or result of a later search.
type task struct {
	stop    atomic.Bool
	claimed atomic.Bool // whoever claims emits/collects the answer
	running atomic.Bool
	res     atomic.Pointer[Result]
	done    chan struct{}
}

// Controller runs one search at a time over a single engine backend.
// Depth-limited searches run synchronously on the caller's goroutine;
// open-ended searches deepen iteratively in the background, publishing
// the best result after each completed iteration so a cancel always has
// something to collect.
type Controller struct {
	eng engine.Engine

	cur   atomic.Pointer[task]
	tasks atomic.Uint64
}

// NewController wraps one engine backend.
func NewController(eng engine.Engine) *Controller {
	return &Controller{eng: eng}
}

// Searching reports whether the current background search is in flight.
// An abandoned straggler from an earlier search does not count.
func (c *Controller) Searching() bool {
	t := c.cur.Load()
	return t != nil && t.running.Load()
}

// TaskCount returns how many background searches have ever been
// started. Depth-limited synchronous searches do not count.
func (c *Controller) TaskCount() uint64 {
	return c.tasks.Load()
}

// SearchDepth runs a fixed-depth search synchronously and returns its
// result. No background task is involved.
func (c *Controller) SearchDepth(s *game.Session, depth int) (Result, error) {
	c.eng.SetMaxDepth(depth)
	t, moves, err := c.eng.ComputeMove(s.Game())
	return Result{Moves: moves, Telemetry: t}, err
}

// Start launches a background search over a clone of the session's
// game. It deepens one ply at a time up to target (or a fixed ceiling
// when target <= 0) and publishes the result of every completed
// iteration. If the search runs to completion without being cancelled,
// emit is called once with the final result (empty when no iteration
// produced a move).
func (c *Controller) Start(s *game.Session, target int, emit func(Result)) {
	if target <= 0 || target > maxDepth {
		target = maxDepth
	}
	t := &task{done: make(chan struct{})}
	t.running.Store(true)
	c.cur.Store(t)
	c.tasks.Add(1)

	clone := s.Game().Clone()
	go func() {
		defer close(t.done)
		defer t.running.Store(false)
		for depth := 1; depth <= target; depth++ {
			if t.stop.Load() {
				return
			}
			c.eng.SetMaxDepth(depth)
			tel, moves, err := c.eng.ComputeMove(clone)
			if err != nil || len(moves) == 0 {
				break
			}
			if t.stop.Load() {
				return
			}
			t.res.Store(&Result{Moves: moves, Telemetry: tel})
		}
		if t.claimed.CompareAndSwap(false, true) {
			if p := t.res.Load(); p != nil {
				emit(*p)
			} else {
				emit(Result{})
			}
		}
	}()
}

// CancelAndCollect stops the current background search and returns the
// best result published so far. The join is bounded; a search stuck
// inside an iteration is abandoned and its eventual result discarded.
// The second return is false when there is nothing to collect, either
// because no search was running or because it already finished and
// emitted on its own.
func (c *Controller) CancelAndCollect() (Result, bool) {
	t := c.cur.Load()
	if t == nil {
		return Result{}, false
	}
	t.stop.Store(true)
	select {
	case <-t.done:
	case <-time.After(joinTimeout):
	}
	if !t.claimed.CompareAndSwap(false, true) {
		return Result{}, false
	}
	p := t.res.Load()
	if p == nil || len(p.Moves) == 0 {
		return Result{}, false
	}
	return *p, true
}
