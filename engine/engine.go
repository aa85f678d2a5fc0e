// Package engine implements the three-step per-iteration state machine that drives the
// distributed search: reset, parallel labeling with distributed termination detection, and
// distributed back-tracking. It is the core of this system, in the style of a
// thread-spawn-and-join convergence loop, with a single Engine context struct carrying
// what would otherwise be module-level globals.
package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/ashgrover/distflow/label"
	"github.com/ashgrover/distflow/queue"
	"github.com/ashgrover/distflow/store"
	"github.com/ashgrover/distflow/token"
	"github.com/ashgrover/distflow/transport"
)

// Engine drives one worker's share of the distributed augmenting-path search.
type Engine struct {
	WorkerID   int
	NumWorkers int
	NumThreads int

	Store    *store.Store
	Labels   *label.Table
	Queue    *queue.Queue
	Net      transport.Network
	Detector *token.Detector

	SourceGlobal uint64
	SinkGlobal   uint64

	sourceLocal   uint32
	sourceLocalOK bool
	sinkLocal     uint32
	sinkLocalOK   bool

	pass              atomic.Int32
	sinkFound         atomic.Bool
	algorithmComplete atomic.Bool
	step3Tid          atomic.Int32
	workingThreads    atomic.Int32
}

// New builds an Engine for one worker. sourceGlobal/sinkGlobal are global vertex ids;
// they need not be local to this worker.
func New(workerID, numWorkers, numThreads int, st *store.Store, net transport.Network, sourceGlobal, sinkGlobal uint64) *Engine {
	e := &Engine{
		WorkerID:     workerID,
		NumWorkers:   numWorkers,
		NumThreads:   numThreads,
		Store:        st,
		Net:          net,
		Detector:     token.NewDetector(workerID, numWorkers),
		SourceGlobal: sourceGlobal,
		SinkGlobal:   sinkGlobal,
	}
	e.Labels = label.New(st.NumVertices())
	e.Queue = queue.New()
	e.step3Tid.Store(-1)
	if idx, ok := st.Lookup(sourceGlobal); ok {
		e.sourceLocal, e.sourceLocalOK = idx, true
	}
	if idx, ok := st.Lookup(sinkGlobal); ok {
		e.sinkLocal, e.sinkLocalOK = idx, true
	}
	return e
}

// Solve repeatedly runs iterations until one fails to find the sink, then returns the
// number of iterations run, including that last one. It does not compute the flow value:
// callers that need the answer should use package reduce after every worker's Solve returns.
func (e *Engine) Solve(ctx context.Context) (iterations int) {
	for {
		advanced := e.RunIteration(ctx)
		iterations++
		if !advanced {
			return iterations
		}
	}
}

// RunIteration executes one pass of reset -> label -> backtrack, and reports whether
// the sink was found (i.e. whether flow was advanced this pass).
func (e *Engine) RunIteration(ctx context.Context) (foundSink bool) {
	e.resetStep1()
	e.runStep2(ctx)
	foundSink = e.sinkFound.Load()
	if foundSink {
		e.runStep3(ctx)
	}
	e.pass.Add(1)
	log.Debug().Int("worker", e.WorkerID).Int32("pass", e.pass.Load()-1).Bool("found_sink", foundSink).Msg("iteration complete")
	return foundSink
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// runStep2 spawns this worker's thread pool for the labeling phase and waits for all of
// them to exit, spawned and joined fresh each iteration.
func (e *Engine) runStep2(ctx context.Context) {
	if e.NumThreads <= 1 {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.mergedLoop(ctx)
		}()
		wg.Wait()
		return
	}

	var wg sync.WaitGroup
	wg.Add(e.NumThreads)
	go func() {
		defer wg.Done()
		e.receiverLoop(ctx)
	}()
	for t := 1; t < e.NumThreads; t++ {
		go func(tidx int) {
			defer wg.Done()
			e.workerLoop(ctx, tidx)
		}(t)
	}
	wg.Wait()
}
