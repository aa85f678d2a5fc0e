package engine

import (
	"github.com/rs/zerolog/log"

	"github.com/ashgrover/distflow/store"
)

// resetStep1 clears per-iteration state and, if the source vertex lives on this worker,
// re-seeds it: label (+Infinity, self, self, self) and its initial edge-queue entries.
func (e *Engine) resetStep1() {
	e.drainStaleMessages()
	e.Queue.Reset()
	e.Labels.Reset(e.NumThreads)
	e.Detector.Reset()
	e.sinkFound.Store(false)
	e.algorithmComplete.Store(false)
	e.step3Tid.Store(-1)
	e.workingThreads.Store(0)

	if !e.sourceLocalOK {
		return
	}
	e.Labels.TrySet(e.sourceLocal, store.Infinity, e.SourceGlobal, e.WorkerID, e.sourceLocal)
	e.insertEdges(e.sourceLocal)
}

// drainStaleMessages flushes anything still sitting in this worker's inbox from the
// previous iteration -- chiefly the self-addressed SINK_FOUND a single-threaded mergedLoop
// leaves unread when it notices the sinkFound flag and exits before polling TryRecv again.
func (e *Engine) drainStaleMessages() {
	for {
		env, ok := e.Net.TryRecv()
		if !ok {
			return
		}
		log.Trace().Str("tag", env.Tag.String()).Int("worker", e.WorkerID).Msg("drained stale message at reset")
	}
}
