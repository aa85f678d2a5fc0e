package engine

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ashgrover/distflow/mathutils"
	"github.com/ashgrover/distflow/queue"
	"github.com/ashgrover/distflow/store"
	"github.com/ashgrover/distflow/wire"
)

// insertEdges builds the edge-queue entries for a vertex that was just labeled, and
// splices them into the shared queue in one locked operation, right after a successful
// CAS. Edges back to the predecessor are suppressed, and co-located
// neighbours that are already labeled are skipped -- both are pure optimizations: a
// suppressed or skipped entry would simply be discarded again on dequeue, but skipping
// it here keeps the queue from filling with work already known to be useless.
func (e *Engine) insertEdges(localIdx uint32) {
	lbl := e.Labels.Get(localIdx)
	prevNode := lbl.PrevNode
	v := e.Store.Vertex(localIdx)

	var frag queue.Fragment
	for i := range v.OutEdges {
		oe := &v.OutEdges[i]
		if oe.DestGlobal == prevNode {
			continue
		}
		if oe.DestWorker == e.WorkerID && oe.DestLocal != store.NoLocal && e.Labels.Get(oe.DestLocal).Value() != 0 {
			continue
		}
		frag.Append(queue.Entry{LocalVertex: localIdx, Outgoing: true, EdgeIndex: i})
	}
	for i := range v.InEdges {
		ie := &v.InEdges[i]
		if ie.SrcGlobal == prevNode {
			continue
		}
		if ie.SrcWorker == e.WorkerID && ie.SrcLocal != store.NoLocal && e.Labels.Get(ie.SrcLocal).Value() != 0 {
			continue
		}
		frag.Append(queue.Entry{LocalVertex: localIdx, Outgoing: false, EdgeIndex: i})
	}
	e.Queue.MergeInto(&frag)
}

// onLabeled is called exactly once per vertex per iteration, right after the CAS in
// label.Table.TrySet succeeds for it -- whether that CAS happened locally (processEdge)
// or on behalf of a remote sender (the receiver loop's SET_TO_LABEL/COMPUTE_FROM_LABEL
// handlers). It queues the vertex's own edges and checks whether it is the sink.
func (e *Engine) onLabeled(ctx context.Context, localIdx uint32, tidx int) {
	e.insertEdges(localIdx)
	if e.Store.Vertex(localIdx).GlobalID == e.SinkGlobal {
		e.markSinkFound(ctx, tidx)
	}
}

// markSinkFound records that the sink has been labeled, elects the thread that will run
// the local half of step 3's back-track walk, wakes this worker's own receiver loop (which
// is otherwise blocked in Recv and would never notice sinkFound on its own), and starts the
// ring-wide SINK_FOUND notification every other worker needs to leave its step-2 loops and
// join step 3 as a back-track participant.
func (e *Engine) markSinkFound(ctx context.Context, tidx int) {
	wasFirst := e.sinkFound.CompareAndSwap(false, true)
	if !wasFirst {
		return
	}
	won := e.step3Tid.CompareAndSwap(-1, int32(tidx))
	if !won {
		log.Error().Int("worker", e.WorkerID).Msg("irrecoverable consistency error: sink flagged before step3 thread elected")
	}
	if err := e.Net.Send(ctx, e.WorkerID, wire.Envelope{Tag: wire.SinkFound, Message: wire.Message{Pass: e.pass.Load()}}); err != nil {
		log.Debug().Err(err).Msg("self-notify of sink discovery failed")
	}
	if e.NumWorkers > 1 {
		e.send(ctx, (e.WorkerID+1)%e.NumWorkers, wire.SinkFound, wire.Message{Pass: e.pass.Load()})
	}
}

// processEdge explores one edge-queue entry: for an outgoing edge it
// checks residual capacity and labels (or messages) the destination with a positive,
// slack-bounded value; for an incoming edge it checks existing flow and labels (or
// messages) the source with a negative, flow-bounded value. A send to a worker with a
// lower id blackens this worker for the ring-token protocol.
func (e *Engine) processEdge(ctx context.Context, entry queue.Entry, tidx int) {
	u := entry.LocalVertex
	uValue := e.Labels.Get(u).Value()
	uGlobal := e.Store.Vertex(u).GlobalID

	if entry.Outgoing {
		oe := e.Store.OutEdgeAt(u, entry.EdgeIndex)
		slack := oe.Capacity - oe.Flow
		if slack <= 0 {
			return
		}
		newValue := mathutils.Min(absInt64(uValue), slack)
		if oe.DestWorker == e.WorkerID && oe.DestLocal != store.NoLocal {
			if e.Labels.TrySet(oe.DestLocal, newValue, uGlobal, e.WorkerID, u) {
				e.onLabeled(ctx, oe.DestLocal, tidx)
			}
			return
		}
		e.send(ctx, oe.DestWorker, wire.SetToLabel, wire.Message{SenderGID: uGlobal, ReceiverGID: oe.DestGlobal, Value: newValue, Pass: e.pass.Load()})
		return
	}

	ie := e.Store.InEdgeAt(u, entry.EdgeIndex)
	if ie.SrcWorker == e.WorkerID && ie.SrcLocal != store.NoLocal {
		flow, _, ok := e.Store.FlowTo(ie.SrcLocal, uGlobal)
		if !ok || flow <= 0 {
			return
		}
		newValue := -mathutils.Min(absInt64(uValue), flow)
		if e.Labels.TrySet(ie.SrcLocal, newValue, uGlobal, e.WorkerID, u) {
			e.onLabeled(ctx, ie.SrcLocal, tidx)
		}
		return
	}
	e.send(ctx, ie.SrcWorker, wire.ComputeFromLabel, wire.Message{SenderGID: uGlobal, ReceiverGID: ie.SrcGlobal, Value: uValue, Pass: e.pass.Load()})
}

// send delivers a message, blackening this worker first if toWorker has a lower id.
func (e *Engine) send(ctx context.Context, toWorker int, tag wire.Tag, msg wire.Message) {
	if toWorker < e.WorkerID {
		e.Detector.Blacken()
	}
	if err := e.Net.Send(ctx, toWorker, wire.Envelope{Tag: tag, Message: msg}); err != nil {
		log.Debug().Err(err).Str("tag", tag.String()).Msg("send failed, likely context cancellation")
	}
}
