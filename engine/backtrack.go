package engine

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ashgrover/distflow/wire"
)

// runStep3 performs the distributed back-track walk, then
// joins a final collective barrier so that no worker starts the next iteration's reset
// while another is still forwarding UPDATE_FLOW or SOURCE_FOUND.
func (e *Engine) runStep3(ctx context.Context) {
	if e.sinkLocalOK {
		delta := absInt64(e.Labels.Get(e.sinkLocal).Value())
		e.continueBacktrack(ctx, e.sinkLocal, delta)
	} else {
		e.backtrackMessageLoop(ctx)
	}
	e.Net.CollectiveSum(ctx, 1)
}

// continueBacktrack walks back-pointers from cur toward the source, adding delta to the
// flow of each forward edge it crosses and subtracting it from each reverse edge; a
// forward edge whose source is on another worker is adjusted by that worker on receipt
// of UPDATE_FLOW. It stops either when the walk reaches the source locally, or when the predecessor lives on
// another worker, in which case it hands the cursor off with UPDATE_FLOW and waits for
// the eventual SOURCE_FOUND to complete the ring.
func (e *Engine) continueBacktrack(ctx context.Context, cur uint32, delta int64) {
	for {
		lbl := e.Labels.Get(cur)
		v := e.Store.Vertex(cur)

		switch {
		case lbl.Value() > 0 && lbl.PrevWorker == e.WorkerID:
			e.Store.SetFlowDelta(lbl.PrevLocal, v.GlobalID, delta)
		case lbl.Value() < 0:
			e.Store.SetFlowDelta(cur, lbl.PrevNode, -delta)
		}

		if lbl.PrevWorker != e.WorkerID {
			e.send(ctx, lbl.PrevWorker, wire.UpdateFlow, wire.Message{SenderGID: v.GlobalID, ReceiverGID: lbl.PrevNode, Value: delta, Pass: e.pass.Load()})
			e.waitForSourceFound(ctx)
			return
		}
		if lbl.PrevLocal == cur && lbl.PrevNode == e.SourceGlobal {
			e.announceSourceFound(ctx)
			return
		}
		cur = lbl.PrevLocal
	}
}

// backtrackMessageLoop is what every worker other than the sink's owner runs during step
// 3: wait for the cursor to arrive as UPDATE_FLOW, or for SOURCE_FOUND to pass through on
// its single trip around the ring. Anything else (a stale SET_TO_LABEL, token, or
// CHECK_TERMINATION left over from step 2) is discarded.
func (e *Engine) backtrackMessageLoop(ctx context.Context) {
	for {
		env, err := e.Net.Recv(ctx)
		if err != nil {
			return
		}
		switch env.Tag {
		case wire.UpdateFlow:
			msg := env.Message
			if msg.Pass != e.pass.Load() {
				continue
			}
			localIdx, ok := e.Store.Lookup(msg.ReceiverGID)
			if !ok {
				log.Debug().Uint64("receiver_gid", msg.ReceiverGID).Msg("protocol: UPDATE_FLOW addressed to a vertex not owned by this worker")
				continue
			}
			// The sender deferred the forward-edge adjustment for the hop it could not
			// reach locally; apply it here before resuming the walk at localIdx.
			e.Store.SetFlowDelta(localIdx, msg.SenderGID, msg.Value)
			e.continueBacktrack(ctx, localIdx, msg.Value)
			return
		case wire.SourceFound:
			if env.Message.Pass != e.pass.Load() {
				continue
			}
			e.forwardSourceFound(ctx)
			return
		default:
			continue
		}
	}
}

// waitForSourceFound is what a worker does after handing the cursor off to the
// predecessor's worker via UPDATE_FLOW: it has no more local work this iteration, but must not
// leave step 3 until the ring-wide SOURCE_FOUND notification has passed through.
func (e *Engine) waitForSourceFound(ctx context.Context) {
	for {
		env, err := e.Net.Recv(ctx)
		if err != nil {
			return
		}
		if env.Tag == wire.SourceFound && env.Message.Pass == e.pass.Load() {
			e.forwardSourceFound(ctx)
			return
		}
	}
}

// announceSourceFound is called by the single worker whose local back-track walk reached
// the source vertex itself: start the one-trip-around-the-ring notification.
func (e *Engine) announceSourceFound(ctx context.Context) {
	if e.NumWorkers <= 1 {
		return
	}
	e.send(ctx, (e.WorkerID+1)%e.NumWorkers, wire.SourceFound, wire.Message{Pass: e.pass.Load()})
}

func (e *Engine) forwardSourceFound(ctx context.Context) {
	if e.NumWorkers <= 1 {
		return
	}
	e.send(ctx, (e.WorkerID+1)%e.NumWorkers, wire.SourceFound, wire.Message{Pass: e.pass.Load()})
}
