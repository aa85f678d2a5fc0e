package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ashgrover/distflow/mathutils"
	"github.com/ashgrover/distflow/store"
	"github.com/ashgrover/distflow/token"
	"github.com/ashgrover/distflow/wire"
)

// workerLoop is a step-2 thread with no receiver duties: drain the queue until it runs
// dry, at which point evaluate whether the ring token can be forwarded, and spin-wait
// until there is more work or the iteration ends.
func (e *Engine) workerLoop(ctx context.Context, tidx int) {
	backoff := 0
	for {
		if e.algorithmComplete.Load() || e.sinkFound.Load() {
			return
		}
		entry, ok := e.Queue.Pop()
		if !ok {
			e.evaluateTokenAsWorker(ctx)
			time.Sleep(backoffDuration(backoff))
			backoff++
			continue
		}
		backoff = 0
		e.workingThreads.Add(1)
		e.processEdge(ctx, entry, tidx)
		e.workingThreads.Add(-1)
	}
}

// receiverLoop is step 2's thread 0: it never pops from the queue, only dispatches
// incoming messages (whose handlers may splice a newly labeled vertex's edges into it).
func (e *Engine) receiverLoop(ctx context.Context) {
	for {
		env, err := e.Net.Recv(ctx)
		if err != nil {
			return
		}
		e.dispatch(ctx, env)
		if e.algorithmComplete.Load() || e.sinkFound.Load() {
			return
		}
	}
}

// mergedLoop is used when a worker runs with a single thread: a dedicated receiver thread
// has no meaning with only one thread available, so this collapses both duties into one
// loop that drains its own inbox before falling back to popping the queue.
func (e *Engine) mergedLoop(ctx context.Context) {
	backoff := 0
	for {
		if e.algorithmComplete.Load() || e.sinkFound.Load() {
			return
		}
		if env, ok := e.Net.TryRecv(); ok {
			e.dispatch(ctx, env)
			continue
		}
		entry, ok := e.Queue.Pop()
		if !ok {
			e.evaluateTokenAsWorker(ctx)
			time.Sleep(backoffDuration(backoff))
			backoff++
			continue
		}
		backoff = 0
		e.workingThreads.Add(1)
		e.processEdge(ctx, entry, 0)
		e.workingThreads.Add(-1)
	}
}

// dispatch handles one incoming message by tag.
func (e *Engine) dispatch(ctx context.Context, env wire.Envelope) {
	switch env.Tag {
	case wire.SetToLabel:
		e.handleSetToLabel(ctx, env)
	case wire.ComputeFromLabel:
		e.handleComputeFromLabel(ctx, env)
	case wire.SinkFound:
		e.handleSinkFoundMsg(ctx, env)
	case wire.TokenWhite:
		e.handleTokenMsg(ctx, token.White)
	case wire.TokenRed:
		e.handleTokenMsg(ctx, token.Red)
	case wire.CheckTermination:
		e.handleCheckTermination(ctx)
	default:
		log.Debug().Str("tag", env.Tag.String()).Int("worker", e.WorkerID).Msg("protocol: unexpected tag during labeling phase, dropped")
	}
}

func (e *Engine) handleSetToLabel(ctx context.Context, env wire.Envelope) {
	msg := env.Message
	if msg.Pass != e.pass.Load() {
		log.Trace().Msg("stale SET_TO_LABEL dropped")
		return
	}
	localIdx, ok := e.Store.Lookup(msg.ReceiverGID)
	if !ok {
		log.Debug().Uint64("receiver_gid", msg.ReceiverGID).Msg("protocol: SET_TO_LABEL addressed to a vertex not owned by this worker")
		return
	}
	if e.Labels.TrySet(localIdx, msg.Value, msg.SenderGID, env.From, store.NoLocal) {
		e.onLabeled(ctx, localIdx, 0)
	}
}

func (e *Engine) handleComputeFromLabel(ctx context.Context, env wire.Envelope) {
	msg := env.Message
	if msg.Pass != e.pass.Load() {
		log.Trace().Msg("stale COMPUTE_FROM_LABEL dropped")
		return
	}
	localIdx, ok := e.Store.Lookup(msg.ReceiverGID)
	if !ok {
		log.Debug().Uint64("receiver_gid", msg.ReceiverGID).Msg("protocol: COMPUTE_FROM_LABEL addressed to a vertex not owned by this worker")
		return
	}
	flow, _, edgeOK := e.Store.FlowTo(localIdx, msg.SenderGID)
	if !edgeOK || flow <= 0 {
		return
	}
	newValue := -mathutils.Min(absInt64(msg.Value), flow)
	if e.Labels.TrySet(localIdx, newValue, msg.SenderGID, env.From, store.NoLocal) {
		e.onLabeled(ctx, localIdx, 0)
	}
}

// handleSinkFoundMsg adopts a SINK_FOUND notification -- either this worker's own
// self-wake-up or one forwarded from the ring predecessor -- and, on first genuine receipt
// this pass, relays it on to the successor so the notification reaches every worker before
// looping back to the finder, who by then has already set sinkFound and so stops the relay.
func (e *Engine) handleSinkFoundMsg(ctx context.Context, env wire.Envelope) {
	if env.Message.Pass != e.pass.Load() {
		log.Trace().Msg("stale SINK_FOUND dropped")
		return
	}
	if !e.sinkFound.CompareAndSwap(false, true) {
		return
	}
	e.step3Tid.CompareAndSwap(-1, 0)
	if e.NumWorkers > 1 {
		e.send(ctx, (e.WorkerID+1)%e.NumWorkers, wire.SinkFound, wire.Message{Pass: e.pass.Load()})
	}
}

// handleTokenMsg adopts a forwarded token, then (worker 0 only) decides whether to
// recirculate it or launch a collective termination check.
func (e *Engine) handleTokenMsg(ctx context.Context, color token.Color) {
	e.Detector.AdoptToken(color)
	if e.WorkerID != 0 {
		e.evaluateTokenAsWorker(ctx)
		return
	}
	recirculate, startCheck := e.Detector.WorkerZeroReceivedToken(color)
	if recirculate {
		e.sendToken(ctx, (e.WorkerID+1)%e.NumWorkers, token.White)
		return
	}
	if !startCheck {
		return
	}
	for w := 1; w < e.NumWorkers; w++ {
		e.send(ctx, w, wire.CheckTermination, wire.Message{Pass: e.pass.Load()})
	}
	if e.Detector.EvaluateCheckTermination(ctx, e.Net, e.Queue.IsEmpty()) {
		e.algorithmComplete.Store(true)
	}
}

func (e *Engine) handleCheckTermination(ctx context.Context) {
	if e.Detector.EvaluateCheckTermination(ctx, e.Net, e.Queue.IsEmpty()) {
		e.algorithmComplete.Store(true)
	}
}

// evaluateTokenAsWorker is called by any thread that just observed an empty queue: if
// this worker is holding the token and is genuinely quiescent, forward it on.
func (e *Engine) evaluateTokenAsWorker(ctx context.Context) {
	send, color, next := e.Detector.TryForward(e.Queue.IsEmpty(), e.workingThreads.Load(), e.sinkFound.Load())
	if !send {
		return
	}
	e.sendToken(ctx, next, color)
}

func (e *Engine) sendToken(ctx context.Context, toWorker int, color token.Color) {
	tag := wire.TokenWhite
	if color == token.Red {
		tag = wire.TokenRed
	}
	e.send(ctx, toWorker, tag, wire.Message{Pass: e.pass.Load()})
}

func backoffDuration(spins int) time.Duration {
	capped := mathutils.Min(spins, 50)
	d := time.Duration(capped) * 20 * time.Microsecond
	if d == 0 {
		return 20 * time.Microsecond
	}
	return d
}
