// Package token implements the Dijkstra-Feijen-Gasteren ring-token termination protocol:
// each worker holds a color, forwards a token around the ring only once quiescent, and
// worker 0 launches a collective check whenever a WHITE token completes the circuit.
package token

import (
	"context"
	"sync/atomic"
)

// Color is a token/worker color in the DFG protocol.
type Color int32

const (
	White Color = iota
	Red
)

func (c Color) String() string {
	if c == Red {
		return "RED"
	}
	return "WHITE"
}

// Collective is the injectable collective-operations capability the ring-token protocol
// needs: a sum-reduce of "my queue is non-empty" flags, and a broadcast of the resulting
// completion decision. Any type with this method set (notably transport.Network)
// satisfies it without an explicit declaration, which keeps the termination detector
// testable against a stub.
type Collective interface {
	// CollectiveSum returns the sum of `local` contributed by every worker, to every
	// worker (an allreduce).
	CollectiveSum(ctx context.Context, local int64) int64
	// Broadcast returns the value that worker `from` contributed, to every worker.
	Broadcast(ctx context.Context, from int, value bool) bool
}

// Detector holds one worker's ring-token state.
type Detector struct {
	workerID   int
	numWorkers int

	color        atomic.Int32 // this worker's own color
	haveToken    atomic.Bool
	tokenColorIn atomic.Int32 // color of the token currently held, if haveToken
}

// NewDetector creates a detector for workerID among numWorkers. Worker 0 starts holding
// a WHITE token.
func NewDetector(workerID, numWorkers int) *Detector {
	d := &Detector{workerID: workerID, numWorkers: numWorkers}
	d.Reset()
	return d
}

// Reset returns the detector to its start-of-iteration state: own color WHITE, and
// (worker 0 only) holding a fresh WHITE token.
func (d *Detector) Reset() {
	d.color.Store(int32(White))
	if d.workerID == 0 {
		d.haveToken.Store(true)
		d.tokenColorIn.Store(int32(White))
	} else {
		d.haveToken.Store(false)
	}
}

// Blacken marks this worker RED. Call this whenever a message is sent to a worker with
// a lower id.
func (d *Detector) Blacken() {
	d.color.Store(int32(Red))
}

// HaveToken reports whether this worker currently holds the token.
func (d *Detector) HaveToken() bool {
	return d.haveToken.Load()
}

// AdoptToken records receipt of a token of the given color from the ring predecessor.
func (d *Detector) AdoptToken(c Color) {
	d.tokenColorIn.Store(int32(c))
	d.haveToken.Store(true)
}

// TryForward attempts to forward the token to this worker's successor. It only succeeds
// when the worker holds the token, its queue is empty, no local thread is working, and
// the sink has not been found. On success it returns the color to
// send and the successor worker id, and resets this worker's own color to WHITE.
func (d *Detector) TryForward(queueEmpty bool, workingThreads int32, sinkFound bool) (send bool, out Color, nextWorker int) {
	if !d.haveToken.Load() || !queueEmpty || workingThreads != 0 || sinkFound {
		return false, White, 0
	}
	own := Color(d.color.Load())
	out = Color(d.tokenColorIn.Load())
	if own == Red {
		out = Red
	}
	d.color.Store(int32(White))
	d.haveToken.Store(false)
	nextWorker = (d.workerID + 1) % d.numWorkers
	return true, out, nextWorker
}

// WorkerZeroReceivedToken implements worker 0's special handling of an arriving token
//. A RED token is reset to WHITE and must be recirculated by the
// caller, with no collective check. A WHITE token means the caller should broadcast
// CHECK_TERMINATION to every other worker and then call EvaluateCheckTermination itself.
func (d *Detector) WorkerZeroReceivedToken(incoming Color) (recirculateAsWhite bool, startCheck bool) {
	if incoming == Red {
		return true, false
	}
	return false, true
}

// EvaluateCheckTermination is what every worker does -- worker 0 upon deciding to start
// a check, every other worker upon receiving a CHECK_TERMINATION message: join the
// collective sum of "my queue is non-empty" flags, and return whether the global total
// came back zero (no worker has outstanding work, so the search has exhausted every
// reachable vertex without labeling the sink).
func (d *Detector) EvaluateCheckTermination(ctx context.Context, coll Collective, queueEmpty bool) (isComplete bool) {
	sum := coll.CollectiveSum(ctx, emptyFlag(queueEmpty))
	isComplete = sum == 0
	coll.Broadcast(ctx, 0, isComplete)
	return isComplete
}

func emptyFlag(empty bool) int64 {
	if empty {
		return 0
	}
	return 1
}
