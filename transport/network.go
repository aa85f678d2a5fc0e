// Package transport is the message-carrier abstraction the rest of this module talks
// through: a transport equivalent to an MPI THREAD_MULTIPLE mode, safe for concurrent sends and
// receives by multiple threads of the same worker. InProcess is the one implementation
// shipped: a ring of per-worker channels, used both by the single-process CLI and by
// every engine test.
package transport

import (
	"context"

	"github.com/ashgrover/distflow/wire"
)

// Network is what one worker uses to talk to every other worker.
type Network interface {
	WorkerID() int
	NumWorkers() int

	// Send delivers env to the named worker's inbox. InProcess buffers up to
	// inboxCapacity envelopes per worker, so Send blocks only while that inbox is full; it
	// does not wait for the receiver to take the envelope.
	Send(ctx context.Context, toWorker int, env wire.Envelope) error

	// Recv blocks for the next envelope addressed to this worker.
	Recv(ctx context.Context) (wire.Envelope, error)

	// TryRecv is a non-blocking poll, used by the single-threaded merged loop to take
	// messages between queue pops, and by the iteration reset to flush stale messages.
	TryRecv() (wire.Envelope, bool)

	// CollectiveSum returns the sum of `local` across every worker, to every worker.
	CollectiveSum(ctx context.Context, local int64) int64

	// Broadcast returns the value worker `from` contributed, to every worker.
	Broadcast(ctx context.Context, from int, value bool) bool
}
