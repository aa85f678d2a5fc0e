package transport

import (
	"context"
	"sync"

	"github.com/ashgrover/distflow/wire"
)

const inboxCapacity = 4096

// collectiveBarrier is a reusable generational barrier: every participant contributes a
// value, the last arrival computes a function of all contributions, and every
// participant (including the last) returns that result. Reusable across repeated calls,
// unlike sync.WaitGroup, which can only be used once.
type collectiveBarrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	n       int
	arrived int
	gen     int
	values  []int64
	result  int64
}

func newCollectiveBarrier(n int) *collectiveBarrier {
	b := &collectiveBarrier{n: n, values: make([]int64, n)}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *collectiveBarrier) sum(workerID int, local int64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	myGen := b.gen
	b.values[workerID] = local
	b.arrived++
	if b.arrived == b.n {
		total := int64(0)
		for _, v := range b.values {
			total += v
		}
		b.result = total
		b.arrived = 0
		b.gen++
		b.cond.Broadcast()
		return total
	}
	for b.gen == myGen {
		b.cond.Wait()
	}
	return b.result
}

type broadcastBarrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	n       int
	arrived int
	gen     int
	value   bool
}

func newBroadcastBarrier(n int) *broadcastBarrier {
	b := &broadcastBarrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *broadcastBarrier) broadcast(workerID, from int, value bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	myGen := b.gen
	if workerID == from {
		b.value = value
	}
	b.arrived++
	if b.arrived == b.n {
		result := b.value
		b.arrived = 0
		b.gen++
		b.cond.Broadcast()
		return result
	}
	for b.gen == myGen {
		b.cond.Wait()
	}
	return b.value
}

// cluster is the shared state every InProcess network instance in the same simulated
// ring points at.
type cluster struct {
	inbound []chan wire.Envelope
	sum     *collectiveBarrier
	bcast   *broadcastBarrier
}

// InProcess is a Network backed by Go channels, one inbox per worker. It simulates the
// whole ring of workers as goroutines of a single OS process.
type InProcess struct {
	workerID int
	c        *cluster
}

// NewInProcessCluster creates numWorkers Network instances sharing one simulated ring.
func NewInProcessCluster(numWorkers int) []Network {
	c := &cluster{
		inbound: make([]chan wire.Envelope, numWorkers),
		sum:     newCollectiveBarrier(numWorkers),
		bcast:   newBroadcastBarrier(numWorkers),
	}
	for i := range c.inbound {
		c.inbound[i] = make(chan wire.Envelope, inboxCapacity)
	}
	nets := make([]Network, numWorkers)
	for i := 0; i < numWorkers; i++ {
		nets[i] = &InProcess{workerID: i, c: c}
	}
	return nets
}

func (n *InProcess) WorkerID() int   { return n.workerID }
func (n *InProcess) NumWorkers() int { return len(n.c.inbound) }

func (n *InProcess) Send(ctx context.Context, toWorker int, env wire.Envelope) error {
	env.From = n.workerID
	select {
	case n.c.inbound[toWorker] <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *InProcess) Recv(ctx context.Context) (wire.Envelope, error) {
	select {
	case env := <-n.c.inbound[n.workerID]:
		return env, nil
	case <-ctx.Done():
		return wire.Envelope{}, ctx.Err()
	}
}

func (n *InProcess) TryRecv() (wire.Envelope, bool) {
	select {
	case env := <-n.c.inbound[n.workerID]:
		return env, true
	default:
		return wire.Envelope{}, false
	}
}

func (n *InProcess) CollectiveSum(ctx context.Context, local int64) int64 {
	return n.c.sum.sum(n.workerID, local)
}

func (n *InProcess) Broadcast(ctx context.Context, from int, value bool) bool {
	return n.c.bcast.broadcast(n.workerID, from, value)
}
