// Package reduce gathers the algorithm's final answer -- the sum of flow leaving the
// source -- at worker 0 for reporting. The
// source vertex is never split across workers, so no cross-worker summation is actually
// needed: only whichever single worker owns the source computes a non-trivial sum, and
// that worker forwards the total to worker 0 if it isn't worker 0 itself.
package reduce

import (
	"context"

	"github.com/ashgrover/distflow/store"
	"github.com/ashgrover/distflow/transport"
	"github.com/ashgrover/distflow/wire"
)

// SourceOutflow sums the flow on every out-edge of the source vertex, if it is owned by
// this store. ok is false if the source is not co-located.
func SourceOutflow(s *store.Store, sourceGlobal uint64) (total int64, ok bool) {
	idx, found := s.Lookup(sourceGlobal)
	if !found {
		return 0, false
	}
	v := s.Vertex(idx)
	for i := range v.OutEdges {
		total += v.OutEdges[i].Flow
	}
	return total, true
}

// Collect runs once per worker after every worker's Engine.Solve has returned, and
// returns the cluster-wide max flow value. Only the return value observed by the caller
// on worker 0 is meaningful; every worker must call Collect so that the owning worker's
// TOTAL_FLOW send has somewhere to go and worker 0's receive does not block forever.
func Collect(ctx context.Context, net transport.Network, s *store.Store, sourceGlobal uint64) int64 {
	local, owned := SourceOutflow(s, sourceGlobal)

	if net.WorkerID() == 0 {
		if owned {
			return local
		}
		for {
			env, err := net.Recv(ctx)
			if err != nil {
				return 0
			}
			if env.Tag == wire.TotalFlow {
				return env.Message.Value
			}
		}
	}

	if owned {
		_ = net.Send(ctx, 0, wire.Envelope{Tag: wire.TotalFlow, Message: wire.Message{Value: local}})
	}
	return local
}
