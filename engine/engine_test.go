package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/ashgrover/distflow/adjio"
	"github.com/ashgrover/distflow/partition"
	"github.com/ashgrover/distflow/reduce"
	"github.com/ashgrover/distflow/store"
	"github.com/ashgrover/distflow/transport"
)

// TestGraph is one literal worked scenario, run across the W/T matrix below.
type TestGraph struct {
	Filename string
	MaxFlow  int64
	// Owner splits vertices across workers when running with 2 workers. Ignored for W=1.
	OwnerForTwoWorkers []int
}

var testGraphs = [...]TestGraph{
	{"../testdata/two-vertex.txt", 5, []int{0, 1}},
	{"../testdata/diamond.txt", 4, []int{0, 0, 1, 1}},
	{"../testdata/bottleneck-chain.txt", 1, []int{0, 0, 1, 1}},
	{"../testdata/parallel-two-workers.txt", 9, []int{0, 0, 1, 1}},
	{"../testdata/disconnected-source.txt", 0, []int{0, 1, 1}},
	{"../testdata/zero-capacity.txt", 0, []int{0, 1}},
}

func TestScenarios(t *testing.T) {
	for _, tg := range testGraphs {
		tg := tg
		t.Run(tg.Filename, func(t *testing.T) {
			for _, numWorkers := range []int{1, 2} {
				for _, numThreads := range []int{1, 4} {
					t.Run(matrixName(numWorkers, numThreads), func(t *testing.T) {
						got := solveFixture(t, tg.Filename, numWorkers, numThreads, tg.OwnerForTwoWorkers)
						if got != tg.MaxFlow {
							t.Fatalf("max flow = %d, want %d", got, tg.MaxFlow)
						}
					})
				}
			}
		})
	}
}

// TestIdempotence re-runs solve on a graph whose flow is already realised (by running it
// twice back to back through the same engines) and checks the second run adds nothing.
func TestIdempotence(t *testing.T) {
	raw, err := adjio.Load("../testdata/diamond.txt")
	if err != nil {
		t.Fatal(err)
	}
	owner := []int{0, 0, 0, 0}
	engines, nets := buildEngines(raw, owner, 1, 1)

	ctx := context.Background()
	iterations := engines[0].Solve(ctx)
	first := reduce.Collect(ctx, nets[0], engines[0].Store, raw.Source)
	if first != 4 {
		t.Fatalf("first solve = %d, want 4", first)
	}

	moreIterations := engines[0].RunIteration(ctx)
	if moreIterations {
		t.Fatalf("iteration after convergence found the sink again")
	}
	second := reduce.Collect(ctx, nets[0], engines[0].Store, raw.Source)
	if second != first {
		t.Fatalf("idempotence violated: %d != %d", second, first)
	}
	_ = iterations
}

func matrixName(workers, threads int) string {
	return "W=" + itoa(workers) + "/T=" + itoa(threads)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func solveFixture(t *testing.T, filename string, numWorkers, numThreads int, twoWorkerOwner []int) int64 {
	t.Helper()
	raw, err := adjio.Load(filename)
	if err != nil {
		t.Fatalf("adjio.Load(%s): %v", filename, err)
	}

	var owner []int
	if numWorkers == 1 {
		owner = make([]int, raw.NumVertices)
	} else {
		owner = twoWorkerOwner
		if uint64(len(owner)) != raw.NumVertices {
			t.Fatalf("fixture %s: owner slice has %d entries, want %d", filename, len(owner), raw.NumVertices)
		}
	}

	engines, nets := buildEngines(raw, owner, numWorkers, numThreads)

	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func(w int) {
			defer wg.Done()
			engines[w].Solve(ctx)
		}(w)
	}
	wg.Wait()

	results := make([]int64, numWorkers)
	var cwg sync.WaitGroup
	cwg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func(w int) {
			defer cwg.Done()
			results[w] = reduce.Collect(ctx, nets[w], engines[w].Store, raw.Source)
		}(w)
	}
	cwg.Wait()

	return results[0]
}

func buildEngines(raw *partition.RawGraph, owner []int, numWorkers, numThreads int) ([]*Engine, []transport.Network) {
	nets := transport.NewInProcessCluster(numWorkers)
	engines := make([]*Engine, numWorkers)
	for w := 0; w < numWorkers; w++ {
		vertices := partition.Migrate(raw, owner, w)
		st := store.New(w, vertices)
		engines[w] = New(w, numWorkers, numThreads, st, nets[w], raw.Source, raw.Sink)
	}
	return engines, nets
}
