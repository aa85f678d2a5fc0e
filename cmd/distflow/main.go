package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ashgrover/distflow/adjio"
	"github.com/ashgrover/distflow/engine"
	"github.com/ashgrover/distflow/mathutils"
	"github.com/ashgrover/distflow/partition"
	"github.com/ashgrover/distflow/reduce"
	"github.com/ashgrover/distflow/store"
	"github.com/ashgrover/distflow/transport"
	"github.com/ashgrover/distflow/utils"
)

// EngineOptions is the parsed command-line configuration for one CLI invocation.
type EngineOptions struct {
	AdjacencyFile   string
	ThreadsPerWorker int
	Workers         int
	Source          uint64
	Sink            uint64
	DebugHTTP       bool
	Verbose         int
}

// FlagsToEngineOptions parses flag.CommandLine plus the two required positional
// arguments, "<adjacency_file> <threads_per_worker>".
func FlagsToEngineOptions() EngineOptions {
	workers := flag.Int("workers", 1, "number of simulated workers in the ring")
	source := flag.Uint64("source", 0, "global id of the source vertex (default: vertex 0)")
	sink := flag.Uint64("sink", 0, "global id of the sink vertex (default: last vertex); 0 means unset")
	debugHTTP := flag.Bool("debug-http", false, "start a pprof listener on :6060")
	verbose := flag.Int("v", 0, "log verbosity: 0=info 1=debug 2=trace")
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: distflow [flags] <adjacency_file> <threads_per_worker>")
		os.Exit(2)
	}
	threads, err := parsePositiveInt(flag.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "distflow: bad threads_per_worker %q: %v\n", flag.Arg(1), err)
		os.Exit(2)
	}

	return EngineOptions{
		AdjacencyFile:    flag.Arg(0),
		ThreadsPerWorker: threads,
		Workers:          *workers,
		Source:           *source,
		Sink:             *sink,
		DebugHTTP:        *debugHTTP,
		Verbose:          *verbose,
	}
}

func parsePositiveInt(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return n, nil
}

func main() {
	opts := FlagsToEngineOptions()
	utils.SetLevel(opts.Verbose)

	if opts.DebugHTTP {
		go func() {
			log.Info().Msg("pprof listening on :6060")
			log.Error().Err(http.ListenAndServe("0.0.0.0:6060", nil)).Msg("pprof listener exited")
		}()
	}

	var watch mathutils.Watch
	watch.Start()

	raw, err := adjio.Load(opts.AdjacencyFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load adjacency file")
	}

	source, sink := raw.Source, raw.Sink
	if opts.Source != 0 {
		source = opts.Source
	}
	if opts.Sink != 0 {
		sink = opts.Sink
	}
	if source == sink {
		log.Fatal().Msg("source and sink must be distinct vertices")
	}

	owner, err := (partition.GonumBFSPartitioner{}).Partition(raw, opts.Workers)
	if err != nil {
		log.Fatal().Err(err).Msg("partitioning failed")
	}
	partitionElapsed := watch.Elapsed()

	nets := transport.NewInProcessCluster(opts.Workers)
	engines := make([]*engine.Engine, opts.Workers)
	for w := 0; w < opts.Workers; w++ {
		vertices := partition.Migrate(raw, owner, w)
		st := store.New(w, vertices)
		engines[w] = engine.New(w, opts.Workers, opts.ThreadsPerWorker, st, nets[w], source, sink)
	}

	var watchSolve mathutils.Watch
	watchSolve.Start()

	var wg sync.WaitGroup
	wg.Add(opts.Workers)
	ctx := context.Background()
	for w := 0; w < opts.Workers; w++ {
		go func(w int) {
			defer wg.Done()
			engines[w].Solve(ctx)
		}(w)
	}
	wg.Wait()

	var total int64
	var collectWg sync.WaitGroup
	collectWg.Add(opts.Workers)
	results := make([]int64, opts.Workers)
	for w := 0; w < opts.Workers; w++ {
		go func(w int) {
			defer collectWg.Done()
			results[w] = reduce.Collect(ctx, nets[w], engines[w].Store, source)
		}(w)
	}
	collectWg.Wait()
	total = results[0]

	solveElapsed := watchSolve.Elapsed()

	fmt.Printf("distflow: partitioned %d vertices across %d workers in %v\n", raw.NumVertices, opts.Workers, partitionElapsed)
	fmt.Printf("distflow: solve complete\n")
	fmt.Printf("maximum flow: %d\n", total)
	fmt.Printf("solve time: %v\n", solveElapsed)
}
