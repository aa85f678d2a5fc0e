package transport

import (
	"context"
	"sync"
	"testing"

	"github.com/ashgrover/distflow/wire"
)

func TestSendRecv(t *testing.T) {
	nets := NewInProcessCluster(2)
	ctx := context.Background()

	env := wire.Envelope{Tag: wire.SetToLabel, Message: wire.Message{SenderGID: 1, ReceiverGID: 2}}
	if err := nets[0].Send(ctx, 1, env); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got, err := nets[1].Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if got.Tag != wire.SetToLabel || got.From != 0 || got.Message.SenderGID != 1 {
		t.Fatalf("Recv() = %+v, want tag SET_TO_LABEL from worker 0", got)
	}
}

func TestTryRecv(t *testing.T) {
	nets := NewInProcessCluster(1)
	if _, ok := nets[0].TryRecv(); ok {
		t.Fatal("TryRecv on an empty inbox should not succeed")
	}
	nets[0].Send(context.Background(), 0, wire.Envelope{Tag: wire.SinkFound})
	env, ok := nets[0].TryRecv()
	if !ok || env.Tag != wire.SinkFound {
		t.Fatalf("TryRecv() = %+v, %v, want SINK_FOUND, true", env, ok)
	}
}

func TestCollectiveSum(t *testing.T) {
	nets := NewInProcessCluster(4)
	results := make([]int64, 4)
	var wg sync.WaitGroup
	wg.Add(4)
	for i := 0; i < 4; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = nets[i].CollectiveSum(context.Background(), int64(i+1))
		}(i)
	}
	wg.Wait()
	for i, r := range results {
		if r != 10 {
			t.Fatalf("worker %d got sum %d, want 10", i, r)
		}
	}
}

func TestCollectiveSumIsReusable(t *testing.T) {
	nets := NewInProcessCluster(2)
	for round := 0; round < 3; round++ {
		var wg sync.WaitGroup
		results := make([]int64, 2)
		wg.Add(2)
		for i := 0; i < 2; i++ {
			go func(i int) {
				defer wg.Done()
				results[i] = nets[i].CollectiveSum(context.Background(), 1)
			}(i)
		}
		wg.Wait()
		if results[0] != 2 || results[1] != 2 {
			t.Fatalf("round %d: results = %v, want [2 2]", round, results)
		}
	}
}

func TestBroadcast(t *testing.T) {
	nets := NewInProcessCluster(3)
	results := make([]bool, 3)
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = nets[i].Broadcast(context.Background(), 1, true)
		}(i)
	}
	wg.Wait()
	for i, r := range results {
		if !r {
			t.Fatalf("worker %d did not observe the broadcast value", i)
		}
	}
}

func TestWorkerIDAndNumWorkers(t *testing.T) {
	nets := NewInProcessCluster(5)
	for i, n := range nets {
		if n.WorkerID() != i {
			t.Fatalf("nets[%d].WorkerID() = %d", i, n.WorkerID())
		}
		if n.NumWorkers() != 5 {
			t.Fatalf("NumWorkers() = %d, want 5", n.NumWorkers())
		}
	}
}
