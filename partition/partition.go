// Package partition assigns graph vertices to workers and builds each worker's local
// vertex array (the input to store.New) from the assignment.
package partition

import (
	"github.com/ashgrover/distflow/store"
)

// RawEdge is one parsed adjacency-list entry, still in global-id space.
type RawEdge struct {
	Dest     uint64
	Capacity int64
}

// RawGraph is the whole parsed input, before any partitioning decision.
type RawGraph struct {
	NumVertices uint64
	Source      uint64
	Sink        uint64
	// OutEdges[i] holds vertex i's out-edges, indexed by global id.
	OutEdges [][]RawEdge
}

// Partitioner assigns each vertex a worker id. owner is indexed by global vertex id and
// has length g.NumVertices.
type Partitioner interface {
	Partition(g *RawGraph, numWorkers int) (owner []int, err error)
}

// Migrate builds the local vertex array for workerID: every vertex owner assigns to it,
// with its out-edges and the reverse in-edges contributed by every other vertex that
// points at one of them.
func Migrate(g *RawGraph, owner []int, workerID int) []store.Vertex {
	var locals []uint64
	localIdx := make(map[uint64]uint32)
	for gid := uint64(0); gid < g.NumVertices; gid++ {
		if owner[gid] == workerID {
			localIdx[gid] = uint32(len(locals))
			locals = append(locals, gid)
		}
	}

	vertices := make([]store.Vertex, len(locals))
	for i, gid := range locals {
		vertices[i].GlobalID = gid
		for _, re := range g.OutEdges[gid] {
			oe := store.OutEdge{
				DestGlobal: re.Dest,
				DestWorker: owner[re.Dest],
				DestLocal:  store.NoLocal,
				Capacity:   re.Capacity,
			}
			if idx, ok := localIdx[re.Dest]; ok {
				oe.DestLocal = idx
			}
			vertices[i].OutEdges = append(vertices[i].OutEdges, oe)
		}
	}

	// In-edges are the reverse view: for every edge u->v anywhere in the graph, if v is
	// local, record (u, owner[u]) on v's in-edge list.
	for u := uint64(0); u < g.NumVertices; u++ {
		for _, re := range g.OutEdges[u] {
			vIdx, ok := localIdx[re.Dest]
			if !ok {
				continue
			}
			ie := store.InEdge{SrcGlobal: u, SrcWorker: owner[u], SrcLocal: store.NoLocal}
			if idx, ok := localIdx[u]; ok {
				ie.SrcLocal = idx
			}
			vertices[vIdx].InEdges = append(vertices[vIdx].InEdges, ie)
		}
	}

	return vertices
}
