// Package store holds one worker's partition of the graph: its vertices, their
// out/in-edge lists, and the residual flow carried on each out-edge.
//
// The store exclusively owns its vertex and edge arrays.
// The global id -> local index map is immutable after load and safe to read from any
// thread without locking.
package store

import "math"

// NoLocal marks an edge endpoint that is not co-located on this worker.
const NoLocal = ^uint32(0)

// OutEdge is stored on the source vertex's worker.
type OutEdge struct {
	DestGlobal uint64
	DestWorker int
	DestLocal  uint32 // NoLocal if the destination is not co-located
	Capacity   int64  // immutable after load
	Flow       int64  // mutated only during step 3 of an iteration
}

// InEdge is a reverse reference stored on the destination vertex's worker. It carries
// no independent flow -- the flow of (u,v) is authoritative on u's worker.
type InEdge struct {
	SrcGlobal uint64
	SrcWorker int
	SrcLocal  uint32 // NoLocal if the source is not co-located
}

// Vertex is one worker-local vertex.
type Vertex struct {
	GlobalID uint64
	OutEdges []OutEdge
	InEdges  []InEdge
}

// Store is a worker's partition of the graph.
type Store struct {
	WorkerID  int
	Vertices  []Vertex
	globalIdx map[uint64]uint32 // global id -> local index, immutable after New
}

// New builds a Store from the given vertices. The global-to-local map is built once and
// never mutated afterwards.
func New(workerID int, vertices []Vertex) *Store {
	s := &Store{
		WorkerID:  workerID,
		Vertices:  vertices,
		globalIdx: make(map[uint64]uint32, len(vertices)),
	}
	for i := range vertices {
		s.globalIdx[vertices[i].GlobalID] = uint32(i)
	}
	return s
}

// Lookup resolves a global id to this worker's local index, if co-located. O(1) expected.
func (s *Store) Lookup(globalID uint64) (uint32, bool) {
	idx, ok := s.globalIdx[globalID]
	return idx, ok
}

// Vertex returns the vertex at the given local index.
func (s *Store) Vertex(localIndex uint32) *Vertex {
	return &s.Vertices[localIndex]
}

// NumVertices returns the number of locally-owned vertices.
func (s *Store) NumVertices() int {
	return len(s.Vertices)
}

// OutEdgeAt returns the out-edge at edgeIndex for the given vertex; InEdgeAt returns the
// in-edge. An in-edge carries only the fields needed to resolve its source.
func (s *Store) OutEdgeAt(localIndex uint32, edgeIndex int) *OutEdge {
	return &s.Vertices[localIndex].OutEdges[edgeIndex]
}

func (s *Store) InEdgeAt(localIndex uint32, edgeIndex int) *InEdge {
	return &s.Vertices[localIndex].InEdges[edgeIndex]
}

// SetFlowDelta scans the local out-edge list of localIndex for an out-edge to
// destGlobal, and applies delta to its Flow. If no matching out-edge exists -- because
// the local vertex is actually the *destination* of the conceptual edge, and the flow
// lives on the other endpoint's worker -- this is a silent no-op.
// This tolerance is required because back-track messages are addressed to the next hop,
// which may be either endpoint of the edge.
func (s *Store) SetFlowDelta(localIndex uint32, destGlobal uint64, delta int64) {
	v := &s.Vertices[localIndex]
	for i := range v.OutEdges {
		if v.OutEdges[i].DestGlobal == destGlobal {
			v.OutEdges[i].Flow += delta
			return
		}
	}
}

// FlowTo returns the current flow and capacity of the local out-edge to destGlobal,
// and whether such an out-edge exists locally.
func (s *Store) FlowTo(localIndex uint32, destGlobal uint64) (flow int64, capacity int64, ok bool) {
	v := &s.Vertices[localIndex]
	for i := range v.OutEdges {
		if v.OutEdges[i].DestGlobal == destGlobal {
			return v.OutEdges[i].Flow, v.OutEdges[i].Capacity, true
		}
	}
	return 0, 0, false
}

// Infinity is the label value assigned to the source at the start of each iteration.
const Infinity = int64(math.MaxInt64)
