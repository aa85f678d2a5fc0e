// Package adjio parses the adjacency-list text format: a header line of
// "<num_vertices> <num_edges>" followed by one line per source vertex of "(dest capacity)"
// pairs, in the bufio.Scanner + strings.Fields scanning style used throughout this
// codebase's other readers.
package adjio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ashgrover/distflow/partition"
)

// Load reads the adjacency-list file at path into a partition.RawGraph. Vertex 0 is the
// source and vertex numVertices-1 is the sink.
func Load(path string) (*partition.RawGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("adjio: open %s: %w", path, err)
	}
	defer f.Close()
	return parse(f)
}

func parse(r io.Reader) (*partition.RawGraph, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("adjio: empty input, expected header line")
	}
	header := strings.Fields(scanner.Text())
	if len(header) != 2 {
		return nil, fmt.Errorf("adjio: malformed header %q, want \"<num_vertices> <num_edges>\"", scanner.Text())
	}
	numVertices, err := strconv.ParseUint(header[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("adjio: bad vertex count %q: %w", header[0], err)
	}
	numEdges, err := strconv.ParseUint(header[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("adjio: bad edge count %q: %w", header[1], err)
	}
	if numVertices < 2 {
		return nil, fmt.Errorf("adjio: graph needs at least a source and a sink, got %d vertices", numVertices)
	}

	g := &partition.RawGraph{
		NumVertices: numVertices,
		Source:      0,
		Sink:        numVertices - 1,
		OutEdges:    make([][]partition.RawEdge, numVertices),
	}

	seen := uint64(0)
	for src := uint64(0); src < numVertices; src++ {
		if !scanner.Scan() {
			return nil, fmt.Errorf("adjio: expected an adjacency line for vertex %d, ran out of input", src)
		}
		fields := strings.Fields(strings.NewReplacer("(", " ", ")", " ", ",", " ").Replace(scanner.Text()))
		if len(fields)%2 != 0 {
			return nil, fmt.Errorf("adjio: vertex %d adjacency line has an odd number of fields: %q", src, scanner.Text())
		}
		for i := 0; i < len(fields); i += 2 {
			dest, err := strconv.ParseUint(fields[i], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("adjio: vertex %d: bad dest %q: %w", src, fields[i], err)
			}
			capacity, err := strconv.ParseInt(fields[i+1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("adjio: vertex %d: bad capacity %q: %w", src, fields[i+1], err)
			}
			if dest >= numVertices {
				return nil, fmt.Errorf("adjio: vertex %d: dest %d out of range [0,%d)", src, dest, numVertices)
			}
			g.OutEdges[src] = append(g.OutEdges[src], partition.RawEdge{Dest: dest, Capacity: capacity})
			seen++
		}
	}
	if seen != numEdges {
		return nil, fmt.Errorf("adjio: header promised %d edges, found %d", numEdges, seen)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("adjio: scan: %w", err)
	}
	return g, nil
}
