package datafile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/screenager/annd/internal/nndescent"
)

// graphRow is one line of NDJSON output: a point id and its neighbour list
// (ascending by distance from WriteGraph, heap order from WriteGraphUnsorted).
type graphRow struct {
	ID        uint32               `json:"id"`
	Neighbors []nndescent.Neighbor `json:"neighbors"`
}

// WriteGraph writes g as newline-delimited JSON, one graphRow per point,
// each point's neighbours sorted ascending by distance. This is output,
// not a reloadable index — there is deliberately no matching ReadGraph.
func WriteGraph(w io.Writer, g *nndescent.Graph) error {
	return writeGraphRows(w, g, true)
}

// WriteGraphUnsorted is WriteGraph without the ascending post-processing
// pass, emitting each point's neighbours in the heap's own (unspecified)
// order — the cheaper choice when a caller only wants the graph, not a
// particular presentation order. annd build uses it only with --sort=false.
func WriteGraphUnsorted(w io.Writer, g *nndescent.Graph) error {
	return writeGraphRows(w, g, false)
}

func writeGraphRows(w io.Writer, g *nndescent.Graph, sorted bool) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	emit := func(p int, neighbors []nndescent.Neighbor) error {
		row := graphRow{ID: uint32(p), Neighbors: neighbors}
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("datafile: encoding row %d: %w", p, err)
		}
		return nil
	}

	if sorted {
		for p, neighbors := range g.SortedGraph() {
			if err := emit(p, neighbors); err != nil {
				return err
			}
		}
	} else {
		for p := 0; p < g.N(); p++ {
			recs := g.Neighbors(uint32(p))
			neighbors := make([]nndescent.Neighbor, len(recs))
			for i, r := range recs {
				neighbors[i] = nndescent.Neighbor{ID: r.ID, Distance: r.Distance}
			}
			if err := emit(p, neighbors); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
