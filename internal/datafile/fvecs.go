// Package datafile is the CLI-only edge that turns a file on disk into a
// vector.Dataset and a completed graph back into bytes. Spec.md keeps
// general tensor/dataset-file parsing out of the core's scope; this package
// is deliberately the one place that scope boundary is crossed, kept as
// shallow as the format allows.
package datafile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/screenager/annd/internal/vector"
)

// ReadFvecs reads the widely-used ANN-benchmark ".fvecs" layout: a stream
// of vectors, each prefixed by a little-endian int32 giving its
// dimensionality, followed by that many little-endian float32 components,
// repeated until EOF. Every vector must share the first vector's
// dimensionality; a mismatch is reported as a read error rather than
// silently truncated or padded.
func ReadFvecs(path string) (*vector.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("datafile: opening %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var dim int
	var flat []float32

	for i := 0; ; i++ {
		var rowDim int32
		err := binary.Read(r, binary.LittleEndian, &rowDim)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("datafile: %s: reading dimension of row %d: %w", path, i, err)
		}
		if i == 0 {
			dim = int(rowDim)
			if dim <= 0 {
				return nil, fmt.Errorf("datafile: %s: non-positive dimension %d", path, dim)
			}
		} else if int(rowDim) != dim {
			return nil, fmt.Errorf("datafile: %s: row %d has dimension %d, expected %d", path, i, rowDim, dim)
		}

		row := make([]float32, dim)
		for j := 0; j < dim; j++ {
			var bits uint32
			if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
				return nil, fmt.Errorf("datafile: %s: reading row %d component %d: %w", path, i, j, err)
			}
			row[j] = math.Float32frombits(bits)
		}
		flat = append(flat, row...)
	}

	if len(flat) == 0 {
		return nil, fmt.Errorf("datafile: %s: no vectors found", path)
	}

	ds, err := vector.NewDataset(flat, dim)
	if err != nil {
		return nil, fmt.Errorf("datafile: %s: %w", path, err)
	}
	return ds, nil
}
