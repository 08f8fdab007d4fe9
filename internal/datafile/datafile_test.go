package datafile

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/screenager/annd/internal/nndescent"
	"github.com/screenager/annd/internal/vector"
)

func writeFvecs(t *testing.T, path string, rows [][]float32) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	for _, row := range rows {
		if err := binary.Write(f, binary.LittleEndian, int32(len(row))); err != nil {
			t.Fatal(err)
		}
		for _, v := range row {
			if err := binary.Write(f, binary.LittleEndian, math.Float32bits(v)); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func TestReadFvecsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.fvecs")
	rows := [][]float32{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
	}
	writeFvecs(t, path, rows)

	ds, err := ReadFvecs(path)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 3 || ds.Dim() != 3 {
		t.Fatalf("got len=%d dim=%d, want 3,3", ds.Len(), ds.Dim())
	}
	if got := ds.At(1).Data(); got[0] != 4 || got[1] != 5 || got[2] != 6 {
		t.Errorf("row 1 mismatch: %v", got)
	}
}

func TestReadFvecsRejectsDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.fvecs")
	writeFvecs(t, path, [][]float32{{1, 2}, {1, 2, 3}})

	if _, err := ReadFvecs(path); err == nil {
		t.Fatal("expected error for inconsistent row dimension")
	}
}

func TestReadFvecsMissingFile(t *testing.T) {
	if _, err := ReadFvecs(filepath.Join(t.TempDir(), "absent.fvecs")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWriteGraphEmitsOneLinePerPoint(t *testing.T) {
	ds, err := vector.NewDataset([]float32{0, 0, 1, 0, 0, 1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	g, err := nndescent.NewBuilder().
		WithData(ds).WithNNeighbors(1).WithSeed(1).
		Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteGraph(&buf, g); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 NDJSON lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"id":0`) {
		t.Errorf("expected first line to carry id 0, got %q", lines[0])
	}
}
