// Command annd builds an approximate K-nearest-neighbour graph over a
// vector dataset using RP-forest-bootstrapped NN-Descent. Structured the
// way cmd/sift drives internal/hnsw: a cobra root command, flag defaults
// seeded from an optional dotfile, subcommands that open a dataset, run the
// pipeline, and report progress to stderr.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/screenager/annd/internal/config"
	"github.com/screenager/annd/internal/datafile"
	"github.com/screenager/annd/internal/kernel/scalar"
	"github.com/screenager/annd/internal/nndescent"
	"github.com/screenager/annd/internal/progress"
	"github.com/screenager/annd/internal/rebuildwatch"
	"github.com/screenager/annd/internal/vector"
)

const defaultConfigFile = ".annd.toml"

func main() {
	root := &cobra.Command{
		Use:   "annd",
		Short: "Build approximate K-NN graphs with RP-forest-bootstrapped NN-Descent",
		Long:  "annd — builds an approximate nearest-neighbour graph over a static vector dataset.",
	}

	cfg, _ := config.Load(defaultConfigFile)

	var (
		flagK        int
		flagMetric   string
		flagNTrees   int
		flagLeafSize int
		flagNThreads int
		flagSeed     int64
		flagMaxIters int
		flagDelta    float64
		flagRho      float64
	)
	root.PersistentFlags().IntVar(&flagK, "k", orDefault(cfg.K, 10), "neighbourhood size")
	root.PersistentFlags().StringVar(&flagMetric, "metric", orDefaultStr(cfg.Metric, "squared_euclidean"), "distance metric: squared_euclidean|cosine|dot|angular")
	root.PersistentFlags().IntVar(&flagNTrees, "n-trees", cfg.NTrees, "RP-forest tree count (0 = derive from dataset size)")
	root.PersistentFlags().IntVar(&flagLeafSize, "leaf-size", cfg.LeafSize, "RP-forest leaf bucket cap (0 = derive from k)")
	root.PersistentFlags().IntVar(&flagNThreads, "n-threads", orDefault(cfg.NThreads, 4), "worker thread count")
	root.PersistentFlags().Int64Var(&flagSeed, "seed", orDefault64(cfg.Seed, 1), "RNG seed")
	root.PersistentFlags().IntVar(&flagMaxIters, "max-iters", orDefault(cfg.MaxIters, 10), "maximum NN-Descent iterations")
	root.PersistentFlags().Float64Var(&flagDelta, "delta", orDefaultF(cfg.Delta, 0.001), "convergence fraction")
	root.PersistentFlags().Float64Var(&flagRho, "rho", orDefaultF(cfg.Rho, 0.5), "per-iteration sampling rate")

	newBuilder := func(ds *vector.Dataset) (*nndescent.Builder, error) {
		metric, err := vector.ParseMetric(flagMetric)
		if err != nil {
			return nil, err
		}
		b := nndescent.NewBuilder().
			WithData(ds).
			WithMetric(metric).
			WithNNeighbors(flagK).
			WithNThreads(flagNThreads).
			WithSeed(flagSeed).
			WithMaxIters(flagMaxIters).
			WithDelta(flagDelta).
			WithRho(flagRho)
		if flagNTrees > 0 {
			b = b.WithNTrees(flagNTrees)
		}
		if flagLeafSize > 0 {
			b = b.WithLeafSize(flagLeafSize)
		}
		return b, nil
	}

	var (
		useTUI   bool
		sortFlag bool
		outPath  string
	)

	buildCmd := &cobra.Command{
		Use:   "build <dataset.fvecs>",
		Short: "Run the full pipeline over a dataset and emit the resulting graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ds, err := datafile.ReadFvecs(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Loaded %d points of dimension %d.\n", ds.Len(), ds.Dim())

			b, err := newBuilder(ds)
			if err != nil {
				return err
			}

			var g *nndescent.Graph
			if useTUI {
				g, err = progress.Run(ds.Len(), flagK, flagMaxIters, func(p nndescent.ProgressFunc) (*nndescent.Graph, error) {
					return b.WithProgress(p).Build(ctx)
				})
			} else {
				b = b.WithProgress(makeProgressPrinter())
				g, err = b.Build(ctx)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, "Done.")

			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("annd: creating %s: %w", outPath, err)
				}
				defer f.Close()
				out = f
			}
			if sortFlag {
				return datafile.WriteGraph(out, g)
			}
			return datafile.WriteGraphUnsorted(out, g)
		},
	}
	buildCmd.Flags().BoolVar(&useTUI, "tui", false, "show a live build-progress UI instead of plain stderr lines")
	buildCmd.Flags().BoolVar(&sortFlag, "sort", true, "sort each point's neighbours ascending by distance in the output")
	buildCmd.Flags().StringVar(&outPath, "out", "", "output file for the NDJSON graph (default: stdout)")
	root.AddCommand(buildCmd)

	root.AddCommand(&cobra.Command{
		Use:   "watch <dataset.fvecs>",
		Short: "Build once, then rebuild on every subsequent change to the dataset file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runOnce := func() error {
				ds, err := datafile.ReadFvecs(args[0])
				if err != nil {
					return err
				}
				b, err := newBuilder(ds)
				if err != nil {
					return err
				}
				b = b.WithProgress(makeProgressPrinter())
				g, err := b.Build(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Done. %d points, k=%d.\n", ds.Len(), flagK)
				out := os.Stdout
				if outPath != "" {
					f, err := os.Create(outPath)
					if err != nil {
						return fmt.Errorf("annd: creating %s: %w", outPath, err)
					}
					defer f.Close()
					out = f
				}
				return datafile.WriteGraph(out, g)
			}

			if err := runOnce(); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, "Watching for changes… (Ctrl+C to stop)")

			w, err := rebuildwatch.New(args[0], runOnce)
			if err != nil {
				return err
			}
			done := make(chan struct{})
			go func() {
				<-ctx.Done()
				close(done)
			}()
			return w.Watch(done)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "bench",
		Short: "Benchmark the scalar kernel backend on synthetic vectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			k := scalar.New()
			sizes := []struct {
				label string
				dim   int
			}{
				{"small  (32-d)  ", 32},
				{"medium (128-d) ", 128},
				{"large  (768-d) ", 768},
			}

			fmt.Printf("%-18s  %10s  %10s  %10s\n", "vector size", "dot", "sq_eucl", "cosine")
			fmt.Println(strings.Repeat("─", 55))
			for _, sz := range sizes {
				x := syntheticVector(sz.dim, 1)
				y := syntheticVector(sz.dim, 2)

				dot := timeIt(1000, func() { k.Dot(x, y) })
				sq := timeIt(1000, func() { k.SquaredEuclidean(x, y) })
				cos := timeIt(1000, func() { k.Cosine(x, y) })

				fmt.Printf("%-18s  %10s  %10s  %10s\n", sz.label,
					dot.Round(time.Microsecond), sq.Round(time.Microsecond), cos.Round(time.Microsecond))
			}
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orDefault64(v, def int64) int64 {
	if v > 0 {
		return v
	}
	return def
}

func orDefaultF(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

func orDefaultStr(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func syntheticVector(dim int, seed int64) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32((int(seed)*31+i*7)%101) / 101
	}
	return v
}

func timeIt(n int, fn func()) time.Duration {
	start := time.Now()
	for i := 0; i < n; i++ {
		fn()
	}
	return time.Since(start) / time.Duration(n)
}

// makeProgressPrinter mirrors cmd/sift's makeProgressPrinter idiom: a
// compact, overwritten stderr status line, no structured logging library.
func makeProgressPrinter() nndescent.ProgressFunc {
	return func(iteration int, accepted int64, elapsed time.Duration) {
		fmt.Fprintf(os.Stderr, "\r  iteration %3d   accepted %6d   %s", iteration, accepted, elapsed.Round(time.Millisecond))
		if accepted == 0 {
			fmt.Fprintln(os.Stderr)
		}
	}
}
