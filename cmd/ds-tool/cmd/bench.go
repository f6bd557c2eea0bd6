package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gosuri/uilive"
	"github.com/grafana/decaystats/distribution"
	log "github.com/sirupsen/logrus"
	"github.com/spenczar/tdigest"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Feed synthetic latencies through a TimeDistribution from many goroutines",
	Long: `Feed synthetic latencies through a TimeDistribution from many goroutines.
Latencies are exponentially distributed around --mean. Decay is disabled so the
result can be cross-checked against an independent t-digest fed the same samples.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if benchWorkers < 1 {
			return fmt.Errorf("workers must be >= 1")
		}
		ctx, cancel := context.WithTimeout(context.Background(), benchDuration)
		defer cancel()
		b, err := newBench(time.Millisecond, benchWorkers)
		if err != nil {
			return err
		}
		return b.run(ctx, benchMean, benchOut())
	},
}

var (
	benchWorkers  int
	benchDuration time.Duration
	benchMean     time.Duration
	benchQuiet    bool
)

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().IntVar(&benchWorkers, "workers", 8, "number of concurrent writers")
	benchCmd.Flags().DurationVar(&benchDuration, "duration", 10*time.Second, "how long to run")
	benchCmd.Flags().DurationVar(&benchMean, "mean", 5*time.Millisecond, "mean synthetic latency")
	benchCmd.Flags().BoolVar(&benchQuiet, "quiet", false, "only print the final report")
}

func benchOut() *uilive.Writer {
	w := uilive.New()
	w.RefreshInterval = 250 * time.Millisecond
	return w
}

var benchQuantiles = []float64{0.5, 0.9, 0.99, 0.999}

type bench struct {
	dist *distribution.TimeDistribution
	unit time.Duration

	// reference sketches fed the same samples, one per worker
	refs []*refSketch

	start time.Time
}

// refSketch is only contended between its worker and report.
type refSketch struct {
	sync.Mutex
	td    *tdigest.TDigest
	count int64
}

func newBench(unit time.Duration, workers int) (*bench, error) {
	// alpha 0: no decay, so both sketches see the same population
	dist, err := distribution.NewTimeDistributionWithClock(0, unit, clock.New())
	if err != nil {
		return nil, err
	}
	refs := make([]*refSketch, workers)
	for i := range refs {
		refs[i] = &refSketch{td: tdigest.New()}
	}
	return &bench{
		dist: dist,
		unit: unit,
		refs: refs,
	}, nil
}

func (b *bench) add(ref *refSketch, d time.Duration) {
	if err := b.dist.AddDuration(d); err != nil {
		log.Errorf("bench: %s", err)
		return
	}
	ref.Lock()
	ref.td.Add(float64(d)/float64(b.unit), 1)
	ref.count++
	ref.Unlock()
}

// reference merges the per worker sketches into a fresh one and returns it
// with the number of samples they were fed.
func (b *bench) reference() (*tdigest.TDigest, int64) {
	merged := tdigest.New()
	var count int64
	for _, ref := range b.refs {
		ref.Lock()
		ref.td.MergeInto(merged)
		count += ref.count
		ref.Unlock()
	}
	return merged, count
}

func (b *bench) worker(ctx context.Context, ref *refSketch, seed int64, mean time.Duration) error {
	r := rand.New(rand.NewSource(seed))
	for i := 0; ; i++ {
		// check for cancellation every so often, not on every sample
		if i%1024 == 0 {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
		}
		b.add(ref, time.Duration(r.ExpFloat64()*float64(mean)))
	}
}

func (b *bench) run(ctx context.Context, mean time.Duration, out *uilive.Writer) error {
	b.start = time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for i, ref := range b.refs {
		ref, seed := ref, int64(i)+1
		g.Go(func() error {
			return b.worker(ctx, ref, seed, mean)
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	out.Start()
	defer out.Stop()

	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			if !benchQuiet {
				b.report(out)
				out.Flush()
			}
		case err := <-done:
			b.dist.ForceMerge()
			b.report(out)
			fmt.Fprintf(out, "Finished in %v\n", time.Since(b.start))
			out.Flush()
			return err
		}
	}
}

// report writes throughput and the quantiles of both sketches, plus their
// relative difference.
func (b *bench) report(out io.Writer) {
	merged, count := b.reference()
	ref := make([]float64, len(benchQuantiles))
	for i, q := range benchQuantiles {
		ref[i] = merged.Quantile(q)
	}

	snap := b.dist.Snapshot()
	elapsed := time.Since(b.start).Seconds()
	w := tabwriter.NewWriter(out, 0, 0, 1, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintf(w, "samples\t%d\trate\t%.0f/s\tcount\t%.0f\tmax\t%.3f%s\t\n", count, float64(count)/elapsed, snap.Count, snap.Max, snap.Unit)
	fmt.Fprintln(w, "quantile\tdecaystats\treference\tdiff\t")
	for i, q := range benchQuantiles {
		v, err := b.dist.Percentile(q)
		if err != nil {
			v = math.NaN()
		}
		fmt.Fprintf(w, "p%g\t%.3f\t%.3f\t%.2f%%\t\n", q*100, v, ref[i], relDiff(v, ref[i])*100)
	}
	w.Flush()
}

func relDiff(a, b float64) float64 {
	if b == 0 {
		if a == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(a-b) / math.Abs(b)
}
