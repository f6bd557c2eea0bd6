package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/benbjohnson/clock"
	"github.com/davecgh/go-spew/spew"
	"github.com/grafana/decaystats/decay"
	"github.com/grafana/decaystats/digestio"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE...",
	Short: "Print count, extremes and quantiles of every digest in the given streams",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quantiles, err := parseQuantiles(inspectQuantiles)
		if err != nil {
			return err
		}
		for _, fname := range args {
			digests, err := readFile(fname)
			if err != nil {
				return err
			}
			log.Debugf("inspect: %s holds %d digests", fname, len(digests))
			if err := printDigests(os.Stdout, fname, digests, quantiles); err != nil {
				return err
			}
			if inspectDump {
				for _, d := range digests {
					spew.Fdump(os.Stdout, d.Envelope())
				}
			}
		}
		return nil
	},
}

var (
	inspectQuantiles []string
	inspectDump      bool
)

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringSliceVarP(&inspectQuantiles, "quantile", "q", []string{"0.5", "0.9", "0.99"}, "quantiles to print")
	inspectCmd.Flags().BoolVar(&inspectDump, "dump", false, "also dump the raw envelopes")
}

func parseQuantiles(in []string) ([]float64, error) {
	out := make([]float64, 0, len(in))
	for _, s := range in {
		q, err := strconv.ParseFloat(s, 64)
		if err != nil || q < 0 || q > 1 {
			return nil, fmt.Errorf("invalid quantile %q: must be a number in [0, 1]", s)
		}
		out = append(out, q)
	}
	return out, nil
}

func readFile(fname string) ([]*decay.Digest, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	digests, err := digestio.NewReader(f, clock.New()).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	return digests, nil
}

func printDigests(out io.Writer, fname string, digests []*decay.Digest, quantiles []float64) error {
	tw := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprint(tw, "file\t#\talpha\tlandmark\tcentroids\tcount\tmin\tmax")
	for _, q := range quantiles {
		fmt.Fprintf(tw, "\tq%g", q)
	}
	fmt.Fprintln(tw)
	for i, d := range digests {
		fmt.Fprintf(tw, "%s\t%d\t%g\t%d\t%d\t%g\t%g\t%g", fname, i, d.Alpha(), d.Landmark(), d.CentroidCount(), d.Count(), d.Min(), d.Max())
		vals, err := d.ValuesAt(quantiles...)
		if err != nil {
			return err
		}
		for _, v := range vals {
			fmt.Fprintf(tw, "\t%g", v)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
