package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/grafana/decaystats/decay"
	"github.com/grafana/decaystats/digestio"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var mergeCmd = &cobra.Command{
	Use:   "merge -o OUT FILE...",
	Short: "Merge every digest of the given streams into a single digest",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var all []*decay.Digest
		for _, fname := range args {
			digests, err := readFile(fname)
			if err != nil {
				return err
			}
			all = append(all, digests...)
		}
		var out io.Writer = os.Stdout
		if mergeOut != "-" {
			f, err := os.Create(mergeOut)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		merged, err := mergeTo(out, all)
		if err != nil {
			return err
		}
		log.Infof("merged %d digests from %d files: count %g landmark %d", len(all), len(args), merged.Count(), merged.Landmark())
		return nil
	},
}

var mergeOut string

func init() {
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().StringVarP(&mergeOut, "out", "o", "-", "output file. - for stdout")
}

// mergeTo merges digests and writes the result as a single entry stream.
func mergeTo(out io.Writer, digests []*decay.Digest) (*decay.Digest, error) {
	merged, err := digestio.Merge(digests...)
	if err != nil {
		return nil, err
	}
	w := digestio.NewWriter(out)
	if err := w.Write(merged); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close: %w", err)
	}
	return merged, nil
}
