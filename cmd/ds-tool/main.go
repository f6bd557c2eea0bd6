// ds-tool inspects, merges and benchmarks decayed digests.
package main

import "github.com/grafana/decaystats/cmd/ds-tool/cmd"

func main() {
	cmd.Execute()
}
