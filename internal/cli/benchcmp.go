package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

const defaultRegressionThreshold = 0.30

// trackedBenchmarks lists the engine benchmarks compared by benchcmp and the
// units checked for each.
var trackedBenchmarks = map[string][]string{
	"BenchmarkSignIn":          {"ns/op", "allocs/op"},
	"BenchmarkSignInThrottled": {"ns/op"},
	"BenchmarkResetCycle":      {"ns/op"},
	"BenchmarkSessionExpiry":   {"ns/op", "allocs/op"},
}

// benchSamples maps benchmark name to unit to samples.
type benchSamples map[string]map[string][]float64

// NewBenchcmpCmd creates the "benchcmp" subcommand. It compares two
// "go test -bench" outputs and fails when a tracked median regressed past
// the threshold.
func NewBenchcmpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchcmp",
		Short: "Compare engine benchmark runs and flag regressions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			baselinePath, _ := cmd.Flags().GetString("baseline")
			candidatePath, _ := cmd.Flags().GetString("candidate")
			threshold, _ := cmd.Flags().GetFloat64("threshold")
			if baselinePath == "" || candidatePath == "" {
				return fmt.Errorf("--baseline and --candidate are required")
			}
			if threshold < 0 {
				return fmt.Errorf("--threshold must be >= 0")
			}

			baseline, err := readBenchFile(baselinePath)
			if err != nil {
				return fmt.Errorf("parse baseline: %w", err)
			}
			candidate, err := readBenchFile(candidatePath)
			if err != nil {
				return fmt.Errorf("parse candidate: %w", err)
			}

			failures := compareBench(cmd.OutOrStdout(), baseline, candidate, threshold)
			if len(failures) > 0 {
				errOut := cmd.ErrOrStderr()
				fmt.Fprintln(errOut, "performance regression threshold exceeded:")
				for _, f := range failures {
					fmt.Fprintf(errOut, "  - %s\n", f)
				}
				return exitError(ExitRegression, "%d benchmark regressions", len(failures))
			}
			return nil
		},
	}
	cmd.Flags().String("baseline", "", "baseline benchmark output")
	cmd.Flags().String("candidate", "", "candidate benchmark output")
	cmd.Flags().Float64("threshold", defaultRegressionThreshold, "maximum allowed regression ratio (0.30 = +30%)")
	return cmd
}

func compareBench(w io.Writer, baseline, candidate benchSamples, threshold float64) []string {
	names := make([]string, 0, len(trackedBenchmarks))
	for name := range trackedBenchmarks {
		names = append(names, name)
	}
	slices.Sort(names)

	var failures []string
	fmt.Fprintln(w, "benchmark unit baseline candidate delta")
	for _, name := range names {
		for _, unit := range trackedBenchmarks[name] {
			base, cand := baseline[name][unit], candidate[name][unit]
			if len(base) == 0 || len(cand) == 0 {
				failures = append(failures, fmt.Sprintf("missing samples for %s %s", name, unit))
				continue
			}
			baseMedian, candMedian := median(base), median(cand)
			if baseMedian <= 0 {
				// 0 allocs/op: any allocation is a regression.
				if candMedian > 0 {
					failures = append(failures, fmt.Sprintf("%s %s went from 0 to %.0f", name, unit, candMedian))
				}
				continue
			}

			delta := (candMedian - baseMedian) / baseMedian
			fmt.Fprintf(w, "%s %s %.3f %.3f %+0.2f%%\n", name, unit, baseMedian, candMedian, delta*100)
			if delta > threshold {
				failures = append(failures, fmt.Sprintf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)", name, unit, delta*100, threshold*100))
			}
		}
	}
	return failures
}

func readBenchFile(path string) (benchSamples, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseBench(f)
}

func parseBench(r io.Reader) (benchSamples, error) {
	samples := benchSamples{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "Benchmark") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		name := trimGOMAXPROCS(fields[0])
		if _, ok := trackedBenchmarks[name]; !ok {
			continue
		}
		if samples[name] == nil {
			samples[name] = map[string][]float64{}
		}
		// fields[1] is the iteration count; value/unit pairs follow.
		for i := 2; i+1 < len(fields); i += 2 {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			samples[name][fields[i+1]] = append(samples[name][fields[i+1]], v)
		}
	}
	return samples, scanner.Err()
}

func trimGOMAXPROCS(raw string) string {
	if i := strings.LastIndexByte(raw, '-'); i > 0 {
		if _, err := strconv.Atoi(raw[i+1:]); err == nil {
			return raw[:i]
		}
	}
	return raw
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
