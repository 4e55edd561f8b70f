package dict

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"github.com/ValentinKolb/rDict/cmd/util"
	"github.com/ValentinKolb/rDict/lib/common"
	"github.com/ValentinKolb/rDict/lib/dict"
	vmetrics "github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dictionaries",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfOpsPerThread     = 1000
	perfSkip             = make([]string, 0)

	// perfPercentiles are reported for every test
	perfPercentiles = []float64{0.5, 0.95, 0.99}
)

// perfTest is one benchmark. op is called with the dictionary of the calling thread.
// setup and cleanup run once with the dictionary of the first thread.
type perfTest struct {
	name    string
	setup   func(d dict.IDict, keys []string) error
	op      func(ctx context.Context, d dict.IDict, key string) error
	cleanup bool
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark, every thread uses its own connection"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("Number of operations per thread and test"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "metrics"
	perfTestCmd.Flags().Bool(key, false, util.WrapString("Print the collected operation metrics in the prometheus text format"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfOpsPerThread = max(viper.GetInt("ops"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func perfTests() []perfTest {
	largeValue := strings.Repeat("x", perfLargeValueSizeKB*1024)
	fill := func(d dict.IDict, keys []string) error {
		return d.FromKeys(context.Background(), keys, "test")
	}

	return []perfTest{
		{
			name: "set",
			op: func(ctx context.Context, d dict.IDict, key string) error {
				return d.Set(ctx, key, "test")
			},
			cleanup: true,
		},
		{
			name: "set-large",
			op: func(ctx context.Context, d dict.IDict, key string) error {
				return d.Set(ctx, key, largeValue)
			},
			cleanup: true,
		},
		{
			name:  "get",
			setup: fill,
			op: func(ctx context.Context, d dict.IDict, key string) error {
				_, err := d.Get(ctx, key)
				return err
			},
			cleanup: true,
		},
		{
			name:  "has",
			setup: fill,
			op: func(ctx context.Context, d dict.IDict, key string) error {
				_, err := d.Contains(ctx, key)
				return err
			},
			cleanup: true,
		},
		{
			name: "setdefault",
			op: func(ctx context.Context, d dict.IDict, key string) error {
				_, err := d.SetDefault(ctx, key, 0)
				return err
			},
			cleanup: true,
		},
		{
			name:  "pop",
			setup: fill,
			op: func(ctx context.Context, d dict.IDict, key string) error {
				// absent keys are expected once a key was popped by another thread
				_, err := d.PopOr(ctx, key, nil)
				return err
			},
			cleanup: true,
		},
		{
			name: "pipeline",
			op: func(ctx context.Context, d dict.IDict, key string) error {
				return d.Pipeline(ctx, func() error {
					for i := 0; i < 10; i++ {
						if err := d.Set(ctx, fmt.Sprintf("%s-%d", key, i), i); err != nil {
							return err
						}
					}
					return nil
				})
			},
			cleanup: true,
		},
		{
			name:  "mixed",
			setup: fill,
			op: func() func(ctx context.Context, d dict.IDict, key string) error {
				var counter atomic.Int64
				return func(ctx context.Context, d dict.IDict, key string) error {
					var err error
					switch counter.Add(1) % 4 {
					case 0: // set
						err = d.Set(ctx, key, "test")
					case 1: // get
						_, err = d.Get(ctx, key)
					case 2: // delete
						err = d.Delete(ctx, key)
					case 3: // has
						_, err = d.Contains(ctx, key)
					}
					if errors.Is(err, common.ErrKeyNotFound) {
						return nil
					}
					return err
				}
			}(),
			cleanup: true,
		},
	}
}

func run(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for dictionaries")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetRedisConfig().String())
	fmt.Println(util.GetDictConfig().String())
	fmt.Printf("Threads: %d, Operations per thread: %d\n", perfNumThreads, perfOpsPerThread)
	fmt.Println()

	// every thread needs its own dictionary, dictionaries are not safe for concurrent use
	dicts := make([]dict.IDict, 0, perfNumThreads)
	defer func() {
		for _, d := range dicts {
			_ = d.Close()
		}
	}()
	for i := 0; i < perfNumThreads; i++ {
		d, err := util.OpenDict()
		if err != nil {
			return err
		}
		dicts = append(dicts, d)
	}

	fmt.Println("starting tests...")

	registry := gometrics.NewRegistry()
	results := make(map[string]gometrics.Timer)
	spreads := make(map[string]threadStats)

	for _, test := range perfTests() {
		if shouldSkip(test.name) {
			printSkipped(test.name)
			continue
		}
		timer := gometrics.GetOrRegisterTimer(test.name, registry)
		elapsed, spread := runPerfTest(test, dicts, timer)
		results[test.name] = timer
		spreads[test.name] = spread
		printResult(test.name, timer, elapsed, spread)
	}

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, spreads, util.GetRedisConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	if viper.GetBool("metrics") {
		fmt.Println()
		vmetrics.WritePrometheus(os.Stdout, false)
	}

	return nil
}

// runPerfTest runs a test on all threads and returns the wall clock time of the run
// and the spread of the throughput over the threads
func runPerfTest(test perfTest, dicts []dict.IDict, timer gometrics.Timer) (time.Duration, threadStats) {
	ctx := context.Background()
	keys := getKeys(test.name)

	if test.setup != nil {
		if err := test.setup(dicts[0], keys); err != nil {
			log.Printf("(%s) - error preparing keys: %v\n", test.name, err)
		}
	}
	if test.cleanup {
		defer cleanupKeys(ctx, dicts[0], test.name)
	}

	opsPerSec := make([]float64, len(dicts))
	start := time.Now()
	var wg sync.WaitGroup
	for thread, d := range dicts {
		wg.Add(1)
		go func(thread int, d dict.IDict) {
			defer wg.Done()
			threadStart := time.Now()
			defer func() {
				opsPerSec[thread] = float64(perfOpsPerThread) / max(time.Since(threadStart).Seconds(), 1e-9)
			}()
			for i := 0; i < perfOpsPerThread; i++ {
				key := keys[(thread*perfOpsPerThread+i)%perfKeySpread]
				var err error
				timer.Time(func() {
					err = test.op(ctx, d, key)
				})
				if err != nil {
					log.Printf("(%s) - error performing operation: %v\n", test.name, err)
				}
			}
		}(thread, d)
	}
	wg.Wait()
	return time.Since(start), newThreadStats(opsPerSec)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// cleanupKeys deletes every key a test created
func cleanupKeys(ctx context.Context, d dict.IDict, test string) {
	prefix := fmt.Sprintf("%s-%s-", perfKeyPrefix, test)

	_, err := d.MultiDel(ctx, prefix)
	if !errors.Is(err, common.ErrNotSupported) {
		if err != nil {
			log.Printf("(%s) - error deleting keys: %v\n", test, err)
		}
		return
	}

	// the ordered dictionary has no prefix queries, its keys are listed instead
	var keys []string
	for k, err := range d.Keys(ctx) {
		if err != nil {
			log.Printf("(%s) - error listing keys: %v\n", test, err)
			return
		}
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		if err := d.Delete(ctx, k); err != nil && !errors.Is(err, common.ErrKeyNotFound) {
			log.Printf("(%s) - error deleting key: %v\n", test, err)
		}
	}
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// getKeys creates the test keys of a test
func getKeys(prefix string) []string {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}
	return keys
}

func printSkipped(test string) {
	fmt.Printf("%-14sskipped\n", test)
}

// printResult prints the result of a test in a formatted way
func printResult(test string, timer gometrics.Timer, elapsed time.Duration, spread threadStats) {
	s := timer.Snapshot()
	ps := s.Percentiles(perfPercentiles)
	opsPerSec := float64(s.Count()) / max(elapsed.Seconds(), 1e-9)

	fmt.Printf("%-14s%8d ops  mean %-12s p50 %-12s p95 %-12s p99 %-12s %.0f ops/sec (threads: min %.0f, max %.0f, stddev %.0f)\n",
		test,
		s.Count(),
		time.Duration(s.Mean()),
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		time.Duration(ps[2]),
		opsPerSec,
		spread.Min,
		spread.Max,
		spread.StdDeviation,
	)
}

// writeResultsToCSV writes the test results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]gometrics.Timer, spreads map[string]threadStats, config *common.RedisConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "Count", "MeanNs", "P50Ns", "P95Ns", "P99Ns", "MaxNs", "Rate1",
		"ThreadOpsMin", "ThreadOpsMax", "ThreadOpsStdDev", "ThreadMinMaxRatio",
		"Addrs", "TimeoutSec", "RetryCount", "Namespace", "Ordered",
		"Threads", "OpsPerThread", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	dictConfig := util.GetDictConfig()

	// Write test results
	for test, timer := range results {
		s := timer.Snapshot()
		ps := s.Percentiles(perfPercentiles)
		spread := spreads[test]

		row := []string{
			test,
			strconv.FormatInt(s.Count(), 10),
			fmt.Sprintf("%.0f", s.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			fmt.Sprintf("%.0f", ps[2]),
			strconv.FormatInt(s.Max(), 10),
			fmt.Sprintf("%.2f", s.Rate1()),
			fmt.Sprintf("%.2f", spread.Min),
			fmt.Sprintf("%.2f", spread.Max),
			fmt.Sprintf("%.2f", spread.StdDeviation),
			fmt.Sprintf("%.4f", spread.MinMaxRatio),
			strings.Join(config.Addrs, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			dictConfig.Namespace,
			strconv.FormatBool(dictConfig.Ordered),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfOpsPerThread),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
