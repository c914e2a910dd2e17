// Package main provides a performance benchmarking tool for the kpiroll CLI.
// It measures trend rollup times for every data file in a directory, once straight from the file
// and once from a SQLite store the file was imported into, running each test multiple times,
// treating the first successful run as cold and averaging the rest as warm,
// generating CSV output for performance analysis and documentation.
//
// Prerequisites:
// - kpiroll binary installed and available in PATH
// - KPI data files (.csv, .json or .parquet) in the specified directory
//
// Usage: go run benchmark/main.go [data-dir]
//
//	data-dir: Directory containing KPI data files
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (file average, store cold run and average of warm store runs).
type BenchmarkResult struct {
	DataFile    string
	Granularity string
	FileTime    string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	DataDir       string
	Timeout       time.Duration
	FileRuns      int
	StoreRuns     int
	Granularities []string
	DataFiles     []string
}

var dataExtensions = []string{".csv", ".json", ".parquet"}

func main() {
	// Parse command line arguments
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [data-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		DataDir:       os.Args[1],
		Timeout:       2 * time.Minute,
		FileRuns:      3,
		StoreRuns:     4,
		Granularities: []string{"monthly", "quarterly", "annual"},
	}

	if err := checkPrerequisites(&config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(config, results)
}

// checkPrerequisites verifies that the kpiroll binary and data files exist
func checkPrerequisites(config *BenchmarkConfig) error {
	if _, err := exec.LookPath("kpiroll"); err != nil {
		return fmt.Errorf("kpiroll binary not found in PATH")
	}

	entries, err := os.ReadDir(config.DataDir)
	if err != nil {
		return fmt.Errorf("data directory %s not readable: %w", config.DataDir, err)
	}
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !entry.IsDir() && slices.Contains(dataExtensions, ext) {
			config.DataFiles = append(config.DataFiles, entry.Name())
		}
	}
	if len(config.DataFiles) == 0 {
		return fmt.Errorf("no .csv, .json or .parquet files found in %s", config.DataDir)
	}
	return nil
}

// runBenchmarks executes all benchmark tests across the data files
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d files, %v timeout, file: %d runs, store: %d runs\n",
		len(config.DataFiles), config.Timeout, config.FileRuns, config.StoreRuns)

	for _, name := range config.DataFiles {
		fmt.Printf("Benchmarking %s\n", name)
		dataPath := filepath.Join(config.DataDir, name)

		storeDir, err := os.MkdirTemp("", "kpiroll-bench-")
		if err != nil {
			fmt.Printf("  Skipping %s: %v\n", name, err)
			continue
		}
		dbPath := filepath.Join(storeDir, "kpiroll.db")
		if output, err := runKpiroll(config, "store", "import", dataPath, "--store-backend", "sqlite", "--store-db-connect", dbPath); err != nil {
			fmt.Printf("  Warning: failed to import %s: %v\nOutput: %s\n", name, err, string(output))
		}

		for _, granularity := range config.Granularities {
			results = append(results, runBenchmarkSuite(config, name, dataPath, dbPath, granularity))
		}
		_ = os.RemoveAll(storeDir)
	}

	return results
}

// runBenchmarkSuite runs both the file and the store benchmarks for one granularity
func runBenchmarkSuite(config BenchmarkConfig, name, dataPath, dbPath, granularity string) BenchmarkResult {
	fmt.Printf("Running %s rollup on %s\n", granularity, name)

	// Helper to run a benchmark phase
	runPhase := func(args []string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, args, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	base := []string{"trends", "--granularity", granularity, "--output", "json"}

	// Phase 1: file runs, every run parses the file again
	fileArgs := append(slices.Clone(base), "--source", "file", "--file", dataPath)
	_, fileAvg := runPhase(fileArgs, config.FileRuns, "File")

	// Phase 2: store runs
	storeArgs := append(slices.Clone(base), "--source", "store", "--store-backend", "sqlite", "--store-db-connect", dbPath)
	coldTime, warmAvg := runPhase(storeArgs, config.StoreRuns, "Store")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  File average: %s, Store cold time: %s, Store warm average: %s\n", fileAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		DataFile:    name,
		Granularity: granularity,
		FileTime:    fileAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a kpiroll command multiple times and returns cold time and warm times.
// A single run is counted as both cold and warm.
func runBenchmark(config BenchmarkConfig, args []string, numRuns int) (coldTime float64, warmTimes []float64) {
	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()
		output, err := runKpiroll(config, args...)
		if err == nil && isSuccess(output) {
			times = append(times, time.Since(start).Seconds())
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
		if len(warmTimes) == 0 {
			warmTimes = times
		}
	}
	return
}

// runKpiroll runs the kpiroll binary and gives up after the configured timeout
func runKpiroll(config BenchmarkConfig, args ...string) ([]byte, error) {
	cmd := exec.Command("kpiroll", args...)

	done := make(chan struct{})
	var output []byte
	var cmdErr error

	go func() {
		output, cmdErr = cmd.CombinedOutput()
		close(done)
	}()

	select {
	case <-done:
		return output, cmdErr
	case <-time.After(config.Timeout):
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-done
		return output, fmt.Errorf("timed out after %v", config.Timeout)
	}
}

// isSuccess checks if command output looks like a rendered trends result
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, `"granularity"`) && strings.Contains(outputStr, `"records"`)
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("kpiroll_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	if err := writer.Write([]string{"file", "granularity", "file_avg", "store_cold", "store_warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write results
	for _, result := range results {
		if err := writer.Write([]string{result.DataFile, result.Granularity, result.FileTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(config BenchmarkConfig, results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")

	for _, granularity := range config.Granularities {
		fmt.Printf("%s%s Rollup:\n", strings.ToUpper(granularity[:1]), granularity[1:])
		for _, result := range results {
			if result.Granularity == granularity {
				fmt.Printf("  %-24s: File: %s, Store cold: %s, Store warm: %s\n", result.DataFile, result.FileTime, result.ColdTime, result.WarmTime)
			}
		}
	}

	fmt.Printf("Benchmark script completed successfully\n")
}
