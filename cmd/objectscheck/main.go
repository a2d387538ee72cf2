package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"fortigate-audit-toolkit/internal/cli"
	"fortigate-audit-toolkit/internal/model"
	"fortigate-audit-toolkit/internal/parser"
	"fortigate-audit-toolkit/internal/probe"
	"fortigate-audit-toolkit/internal/utils"

	"github.com/spf13/cobra"
)

// Some FortiGate documentation calls the export objectcheck.json; the
// canonical name here is objectscheck.json with a silent fallback.
const (
	defaultInput  = "objectscheck.json"
	fallbackInput = "objectcheck.json"
)

var (
	inFile   string
	outFile  string
	workers  int
	timeout  time.Duration
	maxHosts uint64
	logLevel string
	logFile  string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "objectscheck",
		Short: "Pings FortiGate address objects to find unreachable hosts",
		Long: `objectscheck reads FortiGate address objects, expands each value into its
	IP addresses (a bare IP, or every address in a CIDR subnet) and probes each
	one with a single ICMP echo. It writes a JSON report listing unreachable
	addresses and the overall success rate.`,
		RunE: run,
	}

	// Set up flags
	rootCmd.Flags().StringVar(&inFile, "in", defaultInput, "Address objects JSON file (falls back to "+fallbackInput+")")
	rootCmd.Flags().StringVar(&outFile, "out", "ping_results.json", "Output JSON report file")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "Number of concurrent probes")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "Per-probe timeout; exceeding it counts as unreachable")
	rootCmd.Flags().Uint64Var(&maxHosts, "max-hosts", 65536, "Maximum number of addresses in a CIDR to expand")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := cli.SetupLogger(logLevel, logFile)
	slog.SetDefault(logger)

	slog.Info("Starting FortiGate objects connectivity check")
	startTime := time.Now()

	path, file, err := openObjectsFile(inFile)
	if err != nil {
		slog.Error("Failed to open objects file", "path", inFile, "error", err)
		return err
	}
	defer file.Close()

	objects, skipped, err := parser.ParseObjects(file, filepath.Base(path))
	if err != nil {
		slog.Error("Failed to parse objects file", "path", path, "error", err)
		return err
	}
	slog.Info("Objects loaded", "count", len(objects), "skipped", len(skipped))

	targets, expandSkipped := buildTargets(objects, maxHosts)
	skipped = append(skipped, expandSkipped...)
	slog.Info("Targets expanded", "ips", len(targets), "workers", workers, "timeout", timeout)

	prober := probe.NewProber(workers, timeout)
	results := prober.Run(cmd.Context(), targets)

	report := probe.BuildReport(results, skipped, filepath.Base(path), len(objects))
	if err := cli.WriteJSON(outFile, report); err != nil {
		slog.Error("Failed to write report", "path", outFile, "error", err)
		return err
	}

	slog.Info("Connectivity check complete",
		"output_file", outFile,
		"tested", report.Summary.TotalIPsTested,
		"failed", report.Summary.FailedPingsCount,
		"success_rate_percent", report.Summary.SuccessRatePercent,
		"duration", time.Since(startTime))
	return nil
}

// openObjectsFile opens the input file. The documented fallback name is
// only tried when the caller kept the default.
func openObjectsFile(path string) (string, *os.File, error) {
	file, err := os.Open(path)
	if err == nil {
		return path, file, nil
	}
	if path == defaultInput && os.IsNotExist(err) {
		if file, fbErr := os.Open(fallbackInput); fbErr == nil {
			slog.Info("Primary input not found, using fallback", "path", fallbackInput)
			return fallbackInput, file, nil
		}
	}
	return "", nil, err
}

// buildTargets expands every object value into probe targets, in input
// order. Unparseable or oversized values land in the skipped bucket.
func buildTargets(objects []model.AddressObject, maxHosts uint64) ([]probe.Target, []model.SkippedObject) {
	var targets []probe.Target
	var skipped []model.SkippedObject
	for _, object := range objects {
		for _, raw := range object.Addrs {
			ipnet, err := utils.ParseAddress(raw)
			if err != nil {
				slog.Warn("Skipping object address", "object", object.Name, "value", raw, "error", err)
				skipped = append(skipped, model.SkippedObject{Name: object.Name, Value: raw, Reason: err.Error()})
				continue
			}
			if size := utils.CIDRSize(ipnet); size > maxHosts {
				reason := fmt.Sprintf("subnet holds %d addresses, over the --max-hosts limit of %d", size, maxHosts)
				slog.Warn("Skipping object address", "object", object.Name, "value", raw, "error", reason)
				skipped = append(skipped, model.SkippedObject{Name: object.Name, Value: raw, Reason: reason})
				continue
			}
			for _, ip := range utils.Expand(ipnet) {
				targets = append(targets, probe.Target{ObjectName: object.Name, IP: ip.String(), Origin: raw})
			}
		}
	}
	return targets, skipped
}
