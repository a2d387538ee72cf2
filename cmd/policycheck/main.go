package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fortigate-audit-toolkit/internal/audit"
	"fortigate-audit-toolkit/internal/cli"
	"fortigate-audit-toolkit/internal/model"
	"fortigate-audit-toolkit/internal/parser"

	"github.com/spf13/cobra"
)

var (
	provider  string
	inFile    string
	rulesFile string
	dbDSN     string
	vdom      string
	outFile   string
	logLevel  string
	logFile   string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "policycheck",
		Short: "Audits FortiGate policies for risky and dead rules",
		Long: `policycheck reads FortiGate firewall policies and classifies each rule:
	unused accepts, wildcard-permissive rules, duplicates and rules without
	logging. It writes a JSON report with per-category findings, a weighted
	risk score and prioritized recommendations.`,
		RunE: run,
	}

	// Set up flags
	rootCmd.Flags().StringVar(&provider, "provider", "json", "Policy provider type: 'json', 'fortigate' or 'mariadb'")
	rootCmd.Flags().StringVar(&inFile, "in", "policycheck-forti.json", "Policy export JSON file (for 'json' provider)")
	rootCmd.Flags().StringVar(&rulesFile, "rules", "", "FortiGate configuration file (for 'fortigate' provider)")
	rootCmd.Flags().StringVar(&dbDSN, "db", "", "Database connection string (for 'mariadb' provider)")
	rootCmd.Flags().StringVar(&vdom, "vdom", "", "Virtual domain to filter DB queries (adds WHERE vdom = '...')")
	rootCmd.Flags().StringVar(&outFile, "out", "firewall_audit_report.json", "Output JSON report file")
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

	slog.Info("Starting FortiGate policy audit", "provider", provider)
	startTime := time.Now()

	records, skipped, source, err := loadRecords(provider, inFile, rulesFile, dbDSN, vdom)
	if err != nil {
		slog.Error("Failed to load policies", "error", err)
		return err
	}
	slog.Info("Policies loaded", "count", len(records), "skipped", len(skipped))

	report := audit.NewAuditor(records).Run()
	report.AuditInfo.SourceFile = source
	report.Skipped = skipped

	if err := cli.WriteJSON(outFile, report); err != nil {
		slog.Error("Failed to write report", "path", outFile, "error", err)
		return err
	}

	slog.Info("Audit complete",
		"output_file", outFile,
		"total_rules", report.Summary.TotalRulesAnalyzed,
		"risk_score", report.Summary.RiskScore,
		"duration", time.Since(startTime))
	return nil
}

func loadRecords(provider, inPath, rulesPath, dbConnStr, vdom string) ([]model.PolicyRecord, []model.SkippedRecord, string, error) {
	switch provider {
	case "json":
		file, err := os.Open(inPath)
		if err != nil {
			return nil, nil, "", err
		}
		defer file.Close()
		records, skipped, err := parser.ParsePolicies(file, filepath.Base(inPath))
		return records, skipped, filepath.Base(inPath), err
	case "fortigate":
		if rulesPath == "" {
			return nil, nil, "", fmt.Errorf("rules file path must be provided for fortigate provider")
		}
		file, err := os.Open(rulesPath)
		if err != nil {
			return nil, nil, "", err
		}
		defer file.Close()
		p := parser.NewFortiGateParser(file)
		if err := p.Parse(); err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return nil, nil, "", err
		}
		return p.Records, nil, filepath.Base(rulesPath), nil
	case "mariadb":
		if dbConnStr == "" {
			return nil, nil, "", fmt.Errorf("database connection string must be provided for mariadb provider")
		}
		p, err := parser.NewMariaDBParser(dbConnStr, vdom)
		if err != nil {
			return nil, nil, "", err
		}
		defer p.Close()
		if err := p.Parse(); err != nil {
			return nil, nil, "", err
		}
		return p.Records, nil, "mariadb", nil
	default:
		return nil, nil, "", fmt.Errorf("unknown policy provider: %s", provider)
	}
}
