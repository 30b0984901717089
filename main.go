package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"rfm-score/pkg/calculator"
	"rfm-score/pkg/config"
	"rfm-score/pkg/logger"
	"rfm-score/pkg/metrics"
	"rfm-score/pkg/pipeline"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	configPath := flag.String("config", os.Getenv("RFM_CONFIG"), "YAML config file (optional)")
	input := flag.String("input", "", "transaction CSV (overrides input.path)")
	output := flag.String("output", "", "score CSV (overrides output.path)")
	referenceDate := flag.String("reference-date", "", "recency cutoff YYYY-MM-DD (overrides scoring.reference_date)")
	insertMode := flag.String("insert-mode", "", "batch | per_row (overrides database.insert_mode)")
	noDB := flag.Bool("no-db", false, "skip the database destination")
	verbose := flag.Bool("v", false, "debug logging and insert progress bar")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *input != "" {
		cfg.Input.Path = *input
	}
	if *output != "" {
		cfg.Output.Path = *output
	}
	if *referenceDate != "" {
		cfg.Scoring.ReferenceDate = *referenceDate
	}
	if *insertMode != "" {
		cfg.Database.InsertMode = *insertMode
	}
	if *noDB {
		cfg.Database.Enabled = false
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	lg, err := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	opts := pipeline.Options{Log: lg, Metrics: metrics.New()}
	if *verbose {
		opts.Progress = os.Stderr
	}

	report, err := pipeline.Run(context.Background(), cfg, opts)
	for _, r := range report.Exports {
		fmt.Printf("%s ; rows=%d ; written=%d ; failed=%d ; skipped=%d\n",
			r.Destination, r.Rows, r.Written, r.Failed, r.Skipped)
	}
	if err != nil {
		lg.WithError(err).Error("run failed", map[string]interface{}{"run_id": report.RunID})
		lg.Sync()
		os.Exit(1)
	}

	fmt.Println("Final RFM Scores Overview:")
	fmt.Printf("%-12s %7s %7s %7s %10s\n", cfg.Input.IndexColumn, "r_score", "f_score", "m_score", "rfm_wscore")
	for i, s := range report.Scores {
		if i == 4 {
			break
		}
		fmt.Printf("%-12s %7d %7d %7d %10.1f\n", s.CustomerID, s.RScore, s.FScore, s.MScore, s.WeightedScore)
	}
	if s, ok := calculator.DescribeScores(report.Scores)["rfm_wscore"]; ok {
		fmt.Printf("rfm_wscore: count=%d mean=%.3f std=%.3f min=%.1f 25%%=%.2f 50%%=%.2f 75%%=%.2f max=%.1f\n",
			s.Count, s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max)
	}
	fmt.Printf("customers=%d ; raw rows=%d ; excluded=%d ; elapsed=%s\n",
		report.Customers, report.RawRows, report.Clean.Excluded(), report.Duration)
}
