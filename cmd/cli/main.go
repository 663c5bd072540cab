package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"predict-backtest/internal/analysis"
	"predict-backtest/internal/backtest"
	"predict-backtest/internal/config"
	"predict-backtest/internal/data"
	"predict-backtest/internal/job"
	"predict-backtest/internal/observability"
	"predict-backtest/internal/strategy"
	"predict-backtest/internal/util"
)

var (
	jobPath    string
	cfgPath    string
	tradesOut  string
	equityOut  string
	rankBy     string
	logLevel   string
	prettyJSON bool

	rootCmd = &cobra.Command{
		Use:          "cli",
		Short:        "Run prediction backtest jobs locally",
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a job file and print the response JSON",
		Long: `Runs the job the same way the worker does. csv_url may point at a
local file (file:///path/to/prices.csv).`,
		RunE: runJob,
	}

	strategiesCmd = &cobra.Command{
		Use:   "strategies",
		Short: "List the registered strategy classes",
		RunE:  listStrategies,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	runCmd.Flags().StringVar(&jobPath, "job", "", "Path to job JSON ({\"id\": ..., \"input\": {...}})")
	runCmd.Flags().StringVar(&tradesOut, "trades-out", "", "Optional: write per-strategy trade CSVs (strategy id is appended to the file name)")
	runCmd.Flags().StringVar(&equityOut, "equity-out", "", "Optional: write per-strategy equity curves as parquet")
	runCmd.Flags().StringVar(&rankBy, "rank-by", "", "Optional: print strategies ranked by this metric, e.g. \"Sharpe Ratio\"")
	runCmd.Flags().BoolVar(&prettyJSON, "pretty", true, "Indent the response JSON")
	_ = runCmd.MarkFlagRequired("job")

	rootCmd.AddCommand(runCmd, strategiesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runJob(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	// Logs go to stderr so stdout stays valid JSON.
	logger := util.NewLoggerTo(os.Stderr, level)

	raw, err := os.ReadFile(jobPath)
	if err != nil {
		return err
	}
	var j job.Job
	if err := json.Unmarshal(raw, &j); err != nil {
		return fmt.Errorf("parse %s: %w", jobPath, err)
	}

	opts := cfg.FetchOptions()
	opts.AllowFiles = true
	metrics := observability.NewMetrics("")
	handler := job.NewHandler(data.NewCSVClient(opts, logger, metrics), job.Options{
		Parallelism:    cfg.Runner.Parallelism,
		MissingMetrics: cfg.MissingPolicy(),
		Metrics:        metrics,
		Logger:         logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	resp := handler.Handle(ctx, j)

	if err := printJSON(resp); err != nil {
		return err
	}
	if resp.Failed() {
		return fmt.Errorf("job %s failed at %s", resp.JobID, resp.Stage)
	}

	if err := export(resp.Details); err != nil {
		return err
	}
	if rankBy != "" {
		printRanking(resp.Details, rankBy)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	if prettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func export(details map[string]backtest.Outcome) error {
	if tradesOut == "" && equityOut == "" {
		return nil
	}
	for _, id := range sortedIDs(details) {
		res := details[id].Result
		if res == nil {
			continue
		}
		if tradesOut != "" {
			path := withSuffix(tradesOut, id)
			if err := backtest.WriteTradesCSV(path, res.Trades); err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
			fmt.Fprintf(os.Stderr, "wrote %d trades to %s\n", len(res.Trades), path)
		}
		if equityOut != "" {
			path := withSuffix(equityOut, id)
			if err := backtest.WriteEquityParquet(path, res.Equity); err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
			fmt.Fprintf(os.Stderr, "wrote equity curve to %s\n", path)
		}
	}
	return nil
}

func printRanking(details map[string]backtest.Outcome, metric string) {
	stats := make(map[string]*analysis.Stats, len(details))
	for id, o := range details {
		if o.Stats != nil {
			stats[id] = o.Stats
		}
	}
	fmt.Fprintf(os.Stderr, "%-4s %-12s %-16s %s\n", "rank", "strategy", "class", metric)
	for i, r := range analysis.RankByMetric(stats, metric) {
		fmt.Fprintf(os.Stderr, "%-4d %-12s %-16s %.4f\n", i+1, r.ID, details[r.ID].Class, r.Value)
	}
}

func listStrategies(_ *cobra.Command, _ []string) error {
	for _, info := range strategy.Catalog() {
		names := make([]string, 0, len(info.Params))
		for _, p := range info.Params {
			names = append(names, fmt.Sprintf("%s=%g", p.Name, p.Default))
		}
		fmt.Printf("%-10s %-26s %s\n", info.Class, info.Kind, strings.Join(names, " "))
		fmt.Printf("           %s\n", info.Description)
	}
	return nil
}

// withSuffix turns results/trades.csv into results/trades_Strategy_1.csv.
func withSuffix(path, id string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return base + "_" + strings.ReplaceAll(id, " ", "_") + ext
}

func sortedIDs(details map[string]backtest.Outcome) []string {
	ids := make([]string, 0, len(details))
	for id := range details {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
