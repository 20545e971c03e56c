package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hdb-resale/config"
	"hdb-resale/fetcher"
	"hdb-resale/models"
	"hdb-resale/services"
	"hdb-resale/utils"
)

// app is the wiring shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *utils.Logger
	loader *services.Loader
}

var (
	cli     app
	csvPath string
)

var rootCmd = &cobra.Command{
	Use:   "hdb-resale",
	Short: "Load HDB resale transactions and report on them",
	Long: `hdb-resale loads a CSV of HDB resale transactions, projects each row into
a listing with derived fields (price per sqft, bedrooms, illustration), and
reports on the result.

Run without a subcommand to print the insights report.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return cli.setup()
	},
	RunE: runReport,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&csvPath, "csv-path", "", "CSV resource to load (default: CSV_PATH)")
	rootCmd.AddCommand(reportCmd, historyCmd, exportCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func (a *app) setup() error {
	a.cfg = config.Load()
	if csvPath != "" {
		a.cfg.CSVPath = csvPath
	}
	a.logger = utils.NewLogger(utils.ParseLevel(a.cfg.LogLevel))

	a.logger.Info("=== HDB Resale starting ===")
	a.logger.Info("Config: source %s (%s) | concurrency: %d | retries: %d",
		a.cfg.CSVPath, a.cfg.FetchMode, a.cfg.MaxConcurrency, a.cfg.MaxRetries)

	pool, err := config.LoadImagePool(a.cfg.ImagePoolFile)
	if err != nil {
		a.logger.Error("Failed to load image pool: %v", err)
		return err
	}

	f, err := fetcher.New(a.cfg, a.logger)
	if err != nil {
		a.logger.Error("Failed to create fetcher: %v", err)
		return err
	}

	projector := services.NewProjector(a.logger, pool.Images, pool.Fallback).
		WithWorkers(utils.NewWorkerPool(a.cfg.MaxConcurrency, 0), a.cfg.ParallelThreshold)
	a.loader = services.NewLoader(f, projector, a.logger)
	return nil
}

// load runs the loader under the retry policy. An empty set is not an error.
func (a *app) load(ctx context.Context) ([]*models.Listing, error) {
	retry := &utils.RetryConfig{
		MaxAttempts: a.cfg.MaxRetries,
		BaseDelay:   500 * time.Millisecond,
		Logger:      a.logger,
	}

	var listings []*models.Listing
	err := retry.Do(ctx, "load "+a.cfg.CSVPath, func(ctx context.Context) error {
		var err error
		listings, err = a.loader.Load(ctx, a.cfg.CSVPath)
		return err
	})
	if err != nil {
		a.logger.Error("Load failed: %v", err)
		return nil, err
	}

	if len(listings) == 0 {
		a.logger.Warn("No listings survived projection")
	}
	return listings, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	listings, err := cli.load(cmd.Context())
	if err != nil {
		return err
	}

	svc := services.NewInsightService(cli.logger).WithOutput(cmd.OutOrStdout())
	svc.Print(svc.Generate(listings))
	cli.logger.Info("=== Done: %d listings ===", len(listings))
	return nil
}

func printHistory(cmd *cobra.Command, l *models.Listing, points []models.PriceHistoryPoint) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\nBlk %s %s (%s, %s)\n", l.Block, l.StreetName, l.FlatType, l.Town)
	if len(points) == 0 {
		fmt.Fprintln(w, "  No price history")
		return
	}
	for _, p := range points {
		fmt.Fprintf(w, "  %s  %s\n", p.YearMonth, services.FormatCurrency(float64(p.Price)))
	}
	fmt.Fprintln(w)
}
