package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"hdb-resale/models"
	"hdb-resale/server"
	"hdb-resale/services"
	"hdb-resale/storage"
)

var (
	historyID  int
	exportCSV  string
	exportToPG bool
	serveAddr  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the insights report (default)",
	RunE:  runReport,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the monthly price history of a listing's address",
	Long: `Prints the average resale price per month, for the last six months on
record, of every transaction sharing the listing's block, street and flat type.

Example:
  hdb-resale history --id 42`,
	RunE: runHistory,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the projected listings to CSV and optionally PostgreSQL",
	RunE:  runExport,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the listings as a read-only JSON API",
	RunE:  runServe,
}

func init() {
	historyCmd.Flags().IntVar(&historyID, "id", -1, "Listing id (required)")
	_ = historyCmd.MarkFlagRequired("id")

	exportCmd.Flags().StringVar(&exportCSV, "csv", "", "Output CSV path (default: CSV_OUTPUT_PATH)")
	exportCmd.Flags().BoolVar(&exportToPG, "postgres", false, "Also store listings in PostgreSQL")

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: HTTP_ADDR)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	listings, err := cli.load(cmd.Context())
	if err != nil {
		return err
	}
	if historyID < 0 || historyID >= len(listings) {
		return fmt.Errorf("listing %d not found (%d listings loaded)", historyID, len(listings))
	}

	l := listings[historyID]
	printHistory(cmd, l, services.PriceHistory(l, listings))
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	listings, err := cli.load(cmd.Context())
	if err != nil {
		return err
	}

	path := exportCSV
	if path == "" {
		path = cli.cfg.CSVOutputPath
	}

	var g errgroup.Group
	g.Go(func() error {
		return writeListings(func() (storage.ListingWriter, error) {
			return storage.NewCSVWriter(path)
		}, listings, "CSV "+path)
	})
	if exportToPG {
		g.Go(func() error {
			return writeListings(func() (storage.ListingWriter, error) {
				return storage.NewPostgresWriter(cli.cfg.DSN())
			}, listings, "PostgreSQL (table: listings)")
		})
	}
	return g.Wait()
}

func writeListings(open func() (storage.ListingWriter, error), listings []*models.Listing, dest string) error {
	w, err := open()
	if err != nil {
		cli.logger.Error("Failed to open %s: %v", dest, err)
		return err
	}
	defer w.Close()

	if err := w.Write(listings); err != nil {
		cli.logger.Error("Write to %s failed: %v", dest, err)
		return err
	}
	cli.logger.Info("%d listings saved to %s", len(listings), dest)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	listings, err := cli.load(cmd.Context())
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = cli.cfg.HTTPAddr
	}

	srv := server.New(listings, server.Options{
		RateLimitRPS:    cli.cfg.RateLimitRPS,
		RateLimitBurst:  cli.cfg.RateLimitBurst,
		HistoryCacheTTL: cli.cfg.HistoryCacheTTL,
	}, cli.logger)
	return srv.Run(cmd.Context(), addr)
}
