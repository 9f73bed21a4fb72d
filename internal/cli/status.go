package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"botwatch/internal/core/config"
	"botwatch/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tracked wallets and transaction totals",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		fmt.Println("status requires a database (set database.url)")
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	printTxTotals(ctx, db)
	fmt.Println()
	printWallets(ctx, db)
}

func printTxTotals(ctx context.Context, db *postgres.DB) {
	rows, err := db.QueryContext(ctx, "SELECT status, COUNT(*) FROM transactions GROUP BY status ORDER BY status")
	if err != nil {
		slog.Error("Failed to query transactions", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = rows.Close()
	}()

	fmt.Println(color.New(color.Bold).Sprint("Transactions"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\n", colorStatus(status), count)
	}
	_ = w.Flush()
}

func printWallets(ctx context.Context, db *postgres.DB) {
	rows, err := db.QueryContext(ctx,
		"SELECT address, label, level, is_active, balance, last_signature FROM wallets ORDER BY level, address")
	if err != nil {
		slog.Error("Failed to query wallets", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = rows.Close()
	}()

	fmt.Println(color.New(color.Bold).Sprint("Wallets"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "ADDRESS\tLABEL\tLEVEL\tACTIVE\tBALANCE\tCURSOR")

	for rows.Next() {
		var address, label, balance, cursor string
		var level int
		var active bool
		if err := rows.Scan(&address, &label, &level, &active, &balance, &cursor); err != nil {
			continue
		}
		if len(cursor) > 12 {
			cursor = cursor[:12] + "..."
		}
		activeStr := color.GreenString("yes")
		if !active {
			activeStr = color.RedString("no")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n", address, label, level, activeStr, balance, cursor)
	}
	_ = w.Flush()
}

func colorStatus(status string) string {
	switch status {
	case "completed":
		return color.GreenString(status)
	case "failed":
		return color.RedString(status)
	case "pending":
		return color.YellowString(status)
	default:
		return status
	}
}
