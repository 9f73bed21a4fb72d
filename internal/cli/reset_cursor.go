package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"botwatch/internal/core/config"
	"botwatch/internal/infra/storage/postgres"
	"botwatch/internal/registry"
)

var resetCursorCmd = &cobra.Command{
	Use:   "reset-cursor [address] [signature]",
	Short: "Reset a wallet's scan cursor, optionally to a specific signature",
	Long: `Reset the last processed signature for a wallet. With no signature the
observer rescans the wallet's recent history; already-recorded transactions
are dropped as duplicates.`,
	Args: cobra.RangeArgs(1, 2),
	Run:  runResetCursor,
}

func init() {
	rootCmd.AddCommand(resetCursorCmd)
}

func runResetCursor(cmd *cobra.Command, args []string) {
	address := args[0]
	signature := ""
	if len(args) == 2 {
		signature = args[1]
	}

	if err := registry.ValidateAddress(address); err != nil {
		fmt.Printf("Invalid wallet address: %s\n", address)
		os.Exit(1)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		fmt.Println("reset-cursor requires a database (set database.url)")
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

	res, err := db.ExecContext(ctx,
		"UPDATE wallets SET last_signature = $2, updated_at = NOW() WHERE address = $1",
		address, signature)
	if err != nil {
		slog.Error("Failed to reset cursor", "error", err)
		os.Exit(1)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		fmt.Printf("Wallet not found: %s\n", address)
		os.Exit(1)
	}

	if signature == "" {
		fmt.Printf("Cursor cleared for %s, the next scan starts fresh\n", address)
	} else {
		fmt.Printf("Cursor for %s set to %s\n", address, signature)
	}
}
