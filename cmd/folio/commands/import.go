package commands

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyowon/folio/internal/backup"
	"github.com/hyowon/folio/internal/store"
	"github.com/hyowon/folio/internal/transfer"
	"github.com/hyowon/folio/pkg/config"
	"github.com/hyowon/folio/pkg/logger"
)

// importCmd loads holdings files into the store offline: restore the
// latest backup, replace one portfolio per file, write a new backup.
var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import holdings files, one portfolio per file",
	Long: `Imports CSV or XLSX holdings files without running the server. Each
file replaces the portfolio named after its base name. Files that fail
to parse are skipped and reported; the batch continues.

Example:
  go run ./cmd/folio import growth.csv income.xlsx`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	st := store.New()
	manager, err := backup.New(cfg.BackupDir, st, log)
	if err != nil {
		return err
	}
	manager.LoadLatest()

	paths := make(map[string]string, len(args))
	for _, path := range args {
		base := filepath.Base(path)
		paths[strings.TrimSuffix(base, filepath.Ext(base))] = path
	}

	imported, skipped := transfer.ImportFiles(paths, time.Now())
	for name, holdings := range imported {
		st.ReplaceHoldings(name, holdings.Positions, holdings.Transactions)
		fmt.Printf("imported %s (%d symbols)\n", name, len(holdings.Positions))
	}
	for _, path := range skipped {
		fmt.Printf("skipped %s\n", path)
	}
	if len(imported) == 0 {
		return fmt.Errorf("no file imported")
	}

	path, err := manager.Create()
	if err != nil {
		return err
	}
	fmt.Printf("state saved to %s\n", path)
	return nil
}
