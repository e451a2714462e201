package commands

import (
	"fmt"
	"os"
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

// exportCmd writes a holdings file from the latest backup, without
// running the server.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a portfolio's holdings from the latest backup",
	Long: `Writes the holdings of one portfolio as CSV or XLSX, reading state
from the newest backup file. The output format follows the --out
extension.

Example:
  go run ./cmd/folio export --portfolio Growth --out growth.csv
  go run ./cmd/folio export --out holdings.xlsx`,
	RunE: runExport,
}

var (
	exportPortfolio string
	exportOut       string
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportPortfolio, "portfolio", "", "portfolio name (default: resolved default)")
	exportCmd.Flags().StringVar(&exportOut, "out", "holdings.csv", "output file (.csv or .xlsx)")
}

func runExport(cmd *cobra.Command, args []string) error {
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
	path, ok, err := manager.Latest()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no backup in %s", cfg.BackupDir)
	}
	if err := manager.Restore(path); err != nil {
		return err
	}

	name := st.Resolve(exportPortfolio)
	pf, found := st.Get(name)
	if !found {
		return fmt.Errorf("portfolio %q not found in backup", name)
	}

	out, err := os.Create(exportOut)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	if strings.EqualFold(filepath.Ext(exportOut), ".xlsx") {
		err = transfer.ExportXLSX(out, pf, time.Now())
	} else {
		err = transfer.ExportCSV(out, pf, time.Now())
	}
	if err != nil {
		return err
	}

	fmt.Printf("exported %s (%d symbols) to %s\n", name, len(pf.Tickers), exportOut)
	return nil
}
