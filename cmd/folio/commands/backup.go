package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hyowon/folio/internal/backup"
	"github.com/hyowon/folio/internal/store"
	"github.com/hyowon/folio/pkg/config"
	"github.com/hyowon/folio/pkg/logger"
)

// backupCmd groups the backup inspection subcommands
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Inspect snapshot backups",
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backup files, newest first",
	RunE:  runBackupList,
}

var backupShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Summarize one backup file",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupShow,
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupShowCmd)
}

func newBackupManager() (*backup.Manager, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)
	manager, err := backup.New(cfg.BackupDir, store.New(), log)
	if err != nil {
		return nil, nil, err
	}
	return manager, cfg, nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	manager, cfg, err := newBackupManager()
	if err != nil {
		return err
	}

	files, err := manager.List()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Printf("no backups in %s\n", cfg.BackupDir)
		return nil
	}
	for _, file := range files {
		fmt.Println(file)
	}
	return nil
}

func runBackupShow(cmd *cobra.Command, args []string) error {
	manager, _, err := newBackupManager()
	if err != nil {
		return err
	}

	path := args[0]
	if filepath.Dir(path) == "." {
		path = filepath.Join(manager.Dir(), path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	snap, err := backup.Decode(data)
	if err != nil {
		return err
	}

	fmt.Printf("default portfolio: %s\n", snap.DefaultPortfolio)
	for name, pf := range snap.Portfolios {
		fmt.Printf("%s: %d tickers, %d transactions, %d history points\n",
			name, len(pf.Tickers), len(pf.Transactions), len(snap.History[name]))
	}
	return nil
}
