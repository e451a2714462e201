// Package jobs holds the scheduled job implementations.
package jobs

import (
	"context"

	"github.com/hyowon/folio/internal/backup"
	"github.com/hyowon/folio/pkg/logger"
)

// BackupJob periodically snapshots the store to the backup directory
type BackupJob struct {
	manager  *backup.Manager
	schedule string
	logger   *logger.Logger
}

// NewBackupJob creates a backup job with the given cron schedule
func NewBackupJob(manager *backup.Manager, schedule string, log *logger.Logger) *BackupJob {
	return &BackupJob{
		manager:  manager,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "store_backup"
}

// Schedule returns the configured cron expression
func (j *BackupJob) Schedule() string {
	return j.schedule
}

// Run writes one snapshot file
func (j *BackupJob) Run(ctx context.Context) error {
	path, err := j.manager.Create()
	if err != nil {
		return err
	}
	j.logger.WithField("path", path).Debug("Scheduled backup written")
	return nil
}
