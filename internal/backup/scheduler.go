package backup

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
	"github.com/yourusername/ha-backupper/internal/logging"
)

// Scheduler runs automatic backups of the default sources on a cron
// schedule. Each firing is one CreateBackup call; there is no catch-up
// for missed runs.
type Scheduler struct {
	engine   *Engine
	activity *logging.ActivityLogger
	cron     *cron.Cron
	spec     string
}

// NewScheduler validates the cron expression (standard 5-field format)
// and prepares a scheduler. activity may be nil when operation history
// is disabled.
func NewScheduler(engine *Engine, spec string, activity *logging.ActivityLogger) (*Scheduler, error) {
	s := &Scheduler{
		engine:   engine,
		activity: activity,
		cron:     cron.New(),
		spec:     spec,
	}

	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", spec, err)
	}

	return s, nil
}

// Start begins firing scheduled backups.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("[BackupSchedule] Scheduled backups enabled (%s)", s.spec)
}

// Stop halts the scheduler and waits for a running backup to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Printf("[BackupSchedule] Scheduler stopped")
}

func (s *Scheduler) run() {
	log.Printf("[BackupSchedule] Running scheduled backup")

	archivePath, err := s.engine.CreateBackup(nil)
	if err != nil {
		log.Printf("[BackupSchedule] Scheduled backup failed: %v", err)
	}

	if s.activity != nil {
		s.activity.RecordOutcome(logging.OpBackupCreate, archivePath, "scheduled", err)
	}
}
