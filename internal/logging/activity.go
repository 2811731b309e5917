package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ActivityLogger records the outcome of every backup operation to the
// database and to a date-stamped JSONL file. Recording is an audit
// trail only; the backup directory remains the sole authority on which
// archives exist, and a failure to record never fails the operation
// being recorded.
type ActivityLogger struct {
	db          *sql.DB
	logDir      string
	currentFile *os.File
	currentDate string
	mu          sync.Mutex
}

// Activity is one recorded backup operation.
type Activity struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Operation    string    `json:"operation"`
	Archive      string    `json:"archive,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Operation type constants
const (
	OpBackupCreate   = "backup.create"
	OpBackupUpload   = "backup.upload"
	OpBackupDownload = "backup.download"
	OpBackupRestore  = "backup.restore"
	OpRetentionPrune = "retention.prune"
)

// NewActivityLogger creates an activity logger writing to the given
// database and log directory.
func NewActivityLogger(db *sql.DB, logDir string) (*ActivityLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create activity log directory: %w", err)
	}

	al := &ActivityLogger{
		db:     db,
		logDir: logDir,
	}

	log.Printf("[ActivityLogger] Initialized (log directory: %s)", logDir)
	return al, nil
}

// Record persists one activity. Database and file sinks are independent;
// an error from either is returned but callers are expected to log it
// and move on.
func (al *ActivityLogger) Record(activity *Activity) error {
	al.mu.Lock()
	defer al.mu.Unlock()

	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.Timestamp.IsZero() {
		activity.Timestamp = time.Now()
	}

	if err := al.recordToDatabase(activity); err != nil {
		log.Printf("[ActivityLogger] Error writing to database: %v", err)
	}

	if err := al.recordToFile(activity); err != nil {
		log.Printf("[ActivityLogger] Error writing to file: %v", err)
		return err
	}

	return nil
}

// RecordOutcome is a convenience wrapper building an Activity from an
// operation result.
func (al *ActivityLogger) RecordOutcome(operation, archive, detail string, err error) {
	activity := &Activity{
		Operation: operation,
		Archive:   archive,
		Detail:    detail,
		Success:   err == nil,
	}
	if err != nil {
		activity.ErrorMessage = err.Error()
	}

	if recordErr := al.Record(activity); recordErr != nil {
		log.Printf("[ActivityLogger] Failed to record %s: %v", operation, recordErr)
	}
}

// Recent returns the most recent activities, newest first.
func (al *ActivityLogger) Recent(limit int) ([]*Activity, error) {
	if al.db == nil {
		return nil, fmt.Errorf("database not available")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := al.db.Query(`
		SELECT id, timestamp, operation, archive, detail, success, error_message
		FROM backup_operations
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var activities []*Activity
	for rows.Next() {
		activity := &Activity{}
		var archive, detail, errorMsg sql.NullString

		if err := rows.Scan(
			&activity.ID,
			&activity.Timestamp,
			&activity.Operation,
			&archive,
			&detail,
			&activity.Success,
			&errorMsg,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}

		activity.Archive = archive.String
		activity.Detail = detail.String
		activity.ErrorMessage = errorMsg.String
		activities = append(activities, activity)
	}

	return activities, rows.Err()
}

// Close releases the current log file, if any.
func (al *ActivityLogger) Close() error {
	al.mu.Lock()
	defer al.mu.Unlock()

	if al.currentFile != nil {
		err := al.currentFile.Close()
		al.currentFile = nil
		return err
	}
	return nil
}

func (al *ActivityLogger) recordToDatabase(activity *Activity) error {
	if al.db == nil {
		return nil
	}

	_, err := al.db.Exec(`
		INSERT INTO backup_operations (id, timestamp, operation, archive, detail, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		activity.ID,
		activity.Timestamp,
		activity.Operation,
		activity.Archive,
		activity.Detail,
		activity.Success,
		activity.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	return nil
}

func (al *ActivityLogger) recordToFile(activity *Activity) error {
	date := activity.Timestamp.Format("2006-01-02")
	if al.currentFile == nil || al.currentDate != date {
		if err := al.rotateLogFile(date); err != nil {
			return err
		}
	}

	line, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("failed to marshal activity: %w", err)
	}

	if _, err := fmt.Fprintf(al.currentFile, "%s\n", line); err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}

	return nil
}

func (al *ActivityLogger) rotateLogFile(date string) error {
	if al.currentFile != nil {
		al.currentFile.Close()
		al.currentFile = nil
	}

	path := filepath.Join(al.logDir, fmt.Sprintf("backup-%s.log", date))
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open activity log file: %w", err)
	}

	al.currentFile = file
	al.currentDate = date
	return nil
}
