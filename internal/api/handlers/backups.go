package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/ha-backupper/internal/backup"
	"github.com/yourusername/ha-backupper/internal/logging"
)

// BackupHandler handles backup-related HTTP requests
type BackupHandler struct {
	engine   *backup.Engine
	activity *logging.ActivityLogger
}

// NewBackupHandler creates a new backup handler
func NewBackupHandler(engine *backup.Engine, activity *logging.ActivityLogger) *BackupHandler {
	return &BackupHandler{
		engine:   engine,
		activity: activity,
	}
}

// RegisterRoutes registers backup routes under the given group
func (h *BackupHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/backups", h.CreateBackup)
	group.GET("/backups", h.ListBackups)
	group.GET("/backups/history", h.History)
	group.POST("/backups/download", h.DownloadBackup)
	group.POST("/backups/upload", h.UploadBackup)
	group.POST("/backups/restore", h.RestoreBackup)
	group.POST("/backups/retention/enforce", h.EnforceRetention)
}

// CreateBackup creates a new backup archive
// POST /api/v1/backups
func (h *BackupHandler) CreateBackup(c *gin.Context) {
	var req struct {
		Paths []string `json:"paths"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	archivePath, err := h.engine.CreateBackup(req.Paths)
	h.record(logging.OpBackupCreate, archivePath, "", err)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	if archivePath == "" {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, gin.H{"path": archivePath})
}

// ListBackups lists the archives in the backup directory
// GET /api/v1/backups
func (h *BackupHandler) ListBackups(c *gin.Context) {
	files, err := h.engine.ListBackups()
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	if files == nil {
		files = []backup.BackupFile{}
	}
	c.JSON(http.StatusOK, gin.H{"backups": files})
}

// History returns recent backup operations
// GET /api/v1/backups/history
func (h *BackupHandler) History(c *gin.Context) {
	activities, err := h.activity.Recent(50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if activities == nil {
		activities = []*logging.Activity{}
	}
	c.JSON(http.StatusOK, gin.H{"history": activities})
}

// DownloadBackup copies an archive out of the backup directory
// POST /api/v1/backups/download
func (h *BackupHandler) DownloadBackup(c *gin.Context) {
	var req struct {
		BackupName  string `json:"backup_name" binding:"required"`
		Destination string `json:"destination" binding:"required"`
		Overwrite   bool   `json:"overwrite"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dest, err := h.engine.DownloadBackup(req.BackupName, req.Destination, req.Overwrite)
	h.record(logging.OpBackupDownload, req.BackupName, dest, err)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"path": dest})
}

// UploadBackup copies an external archive into the backup directory
// POST /api/v1/backups/upload
func (h *BackupHandler) UploadBackup(c *gin.Context) {
	var req struct {
		Source     string `json:"source" binding:"required"`
		BackupName string `json:"backup_name"`
		Overwrite  bool   `json:"overwrite"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dest, err := h.engine.UploadBackup(req.Source, req.BackupName, req.Overwrite)
	h.record(logging.OpBackupUpload, req.BackupName, dest, err)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"path": dest})
}

// RestoreBackup extracts archive members into the configuration root
// POST /api/v1/backups/restore
func (h *BackupHandler) RestoreBackup(c *gin.Context) {
	var req struct {
		BackupName string   `json:"backup_name" binding:"required"`
		Targets    []string `json:"targets"`
		Overwrite  bool     `json:"overwrite"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	restored, err := h.engine.RestoreBackup(req.BackupName, req.Targets, req.Overwrite)
	h.record(logging.OpBackupRestore, req.BackupName, "", err)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	if restored == nil {
		restored = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"restored": restored})
}

// EnforceRetention triggers a manual retention pass
// POST /api/v1/backups/retention/enforce
func (h *BackupHandler) EnforceRetention(c *gin.Context) {
	removed := h.engine.EnforceRetention()
	h.record(logging.OpRetentionPrune, "", "manual", nil)
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *BackupHandler) record(operation, archive, detail string, err error) {
	if h.activity == nil {
		return
	}
	h.activity.RecordOutcome(operation, archive, detail, err)
}

// statusForError maps engine error kinds onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, backup.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, backup.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, backup.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
