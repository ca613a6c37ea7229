package activity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/motivohq/motivo-server/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const recordTimeout = 5 * time.Second

// Recorder appends audit records. Failures are logged, never surfaced: an
// audit write must not fail the request it documents.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder constructs a Recorder backed by GORM.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record appends one activity record. Detail maps are marshaled into the
// JSON detail bag; a nil map stores an empty bag.
func (r *Recorder) Record(ctx context.Context, userID uint64, action models.ActivityAction, details map[string]any, ip, userAgent string) {
	if r == nil || r.db == nil {
		return
	}
	if !action.Valid() {
		log.Warnf("activity: dropping record with unknown action %q", action)
		return
	}

	payload := datatypes.JSON([]byte("{}"))
	if len(details) > 0 {
		data, errMarshal := json.Marshal(details)
		if errMarshal != nil {
			log.WithError(errMarshal).Warn("activity: marshal details failed")
		} else {
			payload = datatypes.JSON(data)
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	dbCtx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	record := models.ActivityRecord{
		UserID:    userID,
		Action:    action,
		Details:   payload,
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: time.Now().UTC(),
	}
	if errCreate := r.db.WithContext(dbCtx).Create(&record).Error; errCreate != nil {
		log.WithError(errCreate).Warn("activity: append record failed")
	}
}
