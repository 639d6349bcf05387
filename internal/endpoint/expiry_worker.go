package endpoint

import (
	"context"
	"time"

	"ctn_registry/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ExpiryWorker periodically flips overdue SENT verifications to EXPIRED.
// The per-request lazy check already protects state transitions; the worker
// keeps directory queries and operator views from showing stale SENT rows.
type ExpiryWorker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	db       *gorm.DB
	logger   *logrus.Entry
	interval time.Duration
}

// NewExpiryWorker creates the verification expiry worker
func NewExpiryWorker(db *gorm.DB, logger *logrus.Entry, intervalSec int) *ExpiryWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &ExpiryWorker{
		ctx:      ctx,
		cancel:   cancel,
		db:       db,
		logger:   logger.WithField("component", "verification-expiry-worker"),
		interval: time.Duration(intervalSec) * time.Second,
	}
}

// Start begins the periodic sweep
func (w *ExpiryWorker) Start() {
	w.logger.Info("Starting verification expiry worker...")
	ticker := time.NewTicker(w.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-w.ctx.Done():
				w.logger.Info("Verification expiry worker stopped")
				return
			case <-ticker.C:
				w.RunOnce()
			}
		}
	}()
}

// Stop cancels the worker
func (w *ExpiryWorker) Stop() {
	w.cancel()
}

// RunOnce performs one sweep. The UPDATE is guarded on SENT, so a row
// verified between scan and write is left alone.
func (w *ExpiryWorker) RunOnce() {
	res := w.db.Model(&model.Endpoint{}).
		Where("verification_status = ? AND verification_expires_at < ? AND is_deleted = ?",
			model.VerificationStatusSent, time.Now(), false).
		Updates(map[string]any{
			"verification_status": model.VerificationStatusExpired,
			"verification_token":  nil,
		})
	if res.Error != nil {
		w.logger.WithError(res.Error).Error("expiry sweep failed")
		return
	}
	if res.RowsAffected > 0 {
		w.logger.WithField("expired", res.RowsAffected).Info("expired overdue verifications")
	}
}
