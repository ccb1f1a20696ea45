package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmdatafocus/barstock_backend/config"
	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Outbox publish statuses for OutboxRecord.PublishStatus.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

const OutboxEventLossAlert = "loss_alert"

// OutboxRecord is written inside the business transaction and published to
// Pub/Sub after commit by the outbox dispatcher.
type OutboxRecord struct {
	ID               int        `gorm:"primaryKey;autoIncrement;index:idx_outbox_dispatch,priority:3" json:"id"`
	BarId            string     `gorm:"type:char(36);not null;index" json:"bar_id"`
	EventType        string     `gorm:"size:50;not null" json:"event_type"`
	ReferenceId      string     `gorm:"type:char(36);not null;index" json:"reference_id"`
	Payload          []byte     `json:"payload"`
	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"`
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// LossAlert is the JSON payload of a loss_alert outbox record.
type LossAlert struct {
	LossReportId        string          `json:"loss_report_id"`
	ReconciliationId    string          `json:"reconciliation_id"`
	ShiftId             string          `json:"shift_id"`
	ProductId           string          `json:"product_id"`
	Severity            LossSeverity    `json:"severity"`
	DiscrepancyQuantity decimal.Decimal `json:"discrepancy_quantity"`
	LossValue           decimal.Decimal `json:"loss_value"`
}

// EnqueueLossAlert writes the outbox row inside tx. It does not publish.
func EnqueueLossAlert(ctx context.Context, tx *gorm.DB, report *LossReport) error {
	payload, err := json.Marshal(LossAlert{
		LossReportId:        report.ID,
		ReconciliationId:    report.ReconciliationId,
		ShiftId:             report.ShiftId,
		ProductId:           report.ProductId,
		Severity:            report.Severity,
		DiscrepancyQuantity: report.DiscrepancyQuantity,
		LossValue:           report.LossValue,
	})
	if err != nil {
		return err
	}
	record := OutboxRecord{
		BarId:         report.BarId,
		EventType:     OutboxEventLossAlert,
		ReferenceId:   report.ID,
		Payload:       payload,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return tx.WithContext(ctx).Create(&record).Error
}

func ConvertToLossAlertMessage(record OutboxRecord) config.LossAlertMessage {
	return config.LossAlertMessage{
		OutboxId:      record.ID,
		BarId:         record.BarId,
		ReferenceId:   record.ReferenceId,
		EventType:     record.EventType,
		Payload:       record.Payload,
		CorrelationId: record.CorrelationId,
		CreatedAt:     record.CreatedAt,
	}
}

type OutboxStatusCount struct {
	PublishStatus string `json:"publish_status"`
	Count         int64  `json:"count"`
}

// GetOutboxStatusCounts backs the ops endpoint that watches for stuck alerts.
func GetOutboxStatusCounts(ctx context.Context, db *gorm.DB, barId string) ([]*OutboxStatusCount, error) {
	var rows []*OutboxStatusCount
	query := db.WithContext(ctx).Model(&OutboxRecord{}).Select("publish_status, COUNT(*) AS count")
	if barId != "" {
		query = query.Where("bar_id = ?", barId)
	}
	if err := query.Group("publish_status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ReplayOutboxRecord puts a FAILED or DEAD loss alert back in line for the dispatcher.
func ReplayOutboxRecord(ctx context.Context, db *gorm.DB, barId string, id int) (*OutboxRecord, error) {
	var record OutboxRecord
	if err := db.WithContext(ctx).Where("bar_id = ? AND id = ?", barId, id).First(&record).Error; err != nil {
		return nil, notFound(err)
	}
	if record.PublishStatus != OutboxPublishStatusFailed && record.PublishStatus != OutboxPublishStatusDead {
		return nil, utils.NewInputError("only FAILED or DEAD records can be replayed")
	}
	now := time.Now().UTC()
	if err := db.WithContext(ctx).Model(&OutboxRecord{}).Where("id = ?", record.ID).Updates(map[string]interface{}{
		"publish_status":     OutboxPublishStatusFailed,
		"publish_attempts":   0,
		"next_attempt_at":    &now,
		"locked_at":          nil,
		"locked_by":          nil,
		"last_publish_error": nil,
	}).Error; err != nil {
		return nil, err
	}
	record.PublishStatus = OutboxPublishStatusFailed
	record.PublishAttempts = 0
	record.NextAttemptAt = &now
	record.LastPublishError = nil
	return &record, nil
}
