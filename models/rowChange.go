package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/warehub_backend/config"
	"bitbucket.org/mmdatafocus/warehub_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RowChangeRecord is the transactional outbox for the realtime feed. The row
// snapshot is written inside the caller's DB transaction, publishing happens
// asynchronously after commit via the outbox dispatcher.
type RowChangeRecord struct {
	ID         int             `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	BusinessId string          `gorm:"size:64;not null;index" json:"business_id"`
	TableName  string          `gorm:"size:64;not null;index" json:"table_name"`
	RowId      int             `gorm:"index;not null" json:"row_id"`
	Action     RowChangeAction `gorm:"type:enum('INSERT','UPDATE','DELETE')" json:"action"`
	Row        []byte          `gorm:"type:blob" json:"row"`
	// publish happens after commit via dispatcher
	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
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

// EnqueueRowChange records one committed row change inside the caller's
// transaction. It never publishes directly, so a rollback takes the record
// with it.
func EnqueueRowChange(tx *gorm.DB, businessId string, tableName string, rowId int, action RowChangeAction, row interface{}) error {

	var rowInByte []byte
	var err error
	if row != nil {
		rowInByte, err = json.Marshal(row)
		if err != nil {
			return err
		}
	}

	record := RowChangeRecord{
		BusinessId:    businessId,
		TableName:     tableName,
		RowId:         rowId,
		Action:        action,
		Row:           rowInByte,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(tx.Statement.Context),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func ConvertToRowChangeMessage(record RowChangeRecord) config.RowChangeMessage {
	return config.RowChangeMessage{
		ID:            record.ID,
		BusinessId:    record.BusinessId,
		TableName:     record.TableName,
		RowId:         record.RowId,
		Action:        string(record.Action),
		Row:           record.Row,
		OccurredAt:    record.CreatedAt,
		CorrelationId: record.CorrelationId,
	}
}
