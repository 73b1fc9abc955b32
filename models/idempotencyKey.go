package models

import "time"

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

// IdempotencyKey provides durable, DB-backed idempotency for allocation
// procedures and worker handlers. Clients send a fresh key per attempt and
// reuse it only when retrying the same attempt, a retry of a SUCCEEDED key
// replays the stored response instead of re-running the operation.
// Unique constraint: (business_id, operation_name, request_key).
type IdempotencyKey struct {
	ID            int               `gorm:"primary_key" json:"id"`
	BusinessId    string            `gorm:"size:64;not null;index:uniq_idem,unique" json:"business_id"`
	OperationName string            `gorm:"size:100;not null;index:uniq_idem,unique" json:"operation_name"`
	RequestKey    string            `gorm:"size:255;not null;index:uniq_idem,unique" json:"request_key"`
	Status        IdempotencyStatus `gorm:"size:20;not null;index" json:"status"`
	Response      []byte            `gorm:"type:blob" json:"response"`
	LastError     *string           `gorm:"type:text" json:"last_error"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}
