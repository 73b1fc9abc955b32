package workflow

import (
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/warehub_backend/models"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var ErrIdempotencyInProgress = errors.New("idempotency in progress")

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// BeginIdempotency inserts STARTED for (businessId, operationName, requestKey).
// If a SUCCEEDED row already exists it returns (replay, nil) so the caller can
// return the stored response instead of re-running the operation.
func BeginIdempotency(tx *gorm.DB, businessId, operationName, requestKey string) (replay *models.IdempotencyKey, err error) {
	key := models.IdempotencyKey{
		BusinessId:    businessId,
		OperationName: operationName,
		RequestKey:    requestKey,
		Status:        models.IdempotencyStatusStarted,
	}
	if err := tx.Create(&key).Error; err == nil {
		return nil, nil
	} else if !isDuplicateKeyErr(err) {
		return nil, err
	}

	var existing models.IdempotencyKey
	if err := tx.Where("business_id = ? AND operation_name = ? AND request_key = ?", businessId, operationName, requestKey).
		First(&existing).Error; err != nil {
		return nil, err
	}

	switch existing.Status {
	case models.IdempotencyStatusSucceeded:
		return &existing, nil
	case models.IdempotencyStatusStarted:
		// Another attempt is still running; stale STARTED rows are taken over.
		if time.Since(existing.UpdatedAt) < 5*time.Minute {
			return nil, ErrIdempotencyInProgress
		}
		return nil, tx.Model(&models.IdempotencyKey{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil}).Error
	default:
		return nil, tx.Model(&models.IdempotencyKey{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil}).Error
	}
}

// MarkIdempotencySucceeded stores the response for replay on a later retry.
func MarkIdempotencySucceeded(tx *gorm.DB, businessId, operationName, requestKey string, response []byte) error {
	return tx.Model(&models.IdempotencyKey{}).
		Where("business_id = ? AND operation_name = ? AND request_key = ?", businessId, operationName, requestKey).
		Updates(map[string]interface{}{
			"status":     models.IdempotencyStatusSucceeded,
			"response":   response,
			"last_error": nil,
		}).Error
}

func MarkIdempotencyFailed(tx *gorm.DB, businessId, operationName, requestKey string, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return tx.Model(&models.IdempotencyKey{}).
		Where("business_id = ? AND operation_name = ? AND request_key = ?", businessId, operationName, requestKey).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusFailed, "last_error": &msg}).Error
}
