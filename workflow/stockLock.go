package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// acquireBusinessStockLock serializes stock movement per business across
// instances using MySQL advisory locks. GET_LOCK is connection-scoped, so
// this must run on the same transaction that moves the stock.
func acquireBusinessStockLock(tx *gorm.DB, businessId string) error {
	lockName := fmt.Sprintf("stock:%s", businessId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire stock lock for business_id=%s", businessId)
	}
	return nil
}

// release before the transaction ends, the pooled connection would otherwise
// keep holding the lock
func releaseBusinessStockLock(tx *gorm.DB, businessId string) {
	lockName := fmt.Sprintf("stock:%s", businessId)
	var released int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&released).Error
}
