package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

func barStockLockName(barId string) string {
	return fmt.Sprintf("stock:%s", barId)
}

// AcquireBarStockLock serializes stock-changing closes per bar across instances.
// MySQL GET_LOCK is connection-scoped, so it must run on the transaction that
// does the close and be paired with ReleaseBarStockLock. The PostgreSQL lock is
// transaction-scoped and released on commit or rollback. SQLite allows a single
// writer, so it needs no lock.
func AcquireBarStockLock(tx *gorm.DB, barId string) error {
	lockName := barStockLockName(barId)
	switch tx.Dialector.Name() {
	case "mysql":
		var ok int
		if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
			return err
		}
		if ok != 1 {
			return fmt.Errorf("could not acquire stock lock for bar_id=%s", barId)
		}
	case "postgres":
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", lockName).Error; err != nil {
			return err
		}
	}
	return nil
}

func ReleaseBarStockLock(tx *gorm.DB, barId string) {
	if tx.Dialector.Name() != "mysql" {
		return
	}
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", barStockLockName(barId)).Scan(&_ok).Error
}
