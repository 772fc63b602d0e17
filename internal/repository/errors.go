package repository

import (
	"elearn_backend/internal/util"
	"elearn_backend/pkg/logger"
	"elearn_backend/pkg/monitoring"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// translate 将 gorm 错误转换为领域错误：记录不存在映射为 notFound，其余视为存储不可用
func translate(err error, entity string, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil {
		return notFound
	}
	// 已经是领域错误的不再包装（事务回调内部返回）
	if util.IsNotFound(err) || errors.Is(err, util.ErrStoreUnavailable) {
		return err
	}
	monitoring.StoreErrorsTotal.WithLabelValues(entity).Inc()
	logger.Log.Error("Store operation failed", zap.String("entity", entity), zap.Error(err))
	return fmt.Errorf("%w: %s: %v", util.ErrStoreUnavailable, entity, err)
}

// forUpdate sqlite 不支持 SELECT ... FOR UPDATE，写事务本身已串行
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// updateExisting 先确认记录存在再更新。MySQL 在值未变化时 RowsAffected 为 0，不能据此判断记录不存在
func updateExisting(tx *gorm.DB, value interface{}, id string, apply func(*gorm.DB) error) error {
	var count int64
	if err := tx.Model(value).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return apply(tx.Model(value).Where("id = ?", id))
}
