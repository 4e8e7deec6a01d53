package repository

import (
	"context"
	"fmt"

	"ProgressSync/internal/model"

	"gorm.io/gorm"
)

// OperationRepository 同步操作日志仓储
type OperationRepository interface {
	Create(ctx context.Context, op *model.ServerOperation) error
	// ListRecent 最近的操作记录，按时间倒序
	ListRecent(ctx context.Context, limit int) ([]*model.ServerOperation, error)
}

type operationRepository struct {
	db *gorm.DB
}

func NewOperationRepository(db *gorm.DB) OperationRepository {
	return &operationRepository{db: db}
}

func (r *operationRepository) Create(ctx context.Context, op *model.ServerOperation) error {
	if err := r.db.WithContext(ctx).Create(op).Error; err != nil {
		return fmt.Errorf("保存ServerOperation失败: %w, run_id: %s", err, op.RunID)
	}
	return nil
}

func (r *operationRepository) ListRecent(ctx context.Context, limit int) ([]*model.ServerOperation, error) {
	if limit <= 0 {
		limit = 20
	}
	var list []*model.ServerOperation
	if err := r.db.WithContext(ctx).
		Order("timestamp DESC").Order("id DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
