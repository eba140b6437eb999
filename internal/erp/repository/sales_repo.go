package repository

import (
	"context"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/service"
	"gorm.io/gorm"
)

type SalesRepository struct {
	db *gorm.DB
}

func NewSalesRepository(db *gorm.DB) *SalesRepository {
	return &SalesRepository{db: db}
}

func (r *SalesRepository) CreateSO(ctx context.Context, so *entity.SalesOrder) error {
	return r.db.WithContext(ctx).Create(so).Error
}

func (r *SalesRepository) GetSOByID(ctx context.Context, orgID, id string) (*entity.SalesOrder, error) {
	var so entity.SalesOrder
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ? AND org_id = ? AND deleted_at IS NULL", id, orgID).
		First(&so).Error
	if err != nil {
		return nil, err
	}
	return &so, nil
}

func (r *SalesRepository) ListSOs(ctx context.Context, params service.SOListParams) ([]entity.SalesOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.SalesOrder{}).
		Where("org_id = ? AND deleted_at IS NULL", params.OrgID)
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("so_code ILIKE ?", kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var sos []entity.SalesOrder
	err := query.Preload("Lines").Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&sos).Error
	return sos, total, err
}

func (r *SalesRepository) UpdateSOStatus(ctx context.Context, orgID, id, status string) error {
	return r.db.WithContext(ctx).Model(&entity.SalesOrder{}).
		Where("id = ? AND org_id = ?", id, orgID).
		Update("status", status).Error
}
