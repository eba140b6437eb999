package repository

import (
	"context"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/service"
	"gorm.io/gorm"
)

type LicensePlateRepository struct {
	db *gorm.DB
}

func NewLicensePlateRepository(db *gorm.DB) *LicensePlateRepository {
	return &LicensePlateRepository{db: db}
}

func (r *LicensePlateRepository) Create(ctx context.Context, lp *entity.LicensePlate) error {
	return r.db.WithContext(ctx).Create(lp).Error
}

func (r *LicensePlateRepository) GetByID(ctx context.Context, orgID, id string) (*entity.LicensePlate, error) {
	var lp entity.LicensePlate
	err := r.db.WithContext(ctx).
		Where("id = ? AND org_id = ? AND deleted_at IS NULL", id, orgID).
		First(&lp).Error
	if err != nil {
		return nil, err
	}
	return &lp, nil
}

func (r *LicensePlateRepository) List(ctx context.Context, params service.LPListParams) ([]entity.LicensePlate, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.LicensePlate{}).
		Where("org_id = ? AND deleted_at IS NULL", params.OrgID)
	if params.ProductID != "" {
		query = query.Where("product_id = ?", params.ProductID)
	}
	if params.WarehouseID != "" {
		query = query.Where("warehouse_id = ?", params.WarehouseID)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.QAStatus != "" {
		query = query.Where("qa_status = ?", params.QAStatus)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var lps []entity.LicensePlate
	err := query.Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&lps).Error
	return lps, total, err
}
