package repository

import (
	"context"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// UpsertShippingSettings 按组织维度写入发货设置，已存在则覆盖
func (r *SettingsRepository) UpsertShippingSettings(ctx context.Context, settings *entity.ShippingSettings) error {
	if settings.ID == "" {
		settings.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "org_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"allocation_threshold_pct", "default_picking_strategy",
			"fefo_warning_days", "auto_allocate_on_confirm", "updated_at",
		}),
	}).Create(settings).Error
}
