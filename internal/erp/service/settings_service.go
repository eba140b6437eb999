package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/apperr"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
)

// 设置缓存TTL
const settingsCacheTTL = 60 * time.Second

// SettingsWriter 发货设置写入端口
type SettingsWriter interface {
	UpsertShippingSettings(ctx context.Context, settings *entity.ShippingSettings) error
}

// SettingsService 组织级发货设置的读取与维护
type SettingsService struct {
	store  AllocationStore
	writer SettingsWriter
	rdb    *redis.Client
}

func NewSettingsService(store AllocationStore, writer SettingsWriter, rdb *redis.Client) *SettingsService {
	return &SettingsService{store: store, writer: writer, rdb: rdb}
}

func settingsCacheKey(orgID string) string {
	return "erp:shipping-settings:" + orgID
}

// Get 读取组织发货设置，未配置时返回默认值
func (s *SettingsService) Get(ctx context.Context, orgID string) (*entity.ShippingSettings, error) {
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, settingsCacheKey(orgID)).Result()
		if err == nil && cached != "" {
			var settings entity.ShippingSettings
			if json.Unmarshal([]byte(cached), &settings) == nil {
				return &settings, nil
			}
		}
	}

	settings, err := s.store.GetShippingSettings(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("读取发货设置失败: %w", err)
	}
	if settings == nil {
		settings = entity.DefaultShippingSettings(orgID)
	}

	if s.rdb != nil {
		if payload, err := json.Marshal(settings); err == nil {
			s.rdb.Set(ctx, settingsCacheKey(orgID), payload, settingsCacheTTL)
		}
	}
	return settings, nil
}

type UpdateSettingsRequest struct {
	AllocationThresholdPct float64 `json:"allocation_threshold_pct" binding:"required,gt=0,lte=100"`
	DefaultPickingStrategy string  `json:"default_picking_strategy" binding:"required"`
	FefoWarningDays        int     `json:"fefo_warning_days" binding:"gte=0"`
	AutoAllocateOnConfirm  bool    `json:"auto_allocate_on_confirm"`
}

// Update 更新组织发货设置
func (s *SettingsService) Update(ctx context.Context, orgID string, req UpdateSettingsRequest) (*entity.ShippingSettings, error) {
	if req.DefaultPickingStrategy != entity.StrategyFIFO && req.DefaultPickingStrategy != entity.StrategyFEFO {
		return nil, apperr.Validation(fmt.Sprintf("unknown picking strategy %q", req.DefaultPickingStrategy))
	}
	settings, err := s.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	settings.AllocationThresholdPct = req.AllocationThresholdPct
	settings.DefaultPickingStrategy = req.DefaultPickingStrategy
	settings.FefoWarningDays = req.FefoWarningDays
	settings.AutoAllocateOnConfirm = req.AutoAllocateOnConfirm
	if err := s.writer.UpsertShippingSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("保存发货设置失败: %w", err)
	}
	if s.rdb != nil {
		s.rdb.Del(ctx, settingsCacheKey(orgID))
	}
	return settings, nil
}

// OrgContext 为一次引擎调用装配显式组织上下文
func (s *SettingsService) OrgContext(ctx context.Context, orgID string) (OrgContext, error) {
	settings, err := s.Get(ctx, orgID)
	if err != nil {
		return OrgContext{}, err
	}
	return OrgContext{
		OrgID:           orgID,
		ThresholdPct:    settings.AllocationThresholdPct,
		DefaultStrategy: settings.DefaultPickingStrategy,
		FefoWarningDays: settings.FefoWarningDays,
	}, nil
}

// AutoAllocateOnConfirm 确认订单时是否自动分配
func (s *SettingsService) AutoAllocateOnConfirm(ctx context.Context, orgID string) (bool, error) {
	settings, err := s.Get(ctx, orgID)
	if err != nil {
		return false, err
	}
	return settings.AutoAllocateOnConfirm, nil
}
