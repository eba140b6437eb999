package service

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 具备分配权限的角色
var allocationRoles = []string{"admin", "manager", "warehouse"}

// Services ERP 服务集合
type Services struct {
	Sales        *SalesService
	LicensePlate *LicensePlateService
	LotPool      *LotPoolService
	Strategy     *StrategyService
	Allocation   *AllocationService
	Release      *ReleaseService
	Settings     *SettingsService
	Report       *ReportService
}

func NewServices(store AllocationStore, salesStore SalesStore, lpStore LicensePlateStore, settingsWriter SettingsWriter, rdb *redis.Client, logger *zap.Logger) *Services {
	authz := NewRoleAuthorizer(allocationRoles...)

	var sink BackorderSink = NopBackorderSink{}
	if rdb != nil {
		sink = NewRedisBackorderPublisher(rdb, DefaultBackorderChannel)
	}

	strategy := NewStrategyService(store)
	lotPool := NewLotPoolService(store)
	settings := NewSettingsService(store, settingsWriter, rdb)
	alloc := NewAllocationService(store, strategy, lotPool, authz, sink, logger)
	release := NewReleaseService(store, authz, logger)

	return &Services{
		Sales:        NewSalesService(salesStore, settings, alloc, logger),
		LicensePlate: NewLicensePlateService(lpStore),
		LotPool:      lotPool,
		Strategy:     strategy,
		Allocation:   alloc,
		Release:      release,
		Settings:     settings,
		Report:       NewReportService(alloc),
	}
}
