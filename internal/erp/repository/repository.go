package repository

import "gorm.io/gorm"

// Repositories ERP 仓库集合
type Repositories struct {
	Store        *Store
	Sales        *SalesRepository
	LicensePlate *LicensePlateRepository
	Settings     *SettingsRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Store:        NewStore(db),
		Sales:        NewSalesRepository(db),
		LicensePlate: NewLicensePlateRepository(db),
		Settings:     NewSettingsRepository(db),
	}
}
