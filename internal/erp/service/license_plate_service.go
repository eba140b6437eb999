package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/apperr"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LicensePlateService 库存批次管理
type LicensePlateService struct {
	repo LicensePlateStore
}

func NewLicensePlateService(repo LicensePlateStore) *LicensePlateService {
	return &LicensePlateService{repo: repo}
}

type InboundLPRequest struct {
	ProductID   string  `json:"product_id" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0"`
	Unit        string  `json:"unit"`
	WarehouseID string  `json:"warehouse_id"`
	LocationID  string  `json:"location_id"`
	BatchNo     string  `json:"batch_no"`
	ExpiryDate  string  `json:"expiry_date"` // YYYY-MM-DD
	QAStatus    string  `json:"qa_status"`
}

// Inbound 入库创建批次
func (s *LicensePlateService) Inbound(ctx context.Context, orgID string, req InboundLPRequest) (*entity.LicensePlate, error) {
	now := time.Now()
	batchNo := req.BatchNo
	if batchNo == "" {
		batchNo = fmt.Sprintf("%s%03d", now.Format("20060102"), now.UnixNano()%1000)
	}
	unit := req.Unit
	if unit == "" {
		unit = "pcs"
	}
	qaStatus := req.QAStatus
	if qaStatus == "" {
		qaStatus = entity.QAStatusPending
	}
	switch qaStatus {
	case entity.QAStatusPassed, entity.QAStatusPending, entity.QAStatusFailed, entity.QAStatusQuarantine:
	default:
		return nil, apperr.Validation(fmt.Sprintf("unknown qa_status %q", qaStatus))
	}

	lp := &entity.LicensePlate{
		ID:           uuid.New().String(),
		OrgID:        orgID,
		LPNumber:     fmt.Sprintf("LP-%s-%04d", now.Format("20060102"), now.UnixNano()%10000),
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		AvailableQty: req.Quantity,
		Unit:         unit,
		WarehouseID:  req.WarehouseID,
		LocationID:   req.LocationID,
		BatchNo:      batchNo,
		QAStatus:     qaStatus,
		Status:       entity.LPStatusAvailable,
	}
	if req.ExpiryDate != "" {
		t, err := time.Parse("2006-01-02", req.ExpiryDate)
		if err != nil {
			return nil, apperr.Validation("expiry_date must be YYYY-MM-DD")
		}
		lp.ExpiryDate = &t
	}

	if err := s.repo.Create(ctx, lp); err != nil {
		return nil, fmt.Errorf("创建库存批次失败: %w", err)
	}
	return lp, nil
}

// Get 读取批次
func (s *LicensePlateService) Get(ctx context.Context, orgID, id string) (*entity.LicensePlate, error) {
	lp, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.NotFound("license plate"), err)
		}
		return nil, fmt.Errorf("读取库存批次失败: %w", err)
	}
	return lp, nil
}

func (s *LicensePlateService) List(ctx context.Context, params LPListParams) ([]entity.LicensePlate, int64, error) {
	return s.repo.List(ctx, params)
}
