package handler

import (
	"net/http"
	"strconv"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/service"
	"github.com/gin-gonic/gin"
)

type LicensePlateHandler struct {
	svc      *service.LicensePlateService
	lotPool  *service.LotPoolService
	settings *service.SettingsService
}

func NewLicensePlateHandler(svc *service.LicensePlateService, lotPool *service.LotPoolService, settings *service.SettingsService) *LicensePlateHandler {
	return &LicensePlateHandler{svc: svc, lotPool: lotPool, settings: settings}
}

// Inbound 入库创建批次
func (h *LicensePlateHandler) Inbound(c *gin.Context) {
	var req service.InboundLPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	lp, err := h.svc.Inbound(c.Request.Context(), c.GetString("org_id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, lp)
}

func (h *LicensePlateHandler) Get(c *gin.Context) {
	lp, err := h.svc.Get(c.Request.Context(), c.GetString("org_id"), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, lp)
}

func (h *LicensePlateHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	params := service.LPListParams{
		OrgID:       c.GetString("org_id"),
		ProductID:   c.Query("product_id"),
		WarehouseID: c.Query("warehouse_id"),
		Status:      c.Query("status"),
		QAStatus:    c.Query("qa_status"),
		Page:        page,
		Size:        size,
	}
	lps, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"items": lps, "total": total, "page": page, "size": size})
}

// Available 按策略排序返回某产品的可分配批次
func (h *LicensePlateHandler) Available(c *gin.Context) {
	productID := c.Query("product_id")
	if productID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": "product_id is required"})
		return
	}
	org, err := h.settings.OrgContext(c.Request.Context(), c.GetString("org_id"))
	if err != nil {
		fail(c, err)
		return
	}
	lots, err := h.lotPool.GetAvailableLots(c.Request.Context(), org, productID, c.Query("strategy"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"items": lots, "total": len(lots)})
}
