package handler

import (
	"net/http"
	"strconv"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/service"
	"github.com/gin-gonic/gin"
)

type SalesHandler struct {
	svc *service.SalesService
}

func NewSalesHandler(svc *service.SalesService) *SalesHandler {
	return &SalesHandler{svc: svc}
}

func (h *SalesHandler) CreateSO(c *gin.Context) {
	var req service.CreateSORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	so, err := h.svc.CreateSO(c.Request.Context(), c.GetString("org_id"), req, c.GetString("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, so)
}

func (h *SalesHandler) GetSO(c *gin.Context) {
	so, err := h.svc.GetSO(c.Request.Context(), c.GetString("org_id"), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, so)
}

func (h *SalesHandler) ListSOs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	params := service.SOListParams{
		OrgID:   c.GetString("org_id"),
		Status:  c.Query("status"),
		Keyword: c.Query("keyword"),
		Page:    page,
		Size:    size,
	}
	sos, total, err := h.svc.ListSOs(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"items": sos, "total": total, "page": page, "size": size})
}

// ConfirmSO 确认订单；组织开启自动分配时响应附带分配结果
func (h *SalesHandler) ConfirmSO(c *gin.Context) {
	so, result, err := h.svc.ConfirmSO(c.Request.Context(), c.GetString("org_id"), c.Param("id"), c.GetString("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"sales_order": so, "allocation": result})
}
