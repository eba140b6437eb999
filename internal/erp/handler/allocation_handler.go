package handler

import (
	"net/http"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AllocationHandler struct {
	alloc    *service.AllocationService
	release  *service.ReleaseService
	report   *service.ReportService
	settings *service.SettingsService
	logger   *zap.Logger
}

func NewAllocationHandler(alloc *service.AllocationService, release *service.ReleaseService, report *service.ReportService, settings *service.SettingsService) *AllocationHandler {
	return &AllocationHandler{alloc: alloc, release: release, report: report, settings: settings, logger: zap.NewNop()}
}

// Allocate 对订单执行库存分配，请求体可选（缺省为自动FIFO/FEFO分配）
func (h *AllocationHandler) Allocate(c *gin.Context) {
	var req service.AllocateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
			return
		}
	}
	org, err := h.settings.OrgContext(c.Request.Context(), c.GetString("org_id"))
	if err != nil {
		fail(c, err)
		return
	}
	result, err := h.alloc.AllocateSalesOrder(c.Request.Context(), org, c.Param("id"), req, c.GetString("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

type releaseRequest struct {
	Reason string `json:"reason"`
}

// Release 释放订单全部分配，归还批次可用量
func (h *AllocationHandler) Release(c *gin.Context) {
	var req releaseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
			return
		}
	}
	org, err := h.settings.OrgContext(c.Request.Context(), c.GetString("org_id"))
	if err != nil {
		fail(c, err)
		return
	}
	result, err := h.release.ReleaseAllocation(c.Request.Context(), org, c.Param("id"), req.Reason, c.GetString("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

// Panel 分配面板数据：行、可用批次、已有分配、汇总、撤销窗口
func (h *AllocationHandler) Panel(c *gin.Context) {
	org, err := h.settings.OrgContext(c.Request.Context(), c.GetString("org_id"))
	if err != nil {
		fail(c, err)
		return
	}
	panel, err := h.alloc.GetAllocationPanel(c.Request.Context(), org, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, panel)
}

// Export 导出分配结果 xlsx
func (h *AllocationHandler) Export(c *gin.Context) {
	org, err := h.settings.OrgContext(c.Request.Context(), c.GetString("org_id"))
	if err != nil {
		fail(c, err)
		return
	}
	f, filename, err := h.report.AllocationReport(c.Request.Context(), org, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := f.Write(c.Writer); err != nil {
		h.logger.Warn("write xlsx response failed", zap.Error(err))
	}
}
