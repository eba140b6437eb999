package handler

import (
	"net/http"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/service"
	"github.com/gin-gonic/gin"
)

type SettingsHandler struct {
	svc *service.SettingsService
}

func NewSettingsHandler(svc *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// Get 读取组织发货设置，未配置时返回默认值
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.svc.Get(c.Request.Context(), c.GetString("org_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, settings)
}

// Update 更新组织发货设置
func (h *SettingsHandler) Update(c *gin.Context) {
	var req service.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	settings, err := h.svc.Update(c.Request.Context(), c.GetString("org_id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, settings)
}
