package handler

import (
	"net/http"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/apperr"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/service"
	"github.com/gin-gonic/gin"
)

// Handlers ERP HTTP处理器集合
type Handlers struct {
	Sales        *SalesHandler
	LicensePlate *LicensePlateHandler
	Allocation   *AllocationHandler
	Settings     *SettingsHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Sales:        NewSalesHandler(services.Sales),
		LicensePlate: NewLicensePlateHandler(services.LicensePlate, services.LotPool, services.Settings),
		Allocation:   NewAllocationHandler(services.Allocation, services.Release, services.Report, services.Settings),
		Settings:     NewSettingsHandler(services.Settings),
	}
}

// 业务错误码映射（envelope code），error_code 保持 apperr 的稳定字符串码
var envelopeCodes = map[string]int{
	apperr.CodeValidation:           10001,
	apperr.CodeNotFound:             10002,
	apperr.CodeForbidden:            10003,
	apperr.CodeInvalidStatus:        10004,
	apperr.CodeNoAvailableInventory: 10005,
}

// fail 统一错误响应：业务错误走 apperr 的状态码和稳定错误码，其余按500处理
func fail(c *gin.Context, err error) {
	if e, ok := apperr.As(err); ok {
		c.JSON(e.StatusCode, gin.H{
			"code":       envelopeCodes[e.Code],
			"error_code": e.Code,
			"message":    e.Message,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": data})
}
