package testutil

import (
	"time"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/handler"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/service"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const JWTSecret = "erp-allocation-test-secret"

// NewRouter 在内存存储上装配完整的 gin 路由，路由表与 erp-server 一致
func NewRouter(mem *MemStore) (*gin.Engine, *service.Services) {
	gin.SetMode(gin.TestMode)
	services := service.NewServices(mem, mem, mem, mem, nil, nil)
	handlers := handler.NewHandlers(services)

	router := gin.New()
	v1 := router.Group("/api/v1/erp")
	v1.Use(middleware.JWTAuth(JWTSecret))
	{
		salesOrders := v1.Group("/sales-orders")
		{
			salesOrders.GET("", handlers.Sales.ListSOs)
			salesOrders.POST("", handlers.Sales.CreateSO)
			salesOrders.GET("/:id", handlers.Sales.GetSO)
			salesOrders.POST("/:id/confirm", handlers.Sales.ConfirmSO)
			salesOrders.POST("/:id/allocate", handlers.Allocation.Allocate)
			salesOrders.POST("/:id/release-allocation", handlers.Allocation.Release)
			salesOrders.GET("/:id/allocations", handlers.Allocation.Panel)
			salesOrders.GET("/:id/allocations/export.xlsx", handlers.Allocation.Export)
		}
		licensePlates := v1.Group("/license-plates")
		{
			licensePlates.GET("", handlers.LicensePlate.List)
			licensePlates.POST("", handlers.LicensePlate.Inbound)
			licensePlates.GET("/available", handlers.LicensePlate.Available)
			licensePlates.GET("/:id", handlers.LicensePlate.Get)
		}
		v1.GET("/shipping-settings", handlers.Settings.Get)
		v1.PUT("/shipping-settings", handlers.Settings.Update)
	}
	return router, services
}

// MakeToken 签发测试JWT
func MakeToken(userID, orgID, role string) string {
	claims := middleware.JWTClaims{
		UserID: userID,
		OrgID:  orgID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(JWTSecret))
	if err != nil {
		panic(err)
	}
	return signed
}
