// Package router 提供HTTP路由与中间件装配。
package router

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/g33ktony/diecast-manager/internal/api"
	"github.com/g33ktony/diecast-manager/internal/config"
	"github.com/g33ktony/diecast-manager/internal/limiter"
	"github.com/g33ktony/diecast-manager/internal/middleware"
	"github.com/g33ktony/diecast-manager/internal/service"
)

// Dependencies 包含路由装配所需的所有依赖
type Dependencies struct {
	AuthHandler      *api.AuthHandler
	InventoryHandler *api.InventoryHandler
	DeliveryHandler  *api.DeliveryHandler
	PurchaseHandler  *api.PurchaseHandler
	SaleHandler      *api.SaleHandler
	BoxHandler       *api.BoxHandler
	CatalogHandler   *api.CatalogHandler
	AuthService      service.AuthService
	WriteLimiter     limiter.Limiter // 为nil时写接口不限流
}

// Router 路由器接口
type Router interface {
	Setup(cfg *config.Config, deps *Dependencies, lg *zap.Logger) http.Handler
}

// muxRouter 基于标准库ServeMux的路由器实现，
// 依赖Go 1.22+的方法+模式路由。
type muxRouter struct {
	deps   *Dependencies
	logger *zap.Logger
}

// New 创建新的路由器实例
func New() Router {
	return &muxRouter{}
}

// Setup 装配路由和中间件
func (r *muxRouter) Setup(cfg *config.Config, deps *Dependencies, lg *zap.Logger) http.Handler {
	r.deps = deps
	r.logger = lg

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", r.healthCheck(cfg))
	mux.HandleFunc("POST /api/v1/auth/login", deps.AuthHandler.Login)

	r.setupInventoryRoutes(mux)
	r.setupDeliveryRoutes(mux)
	r.setupPurchaseRoutes(mux)
	r.setupSaleRoutes(mux)
	r.setupBoxRoutes(mux)
	r.setupCatalogRoutes(mux)

	// 全局中间件链，RequestID最先执行以便后续日志关联
	var handler http.Handler = mux
	handler = middleware.AccessLog(lg)(handler)
	handler = middleware.CORS(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders)(handler)
	handler = middleware.Timeout(cfg.App.RequestTimeout)(handler)
	handler = middleware.Recovery(lg)(handler)
	handler = middleware.RequestID(handler)
	return handler
}

// read 为读接口套上认证中间件
func (r *muxRouter) read(h http.HandlerFunc) http.Handler {
	return middleware.Auth(r.deps.AuthService, r.logger)(h)
}

// write 为写接口套上认证与限流中间件
func (r *muxRouter) write(h http.HandlerFunc) http.Handler {
	var handler http.Handler = h
	if r.deps.WriteLimiter != nil {
		handler = limiter.Middleware(r.deps.WriteLimiter)(handler)
	}
	return middleware.Auth(r.deps.AuthService, r.logger)(handler)
}

func (r *muxRouter) setupInventoryRoutes(mux *http.ServeMux) {
	h := r.deps.InventoryHandler
	mux.Handle("GET /api/v1/inventory", r.read(h.ListItems))
	mux.Handle("GET /api/v1/inventory/stats", r.read(h.GetStats))
	mux.Handle("GET /api/v1/inventory/{id}", r.read(h.GetItem))
	mux.Handle("POST /api/v1/inventory", r.write(h.CreateItem))
	mux.Handle("PUT /api/v1/inventory/{id}", r.write(h.UpdateItem))
	mux.Handle("DELETE /api/v1/inventory/{id}", r.write(h.DeleteItem))
}

func (r *muxRouter) setupDeliveryRoutes(mux *http.ServeMux) {
	h := r.deps.DeliveryHandler
	mux.Handle("GET /api/v1/deliveries", r.read(h.ListDeliveries))
	mux.Handle("GET /api/v1/deliveries/{id}", r.read(h.GetDelivery))
	mux.Handle("POST /api/v1/deliveries", r.write(h.CreateDelivery))
	mux.Handle("PUT /api/v1/deliveries/{id}/items", r.write(h.UpdateItems))
	mux.Handle("DELETE /api/v1/deliveries/{id}", r.write(h.DeleteDelivery))
	mux.Handle("POST /api/v1/deliveries/{id}/prepare", r.write(h.Prepare))
	mux.Handle("POST /api/v1/deliveries/{id}/complete", r.write(h.Complete))
	mux.Handle("POST /api/v1/deliveries/{id}/reschedule", r.write(h.Reschedule))
	mux.Handle("POST /api/v1/deliveries/{id}/cancel", r.write(h.Cancel))
	mux.Handle("POST /api/v1/deliveries/{id}/revert", r.write(h.RevertToPending))
	mux.Handle("POST /api/v1/deliveries/{id}/payments", r.write(h.AddPayment))
	mux.Handle("DELETE /api/v1/deliveries/{id}/payments/{payment_id}", r.write(h.RemovePayment))
}

func (r *muxRouter) setupPurchaseRoutes(mux *http.ServeMux) {
	h := r.deps.PurchaseHandler
	mux.Handle("GET /api/v1/purchases", r.read(h.ListPurchases))
	mux.Handle("GET /api/v1/purchases/{id}", r.read(h.GetPurchase))
	mux.Handle("POST /api/v1/purchases", r.write(h.CreatePurchase))
	mux.Handle("PUT /api/v1/purchases/{id}/status", r.write(h.UpdateStatus))
	mux.Handle("POST /api/v1/purchases/{id}/receive", r.write(h.ReceiveWithVerification))
	mux.Handle("DELETE /api/v1/purchases/{id}", r.write(h.DeletePurchase))
}

func (r *muxRouter) setupSaleRoutes(mux *http.ServeMux) {
	h := r.deps.SaleHandler
	mux.Handle("GET /api/v1/sales", r.read(h.ListSales))
	mux.Handle("GET /api/v1/sales/{id}", r.read(h.GetSale))
	mux.Handle("POST /api/v1/sales/direct", r.write(h.CreateDirectSale))
	mux.Handle("POST /api/v1/sales/{id}/revert", r.write(h.RevertSale))
}

func (r *muxRouter) setupBoxRoutes(mux *http.ServeMux) {
	h := r.deps.BoxHandler
	mux.Handle("GET /api/v1/boxes/{id}", r.read(h.GetBox))
	mux.Handle("POST /api/v1/boxes/{id}/pieces", r.write(h.RegisterPieces))
	mux.Handle("POST /api/v1/boxes/{id}/complete", r.write(h.CompleteBox))
	mux.Handle("PUT /api/v1/boxes/pieces/{piece_id}", r.write(h.UpdatePieceQuantity))
	mux.Handle("DELETE /api/v1/boxes/pieces/{piece_id}", r.write(h.DeletePiece))
}

func (r *muxRouter) setupCatalogRoutes(mux *http.ServeMux) {
	h := r.deps.CatalogHandler
	mux.Handle("GET /api/v1/catalog", r.read(h.Search))
	mux.Handle("GET /api/v1/catalog/{car_id}", r.read(h.GetCar))
	mux.Handle("DELETE /api/v1/catalog/{car_id}/cache", r.write(h.Invalidate))
}

// healthCheck 健康检查处理器
func (r *muxRouter) healthCheck(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": cfg.App.Version,
		})
	}
}
