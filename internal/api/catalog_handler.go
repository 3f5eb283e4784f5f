package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/g33ktony/diecast-manager/internal/domain"
	"github.com/g33ktony/diecast-manager/internal/middleware"
	"github.com/g33ktony/diecast-manager/internal/resp"
	"github.com/g33ktony/diecast-manager/internal/service"
)

// CatalogHandler 车型目录相关的HTTP处理器
type CatalogHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewCatalogHandler 创建目录处理器实例
func NewCatalogHandler(catalogService service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// Search 检索车型目录
// GET /api/v1/catalog?q=mustang&page=1
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	req := &domain.CatalogSearchRequest{}
	query := r.URL.Query()
	req.Query = query.Get("q")
	req.Page, req.PageSize = parsePagination(query.Get("page"), query.Get("page_size"))

	result, err := h.catalogService.Search(req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "search catalog", err)
		return
	}

	resp.OK(w, result, reqID, "")
}

// GetCar 按车型编号获取目录详情
// GET /api/v1/catalog/{car_id}
func (h *CatalogHandler) GetCar(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	carID := r.PathValue("car_id")
	if carID == "" {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "car_id is required", reqID, "")
		return
	}

	car, err := h.catalogService.GetCar(carID)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "get catalog car", err)
		return
	}

	resp.OK(w, car, reqID, "")
}

// Invalidate 失效指定车型的目录缓存
// DELETE /api/v1/catalog/{car_id}/cache
func (h *CatalogHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	carID := r.PathValue("car_id")
	if carID == "" {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "car_id is required", reqID, "")
		return
	}

	if err := h.catalogService.Invalidate(r.Context(), carID); err != nil {
		writeServiceError(w, h.logger, reqID, "invalidate catalog cache", err)
		return
	}

	result := map[string]interface{}{"invalidated": true}
	resp.OK(w, &result, reqID, "")
}
