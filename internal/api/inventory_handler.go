// Package api 提供库存相关的HTTP API处理器实现。
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/g33ktony/diecast-manager/internal/domain"
	"github.com/g33ktony/diecast-manager/internal/middleware"
	"github.com/g33ktony/diecast-manager/internal/resp"
	"github.com/g33ktony/diecast-manager/internal/service"
)

// InventoryHandler 库存相关的HTTP处理器
type InventoryHandler struct {
	inventoryService service.InventoryService
	logger           *zap.Logger
}

// NewInventoryHandler 创建库存处理器实例
func NewInventoryHandler(inventoryService service.InventoryService, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		logger:           logger,
	}
}

// CreateItem 创建库存记录
// POST /api/v1/inventory
func (h *InventoryHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.CreateInventoryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	item, err := h.inventoryService.CreateItem(&req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "create inventory item", err)
		return
	}

	resp.OK(w, item, reqID, "")
}

// GetItem 获取库存详情
// GET /api/v1/inventory/{id}
func (h *InventoryHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	item, err := h.inventoryService.GetItem(id)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "get inventory item", err)
		return
	}

	resp.OK(w, item, reqID, "")
}

// UpdateItem 更新库存记录
// PUT /api/v1/inventory/{id}
func (h *InventoryHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	var req domain.UpdateInventoryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	item, err := h.inventoryService.UpdateItem(id, &req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "update inventory item", err)
		return
	}

	resp.OK(w, item, reqID, "")
}

// DeleteItem 删除库存记录
// DELETE /api/v1/inventory/{id}
func (h *InventoryHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	if err := h.inventoryService.DeleteItem(id); err != nil {
		writeServiceError(w, h.logger, reqID, "delete inventory item", err)
		return
	}

	result := map[string]interface{}{"deleted": true}
	resp.OK(w, &result, reqID, "")
}

// ListItems 获取库存列表
// GET /api/v1/inventory?page=1&page_size=20&car_id=...&condition=mint&only_boxes=true&in_stock=true
func (h *InventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	req := &domain.InventoryListRequest{}
	query := r.URL.Query()

	req.Page, req.PageSize = parsePagination(query.Get("page"), query.Get("page_size"))

	if carID := query.Get("car_id"); carID != "" {
		req.CarID = &carID
	}
	if conditionStr := query.Get("condition"); conditionStr != "" {
		condition := domain.ItemCondition(conditionStr)
		req.Condition = &condition
	}
	if onlyBoxesStr := query.Get("only_boxes"); onlyBoxesStr != "" {
		if onlyBoxes, err := strconv.ParseBool(onlyBoxesStr); err == nil {
			req.OnlyBoxes = &onlyBoxes
		}
	}
	if inStockStr := query.Get("in_stock"); inStockStr != "" {
		if inStock, err := strconv.ParseBool(inStockStr); err == nil {
			req.InStock = &inStock
		}
	}
	if sortBy := query.Get("sort_by"); sortBy != "" {
		req.SortBy = &sortBy
	}
	if sortOrder := query.Get("sort_order"); sortOrder != "" {
		req.SortOrder = &sortOrder
	}

	result, err := h.inventoryService.ListItems(req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "list inventory items", err)
		return
	}

	resp.OK(w, result, reqID, "")
}

// GetStats 获取库存统计信息
// GET /api/v1/inventory/stats
func (h *InventoryHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	stats, err := h.inventoryService.GetStats()
	if err != nil {
		writeServiceError(w, h.logger, reqID, "get inventory stats", err)
		return
	}

	resp.OK(w, stats, reqID, "")
}

// parsePagination 解析分页参数，越界时回退到默认值
func parsePagination(pageStr, pageSizeStr string) (int, int) {
	page := 1
	pageSize := 20

	if pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if pageSizeStr != "" {
		if ps, err := strconv.Atoi(pageSizeStr); err == nil && ps > 0 && ps <= 100 {
			pageSize = ps
		}
	}
	return page, pageSize
}
