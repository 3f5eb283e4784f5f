package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/g33ktony/diecast-manager/internal/domain"
	"github.com/g33ktony/diecast-manager/internal/middleware"
	"github.com/g33ktony/diecast-manager/internal/resp"
	"github.com/g33ktony/diecast-manager/internal/service"
)

// PurchaseHandler 采购单相关的HTTP处理器
type PurchaseHandler struct {
	purchaseService service.PurchaseService
	logger          *zap.Logger
}

// NewPurchaseHandler 创建采购处理器实例
func NewPurchaseHandler(purchaseService service.PurchaseService, logger *zap.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseService: purchaseService,
		logger:          logger,
	}
}

// CreatePurchase 创建采购单
// POST /api/v1/purchases
func (h *PurchaseHandler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.CreatePurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	purchase, err := h.purchaseService.CreatePurchase(&req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "create purchase", err)
		return
	}

	resp.OK(w, purchase, reqID, "")
}

// GetPurchase 获取采购单详情
// GET /api/v1/purchases/{id}
func (h *PurchaseHandler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	purchase, err := h.purchaseService.GetPurchase(id)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "get purchase", err)
		return
	}

	resp.OK(w, purchase, reqID, "")
}

// ListPurchases 获取采购单列表
// GET /api/v1/purchases?page=1&status=pending&supplier=...
func (h *PurchaseHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	req := &domain.PurchaseListRequest{}
	query := r.URL.Query()

	req.Page, req.PageSize = parsePagination(query.Get("page"), query.Get("page_size"))

	if statusStr := query.Get("status"); statusStr != "" {
		status := domain.PurchaseStatus(statusStr)
		req.Status = &status
	}
	if supplier := query.Get("supplier"); supplier != "" {
		req.Supplier = &supplier
	}

	result, err := h.purchaseService.ListPurchases(req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "list purchases", err)
		return
	}

	resp.OK(w, result, reqID, "")
}

// UpdateStatus 更新采购单状态（置为received时触发入库）
// PUT /api/v1/purchases/{id}/status
func (h *PurchaseHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	var req domain.UpdatePurchaseStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	purchase, err := h.purchaseService.UpdateStatus(id, &req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "update purchase status", err)
		return
	}

	resp.OK(w, purchase, reqID, "")
}

// ReceiveWithVerification 带核验入库：按实收数量修正后入库
// POST /api/v1/purchases/{id}/receive
func (h *PurchaseHandler) ReceiveWithVerification(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	// 请求体可省略，等价于无修正的直接入库
	var req domain.ReceiveVerificationRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	purchase, err := h.purchaseService.ReceiveWithVerification(id, &req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "receive purchase", err)
		return
	}

	resp.OK(w, purchase, reqID, "")
}

// DeletePurchase 删除采购单，已入库的会先撤回其创建的库存
// DELETE /api/v1/purchases/{id}
func (h *PurchaseHandler) DeletePurchase(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	if err := h.purchaseService.DeletePurchase(id); err != nil {
		writeServiceError(w, h.logger, reqID, "delete purchase", err)
		return
	}

	result := map[string]interface{}{"deleted": true}
	resp.OK(w, &result, reqID, "")
}
