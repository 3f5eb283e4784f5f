// Package api 提供交付单相关的HTTP API处理器实现。
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/g33ktony/diecast-manager/internal/domain"
	"github.com/g33ktony/diecast-manager/internal/middleware"
	"github.com/g33ktony/diecast-manager/internal/resp"
	"github.com/g33ktony/diecast-manager/internal/service"
)

// DeliveryHandler 交付单相关的HTTP处理器
type DeliveryHandler struct {
	deliveryService service.DeliveryService
	logger          *zap.Logger
}

// NewDeliveryHandler 创建交付处理器实例
func NewDeliveryHandler(deliveryService service.DeliveryService, logger *zap.Logger) *DeliveryHandler {
	return &DeliveryHandler{
		deliveryService: deliveryService,
		logger:          logger,
	}
}

// CreateDelivery 创建交付单
// POST /api/v1/deliveries
func (h *DeliveryHandler) CreateDelivery(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.CreateDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	delivery, err := h.deliveryService.CreateDelivery(&req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "create delivery", err)
		return
	}

	resp.OK(w, delivery, reqID, "")
}

// GetDelivery 获取交付单详情
// GET /api/v1/deliveries/{id}
func (h *DeliveryHandler) GetDelivery(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	delivery, err := h.deliveryService.GetDelivery(id)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "get delivery", err)
		return
	}

	resp.OK(w, delivery, reqID, "")
}

// ListDeliveries 获取交付单列表
// GET /api/v1/deliveries?page=1&customer_id=1&status=scheduled&payment_status=partial&date_from=...&date_to=...
func (h *DeliveryHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	req := &domain.DeliveryListRequest{}
	query := r.URL.Query()

	req.Page, req.PageSize = parsePagination(query.Get("page"), query.Get("page_size"))

	if customerIDStr := query.Get("customer_id"); customerIDStr != "" {
		if customerID, err := strconv.ParseInt(customerIDStr, 10, 64); err == nil {
			req.CustomerID = &customerID
		}
	}
	if statusStr := query.Get("status"); statusStr != "" {
		status := domain.DeliveryStatus(statusStr)
		req.Status = &status
	}
	if paymentStr := query.Get("payment_status"); paymentStr != "" {
		paymentStatus := domain.PaymentStatus(paymentStr)
		req.PaymentStatus = &paymentStatus
	}
	if dateFrom, ok := parseDate(query.Get("date_from")); ok {
		req.DateFrom = &dateFrom
	}
	if dateTo, ok := parseDate(query.Get("date_to")); ok {
		req.DateTo = &dateTo
	}
	if sortBy := query.Get("sort_by"); sortBy != "" {
		req.SortBy = &sortBy
	}
	if sortOrder := query.Get("sort_order"); sortOrder != "" {
		req.SortOrder = &sortOrder
	}

	result, err := h.deliveryService.ListDeliveries(req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "list deliveries", err)
		return
	}

	resp.OK(w, result, reqID, "")
}

// UpdateItems 替换交付单行项
// PUT /api/v1/deliveries/{id}/items
func (h *DeliveryHandler) UpdateItems(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	var req domain.UpdateDeliveryItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	delivery, err := h.deliveryService.UpdateItems(id, &req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "update delivery items", err)
		return
	}

	resp.OK(w, delivery, reqID, "")
}

// DeleteDelivery 删除交付单
// DELETE /api/v1/deliveries/{id}
func (h *DeliveryHandler) DeleteDelivery(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	if err := h.deliveryService.DeleteDelivery(id); err != nil {
		writeServiceError(w, h.logger, reqID, "delete delivery", err)
		return
	}

	result := map[string]interface{}{"deleted": true}
	resp.OK(w, &result, reqID, "")
}

// Prepare 标记为已备货
// POST /api/v1/deliveries/{id}/prepare
func (h *DeliveryHandler) Prepare(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	delivery, err := h.deliveryService.Prepare(id)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "prepare delivery", err)
		return
	}

	resp.OK(w, delivery, reqID, "")
}

// Complete 完成交付
// POST /api/v1/deliveries/{id}/complete
func (h *DeliveryHandler) Complete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	// 请求体可省略，等价于 mark_paid=false
	var req domain.CompleteDeliveryRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	delivery, warning, err := h.deliveryService.Complete(id, &req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "complete delivery", err)
		return
	}

	if warning != "" {
		resp.OKWithWarning(w, delivery, warning, reqID, "")
		return
	}
	resp.OK(w, delivery, reqID, "")
}

// Reschedule 改期
// POST /api/v1/deliveries/{id}/reschedule
func (h *DeliveryHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	var req domain.RescheduleDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}
	if req.ScheduledDate.IsZero() {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "scheduled_date is required", reqID, "")
		return
	}

	delivery, err := h.deliveryService.Reschedule(id, &req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "reschedule delivery", err)
		return
	}

	resp.OK(w, delivery, reqID, "")
}

// Cancel 取消交付
// POST /api/v1/deliveries/{id}/cancel
func (h *DeliveryHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	var req domain.CancelDeliveryRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	delivery, err := h.deliveryService.Cancel(id, &req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "cancel delivery", err)
		return
	}

	resp.OK(w, delivery, reqID, "")
}

// RevertToPending 将已完成的交付单回退为已排期
// POST /api/v1/deliveries/{id}/revert
func (h *DeliveryHandler) RevertToPending(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	delivery, err := h.deliveryService.RevertToPending(id)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "revert delivery", err)
		return
	}

	resp.OK(w, delivery, reqID, "")
}

// AddPayment 登记收款
// POST /api/v1/deliveries/{id}/payments
func (h *DeliveryHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	var req domain.AddPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	delivery, warning, err := h.deliveryService.AddPayment(id, &req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "add payment", err)
		return
	}

	if warning != "" {
		resp.OKWithWarning(w, delivery, warning, reqID, "")
		return
	}
	resp.OK(w, delivery, reqID, "")
}

// RemovePayment 撤销收款
// DELETE /api/v1/deliveries/{id}/payments/{payment_id}
func (h *DeliveryHandler) RemovePayment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}
	paymentID, err := pathID(r, "payment_id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	delivery, err := h.deliveryService.RemovePayment(id, paymentID)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "remove payment", err)
		return
	}

	resp.OK(w, delivery, reqID, "")
}

// parseDate 解析日期参数，支持RFC3339和YYYY-MM-DD两种格式
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
