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

// SaleHandler 销售记录相关的HTTP处理器
type SaleHandler struct {
	saleService service.SaleService
	logger      *zap.Logger
}

// NewSaleHandler 创建销售处理器实例
func NewSaleHandler(saleService service.SaleService, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{
		saleService: saleService,
		logger:      logger,
	}
}

// ListSales 获取销售记录列表
// GET /api/v1/sales?page=1&delivery_id=1&status=active&date_from=...&date_to=...
func (h *SaleHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	req := &domain.SaleListRequest{}
	query := r.URL.Query()

	req.Page, req.PageSize = parsePagination(query.Get("page"), query.Get("page_size"))

	if deliveryIDStr := query.Get("delivery_id"); deliveryIDStr != "" {
		if deliveryID, err := strconv.ParseInt(deliveryIDStr, 10, 64); err == nil {
			req.DeliveryID = &deliveryID
		}
	}
	if statusStr := query.Get("status"); statusStr != "" {
		status := domain.SaleStatus(statusStr)
		req.Status = &status
	}
	if dateFrom, ok := parseDate(query.Get("date_from")); ok {
		req.DateFrom = &dateFrom
	}
	if dateTo, ok := parseDate(query.Get("date_to")); ok {
		req.DateTo = &dateTo
	}

	result, err := h.saleService.ListSales(req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "list sales", err)
		return
	}

	resp.OK(w, result, reqID, "")
}

// GetSale 获取销售记录详情
// GET /api/v1/sales/{id}
func (h *SaleHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	sale, err := h.saleService.GetSale(id)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "get sale", err)
		return
	}

	resp.OK(w, sale, reqID, "")
}

// CreateDirectSale 现场直售：直接扣减库存并生成销售记录
// POST /api/v1/sales/direct
func (h *SaleHandler) CreateDirectSale(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.CreateDirectSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	sale, err := h.saleService.CreateDirectSale(&req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "create direct sale", err)
		return
	}

	resp.OK(w, sale, reqID, "")
}

// RevertSale 撤销销售记录并回补库存
// POST /api/v1/sales/{id}/revert
func (h *SaleHandler) RevertSale(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	if err := h.saleService.RevertSale(id); err != nil {
		writeServiceError(w, h.logger, reqID, "revert sale", err)
		return
	}

	sale, err := h.saleService.GetSale(id)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "get sale", err)
		return
	}

	resp.OK(w, sale, reqID, "")
}
