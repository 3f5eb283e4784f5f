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

// BoxHandler 原盒拆盒相关的HTTP处理器
type BoxHandler struct {
	boxService service.BoxService
	logger     *zap.Logger
}

// NewBoxHandler 创建拆盒处理器实例
func NewBoxHandler(boxService service.BoxService, logger *zap.Logger) *BoxHandler {
	return &BoxHandler{
		boxService: boxService,
		logger:     logger,
	}
}

// GetBox 获取原盒及其已登记单品
// GET /api/v1/boxes/{id}
func (h *BoxHandler) GetBox(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	detail, err := h.boxService.GetBox(id)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "get box", err)
		return
	}

	resp.OK(w, detail, reqID, "")
}

// RegisterPieces 登记拆出的单品
// POST /api/v1/boxes/{id}/pieces
func (h *BoxHandler) RegisterPieces(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	var req domain.RegisterPiecesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}
	if len(req.Pieces) == 0 {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "pieces is required", reqID, "")
		return
	}

	detail, err := h.boxService.RegisterPieces(id, &req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "register box pieces", err)
		return
	}

	resp.OK(w, detail, reqID, "")
}

// UpdatePieceQuantity 修正已登记单品的数量
// PUT /api/v1/boxes/pieces/{piece_id}
func (h *BoxHandler) UpdatePieceQuantity(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	pieceID, err := pathID(r, "piece_id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	var req domain.UpdatePieceQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	piece, err := h.boxService.UpdatePieceQuantity(pieceID, &req)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "update box piece", err)
		return
	}

	resp.OK(w, piece, reqID, "")
}

// DeletePiece 删除已登记单品并回补原盒剩余数
// DELETE /api/v1/boxes/pieces/{piece_id}
func (h *BoxHandler) DeletePiece(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	pieceID, err := pathID(r, "piece_id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	if err := h.boxService.DeletePiece(pieceID); err != nil {
		writeServiceError(w, h.logger, reqID, "delete box piece", err)
		return
	}

	result := map[string]interface{}{"deleted": true}
	resp.OK(w, &result, reqID, "")
}

// CompleteBox 强制完成拆盒（剩余未登记的部分按废弃处理）
// POST /api/v1/boxes/{id}/complete
func (h *BoxHandler) CompleteBox(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	var req domain.CompleteBoxRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.boxService.CompleteBox(id, &req); err != nil {
		writeServiceError(w, h.logger, reqID, "complete box", err)
		return
	}

	result := map[string]interface{}{"completed": true}
	resp.OK(w, &result, reqID, "")
}
