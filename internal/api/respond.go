// Package api 提供HTTP API处理器的公共工具。
package api

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/g33ktony/diecast-manager/internal/domain"
	"github.com/g33ktony/diecast-manager/internal/resp"
	"github.com/g33ktony/diecast-manager/internal/service"
)

// pathID 从路由通配符中解析数值ID
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// writeServiceError 将服务层错误映射为统一响应。
// 领域哨兵错误通过errors.Is/As识别，未识别的一律按内部错误处理。
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, reqID, op string, err error) {
	var compErr *domain.CompensationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		resp.Error(w, http.StatusNotFound, resp.CodeNotFound, err.Error(), reqID, "")
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrAlreadyReceived):
		resp.Error(w, http.StatusConflict, resp.CodeConflict, err.Error(), reqID, "")
	case errors.Is(err, domain.ErrOverpayment):
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
	case errors.As(err, &compErr):
		resp.Error(w, http.StatusConflict, resp.CodeConflict, compErr.Error(), reqID, "")
	case errors.Is(err, service.ErrInvalidCredentials):
		resp.Error(w, http.StatusUnauthorized, resp.CodeUnauthorized, "invalid credentials", reqID, "")
	default:
		logger.Error(op+" failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, op+" failed", reqID, "")
	}
}
