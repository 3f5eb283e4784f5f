package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/g33ktony/diecast-manager/internal/middleware"
	"github.com/g33ktony/diecast-manager/internal/resp"
	"github.com/g33ktony/diecast-manager/internal/service"
)

// AuthHandler 操作员认证相关的HTTP处理器
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler 创建认证处理器实例
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// loginRequest 登录请求体
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse 登录响应体
type loginResponse struct {
	Token string `json:"token"`
}

// Login 操作员登录，返回访问令牌
// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}
	if req.Username == "" || req.Password == "" {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "username and password are required", reqID, "")
		return
	}

	token, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, reqID, "login", err)
		return
	}

	h.logger.Info("operator logged in",
		zap.String("request_id", reqID),
		zap.String("username", req.Username),
	)
	resp.OK(w, &loginResponse{Token: token}, reqID, "")
}
