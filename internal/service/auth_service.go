// Package service 提供操作员认证：密码校验与令牌签发。
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/g33ktony/diecast-manager/internal/config"
)

// 认证相关错误定义
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
)

// Claims 定义JWT载荷结构
// 继承jwt.RegisteredClaims以获得标准声明字段
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService 定义操作员认证接口。
// 本服务为单操作员后台，凭据来自配置（密码为bcrypt哈希），
// 没有用户注册和角色体系。
type AuthService interface {
	Login(username, password string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// authService 实现AuthService接口
type authService struct {
	config *config.Config
	logger *zap.Logger
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg *config.Config, logger *zap.Logger) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authService{
		config: cfg,
		logger: logger,
	}
}

// Login 校验操作员凭据并签发访问令牌
func (s *authService) Login(username, password string) (string, error) {
	if username != s.config.Auth.AdminUser {
		s.logger.Warn("login attempt with unknown username", zap.String("username", username))
		return "", ErrInvalidCredentials
	}

	err := bcrypt.CompareHashAndPassword([]byte(s.config.Auth.AdminPasswordHash), []byte(password))
	if err != nil {
		s.logger.Warn("login attempt with wrong password", zap.String("username", username))
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.JWT.AccessTTL)),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.JWT.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.JWT.Secret))
	if err != nil {
		s.logger.Error("failed to sign token", zap.Error(err))
		return "", fmt.Errorf("sign token: %w", err)
	}

	s.logger.Info("operator logged in",
		zap.String("username", username),
		zap.Duration("ttl", s.config.JWT.AccessTTL))
	return tokenString, nil
}

// ValidateToken 验证访问令牌
func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWT.Secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		s.logger.Warn("token validation failed", zap.Error(err))
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Issuer != s.config.JWT.Issuer {
		s.logger.Warn("token issuer mismatch",
			zap.String("expected", s.config.JWT.Issuer),
			zap.String("actual", claims.Issuer))
		return nil, ErrInvalidToken
	}

	return claims, nil
}
