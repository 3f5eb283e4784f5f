// Package service 实现目录图鉴的查询与缓存生命周期。
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/g33ktony/diecast-manager/internal/domain"
	"github.com/g33ktony/diecast-manager/internal/repo"
)

// CatalogService 定义目录图鉴业务逻辑接口
type CatalogService interface {
	GetCar(carID string) (*domain.CatalogCar, error)
	Search(req *domain.CatalogSearchRequest) (*domain.CatalogSearchResponse, error)

	// Invalidate 抓取子系统刷新图鉴后清除对应缓存条目
	Invalidate(ctx context.Context, carID string) error
}

// catalogService 实现CatalogService接口
type catalogService struct {
	catalogRepo repo.CatalogRepository
	logger      *zap.Logger
}

// NewCatalogService 创建目录服务实例
func NewCatalogService(catalogRepo repo.CatalogRepository, logger *zap.Logger) CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &catalogService{
		catalogRepo: catalogRepo,
		logger:      logger,
	}
}

// GetCar 按厂商编号查询图鉴条目
func (s *catalogService) GetCar(carID string) (*domain.CatalogCar, error) {
	car, err := s.catalogRepo.GetByCarID(carID)
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog car: %w", err)
	}
	if car == nil {
		return nil, domain.ErrNotFound
	}
	return car, nil
}

// Search 按名称/编号模糊检索
func (s *catalogService) Search(req *domain.CatalogSearchRequest) (*domain.CatalogSearchResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cars, total, err := s.catalogRepo.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search catalog: %w", err)
	}

	return &domain.CatalogSearchResponse{
		Cars:     cars,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}

// Invalidate 清除指定条目的缓存
func (s *catalogService) Invalidate(ctx context.Context, carID string) error {
	cached, ok := s.catalogRepo.(*repo.CachedCatalogRepository)
	if !ok {
		return nil
	}
	if err := cached.Invalidate(ctx, carID); err != nil {
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}
	s.logger.Info("catalog cache invalidated", zap.String("car_id", carID))
	return nil
}
