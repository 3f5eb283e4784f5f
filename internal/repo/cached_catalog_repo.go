// Package repo 提供带缓存的目录仓储实现
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/g33ktony/diecast-manager/internal/cache"
	"github.com/g33ktony/diecast-manager/internal/domain"
)

// CachedCatalogRepository 带缓存的目录仓储。
// 图鉴条目只在抓取周期更新，按厂商编号的点查是创建库存记录的
// 热路径，适合较长TTL的旁路缓存。
type CachedCatalogRepository struct {
	repo  CatalogRepository
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedCatalogRepository 创建带缓存的目录仓储
func NewCachedCatalogRepository(repo CatalogRepository, cache cache.Cache, ttl time.Duration) CatalogRepository {
	return &CachedCatalogRepository{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
	}
}

// GetByCarID 按厂商编号获取图鉴条目（带缓存）
func (r *CachedCatalogRepository) GetByCarID(carID string) (*domain.CatalogCar, error) {
	ctx := context.Background()
	cacheKey := r.getCatalogCacheKey(carID)

	// 尝试从缓存获取
	var car domain.CatalogCar
	err := r.cache.Get(ctx, cacheKey, &car)
	if err == nil {
		return &car, nil
	}

	// 缓存未命中，从数据库获取
	result, err := r.repo.GetByCarID(carID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	// 写入缓存
	r.cache.Set(ctx, cacheKey, result, r.ttl)

	return result, nil
}

// Search 模糊检索（不缓存，因为参数组合太多）
func (r *CachedCatalogRepository) Search(req *domain.CatalogSearchRequest) ([]*domain.CatalogCar, int64, error) {
	return r.repo.Search(req)
}

// Invalidate 清除指定厂商编号的缓存，抓取子系统刷新图鉴后调用
func (r *CachedCatalogRepository) Invalidate(ctx context.Context, carID string) error {
	return r.cache.Del(ctx, r.getCatalogCacheKey(carID))
}

// 缓存键生成方法
func (r *CachedCatalogRepository) getCatalogCacheKey(carID string) string {
	return fmt.Sprintf("catalog:car:%s", carID)
}
