// Package service 实现库存业务逻辑层，负责库存管理和业务规则。
package service

import (
	"errors"
	"fmt"

	"github.com/g33ktony/diecast-manager/internal/domain"
	"github.com/g33ktony/diecast-manager/internal/repo"
)

// InventoryService 定义库存业务逻辑接口
type InventoryService interface {
	// 库存管理
	CreateItem(req *domain.CreateInventoryItemRequest) (*domain.InventoryItem, error)
	GetItem(id int64) (*domain.InventoryItem, error)
	UpdateItem(id int64, req *domain.UpdateInventoryItemRequest) (*domain.InventoryItem, error)
	DeleteItem(id int64) error

	// 库存查询
	ListItems(req *domain.InventoryListRequest) (*domain.InventoryListResponse, error)
	GetStats() (*InventoryStats, error)

	// 台账操作，供交付/销售/采购服务编排调用
	Reserve(itemID int64, qty int) error
	Release(itemID int64, qty int) error
	Commit(itemID int64, qty int) error
	Restock(itemID int64, qty int) error
}

// InventoryStats 库存统计信息
type InventoryStats struct {
	TotalItems        int64   `json:"total_items"`
	TotalQuantity     int64   `json:"total_quantity"`
	TotalReserved     int64   `json:"total_reserved"`
	OutOfStockItems   int     `json:"out_of_stock_items"`
	SealedBoxes       int     `json:"sealed_boxes"`
	TotalCostValue    float64 `json:"total_cost_value"`
	TotalRetailValue  float64 `json:"total_retail_value"`
	PotentialProfit   float64 `json:"potential_profit"`
	ItemsWithReserves int     `json:"items_with_reserves"`
}

// inventoryService 实现InventoryService接口
type inventoryService struct {
	inventoryRepo repo.InventoryRepository
	catalogRepo   repo.CatalogRepository
}

// NewInventoryService 创建库存服务实例
func NewInventoryService(inventoryRepo repo.InventoryRepository, catalogRepo repo.CatalogRepository) InventoryService {
	return &inventoryService{
		inventoryRepo: inventoryRepo,
		catalogRepo:   catalogRepo,
	}
}

// CreateItem 创建库存记录。
// 同车型+成色+品牌的已有记录会被合并（数量累加），而不是另起一条。
func (s *inventoryService) CreateItem(req *domain.CreateInventoryItemRequest) (*domain.InventoryItem, error) {
	if err := validateCreateItem(req); err != nil {
		return nil, err
	}

	// 用目录图鉴补全名称和图片
	if req.CarName == "" || len(req.Photos) == 0 {
		car, err := s.catalogRepo.GetByCarID(req.CarID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up catalog: %w", err)
		}
		if car != nil {
			if req.CarName == "" {
				req.CarName = car.Name
			}
			if len(req.Photos) == 0 && car.PhotoURL != "" {
				req.Photos = []string{car.PhotoURL}
			}
		}
	}

	// 盒类记录不参与合并
	if !req.IsBox {
		existing, err := s.inventoryRepo.FindMergeTarget(req.CarID, req.Condition, req.Brand)
		if err != nil {
			return nil, fmt.Errorf("failed to find merge target: %w", err)
		}
		if existing != nil {
			existing.Restock(req.Quantity)
			if err := s.inventoryRepo.UpdateWithVersion(existing); err != nil {
				return nil, fmt.Errorf("failed to merge inventory item: %w", err)
			}
			return existing, nil
		}
	}

	item := &domain.InventoryItem{
		CarID:          req.CarID,
		CarName:        req.CarName,
		Quantity:       req.Quantity,
		PurchasePrice:  req.PurchasePrice,
		SuggestedPrice: req.SuggestedPrice,
		Condition:      req.Condition,
		Brand:          req.Brand,
		Photos:         req.Photos,
		Location:       req.Location,
		Notes:          req.Notes,
		IsBox:          req.IsBox,
	}
	if req.IsBox {
		item.BoxSize = req.BoxSize
		item.BoxPrice = req.BoxPrice
		item.BoxStatus = domain.BoxStatusSealed
		item.Quantity = 1
		item.PurchasePrice = req.BoxPrice
	}

	if err := s.inventoryRepo.Create(item); err != nil {
		return nil, fmt.Errorf("failed to create inventory item: %w", err)
	}
	return item, nil
}

// GetItem 获取库存详情
func (s *inventoryService) GetItem(id int64) (*domain.InventoryItem, error) {
	item, err := s.inventoryRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

// UpdateItem 更新库存记录
func (s *inventoryService) UpdateItem(id int64, req *domain.UpdateInventoryItemRequest) (*domain.InventoryItem, error) {
	item, err := s.inventoryRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return nil, errors.New("quantity cannot be negative")
		}
		if *req.Quantity < item.ReservedQuantity {
			return nil, errors.New("quantity cannot be less than reserved quantity")
		}
		item.Quantity = *req.Quantity
	}
	if req.PurchasePrice != nil {
		if *req.PurchasePrice < 0 {
			return nil, errors.New("purchase price cannot be negative")
		}
		item.PurchasePrice = *req.PurchasePrice
	}
	if req.SuggestedPrice != nil {
		if *req.SuggestedPrice < 0 {
			return nil, errors.New("suggested price cannot be negative")
		}
		item.SuggestedPrice = *req.SuggestedPrice
	}
	if req.ActualPrice != nil {
		item.ActualPrice = req.ActualPrice
	}
	if req.Condition != nil {
		item.Condition = *req.Condition
	}
	if req.Photos != nil {
		item.Photos = req.Photos
	}
	if req.Location != nil {
		item.Location = *req.Location
	}
	if req.Notes != nil {
		item.Notes = *req.Notes
	}

	if err := s.inventoryRepo.UpdateWithVersion(item); err != nil {
		return nil, fmt.Errorf("failed to update inventory item: %w", err)
	}
	return item, nil
}

// DeleteItem 删除库存记录。仍被交付单预留的记录不允许删除。
func (s *inventoryService) DeleteItem(id int64) error {
	item, err := s.inventoryRepo.GetByID(id)
	if err != nil {
		return fmt.Errorf("failed to get inventory item: %w", err)
	}
	if item == nil {
		return domain.ErrNotFound
	}

	if item.ReservedQuantity > 0 {
		return fmt.Errorf("%w: item has %d units reserved by deliveries", domain.ErrInvalidState, item.ReservedQuantity)
	}

	return s.inventoryRepo.Delete(id)
}

// ListItems 获取库存列表
func (s *inventoryService) ListItems(req *domain.InventoryListRequest) (*domain.InventoryListResponse, error) {
	// 设置默认值
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	items, total, err := s.inventoryRepo.List(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory items: %w", err)
	}

	return &domain.InventoryListResponse{
		Items:    items,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}

// GetStats 获取库存统计信息
func (s *inventoryService) GetStats() (*InventoryStats, error) {
	req := &domain.InventoryListRequest{
		Page:     1,
		PageSize: 1000, // 简化处理，实际应该分页处理
	}

	items, total, err := s.inventoryRepo.List(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory items: %w", err)
	}

	stats := &InventoryStats{TotalItems: total}
	for _, item := range items {
		stats.TotalQuantity += int64(item.Quantity)
		stats.TotalReserved += int64(item.ReservedQuantity)
		stats.TotalCostValue += item.PurchasePrice * float64(item.Quantity)
		stats.TotalRetailValue += item.SuggestedPrice * float64(item.Quantity)

		if item.Quantity == 0 {
			stats.OutOfStockItems++
		}
		if item.ReservedQuantity > 0 {
			stats.ItemsWithReserves++
		}
		if item.IsBox && item.BoxStatus == domain.BoxStatusSealed {
			stats.SealedBoxes++
		}
	}
	stats.PotentialProfit = stats.TotalRetailValue - stats.TotalCostValue

	return stats, nil
}

// Reserve 预留库存
func (s *inventoryService) Reserve(itemID int64, qty int) error {
	if qty <= 0 {
		return errors.New("reserve quantity must be positive")
	}
	if err := s.inventoryRepo.ReserveStock(itemID, qty); err != nil {
		return fmt.Errorf("failed to reserve stock for item %d: %w", itemID, err)
	}
	return nil
}

// Release 释放预留。底层UPDATE向下取零，重复补偿是安全的。
func (s *inventoryService) Release(itemID int64, qty int) error {
	if qty <= 0 {
		return errors.New("release quantity must be positive")
	}
	if err := s.inventoryRepo.ReleaseStock(itemID, qty); err != nil {
		return fmt.Errorf("failed to release stock for item %d: %w", itemID, err)
	}
	return nil
}

// Commit 将预留转为永久扣减
func (s *inventoryService) Commit(itemID int64, qty int) error {
	if qty <= 0 {
		return errors.New("commit quantity must be positive")
	}
	if err := s.inventoryRepo.CommitStock(itemID, qty); err != nil {
		return fmt.Errorf("failed to commit stock for item %d: %w", itemID, err)
	}
	return nil
}

// Restock 增加在库数量（销售回退或采购入库）
func (s *inventoryService) Restock(itemID int64, qty int) error {
	if qty <= 0 {
		return errors.New("restock quantity must be positive")
	}
	if err := s.inventoryRepo.RestockStock(itemID, qty); err != nil {
		return fmt.Errorf("failed to restock item %d: %w", itemID, err)
	}
	return nil
}

// validateCreateItem 校验创建请求
func validateCreateItem(req *domain.CreateInventoryItemRequest) error {
	if req.CarID == "" {
		return errors.New("car_id is required")
	}
	if req.IsBox {
		if req.BoxSize <= 0 {
			return errors.New("box size must be greater than 0")
		}
		if req.BoxPrice <= 0 {
			return errors.New("box price must be greater than 0")
		}
		return nil
	}
	if req.Quantity <= 0 {
		return errors.New("quantity must be greater than 0")
	}
	if req.PurchasePrice < 0 {
		return errors.New("purchase price cannot be negative")
	}
	return nil
}
