// Package service 实现销售记录业务逻辑层：交付物化、回退补偿与现场直售。
package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/g33ktony/diecast-manager/internal/domain"
	"github.com/g33ktony/diecast-manager/internal/repo"
)

// SaleService 定义销售记录业务逻辑接口
type SaleService interface {
	// MaterializeDelivery 将已完成的交付单物化为销售记录。
	// 幂等：同一交付单已有活跃销售记录时直接返回它；
	// 预售行与无库存支撑的行不产生销售行项；全部为预售行时不产生记录。
	MaterializeDelivery(delivery *domain.Delivery) (*domain.Sale, error)

	// RollbackDelivery 回退某交付单的全部活跃销售记录：
	// 逐行恢复库存在库数量，并将销售记录标记为已回退。
	// 返回是否确有记录被回退；欠款完成的交付尚未物化，无可回退。
	RollbackDelivery(deliveryID int64) (bool, error)

	// CreateDirectSale 现场直售，不经交付流程，直接扣减可用库存。
	CreateDirectSale(req *domain.CreateDirectSaleRequest) (*domain.Sale, error)

	// RevertSale 回退单条销售记录（直售场景），恢复库存。
	RevertSale(id int64) error

	GetSale(id int64) (*domain.Sale, error)
	ListSales(req *domain.SaleListRequest) (*domain.SaleListResponse, error)
}

// saleService 实现SaleService接口
type saleService struct {
	saleRepo      repo.SaleRepository
	inventoryRepo repo.InventoryRepository
	logger        *zap.Logger
}

// NewSaleService 创建销售服务实例
func NewSaleService(saleRepo repo.SaleRepository, inventoryRepo repo.InventoryRepository, logger *zap.Logger) SaleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &saleService{
		saleRepo:      saleRepo,
		inventoryRepo: inventoryRepo,
		logger:        logger,
	}
}

// MaterializeDelivery 将已完成的交付单物化为销售记录
func (s *saleService) MaterializeDelivery(delivery *domain.Delivery) (*domain.Sale, error) {
	// 幂等守卫：已物化则直接返回已有记录
	exists, err := s.saleRepo.ExistsByDeliveryID(delivery.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing sale: %w", err)
	}
	if exists {
		sales, err := s.saleRepo.GetByDeliveryID(delivery.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing sale: %w", err)
		}
		for _, sale := range sales {
			if sale.Status == domain.SaleStatusActive {
				s.logger.Info("delivery already materialized, skipping",
					zap.Int64("delivery_id", delivery.ID),
					zap.Int64("sale_id", sale.ID))
				return sale, nil
			}
		}
	}

	var backed []*domain.DeliveryItem
	for _, item := range delivery.Items {
		if item.InventoryBacked() {
			backed = append(backed, item)
		}
	}
	// 全部为预售行：不产生销售记录
	if len(backed) == 0 {
		s.logger.Info("delivery has no inventory-backed items, no sale created",
			zap.Int64("delivery_id", delivery.ID))
		return nil, nil
	}

	ids := make([]int64, 0, len(backed))
	for _, item := range backed {
		ids = append(ids, *item.InventoryItemID)
	}
	invItems, err := s.inventoryRepo.GetByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory items: %w", err)
	}
	invMap := make(map[int64]*domain.InventoryItem, len(invItems))
	for _, inv := range invItems {
		invMap[inv.ID] = inv
	}

	// 逐行将预留转为永久扣减；失败时补回已扣减的行
	var committed []*domain.DeliveryItem
	for _, item := range backed {
		if err := s.inventoryRepo.CommitStock(*item.InventoryItemID, item.Quantity); err != nil {
			s.compensateCommits(committed)
			return nil, fmt.Errorf("failed to commit stock for item %d: %w", *item.InventoryItemID, err)
		}
		committed = append(committed, item)
	}

	deliveryID := delivery.ID
	customerID := delivery.CustomerID
	sale := &domain.Sale{
		SaleNumber: newSaleNumber(),
		DeliveryID: &deliveryID,
		CustomerID: &customerID,
		Status:     domain.SaleStatusActive,
		SoldAt:     time.Now(),
	}
	for _, item := range backed {
		cost := 0.0
		if inv := invMap[*item.InventoryItemID]; inv != nil {
			cost = inv.PurchasePrice
		}
		itemID := *item.InventoryItemID
		sale.Items = append(sale.Items, &domain.SaleItem{
			InventoryItemID: &itemID,
			CarID:           item.CarID,
			CarName:         item.CarName,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			CostPrice:       cost,
			Profit:          (item.UnitPrice - cost) * float64(item.Quantity),
		})
	}
	sale.Recalc()

	if err := s.saleRepo.Create(sale); err != nil {
		s.compensateCommits(committed)
		return nil, fmt.Errorf("failed to create sale: %w", err)
	}

	s.logger.Info("delivery materialized into sale",
		zap.Int64("delivery_id", delivery.ID),
		zap.Int64("sale_id", sale.ID),
		zap.String("sale_number", sale.SaleNumber),
		zap.Float64("total_amount", sale.TotalAmount))
	return sale, nil
}

// RollbackDelivery 回退某交付单的全部活跃销售记录
func (s *saleService) RollbackDelivery(deliveryID int64) (bool, error) {
	sales, err := s.saleRepo.GetByDeliveryID(deliveryID)
	if err != nil {
		return false, fmt.Errorf("failed to load sales for delivery: %w", err)
	}

	reverted := false
	for _, sale := range sales {
		if sale.Status != domain.SaleStatusActive {
			continue
		}
		if err := s.revert(sale); err != nil {
			return reverted, err
		}
		reverted = true
	}
	return reverted, nil
}

// CreateDirectSale 现场直售
func (s *saleService) CreateDirectSale(req *domain.CreateDirectSaleRequest) (*domain.Sale, error) {
	if len(req.Items) == 0 {
		return nil, errors.New("sale must contain at least one item")
	}
	for _, input := range req.Items {
		if input.Quantity <= 0 {
			return nil, errors.New("item quantity must be positive")
		}
		if input.UnitPrice < 0 {
			return nil, errors.New("unit price cannot be negative")
		}
	}

	sale := &domain.Sale{
		SaleNumber: newSaleNumber(),
		CustomerID: req.CustomerID,
		Status:     domain.SaleStatusActive,
		SoldAt:     time.Now(),
	}

	// 逐行扣减可用库存（守卫可用量，不触碰他人预留）；失败时补回
	var deducted []domain.DirectSaleItemInput
	for _, input := range req.Items {
		inv, err := s.inventoryRepo.GetByID(input.InventoryItemID)
		if err != nil {
			s.compensateDeducts(deducted)
			return nil, fmt.Errorf("failed to get inventory item: %w", err)
		}
		if inv == nil {
			s.compensateDeducts(deducted)
			return nil, fmt.Errorf("%w: inventory item %d", domain.ErrNotFound, input.InventoryItemID)
		}

		if err := s.inventoryRepo.DeductStock(input.InventoryItemID, input.Quantity); err != nil {
			s.compensateDeducts(deducted)
			return nil, fmt.Errorf("failed to deduct stock for item %d: %w", input.InventoryItemID, err)
		}
		deducted = append(deducted, input)

		itemID := input.InventoryItemID
		sale.Items = append(sale.Items, &domain.SaleItem{
			InventoryItemID: &itemID,
			CarID:           inv.CarID,
			CarName:         inv.CarName,
			Quantity:        input.Quantity,
			UnitPrice:       input.UnitPrice,
			CostPrice:       inv.PurchasePrice,
			Profit:          (input.UnitPrice - inv.PurchasePrice) * float64(input.Quantity),
		})
	}
	sale.Recalc()

	if err := s.saleRepo.Create(sale); err != nil {
		s.compensateDeducts(deducted)
		return nil, fmt.Errorf("failed to create sale: %w", err)
	}

	s.logger.Info("direct sale created",
		zap.Int64("sale_id", sale.ID),
		zap.String("sale_number", sale.SaleNumber),
		zap.Float64("total_amount", sale.TotalAmount))
	return sale, nil
}

// RevertSale 回退单条销售记录
func (s *saleService) RevertSale(id int64) error {
	sale, err := s.saleRepo.GetByID(id)
	if err != nil {
		return fmt.Errorf("failed to get sale: %w", err)
	}
	if sale == nil {
		return domain.ErrNotFound
	}
	if sale.Status != domain.SaleStatusActive {
		return fmt.Errorf("%w: sale is already reverted", domain.ErrInvalidState)
	}
	return s.revert(sale)
}

// GetSale 获取销售记录详情
func (s *saleService) GetSale(id int64) (*domain.Sale, error) {
	sale, err := s.saleRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	if sale == nil {
		return nil, domain.ErrNotFound
	}
	return sale, nil
}

// ListSales 获取销售记录列表
func (s *saleService) ListSales(req *domain.SaleListRequest) (*domain.SaleListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	sales, total, err := s.saleRepo.List(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}

	return &domain.SaleListResponse{
		Sales:    sales,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}

// revert 恢复一条销售记录涉及的库存并标记为已回退
func (s *saleService) revert(sale *domain.Sale) error {
	for _, item := range sale.Items {
		if item.InventoryItemID == nil {
			continue
		}
		if err := s.inventoryRepo.RestockStock(*item.InventoryItemID, item.Quantity); err != nil {
			return fmt.Errorf("failed to restock item %d: %w", *item.InventoryItemID, err)
		}
	}
	if err := s.saleRepo.UpdateStatus(sale.ID, domain.SaleStatusReverted); err != nil {
		return fmt.Errorf("failed to mark sale reverted: %w", err)
	}

	s.logger.Info("sale reverted",
		zap.Int64("sale_id", sale.ID),
		zap.String("sale_number", sale.SaleNumber))
	return nil
}

// compensateCommits 补回已永久扣减的交付行（物化中途失败时）
func (s *saleService) compensateCommits(items []*domain.DeliveryItem) {
	for _, item := range items {
		if err := s.inventoryRepo.RestockStock(*item.InventoryItemID, item.Quantity); err != nil {
			s.logger.Error("failed to compensate committed stock",
				zap.Int64("inventory_item_id", *item.InventoryItemID),
				zap.Error(err))
		}
		if err := s.inventoryRepo.ReserveStock(*item.InventoryItemID, item.Quantity); err != nil {
			s.logger.Error("failed to restore reservation",
				zap.Int64("inventory_item_id", *item.InventoryItemID),
				zap.Error(err))
		}
	}
}

// compensateDeducts 补回已扣减的直售行
func (s *saleService) compensateDeducts(items []domain.DirectSaleItemInput) {
	for _, item := range items {
		if err := s.inventoryRepo.RestockStock(item.InventoryItemID, item.Quantity); err != nil {
			s.logger.Error("failed to compensate deducted stock",
				zap.Int64("inventory_item_id", item.InventoryItemID),
				zap.Error(err))
		}
	}
}

// newSaleNumber 生成短销售单号
func newSaleNumber() string {
	return "S-" + strings.ToUpper(uuid.NewString()[:8])
}
