// Package service 实现采购业务逻辑层：采购单生命周期、入库流水线与补偿删除。
package service

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/g33ktony/diecast-manager/internal/domain"
	"github.com/g33ktony/diecast-manager/internal/repo"
)

// PurchaseService 定义采购业务逻辑接口
type PurchaseService interface {
	CreatePurchase(req *domain.CreatePurchaseRequest) (*domain.Purchase, error)
	GetPurchase(id int64) (*domain.Purchase, error)
	ListPurchases(req *domain.PurchaseListRequest) (*domain.PurchaseListResponse, error)

	// UpdateStatus 推进采购单状态。转入 received 时触发入库流水线，
	// 且仅触发一次（IsReceived守卫）。
	UpdateStatus(id int64, req *domain.UpdatePurchaseStatusRequest) (*domain.Purchase, error)

	// ReceiveWithVerification 带核验入库：先按行项ID修正实收数量
	// （修正为0的行移除），再执行入库流水线。
	ReceiveWithVerification(id int64, req *domain.ReceiveVerificationRequest) (*domain.Purchase, error)

	// DeletePurchase 删除采购单。已入库的先做补偿校验：由其产生的
	// 库存若已被预留、排入交付或售出，以 CompensationError 逐项列出
	// 阻止原因；校验通过则撤回这些库存后删除。
	DeletePurchase(id int64) error
}

// purchaseService 实现PurchaseService接口
type purchaseService struct {
	purchaseRepo  repo.PurchaseRepository
	inventoryRepo repo.InventoryRepository
	deliveryRepo  repo.DeliveryRepository
	saleRepo      repo.SaleRepository
	logger        *zap.Logger
}

// NewPurchaseService 创建采购服务实例
func NewPurchaseService(
	purchaseRepo repo.PurchaseRepository,
	inventoryRepo repo.InventoryRepository,
	deliveryRepo repo.DeliveryRepository,
	saleRepo repo.SaleRepository,
	logger *zap.Logger,
) PurchaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &purchaseService{
		purchaseRepo:  purchaseRepo,
		inventoryRepo: inventoryRepo,
		deliveryRepo:  deliveryRepo,
		saleRepo:      saleRepo,
		logger:        logger,
	}
}

// CreatePurchase 创建采购单
func (s *purchaseService) CreatePurchase(req *domain.CreatePurchaseRequest) (*domain.Purchase, error) {
	if len(req.Items) == 0 {
		return nil, errors.New("purchase must contain at least one item")
	}
	for _, input := range req.Items {
		if input.CarID == "" {
			return nil, errors.New("item car_id is required")
		}
		if input.Quantity <= 0 {
			return nil, errors.New("item quantity must be positive")
		}
		if input.UnitPrice < 0 {
			return nil, errors.New("unit price cannot be negative")
		}
		if input.IsBox && input.BoxSize <= 0 {
			return nil, errors.New("box size must be greater than 0")
		}
	}

	purchase := &domain.Purchase{
		Supplier: req.Supplier,
		Status:   domain.PurchaseStatusPending,
		Notes:    req.Notes,
	}
	for _, input := range req.Items {
		purchase.Items = append(purchase.Items, &domain.PurchaseItem{
			CarID:     input.CarID,
			CarName:   input.CarName,
			Quantity:  input.Quantity,
			UnitPrice: input.UnitPrice,
			Condition: input.Condition,
			Brand:     input.Brand,
			IsBox:     input.IsBox,
			BoxSize:   input.BoxSize,
		})
	}
	purchase.RecalcTotal()

	if err := s.purchaseRepo.Create(purchase); err != nil {
		return nil, fmt.Errorf("failed to create purchase: %w", err)
	}

	s.logger.Info("purchase created",
		zap.Int64("purchase_id", purchase.ID),
		zap.String("supplier", purchase.Supplier),
		zap.Float64("total_cost", purchase.TotalCost))
	return purchase, nil
}

// GetPurchase 获取采购单详情
func (s *purchaseService) GetPurchase(id int64) (*domain.Purchase, error) {
	purchase, err := s.purchaseRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	if purchase == nil {
		return nil, domain.ErrNotFound
	}
	return purchase, nil
}

// ListPurchases 获取采购单列表
func (s *purchaseService) ListPurchases(req *domain.PurchaseListRequest) (*domain.PurchaseListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	purchases, total, err := s.purchaseRepo.List(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}

	return &domain.PurchaseListResponse{
		Purchases: purchases,
		Total:     total,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}, nil
}

// UpdateStatus 推进采购单状态
func (s *purchaseService) UpdateStatus(id int64, req *domain.UpdatePurchaseStatusRequest) (*domain.Purchase, error) {
	purchase, err := s.GetPurchase(id)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case domain.PurchaseStatusPending, domain.PurchaseStatusPaid, domain.PurchaseStatusShipped,
		domain.PurchaseStatusReceived, domain.PurchaseStatusCancelled:
	default:
		return nil, fmt.Errorf("invalid purchase status: %s", req.Status)
	}

	if req.Status == domain.PurchaseStatusReceived {
		return s.receive(purchase)
	}

	if purchase.IsReceived && req.Status == domain.PurchaseStatusCancelled {
		return nil, fmt.Errorf("%w: cannot cancel a received purchase", domain.ErrInvalidState)
	}

	purchase.Status = req.Status
	if err := s.purchaseRepo.Update(purchase); err != nil {
		return nil, fmt.Errorf("failed to update purchase: %w", err)
	}
	return purchase, nil
}

// ReceiveWithVerification 带核验入库
func (s *purchaseService) ReceiveWithVerification(id int64, req *domain.ReceiveVerificationRequest) (*domain.Purchase, error) {
	purchase, err := s.GetPurchase(id)
	if err != nil {
		return nil, err
	}
	if !purchase.CanReceive() {
		return nil, receiveGuardError(purchase)
	}

	// 按实收修正行项；修正为0的行移除
	if len(req.Corrections) > 0 {
		var kept []*domain.PurchaseItem
		for _, item := range purchase.Items {
			if corrected, ok := req.Corrections[item.ID]; ok {
				if corrected < 0 {
					return nil, errors.New("corrected quantity cannot be negative")
				}
				if corrected == 0 {
					continue
				}
				item.Quantity = corrected
			}
			kept = append(kept, item)
		}
		if len(kept) == 0 {
			return nil, errors.New("all items were corrected to zero")
		}

		purchase.Items = kept
		purchase.RecalcTotal()
		if err := s.purchaseRepo.ReplaceItems(id, kept); err != nil {
			return nil, fmt.Errorf("failed to replace purchase items: %w", err)
		}
	}

	return s.receive(purchase)
}

// DeletePurchase 删除采购单，必要时先补偿撤回其产生的库存
func (s *purchaseService) DeletePurchase(id int64) error {
	purchase, err := s.GetPurchase(id)
	if err != nil {
		return err
	}

	if purchase.IsReceived {
		created, err := s.inventoryRepo.GetBySourcePurchase(id)
		if err != nil {
			return fmt.Errorf("failed to load created inventory: %w", err)
		}

		if reasons, err := s.compensationBlockers(purchase, created); err != nil {
			return err
		} else if len(reasons) > 0 {
			return domain.NewCompensationError(reasons)
		}

		// 撤回入库产生的库存记录
		for _, item := range created {
			if err := s.inventoryRepo.Delete(item.ID); err != nil {
				return fmt.Errorf("failed to remove inventory item %d: %w", item.ID, err)
			}
		}
		s.logger.Info("purchase inventory reversed",
			zap.Int64("purchase_id", id),
			zap.Int("items_removed", len(created)))
	}

	if err := s.purchaseRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete purchase: %w", err)
	}

	s.logger.Info("purchase deleted", zap.Int64("purchase_id", id))
	return nil
}

// receive 执行入库流水线。盒行入库为未拆封盒记录（每盒一条），
// 普通行新建带来源标记的库存记录，便于删除采购时精确撤回。
func (s *purchaseService) receive(purchase *domain.Purchase) (*domain.Purchase, error) {
	if !purchase.CanReceive() {
		return nil, receiveGuardError(purchase)
	}

	purchaseID := purchase.ID
	for _, item := range purchase.Items {
		if item.IsBox {
			for n := 0; n < item.Quantity; n++ {
				box := &domain.InventoryItem{
					CarID:            item.CarID,
					CarName:          item.CarName,
					Quantity:         1,
					PurchasePrice:    item.UnitPrice,
					Condition:        domain.ConditionUnopened,
					Brand:            item.Brand,
					IsBox:            true,
					BoxSize:          item.BoxSize,
					BoxPrice:         item.UnitPrice,
					BoxStatus:        domain.BoxStatusSealed,
					SourcePurchaseID: &purchaseID,
				}
				if err := s.inventoryRepo.Create(box); err != nil {
					return nil, fmt.Errorf("failed to create box record: %w", err)
				}
			}
			continue
		}

		inv := &domain.InventoryItem{
			CarID:            item.CarID,
			CarName:          item.CarName,
			Quantity:         item.Quantity,
			PurchasePrice:    item.UnitPrice,
			Condition:        item.Condition,
			Brand:            item.Brand,
			SourcePurchaseID: &purchaseID,
		}
		if err := s.inventoryRepo.Create(inv); err != nil {
			return nil, fmt.Errorf("failed to create inventory item: %w", err)
		}
	}

	now := time.Now()
	purchase.Status = domain.PurchaseStatusReceived
	purchase.IsReceived = true
	purchase.ReceivedAt = &now
	if err := s.purchaseRepo.Update(purchase); err != nil {
		return nil, fmt.Errorf("failed to update purchase: %w", err)
	}

	s.logger.Info("purchase received",
		zap.Int64("purchase_id", purchase.ID),
		zap.Int("line_items", len(purchase.Items)))
	return purchase, nil
}

// compensationBlockers 逐项检查入库产生的库存能否安全撤回
func (s *purchaseService) compensationBlockers(purchase *domain.Purchase, created []*domain.InventoryItem) ([]string, error) {
	// 入库时普通行与库存记录一一对应，按 carID+condition+brand 对回行项数量
	receivedQty := make(map[string]int)
	for _, line := range purchase.Items {
		if !line.IsBox {
			receivedQty[line.CarID+"|"+string(line.Condition)+"|"+line.Brand] = line.Quantity
		}
	}

	var reasons []string
	ids := make([]int64, 0, len(created))
	for _, item := range created {
		ids = append(ids, item.ID)
		if item.ReservedQuantity > 0 {
			reasons = append(reasons, fmt.Sprintf(
				"inventory item %d (%s) has %d units reserved", item.ID, item.CarName, item.ReservedQuantity))
		}
		// 盒已开拆：已注册的散件无法随采购单一并撤回
		if item.IsBox && item.BoxStatus != domain.BoxStatusSealed {
			reasons = append(reasons, fmt.Sprintf(
				"box %d (%s) has progressed past sealed with %d pieces registered",
				item.ID, item.CarName, item.RegisteredPieces))
		}
		// 数量低于入库量：部分单位已在别处消耗，撤回会造成账目缺口
		if !item.IsBox {
			if qty, ok := receivedQty[item.CarID+"|"+string(item.Condition)+"|"+item.Brand]; ok && item.Quantity < qty {
				reasons = append(reasons, fmt.Sprintf(
					"inventory item %d (%s) holds %d of %d received units",
					item.ID, item.CarName, item.Quantity, qty))
			}
		}
	}
	if len(ids) == 0 {
		return reasons, nil
	}

	deliveries, err := s.deliveryRepo.GetByInventoryItemIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to check delivery references: %w", err)
	}
	for _, delivery := range deliveries {
		reasons = append(reasons, fmt.Sprintf(
			"delivery %d (status %s) references created inventory", delivery.ID, delivery.Status))
	}

	sales, err := s.saleRepo.GetActiveByInventoryItemIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to check sale references: %w", err)
	}
	for _, sale := range sales {
		reasons = append(reasons, fmt.Sprintf(
			"sale %s references created inventory", sale.SaleNumber))
	}

	return reasons, nil
}

// receiveGuardError 细化入库守卫的错误
func receiveGuardError(purchase *domain.Purchase) error {
	if purchase.IsReceived {
		return domain.ErrAlreadyReceived
	}
	return fmt.Errorf("%w: cannot receive a %s purchase", domain.ErrInvalidState, purchase.Status)
}
