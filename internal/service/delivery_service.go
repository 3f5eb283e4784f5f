// Package service 实现交付单业务逻辑层：排期、备货、收款台账与完成/回退编排。
package service

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/g33ktony/diecast-manager/internal/domain"
	"github.com/g33ktony/diecast-manager/internal/repo"
)

// DeliveryService 定义交付单业务逻辑接口
type DeliveryService interface {
	CreateDelivery(req *domain.CreateDeliveryRequest) (*domain.Delivery, error)
	GetDelivery(id int64) (*domain.Delivery, error)
	ListDeliveries(req *domain.DeliveryListRequest) (*domain.DeliveryListResponse, error)
	UpdateItems(id int64, req *domain.UpdateDeliveryItemsRequest) (*domain.Delivery, error)
	DeleteDelivery(id int64) error

	// 状态机
	Prepare(id int64) (*domain.Delivery, error)
	Reschedule(id int64, req *domain.RescheduleDeliveryRequest) (*domain.Delivery, error)
	Cancel(id int64, req *domain.CancelDeliveryRequest) (*domain.Delivery, error)

	// Complete 完成交付。MarkPaid 为真且有尾款时自动补记一笔支付；
	// 付清后物化销售记录。物化失败不回滚完成本身，以警告返回。
	Complete(id int64, req *domain.CompleteDeliveryRequest) (*domain.Delivery, string, error)

	// RevertToPending 将已完成的交付单回退为已排期：撤销销售记录、
	// 恢复库存预留、撤销自动补记的尾款支付。
	RevertToPending(id int64) (*domain.Delivery, error)

	// 收款台账
	AddPayment(id int64, req *domain.AddPaymentRequest) (*domain.Delivery, string, error)
	RemovePayment(id, paymentID int64) (*domain.Delivery, error)
}

// deliveryService 实现DeliveryService接口
type deliveryService struct {
	deliveryRepo  repo.DeliveryRepository
	inventoryRepo repo.InventoryRepository
	customerRepo  repo.CustomerRepository
	saleService   SaleService
	logger        *zap.Logger
}

// NewDeliveryService 创建交付服务实例
func NewDeliveryService(
	deliveryRepo repo.DeliveryRepository,
	inventoryRepo repo.InventoryRepository,
	customerRepo repo.CustomerRepository,
	saleService SaleService,
	logger *zap.Logger,
) DeliveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &deliveryService{
		deliveryRepo:  deliveryRepo,
		inventoryRepo: inventoryRepo,
		customerRepo:  customerRepo,
		saleService:   saleService,
		logger:        logger,
	}
}

// CreateDelivery 创建交付单并预留库存
func (s *deliveryService) CreateDelivery(req *domain.CreateDeliveryRequest) (*domain.Delivery, error) {
	if len(req.Items) == 0 {
		return nil, errors.New("delivery must contain at least one item")
	}
	for _, input := range req.Items {
		if input.Quantity <= 0 {
			return nil, errors.New("item quantity must be positive")
		}
		if input.UnitPrice < 0 {
			return nil, errors.New("unit price cannot be negative")
		}
		if !input.IsPresale && input.InventoryItemID == nil {
			return nil, errors.New("non-presale item must reference an inventory item")
		}
	}

	customer, err := s.customerRepo.GetByID(req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	if customer == nil {
		return nil, fmt.Errorf("%w: customer %d", domain.ErrNotFound, req.CustomerID)
	}

	items := buildDeliveryItems(req.Items)

	// 预留库存支撑行；中途失败则释放已预留的行
	if err := s.reserveItems(items); err != nil {
		return nil, err
	}

	delivery := &domain.Delivery{
		CustomerID:    req.CustomerID,
		ScheduledDate: req.ScheduledDate,
		Location:      req.Location,
		Status:        domain.DeliveryStatusScheduled,
		Notes:         req.Notes,
		Items:         items,
	}
	delivery.RecalcTotal()
	delivery.RecomputePaymentStatus()

	if err := s.deliveryRepo.Create(delivery); err != nil {
		s.releaseItems(items)
		return nil, fmt.Errorf("failed to create delivery: %w", err)
	}

	s.logger.Info("delivery created",
		zap.Int64("delivery_id", delivery.ID),
		zap.Int64("customer_id", delivery.CustomerID),
		zap.Float64("total_amount", delivery.TotalAmount))
	return delivery, nil
}

// GetDelivery 获取交付单详情
func (s *deliveryService) GetDelivery(id int64) (*domain.Delivery, error) {
	delivery, err := s.deliveryRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery: %w", err)
	}
	if delivery == nil {
		return nil, domain.ErrNotFound
	}
	return delivery, nil
}

// ListDeliveries 获取交付单列表
func (s *deliveryService) ListDeliveries(req *domain.DeliveryListRequest) (*domain.DeliveryListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	deliveries, total, err := s.deliveryRepo.List(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}

	return &domain.DeliveryListResponse{
		Deliveries: deliveries,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}, nil
}

// UpdateItems 替换交付单行项并按差额调整库存预留。
// 先预留增量，全部成功后再释放减量，保证失败时不少预留。
func (s *deliveryService) UpdateItems(id int64, req *domain.UpdateDeliveryItemsRequest) (*domain.Delivery, error) {
	delivery, err := s.GetDelivery(id)
	if err != nil {
		return nil, err
	}
	if delivery.IsCompleted() || delivery.Status == domain.DeliveryStatusCancelled {
		return nil, fmt.Errorf("%w: cannot edit items of a %s delivery", domain.ErrInvalidState, delivery.Status)
	}
	for _, input := range req.Items {
		if input.Quantity <= 0 {
			return nil, errors.New("item quantity must be positive")
		}
		if !input.IsPresale && input.InventoryItemID == nil {
			return nil, errors.New("non-presale item must reference an inventory item")
		}
	}

	newItems := buildDeliveryItems(req.Items)

	oldReserved := reservedQuantities(delivery.Items)
	newReserved := reservedQuantities(newItems)

	// 第一阶段：预留净增量
	var added []int64
	for itemID, qty := range newReserved {
		delta := qty - oldReserved[itemID]
		if delta <= 0 {
			continue
		}
		if err := s.inventoryRepo.ReserveStock(itemID, delta); err != nil {
			for _, doneID := range added {
				s.releaseQuiet(doneID, newReserved[doneID]-oldReserved[doneID])
			}
			return nil, fmt.Errorf("failed to reserve stock for item %d: %w", itemID, err)
		}
		added = append(added, itemID)
	}

	// 第二阶段：释放净减量
	for itemID, qty := range oldReserved {
		delta := qty - newReserved[itemID]
		if delta > 0 {
			s.releaseQuiet(itemID, delta)
		}
	}

	if err := s.deliveryRepo.ReplaceItems(id, newItems); err != nil {
		return nil, fmt.Errorf("failed to replace delivery items: %w", err)
	}

	delivery.Items = newItems
	delivery.RecalcTotal()
	delivery.RecomputePaymentStatus()
	// 行项变更后原备货结果失效，已备货的退回已排期
	if delivery.Status == domain.DeliveryStatusPrepared {
		delivery.Status = domain.DeliveryStatusScheduled
	}
	if err := s.deliveryRepo.Update(delivery); err != nil {
		return nil, fmt.Errorf("failed to update delivery: %w", err)
	}
	return delivery, nil
}

// DeleteDelivery 删除交付单。已完成的先回退销售与库存，未完成的释放预留。
func (s *deliveryService) DeleteDelivery(id int64) error {
	delivery, err := s.GetDelivery(id)
	if err != nil {
		return err
	}

	if delivery.IsCompleted() {
		reverted, err := s.saleService.RollbackDelivery(id)
		if err != nil {
			return fmt.Errorf("failed to rollback sales: %w", err)
		}
		// 欠款完成的交付没有销售记录，预留仍在持有中，需要释放
		if !reverted {
			s.releaseItems(delivery.Items)
		}
	} else if delivery.Status != domain.DeliveryStatusCancelled {
		s.releaseItems(delivery.Items)
	}

	if err := s.deliveryRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete delivery: %w", err)
	}

	s.logger.Info("delivery deleted", zap.Int64("delivery_id", id))
	return nil
}

// Prepare 标记为已备货
func (s *deliveryService) Prepare(id int64) (*domain.Delivery, error) {
	delivery, err := s.GetDelivery(id)
	if err != nil {
		return nil, err
	}
	if !delivery.CanPrepare() {
		return nil, fmt.Errorf("%w: cannot prepare a %s delivery", domain.ErrInvalidState, delivery.Status)
	}

	delivery.Status = domain.DeliveryStatusPrepared
	if err := s.deliveryRepo.Update(delivery); err != nil {
		return nil, fmt.Errorf("failed to update delivery: %w", err)
	}
	return delivery, nil
}

// Reschedule 改期
func (s *deliveryService) Reschedule(id int64, req *domain.RescheduleDeliveryRequest) (*domain.Delivery, error) {
	delivery, err := s.GetDelivery(id)
	if err != nil {
		return nil, err
	}
	if delivery.IsCompleted() || delivery.Status == domain.DeliveryStatusCancelled {
		return nil, fmt.Errorf("%w: cannot reschedule a %s delivery", domain.ErrInvalidState, delivery.Status)
	}

	delivery.ScheduledDate = req.ScheduledDate
	delivery.Status = domain.DeliveryStatusRescheduled
	if err := s.deliveryRepo.Update(delivery); err != nil {
		return nil, fmt.Errorf("failed to update delivery: %w", err)
	}
	return delivery, nil
}

// Cancel 取消交付并释放全部库存预留
func (s *deliveryService) Cancel(id int64, req *domain.CancelDeliveryRequest) (*domain.Delivery, error) {
	delivery, err := s.GetDelivery(id)
	if err != nil {
		return nil, err
	}
	if !delivery.CanCancel() {
		return nil, fmt.Errorf("%w: cannot cancel a %s delivery", domain.ErrInvalidState, delivery.Status)
	}

	s.releaseItems(delivery.Items)

	delivery.Status = domain.DeliveryStatusCancelled
	if req.Reason != "" {
		if delivery.Notes != "" {
			delivery.Notes += "\n"
		}
		delivery.Notes += "cancelled: " + req.Reason
	}
	if err := s.deliveryRepo.Update(delivery); err != nil {
		return nil, fmt.Errorf("failed to update delivery: %w", err)
	}

	s.logger.Info("delivery cancelled",
		zap.Int64("delivery_id", id),
		zap.String("reason", req.Reason))
	return delivery, nil
}

// Complete 完成交付
func (s *deliveryService) Complete(id int64, req *domain.CompleteDeliveryRequest) (*domain.Delivery, string, error) {
	delivery, err := s.GetDelivery(id)
	if err != nil {
		return nil, "", err
	}
	if !delivery.CanComplete() {
		return nil, "", fmt.Errorf("%w: cannot complete a %s delivery", domain.ErrInvalidState, delivery.Status)
	}

	// MarkPaid：有尾款时自动补记一笔支付，备注为哨兵值以便回退时识别
	if req.MarkPaid {
		if balance := delivery.RemainingBalance(); balance > domain.PaidTolerance {
			payment := &domain.Payment{
				DeliveryID:    id,
				Amount:        balance,
				PaymentDate:   time.Now(),
				PaymentMethod: "cash",
				Note:          domain.CompletionPaymentNote,
			}
			delivery.PaidAmount += balance
			delivery.RecomputePaymentStatus()
			if err := s.deliveryRepo.AddPayment(delivery, payment); err != nil {
				return nil, "", fmt.Errorf("failed to record completion payment: %w", err)
			}
			delivery.Payments = append(delivery.Payments, payment)
		}
	}

	now := time.Now()
	delivery.Status = domain.DeliveryStatusCompleted
	delivery.CompletedAt = &now
	if err := s.deliveryRepo.Update(delivery); err != nil {
		return nil, "", fmt.Errorf("failed to update delivery: %w", err)
	}

	// 付清后才物化销售记录；欠款完成的交付在尾款到账时物化
	warning := ""
	if delivery.IsPaid() {
		if _, err := s.saleService.MaterializeDelivery(delivery); err != nil {
			warning = fmt.Sprintf("delivery completed but sale creation failed: %v", err)
			s.logger.Warn("sale materialization failed",
				zap.Int64("delivery_id", id),
				zap.Error(err))
		}
	}

	s.logger.Info("delivery completed",
		zap.Int64("delivery_id", id),
		zap.Bool("paid", delivery.IsPaid()))
	return delivery, warning, nil
}

// RevertToPending 将已完成的交付单回退为已排期
func (s *deliveryService) RevertToPending(id int64) (*domain.Delivery, error) {
	delivery, err := s.GetDelivery(id)
	if err != nil {
		return nil, err
	}
	if !delivery.IsCompleted() {
		return nil, fmt.Errorf("%w: only completed deliveries can be reverted", domain.ErrInvalidState)
	}

	// 撤销销售记录并恢复在库数量
	reverted, err := s.saleService.RollbackDelivery(id)
	if err != nil {
		return nil, fmt.Errorf("failed to rollback sales: %w", err)
	}

	// 仅当确有销售被回退（预留曾被永久扣减）时恢复预留；
	// 欠款完成的交付从未提交扣减，预留仍在持有中
	if reverted {
		if err := s.reserveItems(delivery.Items); err != nil {
			return nil, fmt.Errorf("failed to restore reservations: %w", err)
		}
	}

	// 撤销完成时自动补记的尾款支付
	for _, payment := range delivery.Payments {
		if payment.Note == domain.CompletionPaymentNote {
			delivery.PaidAmount -= payment.Amount
			if delivery.PaidAmount < 0 {
				delivery.PaidAmount = 0
			}
			delivery.RecomputePaymentStatus()
			if err := s.deliveryRepo.RemovePayment(delivery, payment.ID); err != nil {
				return nil, fmt.Errorf("failed to remove completion payment: %w", err)
			}
		}
	}

	delivery.Status = domain.DeliveryStatusScheduled
	delivery.CompletedAt = nil
	delivery.RecomputePaymentStatus()
	if err := s.deliveryRepo.Update(delivery); err != nil {
		return nil, fmt.Errorf("failed to update delivery: %w", err)
	}

	s.logger.Info("delivery reverted to pending", zap.Int64("delivery_id", id))
	return s.GetDelivery(id)
}

// AddPayment 登记一笔收款
func (s *deliveryService) AddPayment(id int64, req *domain.AddPaymentRequest) (*domain.Delivery, string, error) {
	delivery, err := s.GetDelivery(id)
	if err != nil {
		return nil, "", err
	}
	if delivery.Status == domain.DeliveryStatusCancelled {
		return nil, "", fmt.Errorf("%w: cannot add payment to a cancelled delivery", domain.ErrInvalidState)
	}
	if req.Amount <= 0 {
		return nil, "", errors.New("payment amount must be positive")
	}
	if req.Amount > delivery.RemainingBalance()+domain.PaidTolerance {
		return nil, "", fmt.Errorf("%w: remaining balance is %.2f", domain.ErrOverpayment, delivery.RemainingBalance())
	}

	paymentDate := req.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}
	payment := &domain.Payment{
		DeliveryID:    id,
		Amount:        req.Amount,
		PaymentDate:   paymentDate,
		PaymentMethod: req.PaymentMethod,
		Note:          req.Note,
	}

	delivery.PaidAmount += req.Amount
	delivery.RecomputePaymentStatus()
	if err := s.deliveryRepo.AddPayment(delivery, payment); err != nil {
		return nil, "", fmt.Errorf("failed to add payment: %w", err)
	}
	delivery.Payments = append(delivery.Payments, payment)

	// 欠款完成的交付：尾款到账时补做物化
	warning := ""
	if delivery.IsCompleted() && delivery.IsPaid() {
		if _, err := s.saleService.MaterializeDelivery(delivery); err != nil {
			warning = fmt.Sprintf("payment recorded but sale creation failed: %v", err)
			s.logger.Warn("deferred sale materialization failed",
				zap.Int64("delivery_id", id),
				zap.Error(err))
		}
	}

	s.logger.Info("payment recorded",
		zap.Int64("delivery_id", id),
		zap.Float64("amount", req.Amount),
		zap.String("payment_status", string(delivery.PaymentStatus)))
	return delivery, warning, nil
}

// RemovePayment 撤销一笔收款并同步扣减已付金额
func (s *deliveryService) RemovePayment(id, paymentID int64) (*domain.Delivery, error) {
	delivery, err := s.GetDelivery(id)
	if err != nil {
		return nil, err
	}

	payment, err := s.deliveryRepo.GetPayment(id, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: payment %d", domain.ErrNotFound, paymentID)
	}

	delivery.PaidAmount -= payment.Amount
	if delivery.PaidAmount < 0 {
		delivery.PaidAmount = 0
	}
	delivery.RecomputePaymentStatus()
	if err := s.deliveryRepo.RemovePayment(delivery, paymentID); err != nil {
		return nil, fmt.Errorf("failed to remove payment: %w", err)
	}

	return s.GetDelivery(id)
}

// reserveItems 预留全部库存支撑行；中途失败时释放已预留的行
func (s *deliveryService) reserveItems(items []*domain.DeliveryItem) error {
	var reserved []*domain.DeliveryItem
	for _, item := range items {
		if !item.InventoryBacked() {
			continue
		}
		if err := s.inventoryRepo.ReserveStock(*item.InventoryItemID, item.Quantity); err != nil {
			s.releaseItems(reserved)
			return fmt.Errorf("failed to reserve stock for item %d: %w", *item.InventoryItemID, err)
		}
		reserved = append(reserved, item)
	}
	return nil
}

// releaseItems 释放全部库存支撑行的预留
func (s *deliveryService) releaseItems(items []*domain.DeliveryItem) {
	for _, item := range items {
		if item.InventoryBacked() {
			s.releaseQuiet(*item.InventoryItemID, item.Quantity)
		}
	}
}

// releaseQuiet 释放预留，失败仅记日志（释放向下取零，可安全重试）
func (s *deliveryService) releaseQuiet(itemID int64, qty int) {
	if err := s.inventoryRepo.ReleaseStock(itemID, qty); err != nil {
		s.logger.Error("failed to release reserved stock",
			zap.Int64("inventory_item_id", itemID),
			zap.Int("quantity", qty),
			zap.Error(err))
	}
}

// buildDeliveryItems 将输入转换为行项模型
func buildDeliveryItems(inputs []domain.DeliveryItemInput) []*domain.DeliveryItem {
	items := make([]*domain.DeliveryItem, 0, len(inputs))
	for _, input := range inputs {
		items = append(items, &domain.DeliveryItem{
			InventoryItemID: input.InventoryItemID,
			CarID:           input.CarID,
			CarName:         input.CarName,
			Quantity:        input.Quantity,
			UnitPrice:       input.UnitPrice,
			IsPresale:       input.IsPresale,
		})
	}
	return items
}

// reservedQuantities 汇总每个库存记录的预留数量
func reservedQuantities(items []*domain.DeliveryItem) map[int64]int {
	out := make(map[int64]int)
	for _, item := range items {
		if item.InventoryBacked() {
			out[*item.InventoryItemID] += item.Quantity
		}
	}
	return out
}
