// Package service 实现拆盒业务逻辑层：原封盒的逐件登记与完成。
package service

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/g33ktony/diecast-manager/internal/domain"
	"github.com/g33ktony/diecast-manager/internal/repo"
)

// BoxService 定义拆盒业务逻辑接口。
// 原封盒以单条库存记录入库（IsBox=true），拆盒过程中登记出的单品
// 以盒价分摊成本并入普通库存；登记满额后盒记录被删除。
type BoxService interface {
	// GetBox 获取盒记录及其已登记的单品
	GetBox(id int64) (*BoxDetail, error)

	// RegisterPieces 登记一批拆出的单品。同车型+成色+品牌的已有
	// 记录合并数量，否则新建记录并回指来源盒。
	RegisterPieces(boxID int64, req *domain.RegisterPiecesRequest) (*BoxDetail, error)

	// UpdatePieceQuantity 修正已登记单品的数量，盒的已登记计数随差额调整
	UpdatePieceQuantity(pieceID int64, req *domain.UpdatePieceQuantityRequest) (*domain.InventoryItem, error)

	// DeletePiece 删除已登记的单品，盒的已登记计数随之回退
	DeletePiece(pieceID int64) error

	// CompleteBox 强制完成拆盒（未登记满也允许），删除盒记录
	CompleteBox(boxID int64, req *domain.CompleteBoxRequest) error
}

// BoxDetail 盒记录及其已登记单品。拆盒完成后 Box 为 nil。
type BoxDetail struct {
	Box    *domain.InventoryItem   `json:"box"`
	Pieces []*domain.InventoryItem `json:"pieces"`
}

// boxService 实现BoxService接口
type boxService struct {
	inventoryRepo repo.InventoryRepository
	logger        *zap.Logger
}

// NewBoxService 创建拆盒服务实例
func NewBoxService(inventoryRepo repo.InventoryRepository, logger *zap.Logger) BoxService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &boxService{
		inventoryRepo: inventoryRepo,
		logger:        logger,
	}
}

// GetBox 获取盒记录及其已登记的单品
func (s *boxService) GetBox(id int64) (*BoxDetail, error) {
	box, err := s.getBox(id)
	if err != nil {
		return nil, err
	}

	pieces, err := s.inventoryRepo.GetPiecesBySourceBox(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load box pieces: %w", err)
	}
	return &BoxDetail{Box: box, Pieces: pieces}, nil
}

// RegisterPieces 登记一批拆出的单品
func (s *boxService) RegisterPieces(boxID int64, req *domain.RegisterPiecesRequest) (*BoxDetail, error) {
	box, err := s.getBox(boxID)
	if err != nil {
		return nil, err
	}

	if len(req.Pieces) == 0 {
		return nil, errors.New("at least one piece is required")
	}
	incoming := 0
	for _, piece := range req.Pieces {
		if piece.CarID == "" {
			return nil, errors.New("piece car_id is required")
		}
		if piece.Quantity <= 0 {
			return nil, errors.New("piece quantity must be positive")
		}
		incoming += piece.Quantity
	}
	if box.RegisteredPieces+incoming > box.BoxSize {
		return nil, fmt.Errorf("%w: box holds %d pieces, %d already registered, cannot add %d",
			domain.ErrInvalidState, box.BoxSize, box.RegisteredPieces, incoming)
	}

	pieceCost := box.PieceCost()
	for _, input := range req.Pieces {
		if err := s.registerPiece(box, input, pieceCost); err != nil {
			return nil, err
		}
	}

	box.RegisteredPieces += incoming
	if box.BoxCompleted() {
		// 登记满额：盒记录退场
		if err := s.inventoryRepo.Delete(box.ID); err != nil {
			return nil, fmt.Errorf("failed to remove completed box: %w", err)
		}
		s.logger.Info("box unpacking completed",
			zap.Int64("box_id", box.ID),
			zap.Int("pieces", box.RegisteredPieces))

		pieces, err := s.inventoryRepo.GetPiecesBySourceBox(boxID)
		if err != nil {
			return nil, fmt.Errorf("failed to load box pieces: %w", err)
		}
		return &BoxDetail{Box: nil, Pieces: pieces}, nil
	}

	box.BoxStatus = domain.BoxStatusUnpacking
	if err := s.inventoryRepo.UpdateWithVersion(box); err != nil {
		return nil, fmt.Errorf("failed to update box: %w", err)
	}

	return s.GetBox(boxID)
}

// UpdatePieceQuantity 修正已登记单品的数量
func (s *boxService) UpdatePieceQuantity(pieceID int64, req *domain.UpdatePieceQuantityRequest) (*domain.InventoryItem, error) {
	piece, err := s.getPiece(pieceID)
	if err != nil {
		return nil, err
	}
	if req.Quantity < 0 {
		return nil, errors.New("quantity cannot be negative")
	}
	if req.Quantity < piece.ReservedQuantity {
		return nil, errors.New("quantity cannot be less than reserved quantity")
	}

	delta := req.Quantity - piece.Quantity
	// 增量同样受盒容量约束，与登记时的守卫一致
	if delta > 0 {
		box, err := s.inventoryRepo.GetByID(*piece.SourceBoxID)
		if err != nil {
			return nil, fmt.Errorf("failed to get box: %w", err)
		}
		if box != nil && box.IsBox && box.RegisteredPieces+delta > box.BoxSize {
			return nil, fmt.Errorf("%w: box holds %d pieces, %d already registered, cannot add %d",
				domain.ErrInvalidState, box.BoxSize, box.RegisteredPieces, delta)
		}
	}

	piece.Quantity = req.Quantity
	if err := s.inventoryRepo.UpdateWithVersion(piece); err != nil {
		return nil, fmt.Errorf("failed to update piece: %w", err)
	}

	s.adjustBoxCount(*piece.SourceBoxID, delta)
	return piece, nil
}

// DeletePiece 删除已登记的单品
func (s *boxService) DeletePiece(pieceID int64) error {
	piece, err := s.getPiece(pieceID)
	if err != nil {
		return err
	}
	if piece.ReservedQuantity > 0 {
		return fmt.Errorf("%w: piece has %d units reserved by deliveries", domain.ErrInvalidState, piece.ReservedQuantity)
	}

	if err := s.inventoryRepo.Delete(pieceID); err != nil {
		return fmt.Errorf("failed to delete piece: %w", err)
	}

	s.adjustBoxCount(*piece.SourceBoxID, -piece.Quantity)
	return nil
}

// CompleteBox 强制完成拆盒
func (s *boxService) CompleteBox(boxID int64, req *domain.CompleteBoxRequest) error {
	box, err := s.getBox(boxID)
	if err != nil {
		return err
	}

	if err := s.inventoryRepo.Delete(box.ID); err != nil {
		return fmt.Errorf("failed to remove box: %w", err)
	}

	s.logger.Info("box unpacking force-completed",
		zap.Int64("box_id", box.ID),
		zap.Int("registered", box.RegisteredPieces),
		zap.Int("box_size", box.BoxSize),
		zap.String("reason", req.Reason))
	return nil
}

// registerPiece 合并或新建单品记录
func (s *boxService) registerPiece(box *domain.InventoryItem, input domain.BoxPieceInput, pieceCost float64) error {
	existing, err := s.inventoryRepo.FindMergeTarget(input.CarID, input.Condition, input.Brand)
	if err != nil {
		return fmt.Errorf("failed to find merge target: %w", err)
	}
	if existing != nil {
		existing.Restock(input.Quantity)
		// 合并时保留新登记的照片与备注
		existing.Photos = append(existing.Photos, input.Photos...)
		if input.Notes != "" {
			if existing.Notes != "" {
				existing.Notes += "\n"
			}
			existing.Notes += input.Notes
		}
		if err := s.inventoryRepo.UpdateWithVersion(existing); err != nil {
			return fmt.Errorf("failed to merge piece: %w", err)
		}
		return nil
	}

	boxID := box.ID
	piece := &domain.InventoryItem{
		CarID:          input.CarID,
		CarName:        input.CarName,
		Quantity:       input.Quantity,
		PurchasePrice:  pieceCost,
		SuggestedPrice: input.SuggestedPrice,
		Condition:      input.Condition,
		Brand:          input.Brand,
		Photos:         input.Photos,
		Location:       input.Location,
		Notes:          input.Notes,
		SourceBoxID:    &boxID,
	}
	if err := s.inventoryRepo.Create(piece); err != nil {
		return fmt.Errorf("failed to create piece: %w", err)
	}
	return nil
}

// adjustBoxCount 按差额调整盒的已登记计数，向下取零。
// 盒记录可能已随拆盒完成被删除，此时静默跳过。
func (s *boxService) adjustBoxCount(boxID int64, delta int) {
	box, err := s.inventoryRepo.GetByID(boxID)
	if err != nil || box == nil || !box.IsBox {
		return
	}

	box.RegisteredPieces += delta
	if box.RegisteredPieces < 0 {
		box.RegisteredPieces = 0
	}
	// 计满即视为拆盒完成，盒记录退场
	if box.RegisteredPieces >= box.BoxSize {
		if err := s.inventoryRepo.Delete(box.ID); err != nil {
			s.logger.Error("failed to remove completed box",
				zap.Int64("box_id", boxID),
				zap.Error(err))
			return
		}
		s.logger.Info("box unpacking completed",
			zap.Int64("box_id", box.ID),
			zap.Int("pieces", box.RegisteredPieces))
		return
	}
	if box.RegisteredPieces == 0 {
		box.BoxStatus = domain.BoxStatusSealed
	}
	if err := s.inventoryRepo.UpdateWithVersion(box); err != nil {
		s.logger.Error("failed to adjust box registered count",
			zap.Int64("box_id", boxID),
			zap.Int("delta", delta),
			zap.Error(err))
	}
}

// getBox 加载并校验盒记录
func (s *boxService) getBox(id int64) (*domain.InventoryItem, error) {
	box, err := s.inventoryRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get box: %w", err)
	}
	if box == nil {
		return nil, domain.ErrNotFound
	}
	if !box.IsBox {
		return nil, fmt.Errorf("%w: inventory item %d is not a box", domain.ErrInvalidState, id)
	}
	return box, nil
}

// getPiece 加载并校验拆盒来源单品
func (s *boxService) getPiece(id int64) (*domain.InventoryItem, error) {
	piece, err := s.inventoryRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get piece: %w", err)
	}
	if piece == nil {
		return nil, domain.ErrNotFound
	}
	if piece.SourceBoxID == nil {
		return nil, fmt.Errorf("%w: inventory item %d was not registered from a box", domain.ErrInvalidState, id)
	}
	return piece, nil
}
