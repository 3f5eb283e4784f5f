package service

import (
	"errors"
	"testing"

	"github.com/g33ktony/diecast-manager/internal/domain"
)

func newBoxTestService() (BoxService, *mockInventoryRepo) {
	invRepo := newMockInventoryRepo()
	return NewBoxService(invRepo, nil), invRepo
}

func sealedBox(id int64, size int, price float64) *domain.InventoryItem {
	return &domain.InventoryItem{
		ID:        id,
		CarID:     "HW-CASE",
		CarName:   "Mainline Case",
		Quantity:  1,
		IsBox:     true,
		BoxSize:   size,
		BoxPrice:  price,
		BoxStatus: domain.BoxStatusSealed,
		Condition: domain.ConditionUnopened,
	}
}

func TestRegisterPieces(t *testing.T) {
	svc, invRepo := newBoxTestService()
	invRepo.add(sealedBox(1, 50, 100))

	detail, err := svc.RegisterPieces(1, &domain.RegisterPiecesRequest{
		Pieces: []domain.BoxPieceInput{
			{CarID: "HW-001", CarName: "Skyline GT-R", Quantity: 3, Brand: "Hot Wheels", Condition: domain.ConditionMint},
			{CarID: "HW-002", CarName: "Civic Type R", Quantity: 2, Brand: "Hot Wheels", Condition: domain.ConditionMint},
		},
	})
	if err != nil {
		t.Fatalf("RegisterPieces() error = %v", err)
	}

	if detail.Box == nil {
		t.Fatal("Box = nil before completion")
	}
	if detail.Box.RegisteredPieces != 5 {
		t.Errorf("RegisteredPieces = %d, want 5", detail.Box.RegisteredPieces)
	}
	if detail.Box.BoxStatus != domain.BoxStatusUnpacking {
		t.Errorf("BoxStatus = %v, want unpacking", detail.Box.BoxStatus)
	}
	if len(detail.Pieces) != 2 {
		t.Fatalf("len(Pieces) = %d, want 2", len(detail.Pieces))
	}

	// 单品成本为盒价分摊
	for _, piece := range detail.Pieces {
		if piece.PurchasePrice != 2 {
			t.Errorf("piece %s PurchasePrice = %v, want 2 (100/50)", piece.CarID, piece.PurchasePrice)
		}
		if piece.SourceBoxID == nil || *piece.SourceBoxID != 1 {
			t.Errorf("piece %s does not point back to source box", piece.CarID)
		}
	}
}

func TestRegisterPieces_OverCapacity(t *testing.T) {
	svc, invRepo := newBoxTestService()
	invRepo.add(sealedBox(1, 5, 50))

	if _, err := svc.RegisterPieces(1, &domain.RegisterPiecesRequest{
		Pieces: []domain.BoxPieceInput{{CarID: "HW-001", Quantity: 4}},
	}); err != nil {
		t.Fatalf("RegisterPieces() error = %v", err)
	}

	_, err := svc.RegisterPieces(1, &domain.RegisterPiecesRequest{
		Pieces: []domain.BoxPieceInput{{CarID: "HW-002", Quantity: 2}},
	})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("RegisterPieces() over capacity error = %v, want ErrInvalidState", err)
	}
}

func TestRegisterPieces_CompletionRemovesBox(t *testing.T) {
	svc, invRepo := newBoxTestService()
	invRepo.add(sealedBox(1, 2, 10))

	detail, err := svc.RegisterPieces(1, &domain.RegisterPiecesRequest{
		Pieces: []domain.BoxPieceInput{
			{CarID: "HW-001", Quantity: 1},
			{CarID: "HW-002", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("RegisterPieces() error = %v", err)
	}

	if detail.Box != nil {
		t.Error("Box != nil after full registration, want nil")
	}
	if len(detail.Pieces) != 2 {
		t.Errorf("len(Pieces) = %d, want 2", len(detail.Pieces))
	}
	if box, _ := invRepo.GetByID(1); box != nil {
		t.Error("box record still exists after completion")
	}
}

func TestRegisterPieces_MergesExisting(t *testing.T) {
	svc, invRepo := newBoxTestService()
	invRepo.add(sealedBox(1, 50, 100))
	invRepo.add(&domain.InventoryItem{ID: 2, CarID: "HW-001", Condition: domain.ConditionMint, Brand: "Hot Wheels", Quantity: 4, PurchasePrice: 3})

	detail, err := svc.RegisterPieces(1, &domain.RegisterPiecesRequest{
		Pieces: []domain.BoxPieceInput{
			{CarID: "HW-001", Quantity: 2, Condition: domain.ConditionMint, Brand: "Hot Wheels"},
		},
	})
	if err != nil {
		t.Fatalf("RegisterPieces() error = %v", err)
	}

	merged, _ := invRepo.GetByID(2)
	if merged.Quantity != 6 {
		t.Errorf("merged quantity = %d, want 6", merged.Quantity)
	}
	// 合并不会新建回指盒的记录
	if len(detail.Pieces) != 0 {
		t.Errorf("len(Pieces) = %d, want 0 (merged into existing)", len(detail.Pieces))
	}
	if detail.Box.RegisteredPieces != 2 {
		t.Errorf("RegisteredPieces = %d, want 2", detail.Box.RegisteredPieces)
	}
}

func TestRegisterPieces_MergeKeepsPhotosAndNotes(t *testing.T) {
	svc, invRepo := newBoxTestService()
	invRepo.add(sealedBox(1, 50, 100))
	invRepo.add(&domain.InventoryItem{
		ID: 2, CarID: "HW-001", Condition: domain.ConditionMint, Brand: "Hot Wheels",
		Quantity: 4, Notes: "shelf A", Photos: []string{"old.jpg"},
	})

	if _, err := svc.RegisterPieces(1, &domain.RegisterPiecesRequest{
		Pieces: []domain.BoxPieceInput{
			{CarID: "HW-001", Quantity: 2, Condition: domain.ConditionMint, Brand: "Hot Wheels",
				Photos: []string{"case.jpg"}, Notes: "from sealed case"},
		},
	}); err != nil {
		t.Fatalf("RegisterPieces() error = %v", err)
	}

	merged, _ := invRepo.GetByID(2)
	if len(merged.Photos) != 2 || merged.Photos[1] != "case.jpg" {
		t.Errorf("Photos = %v, want old.jpg + case.jpg", merged.Photos)
	}
	if merged.Notes != "shelf A\nfrom sealed case" {
		t.Errorf("Notes = %q, new note not appended", merged.Notes)
	}
}

func TestRegisterPieces_NotABox(t *testing.T) {
	svc, invRepo := newBoxTestService()
	invRepo.add(&domain.InventoryItem{ID: 1, CarID: "HW-001", Quantity: 3})

	_, err := svc.RegisterPieces(1, &domain.RegisterPiecesRequest{
		Pieces: []domain.BoxPieceInput{{CarID: "HW-002", Quantity: 1}},
	})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("RegisterPieces() on non-box error = %v, want ErrInvalidState", err)
	}
}

func TestUpdatePieceQuantity(t *testing.T) {
	svc, invRepo := newBoxTestService()
	invRepo.add(sealedBox(1, 50, 100))

	detail, err := svc.RegisterPieces(1, &domain.RegisterPiecesRequest{
		Pieces: []domain.BoxPieceInput{{CarID: "HW-001", Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("RegisterPieces() error = %v", err)
	}
	pieceID := detail.Pieces[0].ID

	piece, err := svc.UpdatePieceQuantity(pieceID, &domain.UpdatePieceQuantityRequest{Quantity: 5})
	if err != nil {
		t.Fatalf("UpdatePieceQuantity() error = %v", err)
	}
	if piece.Quantity != 5 {
		t.Errorf("Quantity = %d, want 5", piece.Quantity)
	}

	box, _ := invRepo.GetByID(1)
	if box.RegisteredPieces != 5 {
		t.Errorf("RegisteredPieces = %d, want 5 (adjusted by delta)", box.RegisteredPieces)
	}
}

func TestUpdatePieceQuantity_OverCapacity(t *testing.T) {
	svc, invRepo := newBoxTestService()
	invRepo.add(sealedBox(1, 5, 50))

	detail, err := svc.RegisterPieces(1, &domain.RegisterPiecesRequest{
		Pieces: []domain.BoxPieceInput{{CarID: "HW-001", Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("RegisterPieces() error = %v", err)
	}
	pieceID := detail.Pieces[0].ID

	// 增量超出盒容量，与登记守卫同样拒绝
	if _, err := svc.UpdatePieceQuantity(pieceID, &domain.UpdatePieceQuantityRequest{Quantity: 7}); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("UpdatePieceQuantity() over capacity error = %v, want ErrInvalidState", err)
	}
	box, _ := invRepo.GetByID(1)
	if box.RegisteredPieces != 4 {
		t.Errorf("RegisteredPieces = %d, want 4 (unchanged)", box.RegisteredPieces)
	}
}

func TestUpdatePieceQuantity_FillsBoxCompletes(t *testing.T) {
	svc, invRepo := newBoxTestService()
	invRepo.add(sealedBox(1, 5, 50))

	detail, err := svc.RegisterPieces(1, &domain.RegisterPiecesRequest{
		Pieces: []domain.BoxPieceInput{{CarID: "HW-001", Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("RegisterPieces() error = %v", err)
	}
	pieceID := detail.Pieces[0].ID

	piece, err := svc.UpdatePieceQuantity(pieceID, &domain.UpdatePieceQuantityRequest{Quantity: 5})
	if err != nil {
		t.Fatalf("UpdatePieceQuantity() error = %v", err)
	}
	if piece.Quantity != 5 {
		t.Errorf("Quantity = %d, want 5", piece.Quantity)
	}

	// 计满即完成，盒记录退场
	if box, _ := invRepo.GetByID(1); box != nil {
		t.Error("box record still exists after registration reached box size")
	}
}

func TestUpdatePieceQuantity_BelowReserved(t *testing.T) {
	svc, invRepo := newBoxTestService()
	invRepo.add(sealedBox(1, 50, 100))

	detail, _ := svc.RegisterPieces(1, &domain.RegisterPiecesRequest{
		Pieces: []domain.BoxPieceInput{{CarID: "HW-001", Quantity: 3}},
	})
	pieceID := detail.Pieces[0].ID
	if err := invRepo.ReserveStock(pieceID, 2); err != nil {
		t.Fatalf("ReserveStock() error = %v", err)
	}

	if _, err := svc.UpdatePieceQuantity(pieceID, &domain.UpdatePieceQuantityRequest{Quantity: 1}); err == nil {
		t.Error("UpdatePieceQuantity() below reserved error = nil, want rejection")
	}
	if _, err := svc.UpdatePieceQuantity(pieceID, &domain.UpdatePieceQuantityRequest{Quantity: -1}); err == nil {
		t.Error("UpdatePieceQuantity() negative error = nil, want rejection")
	}
}

func TestDeletePiece(t *testing.T) {
	svc, invRepo := newBoxTestService()
	invRepo.add(sealedBox(1, 50, 100))

	detail, _ := svc.RegisterPieces(1, &domain.RegisterPiecesRequest{
		Pieces: []domain.BoxPieceInput{{CarID: "HW-001", Quantity: 3}},
	})
	pieceID := detail.Pieces[0].ID

	if err := svc.DeletePiece(pieceID); err != nil {
		t.Fatalf("DeletePiece() error = %v", err)
	}
	if piece, _ := invRepo.GetByID(pieceID); piece != nil {
		t.Error("piece still exists after delete")
	}

	// 计数回退到0，盒恢复未拆封
	box, _ := invRepo.GetByID(1)
	if box.RegisteredPieces != 0 {
		t.Errorf("RegisteredPieces = %d, want 0", box.RegisteredPieces)
	}
	if box.BoxStatus != domain.BoxStatusSealed {
		t.Errorf("BoxStatus = %v, want sealed", box.BoxStatus)
	}
}

func TestDeletePiece_BlockedByReservation(t *testing.T) {
	svc, invRepo := newBoxTestService()
	invRepo.add(sealedBox(1, 50, 100))

	detail, _ := svc.RegisterPieces(1, &domain.RegisterPiecesRequest{
		Pieces: []domain.BoxPieceInput{{CarID: "HW-001", Quantity: 3}},
	})
	pieceID := detail.Pieces[0].ID
	if err := invRepo.ReserveStock(pieceID, 1); err != nil {
		t.Fatalf("ReserveStock() error = %v", err)
	}

	if err := svc.DeletePiece(pieceID); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("DeletePiece() error = %v, want ErrInvalidState", err)
	}
}

func TestDeletePiece_NotFromBox(t *testing.T) {
	svc, invRepo := newBoxTestService()
	invRepo.add(&domain.InventoryItem{ID: 1, CarID: "HW-001", Quantity: 3})

	if err := svc.DeletePiece(1); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("DeletePiece() on non-piece error = %v, want ErrInvalidState", err)
	}
}

func TestCompleteBox_Force(t *testing.T) {
	svc, invRepo := newBoxTestService()
	invRepo.add(sealedBox(1, 50, 100))

	if _, err := svc.RegisterPieces(1, &domain.RegisterPiecesRequest{
		Pieces: []domain.BoxPieceInput{{CarID: "HW-001", Quantity: 3}},
	}); err != nil {
		t.Fatalf("RegisterPieces() error = %v", err)
	}

	// 未登记满也允许强制完成
	if err := svc.CompleteBox(1, &domain.CompleteBoxRequest{Reason: "damaged leftovers discarded"}); err != nil {
		t.Fatalf("CompleteBox() error = %v", err)
	}
	if box, _ := invRepo.GetByID(1); box != nil {
		t.Error("box record still exists after force completion")
	}

	if err := svc.CompleteBox(1, &domain.CompleteBoxRequest{}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("CompleteBox() on missing box error = %v, want ErrNotFound", err)
	}
}

func TestGetBox(t *testing.T) {
	svc, invRepo := newBoxTestService()
	invRepo.add(sealedBox(1, 50, 100))

	detail, err := svc.GetBox(1)
	if err != nil {
		t.Fatalf("GetBox() error = %v", err)
	}
	if detail.Box == nil || detail.Box.ID != 1 {
		t.Error("GetBox() did not return the box")
	}
	if len(detail.Pieces) != 0 {
		t.Errorf("len(Pieces) = %d, want 0 for sealed box", len(detail.Pieces))
	}

	if _, err := svc.GetBox(99); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetBox() missing error = %v, want ErrNotFound", err)
	}
}
