package domain

import (
	"errors"
	"testing"
)

func TestInventoryItem_Reserve(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		reserved int
		qty      int
		wantErr  error
		wantRes  int
	}{
		{name: "reserve within available", quantity: 5, reserved: 0, qty: 2, wantErr: nil, wantRes: 2},
		{name: "reserve exactly available", quantity: 5, reserved: 3, qty: 2, wantErr: nil, wantRes: 5},
		{name: "reserve exceeds available", quantity: 5, reserved: 4, qty: 2, wantErr: ErrInsufficientStock, wantRes: 4},
		{name: "reserve zero rejected", quantity: 5, reserved: 0, qty: 0, wantErr: ErrInsufficientStock, wantRes: 0},
		{name: "reserve negative rejected", quantity: 5, reserved: 0, qty: -1, wantErr: ErrInsufficientStock, wantRes: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &InventoryItem{Quantity: tt.quantity, ReservedQuantity: tt.reserved}
			err := item.Reserve(tt.qty)
			if !errors.Is(err, tt.wantErr) && err != tt.wantErr {
				t.Errorf("Reserve() error = %v, want %v", err, tt.wantErr)
			}
			if item.ReservedQuantity != tt.wantRes {
				t.Errorf("ReservedQuantity = %d, want %d", item.ReservedQuantity, tt.wantRes)
			}
		})
	}
}

func TestInventoryItem_Release_FloorsAtZero(t *testing.T) {
	item := &InventoryItem{Quantity: 5, ReservedQuantity: 2}

	item.Release(3)
	if item.ReservedQuantity != 0 {
		t.Errorf("ReservedQuantity = %d, want 0", item.ReservedQuantity)
	}

	// 重复补偿不会产生负预留
	item.Release(1)
	if item.ReservedQuantity != 0 {
		t.Errorf("ReservedQuantity after second release = %d, want 0", item.ReservedQuantity)
	}
	if item.Quantity != 5 {
		t.Errorf("Quantity = %d, want 5 (release never touches quantity)", item.Quantity)
	}
}

func TestInventoryItem_Commit(t *testing.T) {
	item := &InventoryItem{Quantity: 5, ReservedQuantity: 2}

	if err := item.Commit(2); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if item.Quantity != 3 || item.ReservedQuantity != 0 {
		t.Errorf("after commit: quantity=%d reserved=%d, want 3/0", item.Quantity, item.ReservedQuantity)
	}

	if err := item.Commit(4); err != ErrInsufficientStock {
		t.Errorf("Commit() beyond quantity error = %v, want ErrInsufficientStock", err)
	}
}

func TestInventoryItem_Available(t *testing.T) {
	item := &InventoryItem{Quantity: 10, ReservedQuantity: 4}
	if got := item.Available(); got != 6 {
		t.Errorf("Available() = %d, want 6", got)
	}
	if item.CanReserve(7) {
		t.Error("CanReserve(7) = true, want false")
	}
	if !item.CanReserve(6) {
		t.Error("CanReserve(6) = false, want true")
	}
}

func TestInventoryItem_PieceCost(t *testing.T) {
	box := &InventoryItem{IsBox: true, BoxSize: 50, BoxPrice: 100}
	if got := box.PieceCost(); got != 2 {
		t.Errorf("PieceCost() = %v, want 2", got)
	}

	notBox := &InventoryItem{IsBox: false, BoxPrice: 100}
	if got := notBox.PieceCost(); got != 0 {
		t.Errorf("PieceCost() for non-box = %v, want 0", got)
	}

	zeroSize := &InventoryItem{IsBox: true, BoxSize: 0, BoxPrice: 100}
	if got := zeroSize.PieceCost(); got != 0 {
		t.Errorf("PieceCost() for zero box size = %v, want 0", got)
	}
}

func TestInventoryItem_BoxCompleted(t *testing.T) {
	box := &InventoryItem{IsBox: true, BoxSize: 50, RegisteredPieces: 5}
	if box.BoxCompleted() {
		t.Error("BoxCompleted() = true for 5/50, want false")
	}
	box.RegisteredPieces = 50
	if !box.BoxCompleted() {
		t.Error("BoxCompleted() = false for 50/50, want true")
	}
}
