package service

import (
	"errors"
	"testing"
	"time"

	"github.com/g33ktony/diecast-manager/internal/domain"
)

type deliveryTestEnv struct {
	svc          DeliveryService
	deliveryRepo *mockDeliveryRepo
	invRepo      *mockInventoryRepo
	custRepo     *mockCustomerRepo
	saleRepo     *mockSaleRepo
}

func newDeliveryTestEnv() *deliveryTestEnv {
	deliveryRepo := newMockDeliveryRepo()
	invRepo := newMockInventoryRepo()
	custRepo := newMockCustomerRepo()
	saleRepo := newMockSaleRepo()
	saleSvc := NewSaleService(saleRepo, invRepo, nil)
	return &deliveryTestEnv{
		svc:          NewDeliveryService(deliveryRepo, invRepo, custRepo, saleSvc, nil),
		deliveryRepo: deliveryRepo,
		invRepo:      invRepo,
		custRepo:     custRepo,
		saleRepo:     saleRepo,
	}
}

func (e *deliveryTestEnv) withCustomer(id int64) *deliveryTestEnv {
	e.custRepo.customers[id] = &domain.Customer{ID: id, Name: "Luis"}
	return e
}

func itemID(id int64) *int64 { return &id }

func TestCreateDelivery_ReservesStock(t *testing.T) {
	env := newDeliveryTestEnv().withCustomer(1)
	env.invRepo.add(&domain.InventoryItem{ID: 1, CarID: "HW-001", Quantity: 5})

	delivery, err := env.svc.CreateDelivery(&domain.CreateDeliveryRequest{
		CustomerID:    1,
		ScheduledDate: time.Now(),
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), CarID: "HW-001", Quantity: 2, UnitPrice: 50},
			{CarID: "HW-900", Quantity: 1, UnitPrice: 80, IsPresale: true},
		},
	})
	if err != nil {
		t.Fatalf("CreateDelivery() error = %v", err)
	}

	if delivery.TotalAmount != 180 {
		t.Errorf("TotalAmount = %v, want 180", delivery.TotalAmount)
	}
	if delivery.Status != domain.DeliveryStatusScheduled {
		t.Errorf("Status = %v, want scheduled", delivery.Status)
	}
	if delivery.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("PaymentStatus = %v, want pending", delivery.PaymentStatus)
	}

	inv, _ := env.invRepo.GetByID(1)
	if inv.ReservedQuantity != 2 {
		t.Errorf("ReservedQuantity = %d, want 2 (presale line reserves nothing)", inv.ReservedQuantity)
	}
}

func TestCreateDelivery_CustomerNotFound(t *testing.T) {
	env := newDeliveryTestEnv()
	env.invRepo.add(&domain.InventoryItem{ID: 1, Quantity: 5})

	_, err := env.svc.CreateDelivery(&domain.CreateDeliveryRequest{
		CustomerID: 42,
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 1, UnitPrice: 10},
		},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("CreateDelivery() error = %v, want ErrNotFound", err)
	}
}

func TestCreateDelivery_ReleasesOnPartialFailure(t *testing.T) {
	env := newDeliveryTestEnv().withCustomer(1)
	env.invRepo.add(&domain.InventoryItem{ID: 1, Quantity: 5})
	env.invRepo.add(&domain.InventoryItem{ID: 2, Quantity: 1})

	_, err := env.svc.CreateDelivery(&domain.CreateDeliveryRequest{
		CustomerID: 1,
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 2, UnitPrice: 50},
			{InventoryItemID: itemID(2), Quantity: 3, UnitPrice: 20}, // 超过可用量
		},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("CreateDelivery() error = %v, want ErrInsufficientStock", err)
	}

	inv, _ := env.invRepo.GetByID(1)
	if inv.ReservedQuantity != 0 {
		t.Errorf("ReservedQuantity = %d, want 0 (first reservation released)", inv.ReservedQuantity)
	}
}

func TestAddPayment_StatusProgression(t *testing.T) {
	env := newDeliveryTestEnv().withCustomer(1)
	env.invRepo.add(&domain.InventoryItem{ID: 1, Quantity: 5})

	created, err := env.svc.CreateDelivery(&domain.CreateDeliveryRequest{
		CustomerID: 1,
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 2, UnitPrice: 50},
		},
	})
	if err != nil {
		t.Fatalf("CreateDelivery() error = %v", err)
	}

	delivery, _, err := env.svc.AddPayment(created.ID, &domain.AddPaymentRequest{Amount: 60, PaymentMethod: "transfer"})
	if err != nil {
		t.Fatalf("AddPayment() error = %v", err)
	}
	if delivery.PaymentStatus != domain.PaymentStatusPartial {
		t.Errorf("PaymentStatus = %v, want partial", delivery.PaymentStatus)
	}

	delivery, _, err = env.svc.AddPayment(created.ID, &domain.AddPaymentRequest{Amount: 40, PaymentMethod: "cash"})
	if err != nil {
		t.Fatalf("AddPayment() error = %v", err)
	}
	if delivery.PaymentStatus != domain.PaymentStatusPaid {
		t.Errorf("PaymentStatus = %v, want paid", delivery.PaymentStatus)
	}
	if delivery.PaidAmount != 100 {
		t.Errorf("PaidAmount = %v, want 100", delivery.PaidAmount)
	}
}

func TestAddPayment_Overpayment(t *testing.T) {
	env := newDeliveryTestEnv().withCustomer(1)
	env.invRepo.add(&domain.InventoryItem{ID: 1, Quantity: 5})

	created, _ := env.svc.CreateDelivery(&domain.CreateDeliveryRequest{
		CustomerID: 1,
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 2, UnitPrice: 50},
		},
	})

	if _, _, err := env.svc.AddPayment(created.ID, &domain.AddPaymentRequest{Amount: 60}); err != nil {
		t.Fatalf("AddPayment() error = %v", err)
	}
	_, _, err := env.svc.AddPayment(created.ID, &domain.AddPaymentRequest{Amount: 50})
	if !errors.Is(err, domain.ErrOverpayment) {
		t.Errorf("AddPayment() error = %v, want ErrOverpayment", err)
	}
}

func TestComplete_MarkPaidMaterializesSale(t *testing.T) {
	env := newDeliveryTestEnv().withCustomer(1)
	env.invRepo.add(&domain.InventoryItem{ID: 1, CarID: "HW-001", Quantity: 5, PurchasePrice: 30})

	created, _ := env.svc.CreateDelivery(&domain.CreateDeliveryRequest{
		CustomerID: 1,
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), CarID: "HW-001", Quantity: 2, UnitPrice: 50},
		},
	})

	delivery, warning, err := env.svc.Complete(created.ID, &domain.CompleteDeliveryRequest{MarkPaid: true})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if warning != "" {
		t.Errorf("warning = %q, want empty", warning)
	}
	if delivery.Status != domain.DeliveryStatusCompleted {
		t.Errorf("Status = %v, want completed", delivery.Status)
	}
	if delivery.PaymentStatus != domain.PaymentStatusPaid {
		t.Errorf("PaymentStatus = %v, want paid", delivery.PaymentStatus)
	}

	// 尾款自动补记，备注为哨兵值
	if len(delivery.Payments) != 1 {
		t.Fatalf("len(Payments) = %d, want 1", len(delivery.Payments))
	}
	if delivery.Payments[0].Note != domain.CompletionPaymentNote {
		t.Errorf("payment note = %q, want %q", delivery.Payments[0].Note, domain.CompletionPaymentNote)
	}
	if delivery.Payments[0].Amount != 100 {
		t.Errorf("payment amount = %v, want 100", delivery.Payments[0].Amount)
	}

	// 库存永久扣减，销售记录生成
	inv, _ := env.invRepo.GetByID(1)
	if inv.Quantity != 3 || inv.ReservedQuantity != 0 {
		t.Errorf("inventory: quantity=%d reserved=%d, want 3/0", inv.Quantity, inv.ReservedQuantity)
	}
	if len(env.saleRepo.sales) != 1 {
		t.Errorf("sale count = %d, want 1", len(env.saleRepo.sales))
	}
}

func TestComplete_UnpaidDefersMaterialization(t *testing.T) {
	env := newDeliveryTestEnv().withCustomer(1)
	env.invRepo.add(&domain.InventoryItem{ID: 1, Quantity: 5, PurchasePrice: 30})

	created, _ := env.svc.CreateDelivery(&domain.CreateDeliveryRequest{
		CustomerID: 1,
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 2, UnitPrice: 50},
		},
	})

	// 欠款完成：不生成销售记录，预留保持
	if _, _, err := env.svc.Complete(created.ID, &domain.CompleteDeliveryRequest{}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if len(env.saleRepo.sales) != 0 {
		t.Fatalf("sale count = %d, want 0 before payment", len(env.saleRepo.sales))
	}
	inv, _ := env.invRepo.GetByID(1)
	if inv.ReservedQuantity != 2 {
		t.Errorf("ReservedQuantity = %d, want 2 (commit deferred)", inv.ReservedQuantity)
	}

	// 尾款到账触发补做物化
	_, warning, err := env.svc.AddPayment(created.ID, &domain.AddPaymentRequest{Amount: 100})
	if err != nil {
		t.Fatalf("AddPayment() error = %v", err)
	}
	if warning != "" {
		t.Errorf("warning = %q, want empty", warning)
	}
	if len(env.saleRepo.sales) != 1 {
		t.Errorf("sale count = %d, want 1 after full payment", len(env.saleRepo.sales))
	}
	inv, _ = env.invRepo.GetByID(1)
	if inv.Quantity != 3 || inv.ReservedQuantity != 0 {
		t.Errorf("inventory: quantity=%d reserved=%d, want 3/0", inv.Quantity, inv.ReservedQuantity)
	}
}

func TestComplete_MaterializationFailureIsWarning(t *testing.T) {
	env := newDeliveryTestEnv().withCustomer(1)
	env.invRepo.add(&domain.InventoryItem{ID: 1, Quantity: 5, PurchasePrice: 30})
	env.saleRepo.createErr = errors.New("sales table unavailable")

	created, _ := env.svc.CreateDelivery(&domain.CreateDeliveryRequest{
		CustomerID: 1,
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 2, UnitPrice: 50},
		},
	})

	delivery, warning, err := env.svc.Complete(created.ID, &domain.CompleteDeliveryRequest{MarkPaid: true})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if warning == "" {
		t.Error("warning is empty, want sale creation failure surfaced")
	}
	if delivery.Status != domain.DeliveryStatusCompleted {
		t.Errorf("Status = %v, want completed despite warning", delivery.Status)
	}

	// 扣减被补偿，预留恢复
	inv, _ := env.invRepo.GetByID(1)
	if inv.Quantity != 5 || inv.ReservedQuantity != 2 {
		t.Errorf("inventory: quantity=%d reserved=%d, want 5/2", inv.Quantity, inv.ReservedQuantity)
	}
}

func TestRevertToPending(t *testing.T) {
	env := newDeliveryTestEnv().withCustomer(1)
	env.invRepo.add(&domain.InventoryItem{ID: 1, Quantity: 5, PurchasePrice: 30})

	created, _ := env.svc.CreateDelivery(&domain.CreateDeliveryRequest{
		CustomerID: 1,
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 2, UnitPrice: 50},
		},
	})
	if _, _, err := env.svc.Complete(created.ID, &domain.CompleteDeliveryRequest{MarkPaid: true}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	delivery, err := env.svc.RevertToPending(created.ID)
	if err != nil {
		t.Fatalf("RevertToPending() error = %v", err)
	}

	if delivery.Status != domain.DeliveryStatusScheduled {
		t.Errorf("Status = %v, want scheduled", delivery.Status)
	}
	if delivery.CompletedAt != nil {
		t.Error("CompletedAt not cleared")
	}
	if delivery.PaidAmount != 0 {
		t.Errorf("PaidAmount = %v, want 0 (auto payment removed)", delivery.PaidAmount)
	}
	if len(delivery.Payments) != 0 {
		t.Errorf("len(Payments) = %d, want 0", len(delivery.Payments))
	}

	// 库存回到完成前的占用状态
	inv, _ := env.invRepo.GetByID(1)
	if inv.Quantity != 5 || inv.ReservedQuantity != 2 {
		t.Errorf("inventory: quantity=%d reserved=%d, want 5/2", inv.Quantity, inv.ReservedQuantity)
	}

	// 销售记录被标记为已回退
	for _, sale := range env.saleRepo.sales {
		if sale.Status != domain.SaleStatusReverted {
			t.Errorf("sale %d status = %v, want reverted", sale.ID, sale.Status)
		}
	}
}

func TestRevertToPending_UnpaidKeepsReservation(t *testing.T) {
	env := newDeliveryTestEnv().withCustomer(1)
	env.invRepo.add(&domain.InventoryItem{ID: 1, Quantity: 5, PurchasePrice: 30})

	created, _ := env.svc.CreateDelivery(&domain.CreateDeliveryRequest{
		CustomerID: 1,
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 2, UnitPrice: 50},
		},
	})

	// 欠款完成：未物化，预留仍在持有中
	if _, _, err := env.svc.Complete(created.ID, &domain.CompleteDeliveryRequest{}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	inv, _ := env.invRepo.GetByID(1)
	if inv.Quantity != 5 || inv.ReservedQuantity != 2 {
		t.Fatalf("inventory after unpaid complete: quantity=%d reserved=%d, want 5/2", inv.Quantity, inv.ReservedQuantity)
	}

	// 回退不得重复预留
	delivery, err := env.svc.RevertToPending(created.ID)
	if err != nil {
		t.Fatalf("RevertToPending() error = %v", err)
	}
	if delivery.Status != domain.DeliveryStatusScheduled {
		t.Errorf("Status = %v, want scheduled", delivery.Status)
	}
	inv, _ = env.invRepo.GetByID(1)
	if inv.Quantity != 5 || inv.ReservedQuantity != 2 {
		t.Errorf("inventory after revert: quantity=%d reserved=%d, want 5/2 (no double reservation)", inv.Quantity, inv.ReservedQuantity)
	}
}

func TestRevertToPending_OnlyCompleted(t *testing.T) {
	env := newDeliveryTestEnv().withCustomer(1)
	env.invRepo.add(&domain.InventoryItem{ID: 1, Quantity: 5})

	created, _ := env.svc.CreateDelivery(&domain.CreateDeliveryRequest{
		CustomerID: 1,
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 1, UnitPrice: 10},
		},
	})

	if _, err := env.svc.RevertToPending(created.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("RevertToPending() error = %v, want ErrInvalidState", err)
	}
}

func TestCancel_ReleasesReservations(t *testing.T) {
	env := newDeliveryTestEnv().withCustomer(1)
	env.invRepo.add(&domain.InventoryItem{ID: 1, Quantity: 5})

	created, _ := env.svc.CreateDelivery(&domain.CreateDeliveryRequest{
		CustomerID: 1,
		Notes:      "front porch",
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 2, UnitPrice: 50},
		},
	})

	delivery, err := env.svc.Cancel(created.ID, &domain.CancelDeliveryRequest{Reason: "customer moved"})
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if delivery.Status != domain.DeliveryStatusCancelled {
		t.Errorf("Status = %v, want cancelled", delivery.Status)
	}
	if delivery.Notes != "front porch\ncancelled: customer moved" {
		t.Errorf("Notes = %q, reason not appended", delivery.Notes)
	}

	inv, _ := env.invRepo.GetByID(1)
	if inv.ReservedQuantity != 0 {
		t.Errorf("ReservedQuantity = %d, want 0", inv.ReservedQuantity)
	}

	// 已取消的交付单不可再取消或收款
	if _, err := env.svc.Cancel(created.ID, &domain.CancelDeliveryRequest{}); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("second Cancel() error = %v, want ErrInvalidState", err)
	}
	if _, _, err := env.svc.AddPayment(created.ID, &domain.AddPaymentRequest{Amount: 10}); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("AddPayment() on cancelled error = %v, want ErrInvalidState", err)
	}
}

func TestPrepareAndReschedule(t *testing.T) {
	env := newDeliveryTestEnv().withCustomer(1)
	env.invRepo.add(&domain.InventoryItem{ID: 1, Quantity: 5})

	created, _ := env.svc.CreateDelivery(&domain.CreateDeliveryRequest{
		CustomerID: 1,
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 1, UnitPrice: 10},
		},
	})

	delivery, err := env.svc.Prepare(created.ID)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if delivery.Status != domain.DeliveryStatusPrepared {
		t.Errorf("Status = %v, want prepared", delivery.Status)
	}

	// 已备货不可再备货
	if _, err := env.svc.Prepare(created.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("second Prepare() error = %v, want ErrInvalidState", err)
	}

	newDate := time.Now().AddDate(0, 0, 7)
	delivery, err = env.svc.Reschedule(created.ID, &domain.RescheduleDeliveryRequest{ScheduledDate: newDate})
	if err != nil {
		t.Fatalf("Reschedule() error = %v", err)
	}
	if delivery.Status != domain.DeliveryStatusRescheduled {
		t.Errorf("Status = %v, want rescheduled", delivery.Status)
	}
	if !delivery.ScheduledDate.Equal(newDate) {
		t.Errorf("ScheduledDate = %v, want %v", delivery.ScheduledDate, newDate)
	}
}

func TestUpdateItems_AdjustsReservations(t *testing.T) {
	env := newDeliveryTestEnv().withCustomer(1)
	env.invRepo.add(&domain.InventoryItem{ID: 1, Quantity: 5})
	env.invRepo.add(&domain.InventoryItem{ID: 2, Quantity: 4})

	created, _ := env.svc.CreateDelivery(&domain.CreateDeliveryRequest{
		CustomerID: 1,
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 2, UnitPrice: 50},
		},
	})

	// 行1从2件升到3件，新增行2，补充预售行
	delivery, err := env.svc.UpdateItems(created.ID, &domain.UpdateDeliveryItemsRequest{
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 3, UnitPrice: 50},
			{InventoryItemID: itemID(2), Quantity: 1, UnitPrice: 20},
			{CarID: "HW-900", Quantity: 1, UnitPrice: 80, IsPresale: true},
		},
	})
	if err != nil {
		t.Fatalf("UpdateItems() error = %v", err)
	}
	if delivery.TotalAmount != 250 {
		t.Errorf("TotalAmount = %v, want 250", delivery.TotalAmount)
	}

	inv1, _ := env.invRepo.GetByID(1)
	inv2, _ := env.invRepo.GetByID(2)
	if inv1.ReservedQuantity != 3 {
		t.Errorf("item 1 reserved = %d, want 3", inv1.ReservedQuantity)
	}
	if inv2.ReservedQuantity != 1 {
		t.Errorf("item 2 reserved = %d, want 1", inv2.ReservedQuantity)
	}

	// 缩减回1件，净减量被释放
	if _, err := env.svc.UpdateItems(created.ID, &domain.UpdateDeliveryItemsRequest{
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 1, UnitPrice: 50},
		},
	}); err != nil {
		t.Fatalf("UpdateItems() shrink error = %v", err)
	}
	inv1, _ = env.invRepo.GetByID(1)
	inv2, _ = env.invRepo.GetByID(2)
	if inv1.ReservedQuantity != 1 {
		t.Errorf("item 1 reserved after shrink = %d, want 1", inv1.ReservedQuantity)
	}
	if inv2.ReservedQuantity != 0 {
		t.Errorf("item 2 reserved after removal = %d, want 0", inv2.ReservedQuantity)
	}
}

func TestUpdateItems_ResetsPreparedStatus(t *testing.T) {
	env := newDeliveryTestEnv().withCustomer(1)
	env.invRepo.add(&domain.InventoryItem{ID: 1, Quantity: 5})

	created, _ := env.svc.CreateDelivery(&domain.CreateDeliveryRequest{
		CustomerID: 1,
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 2, UnitPrice: 50},
		},
	})
	if _, err := env.svc.Prepare(created.ID); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	// 行项变更使备货结果失效
	delivery, err := env.svc.UpdateItems(created.ID, &domain.UpdateDeliveryItemsRequest{
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 3, UnitPrice: 50},
		},
	})
	if err != nil {
		t.Fatalf("UpdateItems() error = %v", err)
	}
	if delivery.Status != domain.DeliveryStatusScheduled {
		t.Errorf("Status = %v, want scheduled after item change", delivery.Status)
	}
}

func TestUpdateItems_RollsBackOnReserveFailure(t *testing.T) {
	env := newDeliveryTestEnv().withCustomer(1)
	env.invRepo.add(&domain.InventoryItem{ID: 1, Quantity: 5})
	env.invRepo.add(&domain.InventoryItem{ID: 2, Quantity: 1})

	created, _ := env.svc.CreateDelivery(&domain.CreateDeliveryRequest{
		CustomerID: 1,
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 2, UnitPrice: 50},
		},
	})

	_, err := env.svc.UpdateItems(created.ID, &domain.UpdateDeliveryItemsRequest{
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 4, UnitPrice: 50},
			{InventoryItemID: itemID(2), Quantity: 3, UnitPrice: 20}, // 超过可用量
		},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("UpdateItems() error = %v, want ErrInsufficientStock", err)
	}

	// 原预留保持不变
	inv1, _ := env.invRepo.GetByID(1)
	if inv1.ReservedQuantity != 2 {
		t.Errorf("item 1 reserved = %d, want 2 (rolled back)", inv1.ReservedQuantity)
	}
	stored, _ := env.deliveryRepo.GetByID(created.ID)
	if len(stored.Items) != 1 || stored.Items[0].Quantity != 2 {
		t.Error("delivery items changed despite reservation failure")
	}
}

func TestRemovePayment(t *testing.T) {
	env := newDeliveryTestEnv().withCustomer(1)
	env.invRepo.add(&domain.InventoryItem{ID: 1, Quantity: 5})

	created, _ := env.svc.CreateDelivery(&domain.CreateDeliveryRequest{
		CustomerID: 1,
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 2, UnitPrice: 50},
		},
	})
	paid, _, err := env.svc.AddPayment(created.ID, &domain.AddPaymentRequest{Amount: 60})
	if err != nil {
		t.Fatalf("AddPayment() error = %v", err)
	}

	delivery, err := env.svc.RemovePayment(created.ID, paid.Payments[0].ID)
	if err != nil {
		t.Fatalf("RemovePayment() error = %v", err)
	}
	if delivery.PaidAmount != 0 {
		t.Errorf("PaidAmount = %v, want 0", delivery.PaidAmount)
	}
	if delivery.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("PaymentStatus = %v, want pending", delivery.PaymentStatus)
	}

	if _, err := env.svc.RemovePayment(created.ID, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("RemovePayment() missing payment error = %v, want ErrNotFound", err)
	}
}

func TestDeleteDelivery(t *testing.T) {
	env := newDeliveryTestEnv().withCustomer(1)
	env.invRepo.add(&domain.InventoryItem{ID: 1, Quantity: 5, PurchasePrice: 30})

	// 未完成：删除释放预留
	created, _ := env.svc.CreateDelivery(&domain.CreateDeliveryRequest{
		CustomerID: 1,
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 2, UnitPrice: 50},
		},
	})
	if err := env.svc.DeleteDelivery(created.ID); err != nil {
		t.Fatalf("DeleteDelivery() error = %v", err)
	}
	inv, _ := env.invRepo.GetByID(1)
	if inv.ReservedQuantity != 0 {
		t.Errorf("ReservedQuantity = %d, want 0 after delete", inv.ReservedQuantity)
	}
	if _, err := env.svc.GetDelivery(created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetDelivery() after delete error = %v, want ErrNotFound", err)
	}

	// 已完成：删除回退销售并恢复在库数量
	created, _ = env.svc.CreateDelivery(&domain.CreateDeliveryRequest{
		CustomerID: 1,
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 2, UnitPrice: 50},
		},
	})
	if _, _, err := env.svc.Complete(created.ID, &domain.CompleteDeliveryRequest{MarkPaid: true}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if err := env.svc.DeleteDelivery(created.ID); err != nil {
		t.Fatalf("DeleteDelivery() completed error = %v", err)
	}
	inv, _ = env.invRepo.GetByID(1)
	if inv.Quantity != 5 {
		t.Errorf("Quantity = %d, want 5 (restored by rollback)", inv.Quantity)
	}
}

func TestDeleteDelivery_UnpaidCompletedReleasesReservation(t *testing.T) {
	env := newDeliveryTestEnv().withCustomer(1)
	env.invRepo.add(&domain.InventoryItem{ID: 1, Quantity: 5, PurchasePrice: 30})

	created, _ := env.svc.CreateDelivery(&domain.CreateDeliveryRequest{
		CustomerID: 1,
		Items: []domain.DeliveryItemInput{
			{InventoryItemID: itemID(1), Quantity: 2, UnitPrice: 50},
		},
	})

	// 欠款完成：没有销售记录可回退，预留仍在持有中
	if _, _, err := env.svc.Complete(created.ID, &domain.CompleteDeliveryRequest{}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if err := env.svc.DeleteDelivery(created.ID); err != nil {
		t.Fatalf("DeleteDelivery() error = %v", err)
	}

	inv, _ := env.invRepo.GetByID(1)
	if inv.Quantity != 5 || inv.ReservedQuantity != 0 {
		t.Errorf("inventory after delete: quantity=%d reserved=%d, want 5/0", inv.Quantity, inv.ReservedQuantity)
	}
}
