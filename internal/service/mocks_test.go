package service

import (
	"github.com/g33ktony/diecast-manager/internal/domain"
)

// mockInventoryRepo 基于内存map的库存仓储，台账操作复刻带守卫的SQL语义
type mockInventoryRepo struct {
	items  map[int64]*domain.InventoryItem
	nextID int64

	createErr error
	updateErr error
	deleteErr error
	commitErr error
}

func newMockInventoryRepo() *mockInventoryRepo {
	return &mockInventoryRepo{items: make(map[int64]*domain.InventoryItem)}
}

func (m *mockInventoryRepo) add(item *domain.InventoryItem) *domain.InventoryItem {
	if item.ID == 0 {
		m.nextID++
		item.ID = m.nextID
	} else if item.ID > m.nextID {
		m.nextID = item.ID
	}
	m.items[item.ID] = item
	return item
}

func (m *mockInventoryRepo) Create(item *domain.InventoryItem) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.add(item)
	return nil
}

func (m *mockInventoryRepo) GetByID(id int64) (*domain.InventoryItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (m *mockInventoryRepo) GetByIDs(ids []int64) ([]*domain.InventoryItem, error) {
	var out []*domain.InventoryItem
	for _, id := range ids {
		if item, ok := m.items[id]; ok {
			copied := *item
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockInventoryRepo) Update(item *domain.InventoryItem) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.items[item.ID]; !ok {
		return domain.ErrNotFound
	}
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *mockInventoryRepo) UpdateWithVersion(item *domain.InventoryItem) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	existing, ok := m.items[item.ID]
	if !ok || existing.Version != item.Version {
		return domain.ErrNotFound
	}
	copied := *item
	copied.Version++
	m.items[item.ID] = &copied
	item.Version = copied.Version
	return nil
}

func (m *mockInventoryRepo) Delete(id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockInventoryRepo) List(req *domain.InventoryListRequest) ([]*domain.InventoryItem, int64, error) {
	var out []*domain.InventoryItem
	for _, item := range m.items {
		copied := *item
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (m *mockInventoryRepo) FindMergeTarget(carID string, condition domain.ItemCondition, brand string) (*domain.InventoryItem, error) {
	for _, item := range m.items {
		if !item.IsBox && item.CarID == carID && item.Condition == condition && item.Brand == brand {
			copied := *item
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockInventoryRepo) GetBySourcePurchase(purchaseID int64) ([]*domain.InventoryItem, error) {
	var out []*domain.InventoryItem
	for _, item := range m.items {
		if item.SourcePurchaseID != nil && *item.SourcePurchaseID == purchaseID {
			copied := *item
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockInventoryRepo) GetPiecesBySourceBox(boxID int64) ([]*domain.InventoryItem, error) {
	var out []*domain.InventoryItem
	for _, item := range m.items {
		if item.SourceBoxID != nil && *item.SourceBoxID == boxID {
			copied := *item
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockInventoryRepo) ReserveStock(itemID int64, qty int) error {
	item, ok := m.items[itemID]
	if !ok || item.Available() < qty {
		return domain.ErrInsufficientStock
	}
	item.ReservedQuantity += qty
	return nil
}

func (m *mockInventoryRepo) ReleaseStock(itemID int64, qty int) error {
	item, ok := m.items[itemID]
	if !ok {
		return domain.ErrNotFound
	}
	item.ReservedQuantity -= qty
	if item.ReservedQuantity < 0 {
		item.ReservedQuantity = 0
	}
	return nil
}

func (m *mockInventoryRepo) CommitStock(itemID int64, qty int) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	item, ok := m.items[itemID]
	if !ok || item.Quantity < qty {
		return domain.ErrInsufficientStock
	}
	item.Quantity -= qty
	item.ReservedQuantity -= qty
	if item.ReservedQuantity < 0 {
		item.ReservedQuantity = 0
	}
	return nil
}

func (m *mockInventoryRepo) RestockStock(itemID int64, qty int) error {
	item, ok := m.items[itemID]
	if !ok {
		return domain.ErrNotFound
	}
	item.Quantity += qty
	return nil
}

func (m *mockInventoryRepo) DeductStock(itemID int64, qty int) error {
	item, ok := m.items[itemID]
	if !ok || item.Available() < qty {
		return domain.ErrInsufficientStock
	}
	item.Quantity -= qty
	return nil
}

// mockDeliveryRepo 基于内存map的交付单仓储
type mockDeliveryRepo struct {
	deliveries    map[int64]*domain.Delivery
	nextID        int64
	nextPaymentID int64

	createErr error
	updateErr error
}

func newMockDeliveryRepo() *mockDeliveryRepo {
	return &mockDeliveryRepo{deliveries: make(map[int64]*domain.Delivery)}
}

func (m *mockDeliveryRepo) add(delivery *domain.Delivery) *domain.Delivery {
	if delivery.ID == 0 {
		m.nextID++
		delivery.ID = m.nextID
	} else if delivery.ID > m.nextID {
		m.nextID = delivery.ID
	}
	m.deliveries[delivery.ID] = delivery
	return delivery
}

func (m *mockDeliveryRepo) Create(delivery *domain.Delivery) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.add(delivery)
	return nil
}

func (m *mockDeliveryRepo) GetByID(id int64) (*domain.Delivery, error) {
	delivery, ok := m.deliveries[id]
	if !ok {
		return nil, nil
	}
	copied := *delivery
	copied.Items = append([]*domain.DeliveryItem(nil), delivery.Items...)
	copied.Payments = append([]*domain.Payment(nil), delivery.Payments...)
	return &copied, nil
}

func (m *mockDeliveryRepo) Update(delivery *domain.Delivery) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.deliveries[delivery.ID]; !ok {
		return domain.ErrNotFound
	}
	copied := *delivery
	copied.Items = append([]*domain.DeliveryItem(nil), delivery.Items...)
	copied.Payments = append([]*domain.Payment(nil), delivery.Payments...)
	m.deliveries[delivery.ID] = &copied
	return nil
}

func (m *mockDeliveryRepo) Delete(id int64) error {
	if _, ok := m.deliveries[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.deliveries, id)
	return nil
}

func (m *mockDeliveryRepo) List(req *domain.DeliveryListRequest) ([]*domain.Delivery, int64, error) {
	var out []*domain.Delivery
	for _, delivery := range m.deliveries {
		out = append(out, delivery)
	}
	return out, int64(len(out)), nil
}

func (m *mockDeliveryRepo) ReplaceItems(deliveryID int64, items []*domain.DeliveryItem) error {
	delivery, ok := m.deliveries[deliveryID]
	if !ok {
		return domain.ErrNotFound
	}
	delivery.Items = items
	return nil
}

func (m *mockDeliveryRepo) GetByInventoryItemIDs(itemIDs []int64) ([]*domain.Delivery, error) {
	want := make(map[int64]bool, len(itemIDs))
	for _, id := range itemIDs {
		want[id] = true
	}

	var out []*domain.Delivery
	for _, delivery := range m.deliveries {
		if delivery.Status == domain.DeliveryStatusCompleted || delivery.Status == domain.DeliveryStatusCancelled {
			continue
		}
		for _, item := range delivery.Items {
			if item.InventoryItemID != nil && want[*item.InventoryItemID] {
				out = append(out, delivery)
				break
			}
		}
	}
	return out, nil
}

func (m *mockDeliveryRepo) AddPayment(delivery *domain.Delivery, payment *domain.Payment) error {
	stored, ok := m.deliveries[delivery.ID]
	if !ok {
		return domain.ErrNotFound
	}
	m.nextPaymentID++
	payment.ID = m.nextPaymentID
	stored.Payments = append(stored.Payments, payment)
	stored.PaidAmount = delivery.PaidAmount
	stored.PaymentStatus = delivery.PaymentStatus
	return nil
}

func (m *mockDeliveryRepo) RemovePayment(delivery *domain.Delivery, paymentID int64) error {
	stored, ok := m.deliveries[delivery.ID]
	if !ok {
		return domain.ErrNotFound
	}
	var kept []*domain.Payment
	found := false
	for _, payment := range stored.Payments {
		if payment.ID == paymentID {
			found = true
			continue
		}
		kept = append(kept, payment)
	}
	if !found {
		return domain.ErrNotFound
	}
	stored.Payments = kept
	stored.PaidAmount = delivery.PaidAmount
	stored.PaymentStatus = delivery.PaymentStatus
	return nil
}

func (m *mockDeliveryRepo) GetPayment(deliveryID, paymentID int64) (*domain.Payment, error) {
	delivery, ok := m.deliveries[deliveryID]
	if !ok {
		return nil, nil
	}
	for _, payment := range delivery.Payments {
		if payment.ID == paymentID {
			copied := *payment
			return &copied, nil
		}
	}
	return nil, nil
}

// mockSaleRepo 基于内存map的销售记录仓储
type mockSaleRepo struct {
	sales  map[int64]*domain.Sale
	nextID int64

	createErr error
}

func newMockSaleRepo() *mockSaleRepo {
	return &mockSaleRepo{sales: make(map[int64]*domain.Sale)}
}

func (m *mockSaleRepo) Create(sale *domain.Sale) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	sale.ID = m.nextID
	copied := *sale
	m.sales[sale.ID] = &copied
	return nil
}

func (m *mockSaleRepo) GetByID(id int64) (*domain.Sale, error) {
	sale, ok := m.sales[id]
	if !ok {
		return nil, nil
	}
	copied := *sale
	return &copied, nil
}

func (m *mockSaleRepo) GetByDeliveryID(deliveryID int64) ([]*domain.Sale, error) {
	var out []*domain.Sale
	for _, sale := range m.sales {
		if sale.DeliveryID != nil && *sale.DeliveryID == deliveryID {
			copied := *sale
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockSaleRepo) ExistsByDeliveryID(deliveryID int64) (bool, error) {
	for _, sale := range m.sales {
		if sale.DeliveryID != nil && *sale.DeliveryID == deliveryID && sale.Status == domain.SaleStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSaleRepo) UpdateStatus(id int64, status domain.SaleStatus) error {
	sale, ok := m.sales[id]
	if !ok {
		return domain.ErrNotFound
	}
	sale.Status = status
	return nil
}

func (m *mockSaleRepo) Delete(id int64) error {
	if _, ok := m.sales[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.sales, id)
	return nil
}

func (m *mockSaleRepo) List(req *domain.SaleListRequest) ([]*domain.Sale, int64, error) {
	var out []*domain.Sale
	for _, sale := range m.sales {
		out = append(out, sale)
	}
	return out, int64(len(out)), nil
}

func (m *mockSaleRepo) GetActiveByInventoryItemIDs(itemIDs []int64) ([]*domain.Sale, error) {
	want := make(map[int64]bool, len(itemIDs))
	for _, id := range itemIDs {
		want[id] = true
	}

	var out []*domain.Sale
	for _, sale := range m.sales {
		if sale.Status != domain.SaleStatusActive {
			continue
		}
		for _, item := range sale.Items {
			if item.InventoryItemID != nil && want[*item.InventoryItemID] {
				out = append(out, sale)
				break
			}
		}
	}
	return out, nil
}

// mockPurchaseRepo 基于内存map的采购单仓储
type mockPurchaseRepo struct {
	purchases map[int64]*domain.Purchase
	nextID    int64
}

func newMockPurchaseRepo() *mockPurchaseRepo {
	return &mockPurchaseRepo{purchases: make(map[int64]*domain.Purchase)}
}

func (m *mockPurchaseRepo) Create(purchase *domain.Purchase) error {
	m.nextID++
	purchase.ID = m.nextID
	for i, item := range purchase.Items {
		item.ID = int64(i + 1)
		item.PurchaseID = purchase.ID
	}
	m.purchases[purchase.ID] = purchase
	return nil
}

func (m *mockPurchaseRepo) GetByID(id int64) (*domain.Purchase, error) {
	purchase, ok := m.purchases[id]
	if !ok {
		return nil, nil
	}
	copied := *purchase
	copied.Items = append([]*domain.PurchaseItem(nil), purchase.Items...)
	return &copied, nil
}

func (m *mockPurchaseRepo) Update(purchase *domain.Purchase) error {
	if _, ok := m.purchases[purchase.ID]; !ok {
		return domain.ErrNotFound
	}
	copied := *purchase
	copied.Items = append([]*domain.PurchaseItem(nil), purchase.Items...)
	m.purchases[purchase.ID] = &copied
	return nil
}

func (m *mockPurchaseRepo) Delete(id int64) error {
	if _, ok := m.purchases[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.purchases, id)
	return nil
}

func (m *mockPurchaseRepo) List(req *domain.PurchaseListRequest) ([]*domain.Purchase, int64, error) {
	var out []*domain.Purchase
	for _, purchase := range m.purchases {
		out = append(out, purchase)
	}
	return out, int64(len(out)), nil
}

func (m *mockPurchaseRepo) ReplaceItems(purchaseID int64, items []*domain.PurchaseItem) error {
	purchase, ok := m.purchases[purchaseID]
	if !ok {
		return domain.ErrNotFound
	}
	purchase.Items = items
	return nil
}

// mockCustomerRepo 基于内存map的客户仓储
type mockCustomerRepo struct {
	customers map[int64]*domain.Customer
}

func newMockCustomerRepo() *mockCustomerRepo {
	return &mockCustomerRepo{customers: make(map[int64]*domain.Customer)}
}

func (m *mockCustomerRepo) GetByID(id int64) (*domain.Customer, error) {
	customer, ok := m.customers[id]
	if !ok {
		return nil, nil
	}
	return customer, nil
}

// mockCatalogRepo 基于内存map的车型目录仓储
type mockCatalogRepo struct {
	cars map[string]*domain.CatalogCar
}

func newMockCatalogRepo() *mockCatalogRepo {
	return &mockCatalogRepo{cars: make(map[string]*domain.CatalogCar)}
}

func (m *mockCatalogRepo) GetByCarID(carID string) (*domain.CatalogCar, error) {
	car, ok := m.cars[carID]
	if !ok {
		return nil, nil
	}
	return car, nil
}

func (m *mockCatalogRepo) Search(req *domain.CatalogSearchRequest) ([]*domain.CatalogCar, int64, error) {
	var out []*domain.CatalogCar
	for _, car := range m.cars {
		out = append(out, car)
	}
	return out, int64(len(out)), nil
}
