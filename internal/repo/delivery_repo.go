// Package repo 实现交付单数据访问层，含行项与支付记录的持久化。
package repo

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/g33ktony/diecast-manager/internal/domain"
)

// DeliveryRepository 定义交付单数据访问接口
type DeliveryRepository interface {
	Create(delivery *domain.Delivery) error
	GetByID(id int64) (*domain.Delivery, error)
	Update(delivery *domain.Delivery) error
	Delete(id int64) error
	List(req *domain.DeliveryListRequest) ([]*domain.Delivery, int64, error)

	// 行项
	ReplaceItems(deliveryID int64, items []*domain.DeliveryItem) error
	GetByInventoryItemIDs(itemIDs []int64) ([]*domain.Delivery, error)

	// 支付台账：插入/删除支付记录与交付单金额字段在同一事务内落库
	AddPayment(delivery *domain.Delivery, payment *domain.Payment) error
	RemovePayment(delivery *domain.Delivery, paymentID int64) error
	GetPayment(deliveryID, paymentID int64) (*domain.Payment, error)
}

// deliveryRepo 实现DeliveryRepository接口
type deliveryRepo struct {
	db *sql.DB
}

// NewDeliveryRepository 创建交付单仓储实例
func NewDeliveryRepository(db *sql.DB) DeliveryRepository {
	return &deliveryRepo{db: db}
}

const deliveryColumns = `id, customer_id, scheduled_date, location, total_amount, paid_amount,
		payment_status, status, completed_at, notes, created_at, updated_at`

// Create 创建交付单及其行项
func (r *deliveryRepo) Create(delivery *domain.Delivery) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO deliveries (customer_id, scheduled_date, location, total_amount, paid_amount,
			payment_status, status, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := tx.Exec(query,
		delivery.CustomerID,
		delivery.ScheduledDate,
		delivery.Location,
		delivery.TotalAmount,
		delivery.PaidAmount,
		delivery.PaymentStatus,
		delivery.Status,
		delivery.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to create delivery: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	delivery.ID = id

	if err := insertDeliveryItems(tx, id, delivery.Items); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByID 获取交付单（含行项与支付记录）
func (r *deliveryRepo) GetByID(id int64) (*domain.Delivery, error) {
	query := fmt.Sprintf(`SELECT %s FROM deliveries WHERE id = ?`, deliveryColumns)

	delivery, err := scanDelivery(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery by id: %w", err)
	}

	if delivery.Items, err = r.loadItems(id); err != nil {
		return nil, err
	}
	if delivery.Payments, err = r.loadPayments(id); err != nil {
		return nil, err
	}
	return delivery, nil
}

// Update 更新交付单头部字段
func (r *deliveryRepo) Update(delivery *domain.Delivery) error {
	query := `
		UPDATE deliveries
		SET scheduled_date = ?, location = ?, total_amount = ?, paid_amount = ?,
			payment_status = ?, status = ?, completed_at = ?, notes = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		delivery.ScheduledDate,
		delivery.Location,
		delivery.TotalAmount,
		delivery.PaidAmount,
		delivery.PaymentStatus,
		delivery.Status,
		delivery.CompletedAt,
		delivery.Notes,
		delivery.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update delivery: %w", err)
	}
	return nil
}

// Delete 删除交付单及其行项与支付记录
func (r *deliveryRepo) Delete(id int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM payments WHERE delivery_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete payments: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM delivery_items WHERE delivery_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete delivery items: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM deliveries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete delivery: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// List 获取交付单列表（仅头部，不含行项）
func (r *deliveryRepo) List(req *domain.DeliveryListRequest) ([]*domain.Delivery, int64, error) {
	where, args := r.buildListWhereClause(req)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM deliveries %s", where)
	var total int64
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count deliveries: %w", err)
	}

	orderBy := r.buildOrderClause(req)
	query := fmt.Sprintf(`SELECT %s FROM deliveries %s %s LIMIT ? OFFSET ?`,
		deliveryColumns, where, orderBy)
	args = append(args, req.PageSize, (req.Page-1)*req.PageSize)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []*domain.Delivery
	for rows.Next() {
		delivery, err := scanDelivery(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan delivery: %w", err)
		}
		deliveries = append(deliveries, delivery)
	}
	return deliveries, total, rows.Err()
}

// ReplaceItems 以新行项整体替换旧行项
func (r *deliveryRepo) ReplaceItems(deliveryID int64, items []*domain.DeliveryItem) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM delivery_items WHERE delivery_id = ?`, deliveryID); err != nil {
		return fmt.Errorf("failed to delete delivery items: %w", err)
	}
	if err := insertDeliveryItems(tx, deliveryID, items); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByInventoryItemIDs 查找引用了指定库存记录且未进入终态的交付单
func (r *deliveryRepo) GetByInventoryItemIDs(itemIDs []int64) ([]*domain.Delivery, error) {
	if len(itemIDs) == 0 {
		return []*domain.Delivery{}, nil
	}

	placeholders := strings.Repeat("?,", len(itemIDs)-1) + "?"
	query := fmt.Sprintf(`
		SELECT DISTINCT %s FROM deliveries d
		JOIN delivery_items di ON di.delivery_id = d.id
		WHERE di.inventory_item_id IN (%s)
			AND d.status NOT IN ('completed', 'cancelled')
		ORDER BY d.id
	`, prefixColumns(deliveryColumns, "d"), placeholders)

	args := make([]interface{}, len(itemIDs))
	for i, id := range itemIDs {
		args[i] = id
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries by inventory items: %w", err)
	}
	defer rows.Close()

	var deliveries []*domain.Delivery
	for rows.Next() {
		delivery, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		deliveries = append(deliveries, delivery)
	}
	return deliveries, rows.Err()
}

// AddPayment 插入支付记录并同步更新交付单金额字段
func (r *deliveryRepo) AddPayment(delivery *domain.Delivery, payment *domain.Payment) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO payments (delivery_id, amount, payment_date, payment_method, note)
		VALUES (?, ?, ?, ?, ?)
	`, payment.DeliveryID, payment.Amount, payment.PaymentDate, payment.PaymentMethod, payment.Note)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	payment.ID = id

	if _, err := tx.Exec(`
		UPDATE deliveries SET paid_amount = ?, payment_status = ? WHERE id = ?
	`, delivery.PaidAmount, delivery.PaymentStatus, delivery.ID); err != nil {
		return fmt.Errorf("failed to update delivery payment totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RemovePayment 删除支付记录并同步更新交付单金额字段
func (r *deliveryRepo) RemovePayment(delivery *domain.Delivery, paymentID int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM payments WHERE id = ? AND delivery_id = ?`, paymentID, delivery.ID)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.Exec(`
		UPDATE deliveries SET paid_amount = ?, payment_status = ? WHERE id = ?
	`, delivery.PaidAmount, delivery.PaymentStatus, delivery.ID); err != nil {
		return fmt.Errorf("failed to update delivery payment totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPayment 获取交付单下的一笔支付记录
func (r *deliveryRepo) GetPayment(deliveryID, paymentID int64) (*domain.Payment, error) {
	query := `
		SELECT id, delivery_id, amount, payment_date, payment_method, note
		FROM payments
		WHERE id = ? AND delivery_id = ?
	`

	payment := &domain.Payment{}
	err := r.db.QueryRow(query, paymentID, deliveryID).Scan(
		&payment.ID,
		&payment.DeliveryID,
		&payment.Amount,
		&payment.PaymentDate,
		&payment.PaymentMethod,
		&payment.Note,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

// loadItems 加载交付单行项
func (r *deliveryRepo) loadItems(deliveryID int64) ([]*domain.DeliveryItem, error) {
	query := `
		SELECT id, delivery_id, inventory_item_id, car_id, car_name, quantity, unit_price, is_presale
		FROM delivery_items
		WHERE delivery_id = ?
		ORDER BY id
	`

	rows, err := r.db.Query(query, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery items: %w", err)
	}
	defer rows.Close()

	var items []*domain.DeliveryItem
	for rows.Next() {
		item := &domain.DeliveryItem{}
		err := rows.Scan(
			&item.ID,
			&item.DeliveryID,
			&item.InventoryItemID,
			&item.CarID,
			&item.CarName,
			&item.Quantity,
			&item.UnitPrice,
			&item.IsPresale,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// loadPayments 加载交付单支付记录
func (r *deliveryRepo) loadPayments(deliveryID int64) ([]*domain.Payment, error) {
	query := `
		SELECT id, delivery_id, amount, payment_date, payment_method, note
		FROM payments
		WHERE delivery_id = ?
		ORDER BY id
	`

	rows, err := r.db.Query(query, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment := &domain.Payment{}
		err := rows.Scan(
			&payment.ID,
			&payment.DeliveryID,
			&payment.Amount,
			&payment.PaymentDate,
			&payment.PaymentMethod,
			&payment.Note,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

// buildListWhereClause 构建查询条件子句
func (r *deliveryRepo) buildListWhereClause(req *domain.DeliveryListRequest) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if req.CustomerID != nil {
		conditions = append(conditions, "customer_id = ?")
		args = append(args, *req.CustomerID)
	}
	if req.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *req.Status)
	}
	if req.PaymentStatus != nil {
		conditions = append(conditions, "payment_status = ?")
		args = append(args, *req.PaymentStatus)
	}
	if req.DateFrom != nil {
		conditions = append(conditions, "scheduled_date >= ?")
		args = append(args, *req.DateFrom)
	}
	if req.DateTo != nil {
		conditions = append(conditions, "scheduled_date <= ?")
		args = append(args, *req.DateTo)
	}

	if len(conditions) > 0 {
		return "WHERE " + strings.Join(conditions, " AND "), args
	}
	return "", args
}

// buildOrderClause 构建排序子句
func (r *deliveryRepo) buildOrderClause(req *domain.DeliveryListRequest) string {
	sortBy := "scheduled_date"
	sortOrder := "DESC"

	if req.SortBy != nil {
		switch *req.SortBy {
		case "scheduled_date", "total_amount", "created_at":
			sortBy = *req.SortBy
		}
	}
	if req.SortOrder != nil && strings.ToUpper(*req.SortOrder) == "ASC" {
		sortOrder = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s %s", sortBy, sortOrder)
}

// insertDeliveryItems 在事务内批量插入行项
func insertDeliveryItems(tx *sql.Tx, deliveryID int64, items []*domain.DeliveryItem) error {
	query := `
		INSERT INTO delivery_items (delivery_id, inventory_item_id, car_id, car_name, quantity, unit_price, is_presale)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for _, item := range items {
		result, err := tx.Exec(query,
			deliveryID,
			item.InventoryItemID,
			item.CarID,
			item.CarName,
			item.Quantity,
			item.UnitPrice,
			item.IsPresale,
		)
		if err != nil {
			return fmt.Errorf("failed to insert delivery item: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		item.ID = id
		item.DeliveryID = deliveryID
	}
	return nil
}

// scanDelivery 扫描一行交付单头部
func scanDelivery(row rowScanner) (*domain.Delivery, error) {
	delivery := &domain.Delivery{}
	err := row.Scan(
		&delivery.ID,
		&delivery.CustomerID,
		&delivery.ScheduledDate,
		&delivery.Location,
		&delivery.TotalAmount,
		&delivery.PaidAmount,
		&delivery.PaymentStatus,
		&delivery.Status,
		&delivery.CompletedAt,
		&delivery.Notes,
		&delivery.CreatedAt,
		&delivery.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return delivery, nil
}

// prefixColumns 为逗号分隔的列清单加表别名前缀
func prefixColumns(columns, alias string) string {
	parts := strings.Split(columns, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, alias+"."+strings.TrimSpace(p))
	}
	return strings.Join(out, ", ")
}
