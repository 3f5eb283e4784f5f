// Package repo 实现采购单数据访问层。
package repo

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/g33ktony/diecast-manager/internal/domain"
)

// PurchaseRepository 定义采购单数据访问接口
type PurchaseRepository interface {
	Create(purchase *domain.Purchase) error
	GetByID(id int64) (*domain.Purchase, error)
	Update(purchase *domain.Purchase) error
	Delete(id int64) error
	List(req *domain.PurchaseListRequest) ([]*domain.Purchase, int64, error)

	// ReplaceItems 以核验后的行项整体替换旧行项（数量为0的行已在服务层剔除）
	ReplaceItems(purchaseID int64, items []*domain.PurchaseItem) error
}

// purchaseRepo 实现PurchaseRepository接口
type purchaseRepo struct {
	db *sql.DB
}

// NewPurchaseRepository 创建采购单仓储实例
func NewPurchaseRepository(db *sql.DB) PurchaseRepository {
	return &purchaseRepo{db: db}
}

const purchaseColumns = `id, supplier, total_cost, status, is_received, received_at, notes,
		created_at, updated_at`

// Create 创建采购单及其行项
func (r *purchaseRepo) Create(purchase *domain.Purchase) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO purchases (supplier, total_cost, status, is_received, notes)
		VALUES (?, ?, ?, ?, ?)
	`, purchase.Supplier, purchase.TotalCost, purchase.Status, purchase.IsReceived, purchase.Notes)
	if err != nil {
		return fmt.Errorf("failed to create purchase: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	purchase.ID = id

	if err := insertPurchaseItems(tx, id, purchase.Items); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByID 获取采购单（含行项）
func (r *purchaseRepo) GetByID(id int64) (*domain.Purchase, error) {
	query := fmt.Sprintf(`SELECT %s FROM purchases WHERE id = ?`, purchaseColumns)

	purchase, err := scanPurchase(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase by id: %w", err)
	}

	if purchase.Items, err = r.loadItems(id); err != nil {
		return nil, err
	}
	return purchase, nil
}

// Update 更新采购单头部字段
func (r *purchaseRepo) Update(purchase *domain.Purchase) error {
	query := `
		UPDATE purchases
		SET supplier = ?, total_cost = ?, status = ?, is_received = ?, received_at = ?, notes = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		purchase.Supplier,
		purchase.TotalCost,
		purchase.Status,
		purchase.IsReceived,
		purchase.ReceivedAt,
		purchase.Notes,
		purchase.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update purchase: %w", err)
	}
	return nil
}

// Delete 删除采购单及其行项
func (r *purchaseRepo) Delete(id int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM purchase_items WHERE purchase_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete purchase items: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM purchases WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete purchase: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// List 获取采购单列表（仅头部）
func (r *purchaseRepo) List(req *domain.PurchaseListRequest) ([]*domain.Purchase, int64, error) {
	var conditions []string
	var args []interface{}

	if req.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *req.Status)
	}
	if req.Supplier != nil {
		conditions = append(conditions, "supplier = ?")
		args = append(args, *req.Supplier)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM purchases %s", where)
	var total int64
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count purchases: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM purchases %s ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		purchaseColumns, where)
	args = append(args, req.PageSize, (req.Page-1)*req.PageSize)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*domain.Purchase
	for rows.Next() {
		purchase, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, purchase)
	}
	return purchases, total, rows.Err()
}

// ReplaceItems 以新行项整体替换旧行项
func (r *purchaseRepo) ReplaceItems(purchaseID int64, items []*domain.PurchaseItem) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM purchase_items WHERE purchase_id = ?`, purchaseID); err != nil {
		return fmt.Errorf("failed to delete purchase items: %w", err)
	}
	if err := insertPurchaseItems(tx, purchaseID, items); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// loadItems 加载采购单行项
func (r *purchaseRepo) loadItems(purchaseID int64) ([]*domain.PurchaseItem, error) {
	query := `
		SELECT id, purchase_id, car_id, car_name, quantity, unit_price, item_condition, brand, is_box, box_size
		FROM purchase_items
		WHERE purchase_id = ?
		ORDER BY id
	`

	rows, err := r.db.Query(query, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase items: %w", err)
	}
	defer rows.Close()

	var items []*domain.PurchaseItem
	for rows.Next() {
		item := &domain.PurchaseItem{}
		err := rows.Scan(
			&item.ID,
			&item.PurchaseID,
			&item.CarID,
			&item.CarName,
			&item.Quantity,
			&item.UnitPrice,
			&item.Condition,
			&item.Brand,
			&item.IsBox,
			&item.BoxSize,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// insertPurchaseItems 在事务内批量插入行项
func insertPurchaseItems(tx *sql.Tx, purchaseID int64, items []*domain.PurchaseItem) error {
	query := `
		INSERT INTO purchase_items (purchase_id, car_id, car_name, quantity, unit_price, item_condition, brand, is_box, box_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, item := range items {
		result, err := tx.Exec(query,
			purchaseID,
			item.CarID,
			item.CarName,
			item.Quantity,
			item.UnitPrice,
			item.Condition,
			item.Brand,
			item.IsBox,
			item.BoxSize,
		)
		if err != nil {
			return fmt.Errorf("failed to insert purchase item: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		item.ID = id
		item.PurchaseID = purchaseID
	}
	return nil
}

// scanPurchase 扫描一行采购单头部
func scanPurchase(row rowScanner) (*domain.Purchase, error) {
	purchase := &domain.Purchase{}
	err := row.Scan(
		&purchase.ID,
		&purchase.Supplier,
		&purchase.TotalCost,
		&purchase.Status,
		&purchase.IsReceived,
		&purchase.ReceivedAt,
		&purchase.Notes,
		&purchase.CreatedAt,
		&purchase.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return purchase, nil
}
