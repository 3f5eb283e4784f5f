// Package repo 实现销售记录数据访问层。
package repo

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/g33ktony/diecast-manager/internal/domain"
)

// SaleRepository 定义销售记录数据访问接口
type SaleRepository interface {
	Create(sale *domain.Sale) error
	GetByID(id int64) (*domain.Sale, error)
	GetByDeliveryID(deliveryID int64) ([]*domain.Sale, error)
	ExistsByDeliveryID(deliveryID int64) (bool, error)
	UpdateStatus(id int64, status domain.SaleStatus) error
	Delete(id int64) error
	List(req *domain.SaleListRequest) ([]*domain.Sale, int64, error)

	// GetActiveByInventoryItemIDs 查找引用了指定库存记录的活跃销售记录，
	// 采购删除前的补偿校验使用。
	GetActiveByInventoryItemIDs(itemIDs []int64) ([]*domain.Sale, error)
}

// saleRepo 实现SaleRepository接口
type saleRepo struct {
	db *sql.DB
}

// NewSaleRepository 创建销售记录仓储实例
func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepo{db: db}
}

const saleColumns = `id, sale_number, delivery_id, customer_id, total_amount, total_profit,
		status, sold_at, created_at`

// Create 创建销售记录及其行项
func (r *saleRepo) Create(sale *domain.Sale) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO sales (sale_number, delivery_id, customer_id, total_amount, total_profit, status, sold_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sale.SaleNumber, sale.DeliveryID, sale.CustomerID, sale.TotalAmount, sale.TotalProfit, sale.Status, sale.SoldAt)
	if err != nil {
		return fmt.Errorf("failed to create sale: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	sale.ID = id

	itemQuery := `
		INSERT INTO sale_items (sale_id, inventory_item_id, car_id, car_name, quantity, unit_price, cost_price, profit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, item := range sale.Items {
		itemResult, err := tx.Exec(itemQuery,
			id,
			item.InventoryItemID,
			item.CarID,
			item.CarName,
			item.Quantity,
			item.UnitPrice,
			item.CostPrice,
			item.Profit,
		)
		if err != nil {
			return fmt.Errorf("failed to insert sale item: %w", err)
		}
		itemID, err := itemResult.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		item.ID = itemID
		item.SaleID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByID 获取销售记录（含行项）
func (r *saleRepo) GetByID(id int64) (*domain.Sale, error) {
	query := fmt.Sprintf(`SELECT %s FROM sales WHERE id = ?`, saleColumns)

	sale, err := scanSale(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sale by id: %w", err)
	}

	if sale.Items, err = r.loadItems(id); err != nil {
		return nil, err
	}
	return sale, nil
}

// GetByDeliveryID 获取来源于指定交付单的所有销售记录
func (r *saleRepo) GetByDeliveryID(deliveryID int64) ([]*domain.Sale, error) {
	query := fmt.Sprintf(`SELECT %s FROM sales WHERE delivery_id = ? ORDER BY id`, saleColumns)

	rows, err := r.db.Query(query, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales by delivery: %w", err)
	}
	defer rows.Close()

	var sales []*domain.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, sale := range sales {
		if sale.Items, err = r.loadItems(sale.ID); err != nil {
			return nil, err
		}
	}
	return sales, nil
}

// ExistsByDeliveryID 判断某交付单是否已物化为活跃销售记录。
// 已回退（reverted）的记录不计入，回退后再次完成可以重新物化。
func (r *saleRepo) ExistsByDeliveryID(deliveryID int64) (bool, error) {
	var count int64
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM sales WHERE delivery_id = ? AND status = 'active'
	`, deliveryID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check sale existence: %w", err)
	}
	return count > 0, nil
}

// UpdateStatus 更新销售记录状态
func (r *saleRepo) UpdateStatus(id int64, status domain.SaleStatus) error {
	result, err := r.db.Exec(`UPDATE sales SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update sale status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete 删除销售记录及其行项
func (r *saleRepo) Delete(id int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sale_items WHERE sale_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete sale items: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM sales WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete sale: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// List 获取销售记录列表（仅头部）
func (r *saleRepo) List(req *domain.SaleListRequest) ([]*domain.Sale, int64, error) {
	var conditions []string
	var args []interface{}

	if req.DeliveryID != nil {
		conditions = append(conditions, "delivery_id = ?")
		args = append(args, *req.DeliveryID)
	}
	if req.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *req.Status)
	}
	if req.DateFrom != nil {
		conditions = append(conditions, "sold_at >= ?")
		args = append(args, *req.DateFrom)
	}
	if req.DateTo != nil {
		conditions = append(conditions, "sold_at <= ?")
		args = append(args, *req.DateTo)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sales %s", where)
	var total int64
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sales: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM sales %s ORDER BY sold_at DESC LIMIT ? OFFSET ?`,
		saleColumns, where)
	args = append(args, req.PageSize, (req.Page-1)*req.PageSize)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []*domain.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	return sales, total, rows.Err()
}

// GetActiveByInventoryItemIDs 查找引用了指定库存记录的活跃销售记录
func (r *saleRepo) GetActiveByInventoryItemIDs(itemIDs []int64) ([]*domain.Sale, error) {
	if len(itemIDs) == 0 {
		return []*domain.Sale{}, nil
	}

	placeholders := strings.Repeat("?,", len(itemIDs)-1) + "?"
	query := fmt.Sprintf(`
		SELECT DISTINCT %s FROM sales s
		JOIN sale_items si ON si.sale_id = s.id
		WHERE si.inventory_item_id IN (%s) AND s.status = 'active'
		ORDER BY s.id
	`, prefixColumns(saleColumns, "s"), placeholders)

	args := make([]interface{}, len(itemIDs))
	for i, id := range itemIDs {
		args[i] = id
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales by inventory items: %w", err)
	}
	defer rows.Close()

	var sales []*domain.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

// loadItems 加载销售记录行项
func (r *saleRepo) loadItems(saleID int64) ([]*domain.SaleItem, error) {
	query := `
		SELECT id, sale_id, inventory_item_id, car_id, car_name, quantity, unit_price, cost_price, profit
		FROM sale_items
		WHERE sale_id = ?
		ORDER BY id
	`

	rows, err := r.db.Query(query, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale items: %w", err)
	}
	defer rows.Close()

	var items []*domain.SaleItem
	for rows.Next() {
		item := &domain.SaleItem{}
		err := rows.Scan(
			&item.ID,
			&item.SaleID,
			&item.InventoryItemID,
			&item.CarID,
			&item.CarName,
			&item.Quantity,
			&item.UnitPrice,
			&item.CostPrice,
			&item.Profit,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// scanSale 扫描一行销售记录头部
func scanSale(row rowScanner) (*domain.Sale, error) {
	sale := &domain.Sale{}
	err := row.Scan(
		&sale.ID,
		&sale.SaleNumber,
		&sale.DeliveryID,
		&sale.CustomerID,
		&sale.TotalAmount,
		&sale.TotalProfit,
		&sale.Status,
		&sale.SoldAt,
		&sale.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sale, nil
}
