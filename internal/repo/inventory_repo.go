// Package repo 实现库存数据访问层，负责与数据库的交互。
package repo

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/g33ktony/diecast-manager/internal/domain"
)

// InventoryRepository 定义库存数据访问接口
type InventoryRepository interface {
	// 基本CRUD操作
	Create(item *domain.InventoryItem) error
	GetByID(id int64) (*domain.InventoryItem, error)
	GetByIDs(ids []int64) ([]*domain.InventoryItem, error)
	Update(item *domain.InventoryItem) error
	UpdateWithVersion(item *domain.InventoryItem) error // 乐观锁更新
	Delete(id int64) error

	// 查询操作
	List(req *domain.InventoryListRequest) ([]*domain.InventoryItem, int64, error)
	FindMergeTarget(carID string, condition domain.ItemCondition, brand string) (*domain.InventoryItem, error)
	GetBySourcePurchase(purchaseID int64) ([]*domain.InventoryItem, error)
	GetPiecesBySourceBox(boxID int64) ([]*domain.InventoryItem, error)

	// 台账操作，均为单条带守卫的UPDATE，依赖行级原子性
	ReserveStock(itemID int64, qty int) error
	ReleaseStock(itemID int64, qty int) error
	CommitStock(itemID int64, qty int) error
	RestockStock(itemID int64, qty int) error
	DeductStock(itemID int64, qty int) error
}

// inventoryRepo 实现InventoryRepository接口
type inventoryRepo struct {
	db *sql.DB
}

// NewInventoryRepository 创建库存仓储实例
func NewInventoryRepository(db *sql.DB) InventoryRepository {
	return &inventoryRepo{db: db}
}

const inventoryColumns = `id, car_id, car_name, quantity, reserved_quantity, purchase_price,
		suggested_price, actual_price, item_condition, brand, photos, location, notes,
		is_box, box_size, box_price, box_status, registered_pieces, source_box_id,
		source_purchase_id, version, created_at, updated_at`

// Create 创建库存记录
func (r *inventoryRepo) Create(item *domain.InventoryItem) error {
	photos, err := marshalPhotos(item.Photos)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO inventory_items (car_id, car_name, quantity, reserved_quantity, purchase_price,
			suggested_price, actual_price, item_condition, brand, photos, location, notes,
			is_box, box_size, box_price, box_status, registered_pieces, source_box_id, source_purchase_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		item.CarID,
		item.CarName,
		item.Quantity,
		item.ReservedQuantity,
		item.PurchasePrice,
		item.SuggestedPrice,
		item.ActualPrice,
		item.Condition,
		item.Brand,
		photos,
		item.Location,
		item.Notes,
		item.IsBox,
		item.BoxSize,
		item.BoxPrice,
		nullableBoxStatus(item.BoxStatus),
		item.RegisteredPieces,
		item.SourceBoxID,
		item.SourcePurchaseID,
	)
	if err != nil {
		return fmt.Errorf("failed to create inventory item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	item.ID = id
	return nil
}

// GetByID 根据ID获取库存记录
func (r *inventoryRepo) GetByID(id int64) (*domain.InventoryItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM inventory_items WHERE id = ?`, inventoryColumns)

	item, err := r.scanItem(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory item by id: %w", err)
	}
	return item, nil
}

// GetByIDs 批量获取库存记录
func (r *inventoryRepo) GetByIDs(ids []int64) ([]*domain.InventoryItem, error) {
	if len(ids) == 0 {
		return []*domain.InventoryItem{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	query := fmt.Sprintf(`SELECT %s FROM inventory_items WHERE id IN (%s) ORDER BY id`,
		inventoryColumns, placeholders)

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	return r.queryItems(query, args...)
}

// FindMergeTarget 查找可合并的常规库存记录（同目录ID、同成色、同品牌，非盒）
func (r *inventoryRepo) FindMergeTarget(carID string, condition domain.ItemCondition, brand string) (*domain.InventoryItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM inventory_items
		WHERE car_id = ? AND item_condition = ? AND brand = ? AND is_box = FALSE
		LIMIT 1
	`, inventoryColumns)

	item, err := r.scanItem(r.db.QueryRow(query, carID, condition, brand))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find merge target: %w", err)
	}
	return item, nil
}

// GetBySourcePurchase 获取某采购单入库的所有库存记录
func (r *inventoryRepo) GetBySourcePurchase(purchaseID int64) ([]*domain.InventoryItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM inventory_items WHERE source_purchase_id = ? ORDER BY id`, inventoryColumns)
	return r.queryItems(query, purchaseID)
}

// GetPiecesBySourceBox 获取从某盒登记出的所有单品记录
func (r *inventoryRepo) GetPiecesBySourceBox(boxID int64) ([]*domain.InventoryItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM inventory_items WHERE source_box_id = ? ORDER BY id`, inventoryColumns)
	return r.queryItems(query, boxID)
}

// Update 更新库存记录
func (r *inventoryRepo) Update(item *domain.InventoryItem) error {
	photos, err := marshalPhotos(item.Photos)
	if err != nil {
		return err
	}

	query := `
		UPDATE inventory_items
		SET car_name = ?, quantity = ?, reserved_quantity = ?, purchase_price = ?,
			suggested_price = ?, actual_price = ?, item_condition = ?, brand = ?, photos = ?,
			location = ?, notes = ?, box_status = ?, registered_pieces = ?, version = version + 1
		WHERE id = ?
	`

	_, err = r.db.Exec(query,
		item.CarName,
		item.Quantity,
		item.ReservedQuantity,
		item.PurchasePrice,
		item.SuggestedPrice,
		item.ActualPrice,
		item.Condition,
		item.Brand,
		photos,
		item.Location,
		item.Notes,
		nullableBoxStatus(item.BoxStatus),
		item.RegisteredPieces,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update inventory item: %w", err)
	}
	return nil
}

// UpdateWithVersion 使用乐观锁更新库存记录
func (r *inventoryRepo) UpdateWithVersion(item *domain.InventoryItem) error {
	photos, err := marshalPhotos(item.Photos)
	if err != nil {
		return err
	}

	query := `
		UPDATE inventory_items
		SET car_name = ?, quantity = ?, reserved_quantity = ?, purchase_price = ?,
			suggested_price = ?, actual_price = ?, item_condition = ?, brand = ?, photos = ?,
			location = ?, notes = ?, box_status = ?, registered_pieces = ?, version = version + 1
		WHERE id = ? AND version = ?
	`

	result, err := r.db.Exec(query,
		item.CarName,
		item.Quantity,
		item.ReservedQuantity,
		item.PurchasePrice,
		item.SuggestedPrice,
		item.ActualPrice,
		item.Condition,
		item.Brand,
		photos,
		item.Location,
		item.Notes,
		nullableBoxStatus(item.BoxStatus),
		item.RegisteredPieces,
		item.ID,
		item.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update inventory item with version: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("inventory item version conflict or record not found")
	}

	item.Version++
	return nil
}

// Delete 删除库存记录
func (r *inventoryRepo) Delete(id int64) error {
	query := `DELETE FROM inventory_items WHERE id = ?`

	_, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete inventory item: %w", err)
	}
	return nil
}

// List 获取库存列表
func (r *inventoryRepo) List(req *domain.InventoryListRequest) ([]*domain.InventoryItem, int64, error) {
	where, args := r.buildListWhereClause(req)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM inventory_items %s", where)
	var total int64
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count inventory items: %w", err)
	}

	orderBy := r.buildOrderClause(req)
	limit := req.PageSize
	offset := (req.Page - 1) * req.PageSize

	query := fmt.Sprintf(`SELECT %s FROM inventory_items %s %s LIMIT ? OFFSET ?`,
		inventoryColumns, where, orderBy)

	args = append(args, limit, offset)
	items, err := r.queryItems(query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ReserveStock 预留库存：仅当可用数量充足时生效
func (r *inventoryRepo) ReserveStock(itemID int64, qty int) error {
	query := `
		UPDATE inventory_items
		SET reserved_quantity = reserved_quantity + ?, version = version + 1
		WHERE id = ? AND (quantity - reserved_quantity) >= ?
	`

	result, err := r.db.Exec(query, qty, itemID, qty)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

// ReleaseStock 释放预留。重复补偿释放时向下取零，不产生负预留。
func (r *inventoryRepo) ReleaseStock(itemID int64, qty int) error {
	query := `
		UPDATE inventory_items
		SET reserved_quantity = GREATEST(reserved_quantity - ?, 0), version = version + 1
		WHERE id = ?
	`

	if _, err := r.db.Exec(query, qty, itemID); err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}
	return nil
}

// CommitStock 提交预留：同时扣减在库数量与预留数量
func (r *inventoryRepo) CommitStock(itemID int64, qty int) error {
	query := `
		UPDATE inventory_items
		SET quantity = quantity - ?,
			reserved_quantity = GREATEST(reserved_quantity - ?, 0),
			version = version + 1
		WHERE id = ? AND quantity >= ?
	`

	result, err := r.db.Exec(query, qty, qty, itemID, qty)
	if err != nil {
		return fmt.Errorf("failed to commit stock: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

// RestockStock 增加在库数量（入库或销售回退）
func (r *inventoryRepo) RestockStock(itemID int64, qty int) error {
	query := `
		UPDATE inventory_items
		SET quantity = quantity + ?, version = version + 1
		WHERE id = ?
	`

	result, err := r.db.Exec(query, qty, itemID)
	if err != nil {
		return fmt.Errorf("failed to restock: %w", err)
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

// DeductStock 直接扣减在库数量（现场直售，无预留环节），仅当可用数量充足时生效
func (r *inventoryRepo) DeductStock(itemID int64, qty int) error {
	query := `
		UPDATE inventory_items
		SET quantity = quantity - ?, version = version + 1
		WHERE id = ? AND (quantity - reserved_quantity) >= ?
	`

	result, err := r.db.Exec(query, qty, itemID, qty)
	if err != nil {
		return fmt.Errorf("failed to deduct stock: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

// queryItems 执行查询并扫描多行
func (r *inventoryRepo) queryItems(query string, args ...interface{}) ([]*domain.InventoryItem, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory items: %w", err)
	}
	defer rows.Close()

	var items []*domain.InventoryItem
	for rows.Next() {
		item, err := r.scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// rowScanner 统一*sql.Row与*sql.Rows的扫描入口
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanItem 扫描一行库存记录
func (r *inventoryRepo) scanItem(row rowScanner) (*domain.InventoryItem, error) {
	item := &domain.InventoryItem{}
	var photos sql.NullString
	var boxStatus sql.NullString

	err := row.Scan(
		&item.ID,
		&item.CarID,
		&item.CarName,
		&item.Quantity,
		&item.ReservedQuantity,
		&item.PurchasePrice,
		&item.SuggestedPrice,
		&item.ActualPrice,
		&item.Condition,
		&item.Brand,
		&photos,
		&item.Location,
		&item.Notes,
		&item.IsBox,
		&item.BoxSize,
		&item.BoxPrice,
		&boxStatus,
		&item.RegisteredPieces,
		&item.SourceBoxID,
		&item.SourcePurchaseID,
		&item.Version,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if photos.Valid && photos.String != "" {
		if err := json.Unmarshal([]byte(photos.String), &item.Photos); err != nil {
			return nil, fmt.Errorf("failed to decode photos: %w", err)
		}
	}
	if boxStatus.Valid {
		item.BoxStatus = domain.BoxStatus(boxStatus.String)
	}
	return item, nil
}

// buildListWhereClause 构建查询条件子句
func (r *inventoryRepo) buildListWhereClause(req *domain.InventoryListRequest) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if req.CarID != nil {
		conditions = append(conditions, "car_id = ?")
		args = append(args, *req.CarID)
	}
	if req.Condition != nil {
		conditions = append(conditions, "item_condition = ?")
		args = append(args, *req.Condition)
	}
	if req.OnlyBoxes != nil {
		conditions = append(conditions, "is_box = ?")
		args = append(args, *req.OnlyBoxes)
	}
	if req.InStock != nil && *req.InStock {
		conditions = append(conditions, "quantity > 0")
	}

	if len(conditions) > 0 {
		return "WHERE " + strings.Join(conditions, " AND "), args
	}
	return "", args
}

// buildOrderClause 构建排序子句
func (r *inventoryRepo) buildOrderClause(req *domain.InventoryListRequest) string {
	sortBy := "updated_at"
	sortOrder := "DESC"

	if req.SortBy != nil {
		switch *req.SortBy {
		case "quantity", "purchase_price", "updated_at", "created_at":
			sortBy = *req.SortBy
		}
	}
	if req.SortOrder != nil && strings.ToUpper(*req.SortOrder) == "ASC" {
		sortOrder = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s %s", sortBy, sortOrder)
}

// marshalPhotos 将图片列表编码为JSON存储
func marshalPhotos(photos []string) (string, error) {
	if len(photos) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(photos)
	if err != nil {
		return "", fmt.Errorf("failed to encode photos: %w", err)
	}
	return string(data), nil
}

// nullableBoxStatus 非盒记录的box_status存NULL
func nullableBoxStatus(status domain.BoxStatus) interface{} {
	if status == "" {
		return nil
	}
	return string(status)
}
