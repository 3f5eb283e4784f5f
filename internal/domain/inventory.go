// Package domain 定义库存相关的业务领域模型和核心业务规则。
package domain

import (
	"time"
)

// ItemCondition 藏品成色
type ItemCondition string

const (
	ConditionMint     ItemCondition = "mint"
	ConditionGood     ItemCondition = "good"
	ConditionFair     ItemCondition = "fair"
	ConditionDamaged  ItemCondition = "damaged"
	ConditionUnopened ItemCondition = "unopened"
)

// BoxStatus 原封盒的拆盒状态
type BoxStatus string

const (
	BoxStatusSealed    BoxStatus = "sealed"    // 未拆封
	BoxStatusUnpacking BoxStatus = "unpacking" // 拆盒中，已登记部分单品
	BoxStatusCompleted BoxStatus = "completed" // 拆盒完成，盒记录随之删除
)

// InventoryItem 表示库存记录领域模型。
// Quantity 为在库数量，ReservedQuantity 为已被交付单预留的数量，
// 两者恒满足 0 <= ReservedQuantity <= Quantity。
// 盒类记录（IsBox=true）额外携带拆盒状态机字段。
type InventoryItem struct {
	ID               int64         `json:"id"`
	CarID            string        `json:"car_id"`
	CarName          string        `json:"car_name"`
	Quantity         int           `json:"quantity"`
	ReservedQuantity int           `json:"reserved_quantity"`
	PurchasePrice    float64       `json:"purchase_price"`
	SuggestedPrice   float64       `json:"suggested_price"`
	ActualPrice      *float64      `json:"actual_price,omitempty"`
	Condition        ItemCondition `json:"condition"`
	Brand            string        `json:"brand"`
	Photos           []string      `json:"photos"`
	Location         string        `json:"location"`
	Notes            string        `json:"notes"`

	// 盒类专用字段
	IsBox            bool      `json:"is_box"`
	BoxSize          int       `json:"box_size,omitempty"`
	BoxPrice         float64   `json:"box_price,omitempty"`
	BoxStatus        BoxStatus `json:"box_status,omitempty"`
	RegisteredPieces int       `json:"registered_pieces,omitempty"`
	SourceBoxID      *int64    `json:"source_box_id,omitempty"`

	// 入库来源采购单，用于采购删除时的补偿校验
	SourcePurchaseID *int64 `json:"source_purchase_id,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Available 返回可供新预留的数量
func (i *InventoryItem) Available() int {
	return i.Quantity - i.ReservedQuantity
}

// CanReserve 判断是否可以预留指定数量
func (i *InventoryItem) CanReserve(qty int) bool {
	return qty > 0 && i.Available() >= qty
}

// Reserve 预留库存
func (i *InventoryItem) Reserve(qty int) error {
	if !i.CanReserve(qty) {
		return ErrInsufficientStock
	}
	i.ReservedQuantity += qty
	return nil
}

// Release 释放预留。重复补偿时不允许降到负数，向下取零。
func (i *InventoryItem) Release(qty int) {
	i.ReservedQuantity -= qty
	if i.ReservedQuantity < 0 {
		i.ReservedQuantity = 0
	}
}

// Commit 将预留转为永久扣减（预留成为实际售出）
func (i *InventoryItem) Commit(qty int) error {
	if qty <= 0 || i.Quantity < qty {
		return ErrInsufficientStock
	}
	i.Quantity -= qty
	i.ReservedQuantity -= qty
	if i.ReservedQuantity < 0 {
		i.ReservedQuantity = 0
	}
	return nil
}

// Restock 增加在库数量（采购入库或销售回退）
func (i *InventoryItem) Restock(qty int) {
	if qty > 0 {
		i.Quantity += qty
	}
}

// PieceCost 返回盒内单品的分摊成本
func (i *InventoryItem) PieceCost() float64 {
	if !i.IsBox || i.BoxSize <= 0 {
		return 0
	}
	return i.BoxPrice / float64(i.BoxSize)
}

// BoxCompleted 判断盒是否已登记满
func (i *InventoryItem) BoxCompleted() bool {
	return i.IsBox && i.RegisteredPieces >= i.BoxSize
}

// CreateInventoryItemRequest 表示创建库存记录请求
type CreateInventoryItemRequest struct {
	CarID          string        `json:"car_id"`
	CarName        string        `json:"car_name"`
	Quantity       int           `json:"quantity"`
	PurchasePrice  float64       `json:"purchase_price"`
	SuggestedPrice float64       `json:"suggested_price"`
	Condition      ItemCondition `json:"condition"`
	Brand          string        `json:"brand"`
	Photos         []string      `json:"photos"`
	Location       string        `json:"location"`
	Notes          string        `json:"notes"`
	IsBox          bool          `json:"is_box"`
	BoxSize        int           `json:"box_size"`
	BoxPrice       float64       `json:"box_price"`
}

// UpdateInventoryItemRequest 表示更新库存记录请求
type UpdateInventoryItemRequest struct {
	Quantity       *int           `json:"quantity"`
	PurchasePrice  *float64       `json:"purchase_price"`
	SuggestedPrice *float64       `json:"suggested_price"`
	ActualPrice    *float64       `json:"actual_price"`
	Condition      *ItemCondition `json:"condition"`
	Photos         []string       `json:"photos"`
	Location       *string        `json:"location"`
	Notes          *string        `json:"notes"`
}

// InventoryListRequest 表示库存列表查询请求
type InventoryListRequest struct {
	Page      int            `json:"page"`
	PageSize  int            `json:"page_size"`
	CarID     *string        `json:"car_id"`
	Condition *ItemCondition `json:"condition"`
	OnlyBoxes *bool          `json:"only_boxes"`
	InStock   *bool          `json:"in_stock"`
	SortBy    *string        `json:"sort_by"`
	SortOrder *string        `json:"sort_order"`
}

// InventoryListResponse 表示库存列表查询响应
type InventoryListResponse struct {
	Items    []*InventoryItem `json:"items"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// BoxPieceInput 表示拆盒时登记的一个单品
type BoxPieceInput struct {
	CarID          string        `json:"car_id"`
	CarName        string        `json:"car_name"`
	Quantity       int           `json:"quantity"`
	SuggestedPrice float64       `json:"suggested_price"`
	Condition      ItemCondition `json:"condition"`
	Brand          string        `json:"brand"`
	Photos         []string      `json:"photos"`
	Location       string        `json:"location"`
	Notes          string        `json:"notes"`
}

// RegisterPiecesRequest 表示拆盒登记请求
type RegisterPiecesRequest struct {
	Pieces []BoxPieceInput `json:"pieces"`
}

// UpdatePieceQuantityRequest 表示修正已登记单品数量的请求
type UpdatePieceQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CompleteBoxRequest 表示强制完成拆盒的请求
type CompleteBoxRequest struct {
	Reason string `json:"reason"`
}
