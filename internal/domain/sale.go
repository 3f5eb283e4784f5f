// Package domain 定义销售记录相关的业务领域模型。
package domain

import (
	"time"
)

// SaleStatus 销售记录状态
type SaleStatus string

const (
	SaleStatusActive   SaleStatus = "active"
	SaleStatusReverted SaleStatus = "reverted"
)

// SaleItem 表示销售记录中的一行。
// CostPrice 与 Profit 在物化时刻捕获，之后不随库存成本变动。
type SaleItem struct {
	ID              int64   `json:"id"`
	SaleID          int64   `json:"sale_id"`
	InventoryItemID *int64  `json:"inventory_item_id,omitempty"`
	CarID           string  `json:"car_id"`
	CarName         string  `json:"car_name"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	CostPrice       float64 `json:"cost_price"`
	Profit          float64 `json:"profit"`
}

// Sale 表示不可变的销售记录。
// 由已完成的交付单物化而来，或由现场直售创建；
// DeliveryID 回指来源交付单，直售时为空。
type Sale struct {
	ID          int64       `json:"id"`
	SaleNumber  string      `json:"sale_number"`
	DeliveryID  *int64      `json:"delivery_id,omitempty"`
	CustomerID  *int64      `json:"customer_id,omitempty"`
	TotalAmount float64     `json:"total_amount"`
	TotalProfit float64     `json:"total_profit"`
	Status      SaleStatus  `json:"status"`
	Items       []*SaleItem `json:"items"`
	SoldAt      time.Time   `json:"sold_at"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Recalc 依据行项重算总额与总利润
func (s *Sale) Recalc() {
	var amount, profit float64
	for _, item := range s.Items {
		amount += item.UnitPrice * float64(item.Quantity)
		profit += item.Profit
	}
	s.TotalAmount = amount
	s.TotalProfit = profit
}

// DirectSaleItemInput 表示现场直售的一行输入
type DirectSaleItemInput struct {
	InventoryItemID int64   `json:"inventory_item_id"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
}

// CreateDirectSaleRequest 表示现场直售请求
type CreateDirectSaleRequest struct {
	CustomerID *int64                `json:"customer_id"`
	Items      []DirectSaleItemInput `json:"items"`
}

// SaleListRequest 表示销售记录列表查询请求
type SaleListRequest struct {
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	DeliveryID *int64      `json:"delivery_id"`
	Status     *SaleStatus `json:"status"`
	DateFrom   *time.Time  `json:"date_from"`
	DateTo     *time.Time  `json:"date_to"`
}

// SaleListResponse 表示销售记录列表查询响应
type SaleListResponse struct {
	Sales    []*Sale `json:"sales"`
	Total    int64   `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}
