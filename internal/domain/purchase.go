// Package domain 定义采购单相关的业务领域模型。
package domain

import (
	"time"
)

// PurchaseStatus 采购单状态
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusPaid      PurchaseStatus = "paid"
	PurchaseStatusShipped   PurchaseStatus = "shipped"
	PurchaseStatusReceived  PurchaseStatus = "received"
	PurchaseStatusCancelled PurchaseStatus = "cancelled"
)

// PurchaseItem 表示采购单中的一行。
// IsBox 为真时按原封盒入库，入库后以拆盒状态机逐件登记。
type PurchaseItem struct {
	ID         int64         `json:"id"`
	PurchaseID int64         `json:"purchase_id"`
	CarID      string        `json:"car_id"`
	CarName    string        `json:"car_name"`
	Quantity   int           `json:"quantity"`
	UnitPrice  float64       `json:"unit_price"`
	Condition  ItemCondition `json:"condition"`
	Brand      string        `json:"brand"`
	IsBox      bool          `json:"is_box"`
	BoxSize    int           `json:"box_size,omitempty"`
}

// Subtotal 返回该行小计
func (p *PurchaseItem) Subtotal() float64 {
	return p.UnitPrice * float64(p.Quantity)
}

// Purchase 表示采购单领域模型。
// 转入 received 状态时触发入库流水线，且仅触发一次（IsReceived守卫）。
type Purchase struct {
	ID         int64           `json:"id"`
	Supplier   string          `json:"supplier"`
	TotalCost  float64         `json:"total_cost"`
	Status     PurchaseStatus  `json:"status"`
	IsReceived bool            `json:"is_received"`
	Items      []*PurchaseItem `json:"items"`
	ReceivedAt *time.Time      `json:"received_at,omitempty"`
	Notes      string          `json:"notes"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// RecalcTotal 依据行项重算采购总成本
func (p *Purchase) RecalcTotal() {
	total := 0.0
	for _, item := range p.Items {
		total += item.Subtotal()
	}
	p.TotalCost = total
}

// CanReceive 判断能否执行入库
func (p *Purchase) CanReceive() bool {
	return !p.IsReceived && p.Status != PurchaseStatusCancelled
}

// PurchaseItemInput 表示创建采购单时的行项输入
type PurchaseItemInput struct {
	CarID     string        `json:"car_id"`
	CarName   string        `json:"car_name"`
	Quantity  int           `json:"quantity"`
	UnitPrice float64       `json:"unit_price"`
	Condition ItemCondition `json:"condition"`
	Brand     string        `json:"brand"`
	IsBox     bool          `json:"is_box"`
	BoxSize   int           `json:"box_size"`
}

// CreatePurchaseRequest 表示创建采购单请求
type CreatePurchaseRequest struct {
	Supplier string              `json:"supplier"`
	Notes    string              `json:"notes"`
	Items    []PurchaseItemInput `json:"items"`
}

// UpdatePurchaseStatusRequest 表示更新采购单状态请求
type UpdatePurchaseStatusRequest struct {
	Status PurchaseStatus `json:"status"`
}

// ReceiveVerificationRequest 表示带核验的入库请求。
// Corrections 按行项ID修正实收数量；修正为0的行将被移除。
type ReceiveVerificationRequest struct {
	Corrections map[int64]int `json:"corrections"`
}

// PurchaseListRequest 表示采购单列表查询请求
type PurchaseListRequest struct {
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Status   *PurchaseStatus `json:"status"`
	Supplier *string         `json:"supplier"`
}

// PurchaseListResponse 表示采购单列表查询响应
type PurchaseListResponse struct {
	Purchases []*Purchase `json:"purchases"`
	Total     int64       `json:"total"`
	Page      int         `json:"page"`
	PageSize  int         `json:"page_size"`
}
