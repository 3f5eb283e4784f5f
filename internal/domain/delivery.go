// Package domain 定义交付单相关的业务领域模型和核心业务规则。
package domain

import (
	"math"
	"time"
)

// DeliveryStatus 交付单状态
type DeliveryStatus string

const (
	DeliveryStatusScheduled   DeliveryStatus = "scheduled"   // 已排期（初始态）
	DeliveryStatusPrepared    DeliveryStatus = "prepared"    // 已备货
	DeliveryStatusCompleted   DeliveryStatus = "completed"   // 已完成（正常流程终态）
	DeliveryStatusCancelled   DeliveryStatus = "cancelled"   // 已取消
	DeliveryStatusRescheduled DeliveryStatus = "rescheduled" // 已改期
)

// PaymentStatus 支付状态，由已付金额与总额推导
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// PaidTolerance 判定"已付清"的绝对容差
const PaidTolerance = 0.01

// CompletionPaymentNote 完成交付时自动补记尾款的哨兵备注。
// 回退交付时依据该备注识别并撤销这笔自动支付。
const CompletionPaymentNote = "auto: completion balance"

// Payment 表示一笔人工登记的收款。仅追加，删除必须同步扣减已付金额。
type Payment struct {
	ID            int64     `json:"id"`
	DeliveryID    int64     `json:"delivery_id"`
	Amount        float64   `json:"amount"`
	PaymentDate   time.Time `json:"payment_date"`
	PaymentMethod string    `json:"payment_method"`
	Note          string    `json:"note"`
}

// DeliveryItem 表示交付单中的一行。
// 库存行携带 InventoryItemID；预售行（IsPresale=true）只携带描述性
// 的 CarID/CarName，不参与库存预留与扣减。
type DeliveryItem struct {
	ID              int64   `json:"id"`
	DeliveryID      int64   `json:"delivery_id"`
	InventoryItemID *int64  `json:"inventory_item_id,omitempty"`
	CarID           string  `json:"car_id"`
	CarName         string  `json:"car_name"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	IsPresale       bool    `json:"is_presale"`
}

// InventoryBacked 判断该行是否有库存记录支撑
func (d *DeliveryItem) InventoryBacked() bool {
	return !d.IsPresale && d.InventoryItemID != nil
}

// Subtotal 返回该行小计
func (d *DeliveryItem) Subtotal() float64 {
	return d.UnitPrice * float64(d.Quantity)
}

// Delivery 表示交付单领域模型。
// TotalAmount 恒等于各行小计之和；PaidAmount 恒等于各支付金额之和；
// PaymentStatus 是两者的纯函数。
type Delivery struct {
	ID            int64           `json:"id"`
	CustomerID    int64           `json:"customer_id"`
	ScheduledDate time.Time       `json:"scheduled_date"`
	Location      string          `json:"location"`
	TotalAmount   float64         `json:"total_amount"`
	PaidAmount    float64         `json:"paid_amount"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Status        DeliveryStatus  `json:"status"`
	Items         []*DeliveryItem `json:"items"`
	Payments      []*Payment      `json:"payments"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// DerivePaymentStatus 按推导规则计算支付状态：
// paid 当 paidAmount >= totalAmount - 0.01；partial 当 paidAmount > 0；否则 pending。
func DerivePaymentStatus(paidAmount, totalAmount float64) PaymentStatus {
	if paidAmount >= totalAmount-PaidTolerance {
		return PaymentStatusPaid
	}
	if paidAmount > 0 {
		return PaymentStatusPartial
	}
	return PaymentStatusPending
}

// RecalcTotal 依据行项重算总额
func (d *Delivery) RecalcTotal() {
	total := 0.0
	for _, item := range d.Items {
		total += item.Subtotal()
	}
	d.TotalAmount = total
}

// RecomputePaymentStatus 依据已付金额重算支付状态
func (d *Delivery) RecomputePaymentStatus() {
	d.PaymentStatus = DerivePaymentStatus(d.PaidAmount, d.TotalAmount)
}

// RemainingBalance 返回剩余应付金额（不为负）
func (d *Delivery) RemainingBalance() float64 {
	return math.Max(0, d.TotalAmount-d.PaidAmount)
}

// IsPaid 判断是否已付清
func (d *Delivery) IsPaid() bool {
	return DerivePaymentStatus(d.PaidAmount, d.TotalAmount) == PaymentStatusPaid
}

// IsCompleted 判断是否处于完成态
func (d *Delivery) IsCompleted() bool {
	return d.Status == DeliveryStatusCompleted
}

// CanPrepare 判断能否标记为已备货
func (d *Delivery) CanPrepare() bool {
	return d.Status == DeliveryStatusScheduled || d.Status == DeliveryStatusRescheduled
}

// CanComplete 判断能否标记为已完成
func (d *Delivery) CanComplete() bool {
	switch d.Status {
	case DeliveryStatusScheduled, DeliveryStatusPrepared, DeliveryStatusRescheduled:
		return true
	}
	return false
}

// CanCancel 判断能否取消：终态不可取消
func (d *Delivery) CanCancel() bool {
	return d.Status != DeliveryStatusCompleted && d.Status != DeliveryStatusCancelled
}

// DeliveryItemInput 表示创建/更新交付单时的行项输入
type DeliveryItemInput struct {
	InventoryItemID *int64  `json:"inventory_item_id"`
	CarID           string  `json:"car_id"`
	CarName         string  `json:"car_name"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	IsPresale       bool    `json:"is_presale"`
}

// CreateDeliveryRequest 表示创建交付单请求
type CreateDeliveryRequest struct {
	CustomerID    int64               `json:"customer_id"`
	ScheduledDate time.Time           `json:"scheduled_date"`
	Location      string              `json:"location"`
	Notes         string              `json:"notes"`
	Items         []DeliveryItemInput `json:"items"`
}

// UpdateDeliveryItemsRequest 表示替换交付单行项的请求
type UpdateDeliveryItemsRequest struct {
	Items []DeliveryItemInput `json:"items"`
}

// CompleteDeliveryRequest 表示完成交付请求。
// MarkPaid 为真时，若尚有尾款则自动补记一笔支付后再生成销售记录。
type CompleteDeliveryRequest struct {
	MarkPaid bool `json:"mark_paid"`
}

// RescheduleDeliveryRequest 表示改期请求
type RescheduleDeliveryRequest struct {
	ScheduledDate time.Time `json:"scheduled_date"`
}

// CancelDeliveryRequest 表示取消交付请求
type CancelDeliveryRequest struct {
	Reason string `json:"reason"`
}

// AddPaymentRequest 表示登记收款请求
type AddPaymentRequest struct {
	Amount        float64   `json:"amount"`
	PaymentDate   time.Time `json:"payment_date"`
	PaymentMethod string    `json:"payment_method"`
	Note          string    `json:"note"`
}

// DeliveryListRequest 表示交付单列表查询请求
type DeliveryListRequest struct {
	Page          int             `json:"page"`
	PageSize      int             `json:"page_size"`
	CustomerID    *int64          `json:"customer_id"`
	Status        *DeliveryStatus `json:"status"`
	PaymentStatus *PaymentStatus  `json:"payment_status"`
	DateFrom      *time.Time      `json:"date_from"`
	DateTo        *time.Time      `json:"date_to"`
	SortBy        *string         `json:"sort_by"`
	SortOrder     *string         `json:"sort_order"`
}

// DeliveryListResponse 表示交付单列表查询响应
type DeliveryListResponse struct {
	Deliveries []*Delivery `json:"deliveries"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
}
