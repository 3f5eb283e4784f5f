// Package domain 定义业务领域模型、核心业务规则与领域错误。
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// 领域错误集合。服务层通过errors.Is/As识别并由API层映射为HTTP状态码。
var (
	// ErrNotFound 引用的记录不存在（库存、交付单、采购单、盒、支付记录）。
	ErrNotFound = errors.New("record not found")

	// ErrInvalidState 当前状态不允许该操作，拒绝且不产生任何写入。
	ErrInvalidState = errors.New("invalid state for operation")

	// ErrInsufficientStock 预留/售出数量超过可用库存，在任何台账写入前拒绝。
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrOverpayment 支付金额超过剩余应付，在任何台账写入前拒绝。
	ErrOverpayment = errors.New("payment exceeds remaining balance")

	// ErrAlreadyReceived 采购单已执行过入库，不允许重复触发。
	ErrAlreadyReceived = errors.New("purchase already received")
)

// CompensationError 表示一次删除因下游消费被阻止。
// Reasons 列出每一条阻止原因，调用方可以逐项排查后重试。
type CompensationError struct {
	Reasons []string
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensation required: %s", strings.Join(e.Reasons, "; "))
}

// NewCompensationError 创建补偿错误
func NewCompensationError(reasons []string) *CompensationError {
	return &CompensationError{Reasons: reasons}
}
