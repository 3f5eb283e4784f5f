// Package domain 定义客户引用模型。客户档案由外部系统维护，
// 本服务仅按ID读取以校验交付单的客户引用。
package domain

import (
	"time"
)

// Customer 表示客户只读视图
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}
