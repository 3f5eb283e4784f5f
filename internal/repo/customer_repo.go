// Package repo 实现客户只读数据访问。
package repo

import (
	"database/sql"
	"fmt"

	"github.com/g33ktony/diecast-manager/internal/domain"
)

// CustomerRepository 定义客户只读访问接口
type CustomerRepository interface {
	GetByID(id int64) (*domain.Customer, error)
}

// customerRepo 实现CustomerRepository接口
type customerRepo struct {
	db *sql.DB
}

// NewCustomerRepository 创建客户仓储实例
func NewCustomerRepository(db *sql.DB) CustomerRepository {
	return &customerRepo{db: db}
}

// GetByID 按ID获取客户
func (r *customerRepo) GetByID(id int64) (*domain.Customer, error) {
	query := `SELECT id, name, phone, created_at FROM customers WHERE id = ?`

	customer := &domain.Customer{}
	err := r.db.QueryRow(query, id).Scan(
		&customer.ID,
		&customer.Name,
		&customer.Phone,
		&customer.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer by id: %w", err)
	}
	return customer, nil
}
