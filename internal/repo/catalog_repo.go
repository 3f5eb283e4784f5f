// Package repo 实现目录图鉴数据访问层。
package repo

import (
	"database/sql"
	"fmt"

	"github.com/g33ktony/diecast-manager/internal/domain"
)

// CatalogRepository 定义目录图鉴数据访问接口。
// 图鉴数据由外部抓取子系统写入，本服务只读。
type CatalogRepository interface {
	GetByCarID(carID string) (*domain.CatalogCar, error)
	Search(req *domain.CatalogSearchRequest) ([]*domain.CatalogCar, int64, error)
}

// catalogRepo 实现CatalogRepository接口
type catalogRepo struct {
	db *sql.DB
}

// NewCatalogRepository 创建目录仓储实例
func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &catalogRepo{db: db}
}

const catalogColumns = `id, car_id, name, series, year, photo_url, updated_at`

// GetByCarID 按厂商编号获取图鉴条目
func (r *catalogRepo) GetByCarID(carID string) (*domain.CatalogCar, error) {
	query := fmt.Sprintf(`SELECT %s FROM catalog_cars WHERE car_id = ?`, catalogColumns)

	car, err := scanCatalogCar(r.db.QueryRow(query, carID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog car: %w", err)
	}
	return car, nil
}

// Search 按名称/编号模糊检索图鉴
func (r *catalogRepo) Search(req *domain.CatalogSearchRequest) ([]*domain.CatalogCar, int64, error) {
	pattern := "%" + req.Query + "%"

	var total int64
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM catalog_cars WHERE name LIKE ? OR car_id LIKE ?
	`, pattern, pattern).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count catalog cars: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM catalog_cars
		WHERE name LIKE ? OR car_id LIKE ?
		ORDER BY name
		LIMIT ? OFFSET ?
	`, catalogColumns)

	rows, err := r.db.Query(query, pattern, pattern, req.PageSize, (req.Page-1)*req.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search catalog cars: %w", err)
	}
	defer rows.Close()

	var cars []*domain.CatalogCar
	for rows.Next() {
		car, err := scanCatalogCar(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan catalog car: %w", err)
		}
		cars = append(cars, car)
	}
	return cars, total, rows.Err()
}

// scanCatalogCar 扫描一行图鉴条目
func scanCatalogCar(row rowScanner) (*domain.CatalogCar, error) {
	car := &domain.CatalogCar{}
	err := row.Scan(
		&car.ID,
		&car.CarID,
		&car.Name,
		&car.Series,
		&car.Year,
		&car.PhotoURL,
		&car.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return car, nil
}
