// Package domain 定义目录（抓取的藏品图鉴）相关的只读模型。
package domain

import (
	"time"
)

// CatalogCar 表示图鉴中的一款车。由外部抓取子系统写入，
// 本服务只做按ID查询与名称检索，用于为新库存记录补全名称与图片。
type CatalogCar struct {
	ID        int64     `json:"id"`
	CarID     string    `json:"car_id"`
	Name      string    `json:"name"`
	Series    string    `json:"series"`
	Year      string    `json:"year"`
	PhotoURL  string    `json:"photo_url"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CatalogSearchRequest 表示目录检索请求
type CatalogSearchRequest struct {
	Query    string `json:"query"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// CatalogSearchResponse 表示目录检索响应
type CatalogSearchResponse struct {
	Cars     []*CatalogCar `json:"cars"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}
