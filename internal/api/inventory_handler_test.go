package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/g33ktony/diecast-manager/internal/domain"
	"github.com/g33ktony/diecast-manager/internal/resp"
	"github.com/g33ktony/diecast-manager/internal/service"
)

// stubInventoryService 按注入的函数响应，未注入的方法不应被调用
type stubInventoryService struct {
	createItem func(req *domain.CreateInventoryItemRequest) (*domain.InventoryItem, error)
	getItem    func(id int64) (*domain.InventoryItem, error)
	deleteItem func(id int64) error
}

func (s *stubInventoryService) CreateItem(req *domain.CreateInventoryItemRequest) (*domain.InventoryItem, error) {
	return s.createItem(req)
}

func (s *stubInventoryService) GetItem(id int64) (*domain.InventoryItem, error) {
	return s.getItem(id)
}

func (s *stubInventoryService) UpdateItem(id int64, req *domain.UpdateInventoryItemRequest) (*domain.InventoryItem, error) {
	return nil, nil
}

func (s *stubInventoryService) DeleteItem(id int64) error {
	return s.deleteItem(id)
}

func (s *stubInventoryService) ListItems(req *domain.InventoryListRequest) (*domain.InventoryListResponse, error) {
	return &domain.InventoryListResponse{Page: req.Page, PageSize: req.PageSize}, nil
}

func (s *stubInventoryService) GetStats() (*service.InventoryStats, error) { return nil, nil }
func (s *stubInventoryService) Reserve(itemID int64, qty int) error        { return nil }
func (s *stubInventoryService) Release(itemID int64, qty int) error        { return nil }
func (s *stubInventoryService) Commit(itemID int64, qty int) error         { return nil }
func (s *stubInventoryService) Restock(itemID int64, qty int) error        { return nil }

func inventoryTestMux(svc service.InventoryService) *http.ServeMux {
	h := NewInventoryHandler(svc, zap.NewNop())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/inventory", h.CreateItem)
	mux.HandleFunc("GET /api/v1/inventory", h.ListItems)
	mux.HandleFunc("GET /api/v1/inventory/{id}", h.GetItem)
	mux.HandleFunc("DELETE /api/v1/inventory/{id}", h.DeleteItem)
	return mux
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) *resp.Body {
	t.Helper()
	var body resp.Body
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return &body
}

func TestInventoryHandler_GetItem(t *testing.T) {
	mux := inventoryTestMux(&stubInventoryService{
		getItem: func(id int64) (*domain.InventoryItem, error) {
			if id != 7 {
				return nil, domain.ErrNotFound
			}
			return &domain.InventoryItem{ID: 7, CarID: "HW-001", Quantity: 3}, nil
		},
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/inventory/7", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body.Code != resp.CodeOK {
		t.Errorf("code = %d, want 0", body.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/inventory/99", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if body := decodeBody(t, rec); body.Code != resp.CodeNotFound {
		t.Errorf("code = %d, want %d", body.Code, resp.CodeNotFound)
	}

	// 非法ID在进入服务层前就被拒绝
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/inventory/abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestInventoryHandler_CreateItem(t *testing.T) {
	mux := inventoryTestMux(&stubInventoryService{
		createItem: func(req *domain.CreateInventoryItemRequest) (*domain.InventoryItem, error) {
			return &domain.InventoryItem{ID: 1, CarID: req.CarID, Quantity: req.Quantity}, nil
		},
	})

	payload := `{"car_id":"HW-001","quantity":3,"purchase_price":12.5}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/inventory", strings.NewReader(payload)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := decodeBody(t, rec); body.Data == nil {
		t.Error("data missing from success envelope")
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/inventory", strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 on malformed body", rec.Code)
	}
}

func TestInventoryHandler_DeleteItem_Conflict(t *testing.T) {
	mux := inventoryTestMux(&stubInventoryService{
		deleteItem: func(id int64) error {
			return domain.ErrInvalidState
		},
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/inventory/7", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	if body := decodeBody(t, rec); body.Code != resp.CodeConflict {
		t.Errorf("code = %d, want %d", body.Code, resp.CodeConflict)
	}
}
