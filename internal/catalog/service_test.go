package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-kredit/internal/catalog"
	"github.com/noah-isme/toko-kredit/internal/pricing"
)

type fakeStore struct {
	mu    sync.Mutex
	rows  map[string]catalog.Product
	reads int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]catalog.Product{}}
}

func (f *fakeStore) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	p, ok := f.rows[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return &p, nil
}

func (f *fakeStore) CreateProduct(_ context.Context, p *catalog.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	f.rows[p.ID] = *p
	return nil
}

func (f *fakeStore) AdjustStock(_ context.Context, id string, delta int) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	if !p.Active || p.Stock+delta < 0 {
		return nil, catalog.ErrInsufficientStock
	}
	p.Stock += delta
	f.rows[id] = p
	return &p, nil
}

func newCatalog(t *testing.T) (*catalog.Service, *fakeStore) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newFakeStore()
	svc := catalog.NewService(catalog.ServiceConfig{
		Store:  store,
		Cache:  catalog.NewCache(client, time.Minute),
		Logger: zerolog.Nop(),
	})
	return svc, store
}

func TestCreateProductDerivesTax(t *testing.T) {
	svc, _ := newCatalog(t)
	price := decimal.RequireFromString("999.99")

	p, err := svc.CreateProduct(context.Background(), catalog.CreateInput{Name: " Phone ", Category: "electronics", Price: &price, Stock: 4})
	require.NoError(t, err)
	require.Equal(t, "Phone", p.Name)
	require.Equal(t, pricing.CategoryElectronics, p.Category)
	require.True(t, decimal.RequireFromString("180.00").Equal(p.UnitTax), p.UnitTax.String())
	require.True(t, p.Active)

	p, err = svc.CreateProduct(context.Background(), catalog.CreateInput{Name: "Mystery", Category: "gadgets", Price: &price})
	require.NoError(t, err)
	require.Equal(t, pricing.CategoryUncategorized, p.Category)
	require.True(t, decimal.RequireFromString("110.00").Equal(p.UnitTax), p.UnitTax.String())
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newCatalog(t)
	zero := decimal.Zero
	_, err := svc.CreateProduct(context.Background(), catalog.CreateInput{Name: "", Price: &zero})
	require.Error(t, err)
	_, err = svc.CreateProduct(context.Background(), catalog.CreateInput{Name: "Free", Price: &zero})
	require.Error(t, err)
	_, err = svc.CreateProduct(context.Background(), catalog.CreateInput{Name: "No price"})
	require.Error(t, err)
}

func TestGetProductIsCached(t *testing.T) {
	svc, store := newCatalog(t)
	price := decimal.RequireFromString("10")
	p, err := svc.CreateProduct(context.Background(), catalog.CreateInput{Name: "Book", Category: "BOOKS", Price: &price, Stock: 1})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := svc.GetProduct(context.Background(), p.ID)
		require.NoError(t, err)
		require.Equal(t, "Book", got.Name)
	}
	require.Equal(t, 1, store.reads)

	svc.Invalidate(context.Background(), p.ID)
	_, err = svc.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, 2, store.reads)
}

func TestGetProductHidesInactive(t *testing.T) {
	svc, _ := newCatalog(t)
	price := decimal.RequireFromString("10")
	inactive := false
	p, err := svc.CreateProduct(context.Background(), catalog.CreateInput{Name: "Old", Price: &price, Active: &inactive})
	require.NoError(t, err)

	_, err = svc.GetProduct(context.Background(), p.ID)
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestCatalogHandlers(t *testing.T) {
	svc, _ := newCatalog(t)
	h := catalog.NewHandler(catalog.HandlerConfig{Service: svc})
	r := chi.NewRouter()
	r.Get("/products/{id}", h.ProductDetail)
	r.Post("/admin/products", h.CreateProduct)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/products",
		strings.NewReader(`{"name":"Sofa","category":"FURNITURE","price":"500","stock":2}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Data catalog.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.True(t, decimal.RequireFromString("75").Equal(created.Data.UnitTax))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/"+created.Data.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/products", strings.NewReader(`{"name":""}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
