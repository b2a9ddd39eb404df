package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sfhs/storefront/internal/scraper"
	"sfhs/storefront/services/ledger"
	"sfhs/storefront/services/store"
)

type stubResolver struct {
	records map[string]scraper.ListingRecord
	cleared int
}

func (s *stubResolver) Resolve(ctx context.Context, url string) (scraper.ListingRecord, error) {
	if record, ok := s.records[url]; ok {
		return record, nil
	}
	return scraper.ListingRecord{
		SourceURL: url,
		Name:      scraper.NameUnavailable,
		Address:   scraper.AddressUnavailable,
		Rating:    scraper.RatingNotApplicable,
	}, nil
}

func (s *stubResolver) ClearCache() int {
	cleared := len(s.records)
	s.cleared++
	return cleared
}

func (s *stubResolver) CacheSnapshot() map[string]scraper.ListingRecord {
	snapshot := make(map[string]scraper.ListingRecord, len(s.records))
	for k, v := range s.records {
		snapshot[k] = v
	}
	return snapshot
}

type testEnv struct {
	server   *Server
	store    *store.RedisStore
	ledger   *ledger.Ledger
	resolver *stubResolver
	router   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	docs := store.NewRedisStoreFromClient(client)
	t.Cleanup(func() { docs.Close() })

	l, err := ledger.NewLedger(filepath.Join(t.TempDir(), "purchases.txt"))
	require.NoError(t, err)

	resolver := &stubResolver{records: map[string]scraper.ListingRecord{
		"https://maps.example/place/Sagar+Stationers": {
			SourceURL: "https://maps.example/place/Sagar+Stationers",
			Name:      "Sagar Stationers",
			Address:   "12 Market Road, Delhi",
			Rating:    "4.4",
		},
	}}

	srv := NewServer(docs, l, resolver)
	return &testEnv{
		server:   srv,
		store:    docs,
		ledger:   l,
		resolver: resolver,
		router:   srv.Router(),
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) registerStore(t *testing.T, username, url, storeName string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/registerStore", map[string]string{
		"username":  username,
		"password":  "pw",
		"url":       url,
		"storeName": storeName,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (e *testEnv) addStock(t *testing.T, username, name string, quantity int, price float64) store.StockItem {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/addStock", map[string]interface{}{
		"username": username,
		"name":     name,
		"quantity": quantity,
		"price":    price,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	items, err := e.store.ListStock(context.Background(), username)
	require.NoError(t, err)
	for _, item := range items {
		if item.Name == name {
			return item
		}
	}
	t.Fatalf("stock item %q not found after add", name)
	return store.StockItem{}
}

func TestGetPlaceDetails(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/getPlaceDetails", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing URL parameter", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/getPlaceDetails?url=https%3A%2F%2Fmaps.example%2Fplace%2FSagar%2BStationers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var record scraper.ListingRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, "Sagar Stationers", record.Name)
	assert.Equal(t, "4.4", record.Rating)
}

func TestRegisterUserAndLogin(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]string{
		"userName": "alice",
		"password": "secret",
		"fullName": "Alice Kumar",
		"email":    "alice@example.com",
	}
	rec := env.do(t, http.MethodPost, "/registerUser", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User registration successful", rec.Body.String())

	rec = env.do(t, http.MethodPost, "/registerUser", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username already exists", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/login?userName=alice&password=secret&userType=customer", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Login successful", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/login?userName=alice&password=wrong&userType=customer", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterUserMissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/registerUser", map[string]string{"userName": "alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields", rec.Body.String())
}

func TestRegisterStoreResolvesMissingName(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/registerStore", map[string]string{
		"username": "sagar",
		"password": "pw",
		"url":      "https://maps.example/place/Sagar+Stationers",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	account, err := env.store.FindStore(context.Background(), "sagar")
	require.NoError(t, err)
	assert.Equal(t, "Sagar Stationers", account.StoreName)
}

func TestRegisterStoreDuplicates(t *testing.T) {
	env := newTestEnv(t)
	env.registerStore(t, "sagar", "https://maps.example/place/Sagar+Stationers", "Sagar Stationers")

	rec := env.do(t, http.MethodPost, "/registerStore", map[string]string{
		"username": "other",
		"password": "pw",
		"url":      "https://maps.example/place/Sagar+Stationers",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Store with this URL already exists", rec.Body.String())

	rec = env.do(t, http.MethodPost, "/registerStore", map[string]string{
		"username": "sagar",
		"password": "pw",
		"url":      "https://maps.example/other",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Store with this username already exists", rec.Body.String())

	rec = env.do(t, http.MethodPost, "/registerStore", map[string]string{"username": "nourl"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing URL", rec.Body.String())
}

func TestGetStores(t *testing.T) {
	env := newTestEnv(t)
	env.registerStore(t, "sagar", "https://maps.example/place/Sagar+Stationers", "Sagar Stationers")
	env.registerStore(t, "ghost", "https://maps.example/place/Ghost", "Ghost Emporium")

	rec := env.do(t, http.MethodGet, "/getStores", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []storeDirectoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)

	byUsername := make(map[string]storeDirectoryEntry)
	for _, entry := range entries {
		byUsername[entry.Username] = entry
	}

	assert.Equal(t, "Sagar Stationers", byUsername["sagar"].Name)
	assert.Equal(t, "12 Market Road, Delhi", byUsername["sagar"].Address)

	// The resolver knows nothing about this URL so the registered
	// display name wins over the sentinel.
	assert.Equal(t, "Ghost Emporium", byUsername["ghost"].Name)
	assert.Equal(t, scraper.AddressUnavailable, byUsername["ghost"].Address)
}

func TestCacheEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/debugCache", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		CacheSize int                              `json:"cacheSize"`
		CacheData map[string]scraper.ListingRecord `json:"cacheData"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, 1, payload.CacheSize)

	rec = env.do(t, http.MethodPost, "/clearCache", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cache cleared successfully", rec.Body.String())
	assert.Equal(t, 1, env.resolver.cleared)
}

func TestStockEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/getStoreStock", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	item := env.addStock(t, "sagar", "Notebook", 5, 40)
	assert.NotEmpty(t, item.ID)

	rec = env.do(t, http.MethodGet, "/getStoreStock?storeUsername=sagar", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []store.StockItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)

	rec = env.do(t, http.MethodPost, "/removeStock", map[string]interface{}{
		"username": "sagar",
		"itemId":   item.ID,
		"quantity": 2,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Stock quantity updated", rec.Body.String())

	rec = env.do(t, http.MethodPost, "/removeStock", map[string]interface{}{
		"username": "sagar",
		"itemId":   item.ID,
		"quantity": 3,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Item removed from stock", rec.Body.String())

	rec = env.do(t, http.MethodPost, "/removeStock", map[string]interface{}{
		"username": "sagar",
		"itemId":   "missing",
		"quantity": 1,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProcessPurchase(t *testing.T) {
	env := newTestEnv(t)
	env.registerStore(t, "sagar", "https://maps.example/place/Sagar+Stationers", "Sagar Stationers")
	item := env.addStock(t, "sagar", "Notebook", 5, 40)

	rec := env.do(t, http.MethodPost, "/processPurchase", map[string]interface{}{
		"customerUsername": "alice",
		"storeUsername":    "sagar",
		"itemId":           item.ID,
		"quantity":         2,
		"customerEmail":    "alice@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success       bool    `json:"success"`
		TransactionID string  `json:"transactionId"`
		TotalAmount   float64 `json:"totalAmount"`
		ItemName      string  `json:"itemName"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 80.0, resp.TotalAmount)
	assert.Equal(t, "Notebook", resp.ItemName)
	assert.NotEmpty(t, resp.TransactionID)

	got, err := env.store.GetStockItem(context.Background(), "sagar", item.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)

	purchases, err := env.ledger.ByStore("sagar")
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, "Sagar Stationers", purchases[0].StoreName)
	assert.Equal(t, resp.TransactionID, purchases[0].TransactionID)
}

func TestProcessPurchaseInsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	env.registerStore(t, "sagar", "https://maps.example/place/Sagar+Stationers", "Sagar Stationers")
	item := env.addStock(t, "sagar", "Notebook", 1, 40)

	rec := env.do(t, http.MethodPost, "/processPurchase", map[string]interface{}{
		"customerUsername": "alice",
		"storeUsername":    "sagar",
		"itemId":           item.ID,
		"quantity":         5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Insufficient stock", rec.Body.String())

	purchases, err := env.ledger.ByStore("sagar")
	require.NoError(t, err)
	assert.Empty(t, purchases)
}

func TestProcessPurchaseItemNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/processPurchase", map[string]interface{}{
		"customerUsername": "alice",
		"storeUsername":    "sagar",
		"itemId":           "missing",
		"quantity":         1,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProcessCartPurchase(t *testing.T) {
	env := newTestEnv(t)
	env.registerStore(t, "sagar", "https://maps.example/place/Sagar+Stationers", "Sagar Stationers")
	notebook := env.addStock(t, "sagar", "Notebook", 5, 40)
	pen := env.addStock(t, "sagar", "Pen", 10, 10)

	rec := env.do(t, http.MethodPost, "/processCartPurchase", map[string]interface{}{
		"customerUsername": "alice",
		"storeUsername":    "sagar",
		"customerEmail":    "alice@example.com",
		"items": []map[string]interface{}{
			{"itemId": notebook.ID, "quantity": 2, "name": "Notebook"},
			{"itemId": pen.ID, "quantity": 3, "name": "Pen"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success       bool    `json:"success"`
		TransactionID string  `json:"transactionId"`
		TotalAmount   float64 `json:"totalAmount"`
		ItemCount     int     `json:"itemCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 110.0, resp.TotalAmount)
	assert.Equal(t, 2, resp.ItemCount)

	// Both ledger lines share the cart's transaction ID.
	purchases, err := env.ledger.ByCustomer("alice")
	require.NoError(t, err)
	require.Len(t, purchases, 2)
	assert.Equal(t, purchases[0].TransactionID, purchases[1].TransactionID)
	assert.Equal(t, resp.TransactionID, purchases[0].TransactionID)
}

func TestProcessCartPurchaseFailsWhole(t *testing.T) {
	env := newTestEnv(t)
	env.registerStore(t, "sagar", "https://maps.example/place/Sagar+Stationers", "Sagar Stationers")
	notebook := env.addStock(t, "sagar", "Notebook", 5, 40)
	pen := env.addStock(t, "sagar", "Pen", 1, 10)

	rec := env.do(t, http.MethodPost, "/processCartPurchase", map[string]interface{}{
		"customerUsername": "alice",
		"storeUsername":    "sagar",
		"items": []map[string]interface{}{
			{"itemId": notebook.ID, "quantity": 2, "name": "Notebook"},
			{"itemId": pen.ID, "quantity": 5, "name": "Pen"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Insufficient stock for Pen", rec.Body.String())

	// Nothing was decremented and nothing was recorded.
	got, err := env.store.GetStockItem(context.Background(), "sagar", notebook.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)

	purchases, err := env.ledger.ByCustomer("alice")
	require.NoError(t, err)
	assert.Empty(t, purchases)
}

func TestGetPurchasesValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/getStorePurchases", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/getCustomerPurchases", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/getStorePurchases?storeUsername=sagar", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
