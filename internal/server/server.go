package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"sfhs/storefront/internal/scraper"
	"sfhs/storefront/logger"
	"sfhs/storefront/services/ledger"
	"sfhs/storefront/services/store"
)

// ListingResolver is the slice of the scraper the HTTP layer needs.
type ListingResolver interface {
	Resolve(ctx context.Context, url string) (scraper.ListingRecord, error)
	ClearCache() int
	CacheSnapshot() map[string]scraper.ListingRecord
}

// Server wires the marketplace HTTP API: listing resolution, accounts,
// inventory and purchases.
type Server struct {
	store    store.DocumentStore
	ledger   *ledger.Ledger
	resolver ListingResolver
	log      *logger.Logger
}

// NewServer creates a new HTTP server over the given collaborators
func NewServer(docs store.DocumentStore, l *ledger.Ledger, resolver ListingResolver) *Server {
	return &Server{
		store:    docs,
		ledger:   l,
		resolver: resolver,
		log:      logger.ForServer(),
	}
}

// Router builds the route table
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/getPlaceDetails", s.handleGetPlaceDetails).Methods(http.MethodGet)

	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodGet)
	r.HandleFunc("/registerUser", s.handleRegisterUser).Methods(http.MethodPost)
	r.HandleFunc("/registerStore", s.handleRegisterStore).Methods(http.MethodPost)
	r.HandleFunc("/getStores", s.handleGetStores).Methods(http.MethodGet)

	r.HandleFunc("/clearCache", s.handleClearCache).Methods(http.MethodPost)
	r.HandleFunc("/debugCache", s.handleDebugCache).Methods(http.MethodGet)

	r.HandleFunc("/getStock", s.handleGetStock).Methods(http.MethodGet)
	r.HandleFunc("/getStoreStock", s.handleGetStoreStock).Methods(http.MethodGet)
	r.HandleFunc("/addStock", s.handleAddStock).Methods(http.MethodPost)
	r.HandleFunc("/removeStock", s.handleRemoveStock).Methods(http.MethodPost)

	r.HandleFunc("/processPurchase", s.handleProcessPurchase).Methods(http.MethodPost)
	r.HandleFunc("/processCartPurchase", s.handleProcessCartPurchase).Methods(http.MethodPost)
	r.HandleFunc("/getStorePurchases", s.handleGetStorePurchases).Methods(http.MethodGet)
	r.HandleFunc("/getCustomerPurchases", s.handleGetCustomerPurchases).Methods(http.MethodGet)

	return r
}

func (s *Server) handleGetPlaceDetails(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		respondText(w, http.StatusBadRequest, "Missing URL parameter")
		return
	}

	record, err := s.resolver.Resolve(r.Context(), rawURL)
	if err != nil {
		s.log.Error().Err(err).Str("url", rawURL).Msg("Failed to resolve listing")
		respondText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondJSON(w, http.StatusOK, record)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	username := q.Get("userName")
	password := q.Get("password")
	userType := q.Get("userType")

	err := s.store.Login(r.Context(), username, password, userType)
	if errors.Is(err, store.ErrInvalidCredentials) {
		respondText(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("username", username).Msg("Login lookup failed")
		respondText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondText(w, http.StatusOK, "Login successful")
}

type registerUserRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondText(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserName == "" || req.Password == "" || req.FullName == "" || req.Email == "" {
		respondText(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	err := s.store.RegisterUser(r.Context(), store.UserAccount{
		Username: req.UserName,
		Password: req.Password,
		FullName: req.FullName,
		Email:    req.Email,
	})
	if errors.Is(err, store.ErrUsernameTaken) {
		respondText(w, http.StatusBadRequest, "Username already exists")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("username", req.UserName).Msg("User registration failed")
		respondText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondText(w, http.StatusOK, "User registration successful")
}

type registerStoreRequest struct {
	URL       string `json:"url"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	StoreName string `json:"storeName"`
}

func (s *Server) handleRegisterStore(w http.ResponseWriter, r *http.Request) {
	var req registerStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondText(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.URL == "" {
		respondText(w, http.StatusBadRequest, "Missing URL")
		return
	}

	// A registration without a display name borrows it from the listing.
	if req.StoreName == "" {
		record, err := s.resolver.Resolve(r.Context(), req.URL)
		if err == nil {
			req.StoreName = record.Name
		}
	}

	err := s.store.RegisterStore(r.Context(), store.StoreAccount{
		Username:  req.Username,
		Password:  req.Password,
		URL:       req.URL,
		StoreName: req.StoreName,
	})
	if errors.Is(err, store.ErrStoreURLTaken) {
		respondText(w, http.StatusBadRequest, "Store with this URL already exists")
		return
	}
	if errors.Is(err, store.ErrUsernameTaken) {
		respondText(w, http.StatusBadRequest, "Store with this username already exists")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("username", req.Username).Msg("Store registration failed")
		respondText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondText(w, http.StatusOK, "Store registration successful")
}

// storeDirectoryEntry is the /getStores response shape
type storeDirectoryEntry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	URL      string `json:"url"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Rating   string `json:"rating"`
}

func (s *Server) handleGetStores(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListStores(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list stores")
		respondText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	entries := make([]storeDirectoryEntry, 0, len(accounts))
	for _, account := range accounts {
		entry := storeDirectoryEntry{
			ID:       account.Username,
			Username: account.Username,
			URL:      account.URL,
		}

		if account.URL == "" {
			entry.Name = fallbackStoreName(account)
			entry.Address = "No URL provided"
			entry.Rating = scraper.RatingNotApplicable
			entries = append(entries, entry)
			continue
		}

		record, err := s.resolver.Resolve(r.Context(), account.URL)
		if err != nil {
			entry.Name = fallbackStoreName(account)
			entry.Address = scraper.AddressUnavailable
			entry.Rating = scraper.RatingNotApplicable
			entries = append(entries, entry)
			continue
		}

		entry.Name = record.Name
		entry.Address = record.Address
		entry.Rating = record.Rating
		if record.Name == scraper.NameUnavailable && account.StoreName != "" {
			// The registered display name beats the sentinel.
			entry.Name = account.StoreName
		}
		entries = append(entries, entry)
	}

	respondJSON(w, http.StatusOK, entries)
}

func fallbackStoreName(account store.StoreAccount) string {
	if account.StoreName != "" {
		return account.StoreName
	}
	return "Unknown Store"
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	cleared := s.resolver.ClearCache()
	s.log.Info().Int("entries", cleared).Msg("Listing cache cleared")
	respondText(w, http.StatusOK, "Cache cleared successfully")
}

func (s *Server) handleDebugCache(w http.ResponseWriter, r *http.Request) {
	snapshot := s.resolver.CacheSnapshot()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"cacheSize": len(snapshot),
		"cacheData": snapshot,
	})
}

func (s *Server) handleGetStock(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		respondText(w, http.StatusBadRequest, "Missing username parameter")
		return
	}
	s.respondStock(w, r, username)
}

func (s *Server) handleGetStoreStock(w http.ResponseWriter, r *http.Request) {
	storeUsername := r.URL.Query().Get("storeUsername")
	if storeUsername == "" {
		respondText(w, http.StatusBadRequest, "Missing storeUsername parameter")
		return
	}
	s.respondStock(w, r, storeUsername)
}

func (s *Server) respondStock(w http.ResponseWriter, r *http.Request, username string) {
	items, err := s.store.ListStock(r.Context(), username)
	if err != nil {
		s.log.Error().Err(err).Str("store", username).Msg("Failed to list stock")
		respondText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondJSON(w, http.StatusOK, items)
}

type addStockRequest struct {
	Username string  `json:"username"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
}

func (s *Server) handleAddStock(w http.ResponseWriter, r *http.Request) {
	var req addStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondText(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Name == "" || req.Quantity <= 0 || req.Price <= 0 {
		respondText(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	err := s.store.UpsertStock(r.Context(), req.Username, store.StockItem{
		Name:     req.Name,
		Quantity: req.Quantity,
		Price:    req.Price,
		Image:    req.Image,
	})
	if err != nil {
		s.log.Error().Err(err).Str("store", req.Username).Msg("Failed to add stock")
		respondText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondText(w, http.StatusOK, "Stock added successfully")
}

type removeStockRequest struct {
	Username string `json:"username"`
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

func (s *Server) handleRemoveStock(w http.ResponseWriter, r *http.Request) {
	var req removeStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondText(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.ItemID == "" || req.Quantity <= 0 {
		respondText(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	remaining, err := s.store.RemoveStock(r.Context(), req.Username, req.ItemID, req.Quantity)
	if errors.Is(err, store.ErrNotFound) {
		respondText(w, http.StatusNotFound, "Item not found")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("store", req.Username).Msg("Failed to remove stock")
		respondText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if remaining == 0 {
		respondText(w, http.StatusOK, "Item removed from stock")
		return
	}
	respondText(w, http.StatusOK, "Stock quantity updated")
}

type processPurchaseRequest struct {
	CustomerUsername string `json:"customerUsername"`
	StoreUsername    string `json:"storeUsername"`
	ItemID           string `json:"itemId"`
	Quantity         int    `json:"quantity"`
	CustomerEmail    string `json:"customerEmail"`
}

func (s *Server) handleProcessPurchase(w http.ResponseWriter, r *http.Request) {
	var req processPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondText(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CustomerUsername == "" || req.StoreUsername == "" || req.ItemID == "" || req.Quantity <= 0 {
		respondText(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	item, err := s.store.DecrementForPurchase(r.Context(), req.StoreUsername, req.ItemID, req.Quantity)
	if errors.Is(err, store.ErrNotFound) {
		respondText(w, http.StatusNotFound, "Item not found")
		return
	}
	if errors.Is(err, store.ErrInsufficientStock) {
		respondText(w, http.StatusBadRequest, "Insufficient stock")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("store", req.StoreUsername).Msg("Purchase stock update failed")
		respondText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	storeName := s.storeDisplayName(r.Context(), req.StoreUsername)
	totalAmount := item.Price * float64(req.Quantity)
	transactionID := ledger.NewTransactionID()

	purchase := ledger.Purchase{
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		CustomerUsername: req.CustomerUsername,
		StoreUsername:    req.StoreUsername,
		ItemName:         item.Name,
		Quantity:         req.Quantity,
		UnitPrice:        item.Price,
		TotalAmount:      totalAmount,
		CustomerEmail:    orNA(req.CustomerEmail),
		StoreName:        storeName,
		TransactionID:    transactionID,
	}
	if err := s.ledger.Append(purchase); err != nil {
		s.log.Error().Err(err).Str("transactionId", transactionID).Msg("Failed to record purchase")
		respondText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"message":       "Purchase completed successfully",
		"transactionId": transactionID,
		"totalAmount":   totalAmount,
		"itemName":      item.Name,
		"quantity":      req.Quantity,
	})
}

type cartItem struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
}

type processCartPurchaseRequest struct {
	CustomerUsername string     `json:"customerUsername"`
	StoreUsername    string     `json:"storeUsername"`
	Items            []cartItem `json:"items"`
	CustomerEmail    string     `json:"customerEmail"`
}

func (s *Server) handleProcessCartPurchase(w http.ResponseWriter, r *http.Request) {
	var req processCartPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondText(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CustomerUsername == "" || req.StoreUsername == "" || len(req.Items) == 0 {
		respondText(w, http.StatusBadRequest, "Missing required fields or empty cart")
		return
	}

	// Validate every line before touching stock so a cart fails whole.
	type validatedItem struct {
		item      store.StockItem
		quantity  int
		itemTotal float64
	}
	validated := make([]validatedItem, 0, len(req.Items))
	for _, line := range req.Items {
		if line.ItemID == "" || line.Quantity <= 0 {
			respondText(w, http.StatusBadRequest, "Invalid item data")
			return
		}

		item, err := s.store.GetStockItem(r.Context(), req.StoreUsername, line.ItemID)
		if errors.Is(err, store.ErrNotFound) {
			respondText(w, http.StatusNotFound, "Item not found: "+line.Name)
			return
		}
		if err != nil {
			s.log.Error().Err(err).Str("itemId", line.ItemID).Msg("Cart validation failed")
			respondText(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		if item.Quantity < line.Quantity {
			respondText(w, http.StatusBadRequest, "Insufficient stock for "+item.Name)
			return
		}

		validated = append(validated, validatedItem{
			item:      item,
			quantity:  line.Quantity,
			itemTotal: item.Price * float64(line.Quantity),
		})
	}

	storeName := s.storeDisplayName(r.Context(), req.StoreUsername)
	transactionID := ledger.NewTransactionID()
	timestamp := time.Now().UTC().Format(time.RFC3339)

	var totalAmount float64
	responseItems := make([]map[string]interface{}, 0, len(validated))
	for _, v := range validated {
		if _, err := s.store.DecrementForPurchase(r.Context(), req.StoreUsername, v.item.ID, v.quantity); err != nil {
			s.log.Error().Err(err).Str("itemId", v.item.ID).Msg("Cart stock update failed")
			respondText(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		purchase := ledger.Purchase{
			Timestamp:        timestamp,
			CustomerUsername: req.CustomerUsername,
			StoreUsername:    req.StoreUsername,
			ItemName:         v.item.Name,
			Quantity:         v.quantity,
			UnitPrice:        v.item.Price,
			TotalAmount:      v.itemTotal,
			CustomerEmail:    orNA(req.CustomerEmail),
			StoreName:        storeName,
			TransactionID:    transactionID,
		}
		if err := s.ledger.Append(purchase); err != nil {
			s.log.Error().Err(err).Str("transactionId", transactionID).Msg("Failed to record cart purchase")
			respondText(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		totalAmount += v.itemTotal
		responseItems = append(responseItems, map[string]interface{}{
			"name":      v.item.Name,
			"quantity":  v.quantity,
			"unitPrice": v.item.Price,
			"total":     v.itemTotal,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"message":       "Cart purchase completed successfully",
		"transactionId": transactionID,
		"totalAmount":   totalAmount,
		"itemCount":     len(validated),
		"items":         responseItems,
	})
}

func (s *Server) handleGetStorePurchases(w http.ResponseWriter, r *http.Request) {
	storeUsername := r.URL.Query().Get("storeUsername")
	if storeUsername == "" {
		respondText(w, http.StatusBadRequest, "Missing storeUsername parameter")
		return
	}

	purchases, err := s.ledger.ByStore(storeUsername)
	if err != nil {
		s.log.Error().Err(err).Str("store", storeUsername).Msg("Failed to read purchases")
		respondText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondJSON(w, http.StatusOK, purchases)
}

func (s *Server) handleGetCustomerPurchases(w http.ResponseWriter, r *http.Request) {
	customerUsername := r.URL.Query().Get("customerUsername")
	if customerUsername == "" {
		respondText(w, http.StatusBadRequest, "Missing customerUsername parameter")
		return
	}

	purchases, err := s.ledger.ByCustomer(customerUsername)
	if err != nil {
		s.log.Error().Err(err).Str("customer", customerUsername).Msg("Failed to read purchases")
		respondText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondJSON(w, http.StatusOK, purchases)
}

// storeDisplayName looks up the registered display name, falling back to
// a placeholder when the store record is missing.
func (s *Server) storeDisplayName(ctx context.Context, username string) string {
	account, err := s.store.FindStore(ctx, username)
	if err != nil || account.StoreName == "" {
		return "Unknown Store"
	}
	return account.StoreName
}

func orNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}

func respondText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(msg))
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
