package store

import (
	"context"
	"errors"
)

// Account and stock documents as persisted in the store. Password handling
// is intentionally verbatim credential matching; hardening authentication
// is out of scope for this backend.

// UserAccount represents a customer account
type UserAccount struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	UserType string `json:"userType"`
}

// StoreAccount represents a seller account tied to a listing URL
type StoreAccount struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	URL       string `json:"url"`
	StoreName string `json:"storeName"`
}

// StockItem represents one inventory entry of a store
type StockItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Image       string  `json:"image,omitempty"`
	AddedDate   string  `json:"addedDate"`
	UpdatedDate string  `json:"updatedDate,omitempty"`
}

// Sentinel errors surfaced to the route layer
var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrStoreURLTaken      = errors.New("store with this URL already exists")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInsufficientStock  = errors.New("insufficient stock")
)

// DocumentStore is the persistence boundary for accounts and inventory
type DocumentStore interface {
	// Users
	RegisterUser(ctx context.Context, user UserAccount) error
	Login(ctx context.Context, username, password, userType string) error

	// Stores
	RegisterStore(ctx context.Context, account StoreAccount) error
	FindStore(ctx context.Context, username string) (StoreAccount, error)
	ListStores(ctx context.Context) ([]StoreAccount, error)

	// Stock
	ListStock(ctx context.Context, storeUsername string) ([]StockItem, error)
	UpsertStock(ctx context.Context, storeUsername string, item StockItem) error
	GetStockItem(ctx context.Context, storeUsername, itemID string) (StockItem, error)
	// RemoveStock decrements quantity, deleting the item when it reaches
	// zero. Returns the remaining quantity.
	RemoveStock(ctx context.Context, storeUsername, itemID string, quantity int) (int, error)
	// DecrementForPurchase is RemoveStock with an insufficient-stock
	// guard; it returns the item as it was before the decrement.
	DecrementForPurchase(ctx context.Context, storeUsername, itemID string, quantity int) (StockItem, error)

	Close() error
}
