package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	usersKey  = "storefront:users"
	storesKey = "storefront:stores"
	stockKey  = "storefront:stock:%s"
)

// RedisStore implements DocumentStore on Redis hashes with JSON values
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed document store
func NewRedisStore(addr string, db int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return &RedisStore{client: client}
}

// NewRedisStoreFromClient wraps an existing client, mainly for tests
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// RegisterUser stores a customer account, rejecting duplicate usernames
func (s *RedisStore) RegisterUser(ctx context.Context, user UserAccount) error {
	exists, err := s.client.HExists(ctx, usersKey, user.Username).Result()
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return ErrUsernameTaken
	}

	user.UserType = "customer"
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	return s.client.HSet(ctx, usersKey, user.Username, data).Err()
}

// Login matches credentials verbatim for either account kind
func (s *RedisStore) Login(ctx context.Context, username, password, userType string) error {
	key := usersKey
	if userType == "store" {
		key = storesKey
	}

	data, err := s.client.HGet(ctx, key, username).Result()
	if err == redis.Nil {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("failed to look up account: %w", err)
	}

	var stored struct {
		Password string `json:"password"`
	}
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return fmt.Errorf("failed to unmarshal account: %w", err)
	}
	if stored.Password != password {
		return ErrInvalidCredentials
	}
	return nil
}

// RegisterStore stores a seller account, rejecting duplicate usernames and
// duplicate listing URLs
func (s *RedisStore) RegisterStore(ctx context.Context, account StoreAccount) error {
	exists, err := s.client.HExists(ctx, storesKey, account.Username).Result()
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return ErrUsernameTaken
	}

	stores, err := s.ListStores(ctx)
	if err != nil {
		return err
	}
	for _, existing := range stores {
		if existing.URL == account.URL {
			return ErrStoreURLTaken
		}
	}

	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}
	return s.client.HSet(ctx, storesKey, account.Username, data).Err()
}

// FindStore returns the store account for a username
func (s *RedisStore) FindStore(ctx context.Context, username string) (StoreAccount, error) {
	data, err := s.client.HGet(ctx, storesKey, username).Result()
	if err == redis.Nil {
		return StoreAccount{}, ErrNotFound
	}
	if err != nil {
		return StoreAccount{}, fmt.Errorf("failed to look up store: %w", err)
	}

	var account StoreAccount
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return StoreAccount{}, fmt.Errorf("failed to unmarshal store: %w", err)
	}
	return account, nil
}

// ListStores returns all registered stores
func (s *RedisStore) ListStores(ctx context.Context) ([]StoreAccount, error) {
	entries, err := s.client.HGetAll(ctx, storesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}

	stores := make([]StoreAccount, 0, len(entries))
	for _, data := range entries {
		var account StoreAccount
		if err := json.Unmarshal([]byte(data), &account); err != nil {
			continue
		}
		stores = append(stores, account)
	}
	return stores, nil
}

// ListStock returns all inventory entries of a store
func (s *RedisStore) ListStock(ctx context.Context, storeUsername string) ([]StockItem, error) {
	entries, err := s.client.HGetAll(ctx, fmt.Sprintf(stockKey, storeUsername)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list stock: %w", err)
	}

	items := make([]StockItem, 0, len(entries))
	for _, data := range entries {
		var item StockItem
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// UpsertStock adds an inventory entry, merging quantities when an item
// with the same name already exists
func (s *RedisStore) UpsertStock(ctx context.Context, storeUsername string, item StockItem) error {
	existing, err := s.ListStock(ctx, storeUsername)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, current := range existing {
		if current.Name == item.Name {
			current.Quantity += item.Quantity
			current.Price = item.Price
			if item.Image != "" {
				current.Image = item.Image
			}
			current.UpdatedDate = now
			return s.writeStockItem(ctx, storeUsername, current)
		}
	}

	item.ID = uuid.NewString()
	item.AddedDate = now
	return s.writeStockItem(ctx, storeUsername, item)
}

// GetStockItem returns one inventory entry by ID
func (s *RedisStore) GetStockItem(ctx context.Context, storeUsername, itemID string) (StockItem, error) {
	data, err := s.client.HGet(ctx, fmt.Sprintf(stockKey, storeUsername), itemID).Result()
	if err == redis.Nil {
		return StockItem{}, ErrNotFound
	}
	if err != nil {
		return StockItem{}, fmt.Errorf("failed to look up stock item: %w", err)
	}

	var item StockItem
	if err := json.Unmarshal([]byte(data), &item); err != nil {
		return StockItem{}, fmt.Errorf("failed to unmarshal stock item: %w", err)
	}
	return item, nil
}

// RemoveStock decrements quantity and deletes the item at zero
func (s *RedisStore) RemoveStock(ctx context.Context, storeUsername, itemID string, quantity int) (int, error) {
	item, err := s.GetStockItem(ctx, storeUsername, itemID)
	if err != nil {
		return 0, err
	}

	remaining := item.Quantity - quantity
	if remaining <= 0 {
		if err := s.client.HDel(ctx, fmt.Sprintf(stockKey, storeUsername), itemID).Err(); err != nil {
			return 0, fmt.Errorf("failed to delete stock item: %w", err)
		}
		return 0, nil
	}

	item.Quantity = remaining
	item.UpdatedDate = time.Now().UTC().Format(time.RFC3339)
	if err := s.writeStockItem(ctx, storeUsername, item); err != nil {
		return 0, err
	}
	return remaining, nil
}

// DecrementForPurchase rejects the decrement when stock is insufficient
// and returns the item as it was before the decrement
func (s *RedisStore) DecrementForPurchase(ctx context.Context, storeUsername, itemID string, quantity int) (StockItem, error) {
	item, err := s.GetStockItem(ctx, storeUsername, itemID)
	if err != nil {
		return StockItem{}, err
	}
	if item.Quantity < quantity {
		return StockItem{}, ErrInsufficientStock
	}

	if _, err := s.RemoveStock(ctx, storeUsername, itemID, quantity); err != nil {
		return StockItem{}, err
	}
	return item, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) writeStockItem(ctx context.Context, storeUsername string, item StockItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal stock item: %w", err)
	}
	return s.client.HSet(ctx, fmt.Sprintf(stockKey, storeUsername), item.ID, data).Err()
}
