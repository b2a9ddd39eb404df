package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"sfhs/storefront/internal/scraper"
	"sfhs/storefront/logger"
	"sfhs/storefront/services/cache"
	"sfhs/storefront/services/publisher"
	"sfhs/storefront/services/store"
)

// ListingResolver resolves a listing URL to a directory record.
type ListingResolver interface {
	Resolve(ctx context.Context, url string) (scraper.ListingRecord, error)
}

// StoreLister lists the stores whose listings the worker keeps fresh.
type StoreLister interface {
	ListStores(ctx context.Context) ([]store.StoreAccount, error)
}

// DirectoryEntry is the message published for each refreshed listing.
type DirectoryEntry struct {
	StoreUsername string `json:"storeUsername"`
	StoreName     string `json:"storeName"`
	URL           string `json:"url"`
	Address       string `json:"address"`
	Rating        string `json:"rating"`
	RefreshedAt   string `json:"refreshedAt"`
	Degraded      bool   `json:"degraded"`
}

// Worker periodically re-resolves every registered store's listing and
// publishes the result to the directory update stream. Stores refreshed
// recently are skipped via a cooldown key so a restart does not trigger a
// full re-scrape.
type Worker struct {
	ctx       context.Context
	stores    StoreLister
	resolver  ListingResolver
	publisher publisher.Publisher
	cooldown  cache.CacheService

	interval    time.Duration
	batchSize   int
	batchDelay  time.Duration
	cooldownTTL time.Duration

	log *logger.Logger
}

// NewWorker creates a new directory refresh worker
func NewWorker(
	ctx context.Context,
	stores StoreLister,
	resolver ListingResolver,
	pub publisher.Publisher,
	cooldown cache.CacheService,
	interval time.Duration,
	batchSize int,
	batchDelay time.Duration,
	cooldownTTL time.Duration,
) *Worker {
	return &Worker{
		ctx:         ctx,
		stores:      stores,
		resolver:    resolver,
		publisher:   pub,
		cooldown:    cooldown,
		interval:    interval,
		batchSize:   batchSize,
		batchDelay:  batchDelay,
		cooldownTTL: cooldownTTL,
		log:         logger.ForWorker(),
	}
}

// Start runs refresh cycles until the context is cancelled
func (w *Worker) Start() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunCycle()
	for {
		select {
		case <-w.ctx.Done():
			w.log.Info().Msg("Refresh worker stopping")
			return
		case <-ticker.C:
			w.RunCycle()
		}
	}
}

// RunCycle refreshes all registered stores once, in small batches
func (w *Worker) RunCycle() {
	start := time.Now()

	stores, err := w.stores.ListStores(w.ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("Failed to list stores for refresh")
		return
	}
	if len(stores) == 0 {
		return
	}

	refreshed := 0
	for i := 0; i < len(stores); i += w.batchSize {
		if w.ctx.Err() != nil {
			return
		}

		end := i + w.batchSize
		if end > len(stores) {
			end = len(stores)
		}

		var wg sync.WaitGroup
		for _, account := range stores[i:end] {
			if w.onCooldown(account.Username) {
				w.log.Debug().Str("store", account.Username).Msg("Cooldown active, skipping refresh")
				continue
			}

			wg.Add(1)
			refreshed++
			go func(account store.StoreAccount) {
				defer wg.Done()
				w.refreshStore(account)
			}(account)
		}
		wg.Wait()

		if end < len(stores) {
			time.Sleep(w.batchDelay)
		}
	}

	if err := w.publisher.TrimStream(); err != nil {
		w.log.Error().Err(err).Msg("Failed to trim directory stream")
	}

	w.log.Info().
		Int("stores", len(stores)).
		Int("refreshed", refreshed).
		Dur("elapsed", time.Since(start)).
		Msg("Refresh cycle complete")
}

// refreshStore resolves one store's listing and publishes the result
func (w *Worker) refreshStore(account store.StoreAccount) {
	record, err := w.resolver.Resolve(w.ctx, account.URL)
	if err != nil {
		w.log.Error().Err(err).Str("store", account.Username).Msg("Failed to resolve listing")
		return
	}

	entry := DirectoryEntry{
		StoreUsername: account.Username,
		StoreName:     record.Name,
		URL:           account.URL,
		Address:       record.Address,
		Rating:        record.Rating,
		RefreshedAt:   time.Now().UTC().Format(time.RFC3339),
		Degraded:      record.Degraded(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		w.log.Error().Err(err).Str("store", account.Username).Msg("Failed to marshal directory entry")
		return
	}

	if err := w.publisher.Publish("listing", data); err != nil {
		w.log.Error().Err(err).Str("store", account.Username).Msg("Failed to publish directory entry")
		return
	}

	w.markRefreshed(account.Username)
}

func (w *Worker) onCooldown(username string) bool {
	if w.cooldown == nil {
		return false
	}
	_, err := w.cooldown.Get(cooldownKey(username))
	return err == nil
}

func (w *Worker) markRefreshed(username string) {
	if w.cooldown == nil {
		return
	}
	if err := w.cooldown.Set(cooldownKey(username), []byte("1"), w.cooldownTTL); err != nil {
		w.log.Debug().Err(err).Str("store", username).Msg("Failed to set refresh cooldown")
	}
}

func cooldownKey(username string) string {
	return "storefront:refresh:" + username
}
