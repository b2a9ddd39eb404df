package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeStrategy is a test double that counts invocations
type fakeStrategy struct {
	name  string
	calls int
	fetch func(url string) (*ListingRecord, error)
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Fetch(_ context.Context, url string) (*ListingRecord, error) {
	f.calls++
	return f.fetch(url)
}

func failingStrategy(name string) *fakeStrategy {
	return &fakeStrategy{name: name, fetch: func(string) (*ListingRecord, error) {
		return nil, errors.New("navigation timeout")
	}}
}

func succeedingStrategy(name string, record ListingRecord) *fakeStrategy {
	return &fakeStrategy{name: name, fetch: func(url string) (*ListingRecord, error) {
		r := record
		r.SourceURL = url
		return &r, nil
	}}
}

func TestResolveEmptyURL(t *testing.T) {
	resolver := NewResolver(NewListingCache(), nil)
	_, err := resolver.Resolve(context.Background(), "  ")
	assert.Error(t, err)
}

func TestResolveFirstUsefulResultWins(t *testing.T) {
	first := succeedingStrategy("fast", ListingRecord{
		Name: "Joe's Cafe", Address: "12 Main St, Springfield", Rating: "4.3",
	})
	second := failingStrategy("stealth")
	resolver := NewResolver(NewListingCache(), []Strategy{first, second})

	record, err := resolver.Resolve(context.Background(), "https://maps.example.com/place/Joes+Cafe")
	assert.NoError(t, err)
	assert.Equal(t, "Joe's Cafe", record.Name)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls, "chain must short-circuit on first useful result")
}

func TestResolveUninformativeResultAdvancesChain(t *testing.T) {
	// A fetch that technically succeeds but learns nothing is treated as
	// a failure for fallback purposes.
	uninformative := succeedingStrategy("fast", ListingRecord{
		Name: NameUnavailable, Address: AddressUnavailable, Rating: RatingNotApplicable,
	})
	useful := succeedingStrategy("stealth", ListingRecord{
		Name: "Sagar Stationers", Address: AddressUnavailable, Rating: RatingNotApplicable,
	})
	resolver := NewResolver(NewListingCache(), []Strategy{uninformative, useful})

	record, err := resolver.Resolve(context.Background(), "https://maps.example.com/place/x")
	assert.NoError(t, err)
	assert.Equal(t, "Sagar Stationers", record.Name)
	assert.Equal(t, 1, uninformative.calls)
	assert.Equal(t, 1, useful.calls)
}

func TestResolveURLFallback(t *testing.T) {
	url := "https://www.google.com/maps/place/Sagar+Stationers/@26.4963403,80.3134521,869m/data=!3m2"
	resolver := NewResolver(NewListingCache(), []Strategy{
		failingStrategy("fast"), failingStrategy("balanced"), failingStrategy("stealth"),
	})

	record, err := resolver.Resolve(context.Background(), url)
	assert.NoError(t, err)
	assert.Equal(t, "Sagar Stationers", record.Name)
	assert.Equal(t, AddressUnavailable, record.Address)
	assert.Equal(t, RatingNotApplicable, record.Rating)
	assert.Equal(t, url, record.SourceURL)
}

func TestResolveCachesDegradedResults(t *testing.T) {
	failing := failingStrategy("fast")
	resolver := NewResolver(NewListingCache(), []Strategy{failing})
	url := "https://maps.example.com/place/Unreachable+Store"

	first, err := resolver.Resolve(context.Background(), url)
	assert.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), url)
	assert.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, failing.calls, "degraded results must be cached to bound retry cost")
}

func TestResolveIdempotentCacheHit(t *testing.T) {
	strategy := succeedingStrategy("fast", ListingRecord{
		Name: "A Store", Address: "1 Long Road, Town", Rating: "4.0",
	})
	resolver := NewResolver(NewListingCache(), []Strategy{strategy})
	url := "https://maps.example.com/place/A+Store"

	first, err := resolver.Resolve(context.Background(), url)
	assert.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), url)
	assert.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, strategy.calls, "second call must be served from the cache")
}

func TestClearCacheForcesReextraction(t *testing.T) {
	strategy := succeedingStrategy("fast", ListingRecord{
		Name: "A Store", Address: "1 Long Road, Town", Rating: "4.0",
	})
	resolver := NewResolver(NewListingCache(), []Strategy{strategy})
	url := "https://maps.example.com/place/A+Store"

	_, err := resolver.Resolve(context.Background(), url)
	assert.NoError(t, err)
	assert.Equal(t, 1, resolver.ClearCache())

	_, err = resolver.Resolve(context.Background(), url)
	assert.NoError(t, err)
	assert.Equal(t, 2, strategy.calls)
}

func TestCacheSnapshot(t *testing.T) {
	strategy := succeedingStrategy("fast", ListingRecord{
		Name: "A Store", Address: "1 Long Road, Town", Rating: "4.0",
	})
	resolver := NewResolver(NewListingCache(), []Strategy{strategy})

	_, err := resolver.Resolve(context.Background(), "https://maps.example.com/place/A+Store")
	assert.NoError(t, err)

	snapshot := resolver.CacheSnapshot()
	assert.Len(t, snapshot, 1)
	assert.Equal(t, "A Store", snapshot["https://maps.example.com/place/A+Store"].Name)
}

func TestFallbackFromURL(t *testing.T) {
	testCases := []struct {
		name     string
		url      string
		wantName string
	}{
		{
			name:     "place segment with plus signs",
			url:      "https://www.google.com/maps/place/Sagar+Stationers/@26.49,80.31",
			wantName: "Sagar Stationers",
		},
		{
			name:     "place segment with percent encoding",
			url:      "https://www.google.com/maps/place/Caf%C3%A9+Noir/@1,2",
			wantName: "Café Noir",
		},
		{
			name:     "no place segment falls back to host",
			url:      "https://shop.example.com/stores/42",
			wantName: "shop.example.com",
		},
		{
			name:     "unparsable url yields sentinel",
			url:      "::::not a url",
			wantName: NameUnavailable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			record := fallbackFromURL(tc.url)
			assert.Equal(t, tc.wantName, record.Name)
			assert.Equal(t, AddressUnavailable, record.Address)
			assert.Equal(t, RatingNotApplicable, record.Rating)
		})
	}
}
