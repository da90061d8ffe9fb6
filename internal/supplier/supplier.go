// Package supplier provides product data from an external supplier. The only
// implementation today is MockSource, which fabricates records.
package supplier

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"sync"
	"time"

	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/models"
)

// Source fetches supplier data for a SKU.
type Source interface {
	FetchSupplierData(ctx context.Context, sku string) (models.ProductDraft, error)
}

// MockSource returns a made-up draft for any SKU: a random price and a
// placeholder image keyed by the SKU.
type MockSource struct {
	// Delay simulates a remote call.
	Delay time.Duration

	mu   sync.Mutex
	rand *rand.Rand
}

// NewMockSource returns a MockSource. A nil rng uses a time-seeded generator.
func NewMockSource(delay time.Duration, rng *rand.Rand) *MockSource {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &MockSource{Delay: delay, rand: rng}
}

func (m *MockSource) FetchSupplierData(ctx context.Context, sku string) (models.ProductDraft, error) {
	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return models.ProductDraft{}, ctx.Err()
		case <-timer.C:
		}
	}

	m.mu.Lock()
	cents := m.rand.IntN(10000)
	m.mu.Unlock()

	return models.ProductDraft{
		SKU:         sku,
		Name:        fmt.Sprintf("Updated Product %s", sku),
		Description: fmt.Sprintf("This is an updated description for product %s", sku),
		Price:       fmt.Sprintf("%d.%02d", cents/100, cents%100),
		Images: []models.Image{
			{Src: ImageURL(sku)},
		},
	}, nil
}

// ImageURL is the deterministic placeholder image for a SKU.
func ImageURL(sku string) string {
	return "https://picsum.photos/seed/" + url.PathEscape(sku) + "/200/300"
}
