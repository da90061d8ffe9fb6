package supplier

import (
	"context"
	"math/rand/v2"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockSource_FetchSupplierData(t *testing.T) {
	src := NewMockSource(0, rand.New(rand.NewPCG(1, 2)))

	draft, err := src.FetchSupplierData(context.Background(), "AB-12")
	require.NoError(t, err)

	assert.Equal(t, "AB-12", draft.SKU)
	assert.Equal(t, "Updated Product AB-12", draft.Name)
	assert.Equal(t, "This is an updated description for product AB-12", draft.Description)
	require.Len(t, draft.Images, 1)
	assert.Equal(t, "https://picsum.photos/seed/AB-12/200/300", draft.Images[0].Src)

	price, err := strconv.ParseFloat(draft.Price, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, price, 0.0)
	assert.Less(t, price, 100.0)
	assert.Regexp(t, `^\d{1,2}\.\d{2}$`, draft.Price)
}

func TestMockSource_ImageIsDeterministic(t *testing.T) {
	src := NewMockSource(0, nil)

	a, err := src.FetchSupplierData(context.Background(), "SKU 1")
	require.NoError(t, err)
	b, err := src.FetchSupplierData(context.Background(), "SKU 1")
	require.NoError(t, err)

	assert.Equal(t, a.Images, b.Images)
	assert.Equal(t, "https://picsum.photos/seed/SKU%201/200/300", a.Images[0].Src)
}

func TestMockSource_HonoursCancellation(t *testing.T) {
	src := NewMockSource(time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.FetchSupplierData(ctx, "X")
	assert.ErrorIs(t, err, context.Canceled)
}
