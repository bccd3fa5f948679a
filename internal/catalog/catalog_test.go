package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/orderdesk/internal/storage"
	"github.com/dshills/orderdesk/pkg/types"
)

func setupCatalog(t *testing.T) *Service {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewService(store, nil)
}

func ptr[T any](v T) *T { return &v }

func TestCreate(t *testing.T) {
	svc := setupCatalog(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, ProductInput{
		Name:  "  Kettle ",
		Price: decimal.RequireFromString("24.90"),
		Stock: 7,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Kettle", p.Name)
	assert.True(t, p.IsActive)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("24.90").Equal(got.Price))
	assert.Equal(t, 7, got.Stock)

	inactive, err := svc.Create(ctx, ProductInput{Name: "Hidden", IsActive: ptr(false)})
	require.NoError(t, err)
	assert.False(t, inactive.IsActive)
}

func TestCreateValidation(t *testing.T) {
	svc := setupCatalog(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   ProductInput
		msg  string
	}{
		{"missing name", ProductInput{Name: " "}, "name is required"},
		{"negative price", ProductInput{Name: "x", Price: decimal.NewFromInt(-1)}, "price must not be negative"},
		{"negative stock", ProductInput{Name: "x", Stock: -2}, "stock must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			assert.ErrorIs(t, err, types.ErrValidation)
			assert.Equal(t, tt.msg, types.Message(err))
		})
	}
}

func TestUpdate(t *testing.T) {
	svc := setupCatalog(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, ProductInput{Name: "Lamp", Price: decimal.NewFromInt(30), Stock: 2})
	require.NoError(t, err)

	t.Run("partial patch", func(t *testing.T) {
		got, err := svc.Update(ctx, p.ID, ProductPatch{Stock: ptr(10), IsActive: ptr(false)})
		require.NoError(t, err)
		assert.Equal(t, "Lamp", got.Name)
		assert.Equal(t, 10, got.Stock)
		assert.False(t, got.IsActive)
		assert.True(t, decimal.NewFromInt(30).Equal(got.Price))
	})

	t.Run("invalid patch keeps product", func(t *testing.T) {
		_, err := svc.Update(ctx, p.ID, ProductPatch{Stock: ptr(-1)})
		assert.ErrorIs(t, err, types.ErrValidation)

		got, err := svc.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, got.Stock)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := svc.Update(ctx, "missing", ProductPatch{Name: ptr("x")})
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestList(t *testing.T) {
	svc := setupCatalog(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, ProductInput{Name: "A", Stock: 1})
	require.NoError(t, err)
	_, err = svc.Create(ctx, ProductInput{Name: "B", Stock: 1, IsActive: ptr(false)})
	require.NoError(t, err)

	all, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := svc.List(ctx, ListFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "A", active[0].Name)

	_, err = svc.List(ctx, ListFilter{Limit: -1})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
