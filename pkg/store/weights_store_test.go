package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colconnect/arbitrage/pkg/engine"
)

func TestWeightsStore_DefaultsWhenAbsent(t *testing.T) {
	store := NewWeightsStore(newTestDB(t))

	w, err := store.Get(context.Background(), "ville-a")
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultWeights(), w)
}

func TestWeightsStore_UpsertAndGet(t *testing.T) {
	store := NewWeightsStore(newTestDB(t))
	ctx := context.Background()

	record, err := store.Upsert(ctx, "ville-a", engine.Weights{Climate: 0.5, Education: 0.2, Financial: 0.3})
	require.NoError(t, err)
	assert.Equal(t, "ville-a", record.CollectiviteID)
	assert.False(t, record.UpdatedAt.IsZero())

	w, err := store.Get(ctx, "ville-a")
	require.NoError(t, err)
	assert.Equal(t, 0.5, w.Climate)
	assert.Equal(t, 0.2, w.Education)
	assert.Equal(t, 0.3, w.Financial)
}

func TestWeightsStore_UpsertReplaces(t *testing.T) {
	store := NewWeightsStore(newTestDB(t))
	ctx := context.Background()

	_, err := store.Upsert(ctx, "ville-a", engine.Weights{Climate: 0.5, Education: 0.2, Financial: 0.3})
	require.NoError(t, err)
	_, err = store.Upsert(ctx, "ville-a", engine.Weights{Climate: 0.1, Education: 0.1, Financial: 0.8})
	require.NoError(t, err)

	w, err := store.Get(ctx, "ville-a")
	require.NoError(t, err)
	assert.Equal(t, engine.Weights{Climate: 0.1, Education: 0.1, Financial: 0.8}, w)
}

func TestWeightsStore_ScopedPerCollectivite(t *testing.T) {
	store := NewWeightsStore(newTestDB(t))
	ctx := context.Background()

	_, err := store.Upsert(ctx, "ville-a", engine.Weights{Climate: 1, Education: 0, Financial: 0})
	require.NoError(t, err)

	w, err := store.Get(ctx, "ville-b")
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultWeights(), w)
}

func TestWeightsStore_UpsertValidation(t *testing.T) {
	store := NewWeightsStore(newTestDB(t))
	ctx := context.Background()

	tests := []struct {
		name string
		w    engine.Weights
	}{
		{"climate above 1", engine.Weights{Climate: 1.2, Education: 0.3, Financial: 0.3}},
		{"negative education", engine.Weights{Climate: 0.4, Education: -0.1, Financial: 0.3}},
		{"financial above 1", engine.Weights{Climate: 0.4, Education: 0.3, Financial: 1.01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Upsert(ctx, "ville-a", tt.w)
			var verr *engine.ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}
