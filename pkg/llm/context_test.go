package llm

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContext_MergesValues(t *testing.T) {
	ctx := WithContext(context.Background(), map[string]any{"a": 1, "b": "x"})
	ctx = WithContext(ctx, map[string]any{"b": "y", "c": true})

	got := GetContext(ctx)
	assert.Equal(t, map[string]any{"a": 1, "b": "y", "c": true}, got)
}

func TestWithContext_DoesNotLeakIntoParent(t *testing.T) {
	parent := WithContext(context.Background(), map[string]any{"a": 1})
	_ = WithContext(parent, map[string]any{"b": 2})

	assert.Equal(t, map[string]any{"a": 1}, GetContext(parent))
}

func TestGetContext_NilWhenAbsent(t *testing.T) {
	assert.Nil(t, GetContext(context.Background()))
	assert.Equal(t, "", StageFromContext(context.Background()))
}

func TestGetContext_ReturnsCopy(t *testing.T) {
	ctx := WithContext(context.Background(), map[string]any{"a": 1})
	got := GetContext(ctx)
	got["a"] = 99

	assert.Equal(t, 1, GetContext(ctx)["a"])
}

func TestWithStageContext(t *testing.T) {
	analysisID, storeID := uuid.New(), uuid.New()
	ctx := WithStageContext(context.Background(), analysisID, storeID, "analyst")
	ctx = WithContext(ctx, map[string]any{ContextAttempt: 2})

	values := GetContext(ctx)
	assert.Equal(t, "analyst", StageFromContext(ctx))
	assert.Equal(t, analysisID.String(), values[ContextAnalysisID])
	assert.Equal(t, storeID.String(), values[ContextStoreID])
	assert.Equal(t, 2, values[ContextAttempt])

	id := uuidFromContext(values, ContextAnalysisID)
	require.NotNil(t, id)
	assert.Equal(t, analysisID, *id)
}

func TestWithStageContext_OmitsNilIDs(t *testing.T) {
	ctx := WithStageContext(context.Background(), uuid.Nil, uuid.Nil, "batch")

	values := GetContext(ctx)
	assert.NotContains(t, values, ContextAnalysisID)
	assert.NotContains(t, values, ContextStoreID)
	assert.Nil(t, uuidFromContext(values, ContextStoreID))
	assert.Nil(t, uuidFromContext(map[string]any{ContextStoreID: "not-a-uuid"}, ContextStoreID))
}
