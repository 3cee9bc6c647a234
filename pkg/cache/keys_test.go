package cache

import (
	"testing"
	"time"

	"github.com/angelmondragon/assetinventory-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBuildKeyUsesStaticFieldOrder(t *testing.T) {
	a := BuildKey(EntityAllocation, ScopeList, Filters{
		"limit":     10,
		"page":      2,
		"tenant_id": "t-1",
	})
	b := BuildKey(EntityAllocation, ScopeList, Filters{
		"tenant_id": "t-1",
		"page":      2,
		"limit":     10,
	})
	assert.Equal(t, "assetAllocation:list:tenant_id:t-1:page:2:limit:10", a)
	assert.Equal(t, a, b)
}

func TestBuildKeyOmitsAbsentValues(t *testing.T) {
	var missing *string
	key := BuildKey(EntityAsset, ScopeList, Filters{
		"tenant_id":      "t-1",
		"reference_type": "",
		"reference_id":   missing,
		"asset_id":       uuid.Nil,
		"start_date":     types.Date{},
		"end_date":       nil,
		"page":           1,
	})
	assert.Equal(t, "asset:list:tenant_id:t-1:page:1", key)
}

func TestBuildKeyDistinguishesValues(t *testing.T) {
	base := Filters{"tenant_id": "t-1", "reference_type": "clinic", "reference_id": "c-9", "page": 1, "limit": 10}
	other := Filters{"tenant_id": "t-1", "reference_type": "dentist", "reference_id": "c-9", "page": 1, "limit": 10}
	assert.NotEqual(t, BuildKey(EntityAsset, ScopeList, base), BuildKey(EntityAsset, ScopeList, other))
	assert.NotEqual(t, BuildKey(EntityAsset, ScopeList, base), BuildKey(EntityAsset, ScopeReport, base))
}

func TestBuildKeyFormatsTypedValues(t *testing.T) {
	id := uuid.MustParse("7f1c0a1e-8c53-4a2e-9a55-2b1f6f0e3c11")
	start, _ := types.ParseDate("2024-01-01")
	end := time.Date(2024, 1, 31, 18, 30, 0, 0, time.UTC)
	limit := 25

	key := BuildKey(EntityAllocation, ScopeReport, Filters{
		"asset_id":   id,
		"start_date": start,
		"end_date":   end,
		"limit":      &limit,
	})
	assert.Equal(t, "assetAllocation:report:asset_id:7f1c0a1e-8c53-4a2e-9a55-2b1f6f0e3c11:limit:25:start_date:2024-01-01:end_date:2024-01-31", key)
}

func TestBuildKeyAppendsUnknownFieldsSorted(t *testing.T) {
	key := BuildKey(EntityAsset, ScopeList, Filters{
		"zone":      "north",
		"category":  "imaging",
		"tenant_id": "t-1",
	})
	assert.Equal(t, "asset:list:tenant_id:t-1:category:imaging:zone:north", key)
}

func TestBuildKeyZeroNumbersAreEncoded(t *testing.T) {
	key := BuildKey(EntityAsset, ScopeList, Filters{"page": 0})
	assert.Equal(t, "asset:list:page:0", key)
}

func TestPattern(t *testing.T) {
	assert.Equal(t, "assetAllocation:*", Pattern(EntityAllocation))
	assert.Equal(t, "asset:*", Pattern(EntityAsset))
}
