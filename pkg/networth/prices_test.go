package networth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearestPrice(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, core.UpsertPrices(ctx, []PriceRecord{
		{Date: date(t, "2024-01-02"), Symbol: "vfv.to", Currency: "cad", Price: MustAmount("110.5")},
		{Date: date(t, "2024-01-09"), Symbol: "VFV.TO", Currency: "CAD", Price: MustAmount("112")},
	}))

	price, ok, err := core.NearestPrice(ctx, date(t, "2024-01-05"), "VFV.TO")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, price.Equal(dec("110.5")))

	price, ok, err = core.NearestPrice(ctx, date(t, "2024-01-01"), "vfv.to")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, price.Equal(dec("110.5")))

	_, ok, err = core.NearestPrice(ctx, date(t, "2024-01-05"), "XEQT.TO")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, core.UpsertPrice(ctx, PriceRecord{Date: date(t, "2024-01-05"), Symbol: "VFV.TO", Currency: "CAD", Price: MustAmount("111")}))
	price, _, err = core.NearestPrice(ctx, date(t, "2024-01-05"), "VFV.TO")
	require.NoError(t, err)
	assert.True(t, price.Equal(dec("111")), "cache must be dropped after a write")

	prices, err := core.GetPrices(ctx, "VFV.TO")
	require.NoError(t, err)
	assert.Len(t, prices, 3)
	assert.Equal(t, "CAD", prices[0].Currency)
}

func TestUpsertPrice_Validation(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	err := core.UpsertPrice(ctx, PriceRecord{Date: date(t, "2024-01-01"), Symbol: "nan", Price: MustAmount("1")})
	assert.True(t, IsErrorCode(err, ErrCodeInvalidInput))

	err = core.UpsertPrice(ctx, PriceRecord{Date: date(t, "2024-01-01"), Symbol: "ABC", Price: MustAmount("-1")})
	assert.True(t, IsErrorCode(err, ErrCodeValidation))
}

func TestLookupCacheDisabled(t *testing.T) {
	core, cleanup := setupTestDB(t, func(o *Options) { o.DisableLookupCache = true })
	defer cleanup()
	ctx := context.Background()

	require.Nil(t, core.cache)
	require.NoError(t, core.UpsertPrice(ctx, PriceRecord{Date: date(t, "2024-01-01"), Symbol: "ABC", Price: MustAmount("3")}))
	price, ok, err := core.NearestPrice(ctx, date(t, "2024-02-01"), "ABC")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, price.Equal(dec("3")))
}
