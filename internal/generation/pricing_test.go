package generation

import (
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediagen/internal/domain"
)

func TestRewardScaling(t *testing.T) {
	assert.Equal(t, 2, rewardFor("nanobanana-pro", 10))
	assert.Equal(t, 3, rewardFor("nanobanana-pro", 6))
	assert.Equal(t, 1, rewardFor("nanobanana", 3))
	assert.Equal(t, 1, rewardFor("flux-max", 10))
}

func TestPriceTable(t *testing.T) {
	reg := DefaultRegistry()
	cases := []struct {
		model, resolution string
		want              int
	}{
		{"nanobanana", "", 3},
		{"nanobanana-pro", "1K", 6},
		{"nanobanana-pro", "2K", 10},
		{"nanobanana-pro", "2k", 10},
		{"seedream", "", 3},
		{"flux", "", 4},
		{"flux-max", "", 8},
		{"wan-video", "720p", 20},
	}
	for _, tc := range cases {
		got, err := reg.Price(tc.model, tc.resolution)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s %s", tc.model, tc.resolution)
	}
	_, err := reg.Price("unknown", "")
	assert.ErrorIs(t, err, domain.ErrUnsupportedModel)
}

func TestSettlementCostTrustsStoredValue(t *testing.T) {
	reg := DefaultRegistry()

	stored, err := reg.settlementCost(domain.Job{Model: "nanobanana-pro", Resolution: "2K", Cost: mo.Some(0)})
	require.NoError(t, err)
	assert.Equal(t, 0, stored)

	legacy, err := reg.settlementCost(domain.Job{Model: "nanobanana-pro", Resolution: "2K"})
	require.NoError(t, err)
	assert.Equal(t, 10, legacy)
}
