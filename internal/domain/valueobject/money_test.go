package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeePolicy_SplitAlwaysSumsToGross(t *testing.T) {
	for _, bps := range []int64{0, 1, 999, 1000, 1500, 3333, 10000} {
		policy, err := NewFeePolicy(bps)
		require.NoError(t, err)
		for _, gross := range []Money{0, 1, 5, 99, 100, 199, 20000, 123457, 999999999} {
			fee, net := policy.Split(gross)
			assert.Equal(t, gross, fee+net, "bps=%d gross=%d", bps, gross)
			assert.GreaterOrEqual(t, int64(fee), int64(0))
			assert.GreaterOrEqual(t, int64(net), int64(0))
		}
	}
}

func TestFeePolicy_SplitRoundsHalfUp(t *testing.T) {
	policy, err := NewFeePolicy(1000)
	require.NoError(t, err)

	fee, net := policy.Split(20000)
	assert.Equal(t, Money(2000), fee)
	assert.Equal(t, Money(18000), net)

	// 10% от 5 копеек = 0.5, округляется вверх
	fee, net = policy.Split(5)
	assert.Equal(t, Money(1), fee)
	assert.Equal(t, Money(4), net)
}

func TestNewFeePolicy_Range(t *testing.T) {
	_, err := NewFeePolicy(-1)
	assert.Error(t, err)
	_, err = NewFeePolicy(10001)
	assert.Error(t, err)
}

func TestMoneyFromDecimal(t *testing.T) {
	m, err := MoneyFromDecimal(199.99, 2)
	require.NoError(t, err)
	assert.Equal(t, Money(19999), m)
	assert.Equal(t, "199.99", m.Format(2))

	m, err = MoneyFromDecimal(200, 0)
	require.NoError(t, err)
	assert.Equal(t, Money(200), m)

	_, err = MoneyFromDecimal(-1, 2)
	assert.Error(t, err)
}

func TestNewPricingMode(t *testing.T) {
	mode, err := NewPricingMode("hourly")
	require.NoError(t, err)
	assert.Equal(t, PricingHourly, mode)

	_, err = NewPricingMode("daily")
	assert.Error(t, err)
}
