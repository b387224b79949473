package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice(t *testing.T) {
	assert.Equal(t, 0.5, Price(0, 0))
	assert.Equal(t, 0.5, Price(10, 10))
	assert.InDelta(t, 0.75, Price(75, 25), 1e-9)
}

func TestPriceClamps(t *testing.T) {
	assert.Equal(t, MinPrice, Price(0.0001, 100))
	assert.Equal(t, MaxPrice, Price(100, 0.0001))
}

func TestSharesLong(t *testing.T) {
	shares, err := SharesLong(50, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 100, shares, 1e-9)

	_, err = SharesLong(0, 0.5)
	assert.Error(t, err)

	_, err = SharesLong(50, 0)
	assert.Error(t, err)

	_, err = SharesLong(50, 1)
	assert.Error(t, err)
}

func TestSharesShort(t *testing.T) {
	shares, err := SharesShort(50, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 100, shares, 1e-9)

	_, err = SharesShort(-1, 0.5)
	assert.Error(t, err)
}

func TestCollateral(t *testing.T) {
	c, err := Collateral(100, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 50, c, 1e-9)

	c, err = Collateral(100, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, c)

	_, err = Collateral(-1, 0.5)
	assert.Error(t, err)

	_, err = Collateral(100, 1.5)
	assert.Error(t, err)
}
