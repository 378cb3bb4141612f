package quota

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/ticketmint/types"
)

func TestSplitQuantityInvariants(t *testing.T) {
	for requested := uint64(1); requested <= 20; requested++ {
		for free := uint64(0); free <= 25; free++ {
			s := SplitQuantity(requested, types.Some(free))
			assert.Equal(t, requested, s.Free+s.Paid, "requested=%d free=%d", requested, free)
			assert.Equal(t, min(requested, free), s.Free, "requested=%d free=%d", requested, free)
		}
	}
}

func TestSplitQuantityUnknownAllowanceIsAllPaid(t *testing.T) {
	s := SplitQuantity(5, types.None[uint64]())
	assert.Equal(t, Split{Free: 0, Paid: 5}, s)
}

func TestSplitQuantityKnownZero(t *testing.T) {
	s := SplitQuantity(3, types.Some[uint64](0))
	assert.Equal(t, Split{Free: 0, Paid: 3}, s)
}

func TestCostIsExact(t *testing.T) {
	// 0.01 ETH in wei.
	price := big.NewInt(10_000_000_000_000_000)
	q := NewQuote(3, types.Some[uint64](2), price)

	assert.Equal(t, uint64(2), q.Free)
	assert.Equal(t, uint64(1), q.Paid)
	assert.Equal(t, 0, q.Value.Cmp(price))
}

func TestCostLargeValues(t *testing.T) {
	price, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)

	got := Cost(1<<63, price)
	want := new(big.Int).Mul(price, new(big.Int).SetUint64(1<<63))
	assert.Equal(t, 0, got.Cmp(want))
	assert.Equal(t, 0, Cost(0, price).Sign())
}

func TestCostUnknownPrice(t *testing.T) {
	assert.Nil(t, Cost(2, nil))
}

func TestCostDoesNotAliasPrice(t *testing.T) {
	price := big.NewInt(7)
	got := Cost(3, price)
	got.SetInt64(0)
	assert.Equal(t, int64(7), price.Int64())
}

func TestClamp(t *testing.T) {
	assert.Equal(t, uint64(1), Clamp(0, 5))
	assert.Equal(t, uint64(5), Clamp(9, 5))
	assert.Equal(t, uint64(3), Clamp(3, 5))
	assert.Equal(t, uint64(40), Clamp(40, 0))
}
