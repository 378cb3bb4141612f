package utils

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// FormatUnits renders an integer amount of the smallest unit with the given
// number of decimals, e.g. wei as ether for decimals=18.
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "---"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// ShortAddress renders 0x1234...abcd.
func ShortAddress(addr common.Address) string {
	hex := addr.Hex()
	return hex[:6] + "..." + hex[len(hex)-4:]
}
