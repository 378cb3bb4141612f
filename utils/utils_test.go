package utils

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/ticketmint/types"
)

func validConfig() *types.Config {
	return &types.Config{
		Chain:              types.LineaMainnet,
		ContractAddress:    "0xc4Ab0d9FAcFAc11104E640718dCaB4df782428CC",
		VerificationAPI:    "https://poh-api.linea.build/poh/v2",
		VerificationPortal: "https://linea.build/hub/apps/sumsub-reusable-identity",
		MaxQuantity:        10,
		LogLevel:           "info",
	}
}

func TestValidateConfig(t *testing.T) {
	require.NoError(t, ValidateConfig(validConfig()))

	cfg := validConfig()
	cfg.ContractAddress = "not-an-address"
	assert.Error(t, ValidateConfig(cfg))

	cfg = validConfig()
	cfg.Chain.RPCURLs = nil
	assert.Error(t, ValidateConfig(cfg))

	cfg = validConfig()
	cfg.LogLevel = "loud"
	assert.Error(t, ValidateConfig(cfg))

	assert.Error(t, ValidateConfig(nil))
}

func TestValidateChain(t *testing.T) {
	require.NoError(t, ValidateChain(types.LineaMainnet))

	bad := types.LineaMainnet
	bad.ID = 0
	assert.Error(t, ValidateChain(bad))
}

func TestValidateAddress(t *testing.T) {
	addr, err := ValidateAddress("0xc4Ab0d9FAcFAc11104E640718dCaB4df782428CC")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xc4Ab0d9FAcFAc11104E640718dCaB4df782428CC"), addr)

	_, err = ValidateAddress("")
	assert.Error(t, err)
	_, err = ValidateAddress("c4Ab0d9FAcFAc11104E640718dCaB4df782428CC")
	assert.Error(t, err)
	_, err = ValidateAddress("0x1234")
	assert.Error(t, err)
}

func TestValidateQuantity(t *testing.T) {
	assert.NoError(t, ValidateQuantity(1, 5))
	assert.NoError(t, ValidateQuantity(50, 0))
	assert.ErrorIs(t, ValidateQuantity(0, 5), ErrQuantityTooLow)

	err := ValidateQuantity(6, 5)
	assert.ErrorIs(t, err, ErrQuantityAboveMax)
	assert.EqualError(t, err, "quantity exceeds max per transaction: 6 > 5")
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "0.01", FormatUnits(big.NewInt(10_000_000_000_000_000), 18))
	assert.Equal(t, "0", FormatUnits(big.NewInt(0), 18))
	assert.Equal(t, "---", FormatUnits(nil, 18))
}

func TestShortAddress(t *testing.T) {
	addr := common.HexToAddress("0xc4Ab0d9FAcFAc11104E640718dCaB4df782428CC")
	assert.Equal(t, "0xc4Ab...28CC", ShortAddress(addr))
}
