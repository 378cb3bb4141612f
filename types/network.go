package types

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ChainID is a numeric EVM chain identifier.
type ChainID uint64

// Hex returns the 0x-prefixed form used by wallet providers.
func (c ChainID) Hex() string {
	return hexutil.EncodeUint64(uint64(c))
}

func (c ChainID) String() string {
	return strconv.FormatUint(uint64(c), 10)
}

// NativeCurrency describes the gas token of a chain.
type NativeCurrency struct {
	Name     string `json:"name" toml:"name" validate:"required"`
	Symbol   string `json:"symbol" toml:"symbol" validate:"required"`
	Decimals int32  `json:"decimals" toml:"decimals" validate:"gte=0,lte=36"`
}

// ChainDescriptor is everything a wallet needs to register a chain
// (the wallet_addEthereumChain parameters).
type ChainDescriptor struct {
	ID             ChainID        `json:"chainId" toml:"id" validate:"required"`
	Name           string         `json:"chainName" toml:"name" validate:"required"`
	NativeCurrency NativeCurrency `json:"nativeCurrency" toml:"native_currency"`
	RPCURLs        []string       `json:"rpcUrls" toml:"rpc_urls" validate:"required,min=1,dive,url"`
	ExplorerURLs   []string       `json:"blockExplorerUrls,omitempty" toml:"explorer_urls" validate:"dive,url"`
}

// RPCURL returns the preferred RPC endpoint, or "" when none is set.
func (c ChainDescriptor) RPCURL() string {
	if len(c.RPCURLs) == 0 {
		return ""
	}
	return c.RPCURLs[0]
}

// LineaMainnet is the network the ticket sale is deployed on.
var LineaMainnet = ChainDescriptor{
	ID:   59144,
	Name: "Linea",
	NativeCurrency: NativeCurrency{
		Name:     "Linea ETH",
		Symbol:   "ETH",
		Decimals: 18,
	},
	RPCURLs:      []string{"https://rpc.linea.build"},
	ExplorerURLs: []string{"https://lineascan.build"},
}
