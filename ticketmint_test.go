package ticketmint

import (
	"context"
	"math/big"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/ticketmint/config"
	"github.com/vitwit/ticketmint/orchestrator"
	"github.com/vitwit/ticketmint/types"
)

type chainIDService struct{ id uint64 }

func (s chainIDService) ChainId() *hexutil.Big {
	return (*hexutil.Big)(new(big.Int).SetUint64(s.id))
}

func rpcURL(t *testing.T, id uint64) string {
	t.Helper()
	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", chainIDService{id: id}))
	hs := httptest.NewServer(srv)
	t.Cleanup(func() {
		hs.Close()
		srv.Stop()
	})
	return hs.URL
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)

	cfg := config.Default()
	cfg.ContractAddress = "0x1234"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewWithoutKeys(t *testing.T) {
	tm, err := New(context.Background(), config.Default())
	require.NoError(t, err)
	defer tm.Close()

	assert.Nil(t, tm.Wallet())
	require.NoError(t, tm.Start(context.Background()))

	v := tm.View()
	assert.Equal(t, orchestrator.StateDisconnected, v.State)
	assert.Equal(t, "Connect Wallet", v.PrimaryLabel)

	err = tm.Connect(context.Background())
	var me *types.MintError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, types.ErrorKindProviderUnavailable, me.Kind)
	assert.Equal(t, me.Message, tm.View().Banner.Error)

	assert.Error(t, tm.Refresh(context.Background()))
}

func TestNewWithKeysConnects(t *testing.T) {
	cfg := config.Default()
	cfg.Chain.RPCURLs = []string{rpcURL(t, 59144)}
	cfg.AutoConnect = false

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	tm, err := New(context.Background(), cfg, WithKeys(key))
	require.NoError(t, err)
	defer tm.Close()
	require.NotNil(t, tm.Wallet())
	require.NoError(t, tm.Start(context.Background()))

	// no auto-connect: the wallet stays locked until asked
	assert.False(t, tm.View().Connected)
}

func TestNewWalletChainMismatch(t *testing.T) {
	cfg := config.Default()
	cfg.Chain.RPCURLs = []string{rpcURL(t, 1)}

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	_, err = New(context.Background(), cfg, WithKeys(key))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open wallet on Linea")
}

func TestGetVersion(t *testing.T) {
	v := GetVersion()
	assert.Equal(t, Version, v["library_version"])
	assert.Equal(t, "59144", v["default_chainId"])
}
