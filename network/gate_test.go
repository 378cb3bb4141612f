package network

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/ticketmint/clients"
	"github.com/vitwit/ticketmint/types"
)

// scriptedProvider returns queued errors from SwitchChain and AddChain.
type scriptedProvider struct {
	switchErrs []error
	addErr     error

	switchCalls int
	addCalls    int
	added       []types.ChainDescriptor
}

func (p *scriptedProvider) RequestAccounts(context.Context) ([]common.Address, error) {
	return nil, nil
}
func (p *scriptedProvider) Accounts(context.Context) ([]common.Address, error) { return nil, nil }
func (p *scriptedProvider) ChainID(context.Context) (string, error)            { return "", nil }
func (p *scriptedProvider) BalanceAt(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}
func (p *scriptedProvider) Subscribe(clients.Listener) func() { return func() {} }

func (p *scriptedProvider) SwitchChain(context.Context, types.ChainID) error {
	p.switchCalls++
	if len(p.switchErrs) == 0 {
		return nil
	}
	err := p.switchErrs[0]
	p.switchErrs = p.switchErrs[1:]
	return err
}

func (p *scriptedProvider) AddChain(_ context.Context, c types.ChainDescriptor) error {
	p.addCalls++
	p.added = append(p.added, c)
	return p.addErr
}

func providerErr(code int) error {
	return &types.ProviderError{Code: code, Message: "scripted"}
}

func TestParseChainIDRepresentations(t *testing.T) {
	for _, raw := range []string{"59144", "0xe708", "0XE708", "0xE708", "0Xe708", " 59144 ", "0x0000e708"} {
		id, err := ParseChainID(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, types.ChainID(59144), id, raw)
	}

	for _, raw := range []string{"", "linea", "0x", "0xzz", "-1"} {
		_, err := ParseChainID(raw)
		assert.ErrorIs(t, err, ErrInvalidChainID, raw)
	}
}

func TestIsOnRequiredNetwork(t *testing.T) {
	g := NewGate(types.LineaMainnet, nil, nil)

	assert.True(t, g.IsOnRequiredNetwork("59144"))
	assert.True(t, g.IsOnRequiredNetwork("0xe708"))
	assert.True(t, g.IsOnRequiredNetwork("0XE708"))
	assert.False(t, g.IsOnRequiredNetwork("0x1"))
	assert.False(t, g.IsOnRequiredNetwork("1"))
	assert.False(t, g.IsOnRequiredNetwork(""))
	assert.False(t, g.IsOnRequiredNetwork("garbage"))
}

func TestEnsureNetworkSwitches(t *testing.T) {
	p := &scriptedProvider{}
	res, err := NewGate(types.LineaMainnet, p, nil).EnsureNetwork(context.Background())

	require.NoError(t, err)
	assert.False(t, res.Added)
	assert.Equal(t, 1, p.switchCalls)
	assert.Equal(t, 0, p.addCalls)
}

func TestEnsureNetworkAddsUnknownChainOnce(t *testing.T) {
	p := &scriptedProvider{switchErrs: []error{providerErr(types.ProviderCodeUnrecognizedChain)}}
	res, err := NewGate(types.LineaMainnet, p, nil).EnsureNetwork(context.Background())

	require.NoError(t, err)
	assert.True(t, res.Added)
	assert.Equal(t, 2, p.switchCalls)
	require.Equal(t, 1, p.addCalls)
	assert.Equal(t, types.LineaMainnet.ID, p.added[0].ID)
	assert.Equal(t, "https://rpc.linea.build", p.added[0].RPCURL())
}

func TestEnsureNetworkDoesNotLoopAfterRetryFails(t *testing.T) {
	p := &scriptedProvider{switchErrs: []error{
		providerErr(types.ProviderCodeUnrecognizedChain),
		providerErr(types.ProviderCodeUnrecognizedChain),
		providerErr(types.ProviderCodeUnrecognizedChain),
	}}
	_, err := NewGate(types.LineaMainnet, p, nil).EnsureNetwork(context.Background())

	var me *types.MintError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, types.ErrorKindChainUnregistered, me.Kind)
	assert.Equal(t, 1, p.addCalls)
	assert.Equal(t, 2, p.switchCalls)
}

func TestEnsureNetworkAddFailure(t *testing.T) {
	p := &scriptedProvider{
		switchErrs: []error{providerErr(types.ProviderCodeUnrecognizedChain)},
		addErr:     errors.New("rpc unreachable"),
	}
	_, err := NewGate(types.LineaMainnet, p, nil).EnsureNetwork(context.Background())

	var me *types.MintError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, types.ErrorKindChainUnregistered, me.Kind)
	assert.Equal(t, 1, p.switchCalls)
}

func TestEnsureNetworkUserRejected(t *testing.T) {
	p := &scriptedProvider{switchErrs: []error{providerErr(types.ProviderCodeUserRejected)}}
	_, err := NewGate(types.LineaMainnet, p, nil).EnsureNetwork(context.Background())

	var me *types.MintError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, types.ErrorKindUserRejected, me.Kind)
	assert.Equal(t, "Network switch was rejected in your wallet.", me.Message)
	assert.Equal(t, 0, p.addCalls)
}

func TestEnsureNetworkGenericFailure(t *testing.T) {
	p := &scriptedProvider{switchErrs: []error{errors.New("socket closed")}}
	_, err := NewGate(types.LineaMainnet, p, nil).EnsureNetwork(context.Background())

	var me *types.MintError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, types.ErrorKindSwitchFailed, me.Kind)
	assert.Equal(t, 1, p.switchCalls)
}

func TestEnsureNetworkWithoutProvider(t *testing.T) {
	_, err := NewGate(types.LineaMainnet, nil, nil).EnsureNetwork(context.Background())

	var me *types.MintError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, types.ErrorKindProviderUnavailable, me.Kind)
}
