package orchestrator

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/vitwit/ticketmint/clients"
	"github.com/vitwit/ticketmint/types"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")

	// 0.01 ETH
	testPrice = new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)
)

type fakeProvider struct {
	mu           sync.Mutex
	accounts     []common.Address
	exposed      bool
	chainID      string
	balance      *big.Int
	balanceErr   error
	balanceReads int
	requestErr   error
	requests     int
	reqStarted   chan struct{}
	reqBlock     chan struct{}
	switchErrs   []error
	addErr       error
	added        int
	listener     clients.Listener
}

func (p *fakeProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	p.requests++
	started, block := p.reqStarted, p.reqBlock
	p.mu.Unlock()

	if started != nil {
		close(started)
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.requestErr != nil {
		return nil, p.requestErr
	}
	p.exposed = true
	return append([]common.Address(nil), p.accounts...), nil
}

func (p *fakeProvider) Accounts(context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.exposed {
		return []common.Address{}, nil
	}
	return append([]common.Address(nil), p.accounts...), nil
}

func (p *fakeProvider) ChainID(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chainID, nil
}

func (p *fakeProvider) SwitchChain(_ context.Context, id types.ChainID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.switchErrs) > 0 {
		err := p.switchErrs[0]
		p.switchErrs = p.switchErrs[1:]
		if err != nil {
			return err
		}
	}
	p.chainID = id.Hex()
	return nil
}

func (p *fakeProvider) AddChain(context.Context, types.ChainDescriptor) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.added++
	return p.addErr
}

func (p *fakeProvider) BalanceAt(context.Context, common.Address) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balanceReads++
	if p.balanceErr != nil {
		return nil, p.balanceErr
	}
	if p.balance == nil {
		return new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil), nil
	}
	return new(big.Int).Set(p.balance), nil
}

func (p *fakeProvider) balanceReadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balanceReads
}

func (p *fakeProvider) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}

func (p *fakeProvider) Subscribe(l clients.Listener) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = l
	return func() {
		p.mu.Lock()
		p.listener = nil
		p.mu.Unlock()
	}
}

type mintCall struct {
	from     common.Address
	quantity uint64
	value    *big.Int
}

type fakeSale struct {
	mu          sync.Mutex
	price       *big.Int
	maxPerTx    uint64
	totalSupply uint64
	configErr   error
	mints       map[common.Address]uint64
	free        map[common.Address]uint64
	freeReads   int
	freeHook    func(common.Address)
	mintErr     error
	mintStarted chan struct{}
	mintBlock   chan struct{}
	minted      []mintCall
}

func newFakeSale() *fakeSale {
	return &fakeSale{
		price:    new(big.Int).Set(testPrice),
		maxPerTx: 10,
		mints:    map[common.Address]uint64{},
		free:     map[common.Address]uint64{},
	}
}

func (s *fakeSale) MintPrice(context.Context) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.configErr != nil {
		return nil, s.configErr
	}
	return new(big.Int).Set(s.price), nil
}

func (s *fakeSale) MaxPerTx(context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxPerTx, nil
}

func (s *fakeSale) MaxPerWallet(context.Context) (uint64, error)     { return 50, nil }
func (s *fakeSale) MaxSupply(context.Context) (uint64, error)        { return 1000, nil }
func (s *fakeSale) TicketsPerWindow(context.Context) (uint64, error) { return 100, nil }

func (s *fakeSale) TotalSupply(context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalSupply, nil
}

func (s *fakeSale) WalletMints(_ context.Context, a common.Address) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mints[a], nil
}

func (s *fakeSale) PreviewFreeMints(_ context.Context, a common.Address) (uint64, error) {
	s.mu.Lock()
	hook := s.freeHook
	s.freeReads++
	s.mu.Unlock()

	if hook != nil {
		hook(a)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.free[a], nil
}

func (s *fakeSale) setFree(a common.Address, n uint64) {
	s.mu.Lock()
	s.free[a] = n
	s.mu.Unlock()
}

func (s *fakeSale) freeReadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.freeReads
}

func (s *fakeSale) MintTickets(ctx context.Context, from common.Address, quantity uint64, value *big.Int) (*gethtypes.Transaction, error) {
	s.mu.Lock()
	started, block, err := s.mintStarted, s.mintBlock, s.mintErr
	s.mu.Unlock()

	if started != nil {
		close(started)
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.minted = append(s.minted, mintCall{from: from, quantity: quantity, value: new(big.Int).Set(value)})
	s.mints[from] += quantity
	s.totalSupply += quantity
	free := s.free[from]
	if free > quantity {
		free = quantity
	}
	s.free[from] -= free
	return gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    uint64(len(s.minted)),
		Value:    value,
		Gas:      120000,
		GasPrice: big.NewInt(1),
	}), nil
}

func (s *fakeSale) WaitMined(context.Context, *gethtypes.Transaction) (*gethtypes.Receipt, error) {
	return &gethtypes.Receipt{Status: gethtypes.ReceiptStatusSuccessful, BlockNumber: big.NewInt(42)}, nil
}

func (s *fakeSale) mintCalls() []mintCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mintCall(nil), s.minted...)
}

// pohService answers humanity checks per address.
type pohService struct {
	mu      sync.Mutex
	answers map[common.Address]string
	failing map[common.Address]bool
	hits    map[common.Address]int
}

func newPoHService(t *testing.T) (*pohService, *httptest.Server) {
	t.Helper()
	svc := &pohService{
		answers: map[common.Address]string{},
		failing: map[common.Address]bool{},
		hits:    map[common.Address]int{},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := common.HexToAddress(path.Base(r.URL.Path))
		svc.mu.Lock()
		svc.hits[addr]++
		answer, failing := svc.answers[addr], svc.failing[addr]
		svc.mu.Unlock()

		if failing {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if answer == "" {
			answer = "false"
		}
		_, _ = w.Write([]byte(answer))
	}))
	t.Cleanup(srv.Close)
	return svc, srv
}

func (s *pohService) set(a common.Address, answer string) {
	s.mu.Lock()
	s.answers[a] = answer
	s.mu.Unlock()
}

func (s *pohService) fail(a common.Address) {
	s.mu.Lock()
	s.failing[a] = true
	s.mu.Unlock()
}

func (s *pohService) hitCount(a common.Address) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[a]
}

// recordingMetrics counts IncCounter calls by name and outcome.
type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *recordingMetrics) IncCounter(name string, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[name+"/"+labels["outcome"]]++
}

func (r *recordingMetrics) ObserveLatency(string, time.Duration, map[string]string) {}

func (r *recordingMetrics) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}
