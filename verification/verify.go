// Package verification checks whether an address has completed the external
// humanity verification and caches the result for the current address.
package verification

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/ticketmint/logger"
	"github.com/vitwit/ticketmint/metrics"
	"github.com/vitwit/ticketmint/types"
)

// maxBodySize bounds the plain-text response; the service answers "true" or "false".
const maxBodySize = 1 << 10

// Verifier queries the verification service and holds the tri-state result
// for one address at a time.
type Verifier struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
	metrics    metrics.Recorder

	mu         sync.Mutex
	address    common.Address
	status     types.VerificationStatus
	checking   bool
	generation uint64
}

type Option func(*Verifier)

func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) {
		v.httpClient = c
	}
}

func WithLogger(l logger.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger.OrNoop(l)
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(v *Verifier) {
		v.metrics = metrics.OrNoop(r)
	}
}

// NewVerifier creates a verifier for the service at baseURL. The address is
// appended as the last path segment.
func NewVerifier(baseURL string, opts ...Option) *Verifier {
	v := &Verifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.NoopLogger{},
		metrics:    metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Check resets the status of addr to unknown, queries the service and records
// the answer. A failed query leaves the status unknown and returns the error.
// If another address was checked or invalidated in the meantime the answer is
// returned but not recorded.
func (v *Verifier) Check(ctx context.Context, addr common.Address) (types.VerificationStatus, error) {
	return v.Resolve(ctx, addr, v.Begin(addr))
}

// Begin makes addr the tracked address, marks a check in flight and returns
// its generation. Callers that must decide under their own lock whether a
// check still applies call Begin there and Resolve afterwards.
func (v *Verifier) Begin(addr common.Address) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.generation++
	v.address = addr
	v.status = types.VerificationUnknown
	v.checking = true
	return v.generation
}

// Resolve queries the service for addr and records the answer only if gen is
// still the latest generation.
func (v *Verifier) Resolve(ctx context.Context, addr common.Address, gen uint64) (types.VerificationStatus, error) {
	start := time.Now()
	status, err := v.fetch(ctx, addr)
	metrics.Since(v.metrics, "verification_check", start, err)

	v.mu.Lock()
	current := v.generation == gen
	if current {
		v.status = status
		v.checking = false
	}
	v.mu.Unlock()

	if !current {
		v.logger.Debug("discarding stale verification result", map[string]any{"address": addr.Hex()})
	}
	if err != nil {
		v.logger.Warn("verification check failed", map[string]any{"address": addr.Hex(), "error": err})
		return types.VerificationUnknown, err
	}

	v.logger.Debug("verification checked", map[string]any{"address": addr.Hex(), "status": status.String()})
	return status, nil
}

func (v *Verifier) fetch(ctx context.Context, addr common.Address) (types.VerificationStatus, error) {
	url := fmt.Sprintf("%s/%s", v.baseURL, addr.Hex())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.VerificationUnknown, fmt.Errorf("failed to build verification request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return types.VerificationUnknown, fmt.Errorf("verification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.VerificationUnknown, fmt.Errorf("verification service returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return types.VerificationUnknown, fmt.Errorf("failed to read verification response: %w", err)
	}

	if strings.EqualFold(strings.TrimSpace(string(body)), "true") {
		return types.VerificationVerified, nil
	}
	return types.VerificationRejected, nil
}

// Status returns the recorded status for addr. Any address other than the
// one last checked or invalidated is unknown.
func (v *Verifier) Status(addr common.Address) types.VerificationStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	if addr != v.address {
		return types.VerificationUnknown
	}
	return v.status
}

// Checking reports whether a check for addr is in flight.
func (v *Verifier) Checking(addr common.Address) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.checking && addr == v.address
}

// Invalidate makes addr the tracked address with an unknown status and
// discards any in-flight result.
func (v *Verifier) Invalidate(addr common.Address) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.generation++
	v.address = addr
	v.status = types.VerificationUnknown
	v.checking = false
}

// Reset forgets the tracked address.
func (v *Verifier) Reset() {
	v.Invalidate(common.Address{})
}
