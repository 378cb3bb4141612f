package ticketmint

import (
	"crypto/ecdsa"
	"net/http"
	"time"

	"github.com/vitwit/ticketmint/clients"
	"github.com/vitwit/ticketmint/logger"
	"github.com/vitwit/ticketmint/metrics"
	"github.com/vitwit/ticketmint/orchestrator"
	"github.com/vitwit/ticketmint/types"
)

type Option func(*TicketMint)

func WithLogger(l logger.Logger) Option {
	return func(t *TicketMint) {
		t.logger = logger.OrNoop(l)
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(t *TicketMint) {
		t.metrics = metrics.OrNoop(r)
	}
}

func WithTimeout(d time.Duration) Option {
	return func(t *TicketMint) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithHTTPClient sets the client used for the verification service.
func WithHTTPClient(c *http.Client) Option {
	return func(t *TicketMint) {
		t.httpClient = c
	}
}

// WithKeys sets the accounts of the local wallet; the first one is active.
func WithKeys(keys ...*ecdsa.PrivateKey) Option {
	return func(t *TicketMint) {
		t.keys = append(t.keys, keys...)
	}
}

// WithApprover sets who confirms wallet prompts.
func WithApprover(a clients.Approver) Option {
	return func(t *TicketMint) {
		t.approver = a
	}
}

// WithPortal sets how the verification portal is opened.
func WithPortal(p orchestrator.Portal) Option {
	return func(t *TicketMint) {
		t.portal = p
	}
}

// WithWalletChain starts the wallet on chain instead of the sale chain.
func WithWalletChain(chain types.ChainDescriptor) Option {
	return func(t *TicketMint) {
		t.walletChain = &chain
	}
}
