package orchestrator

import "github.com/vitwit/ticketmint/types"

// Banner holds at most one error and one success message. Setting one clears
// the other.
type Banner struct {
	Error   string `json:"error,omitempty"`
	Success string `json:"success,omitempty"`
}

func (b *Banner) setError(msg string) {
	b.Error = msg
	b.Success = ""
}

func (b *Banner) setSuccess(msg string) {
	b.Success = msg
	b.Error = ""
}

// advise shows msg only when no error is displayed already.
func (b *Banner) advise(msg string) {
	if b.Error == "" {
		b.setError(msg)
	}
}

func (b *Banner) clear() {
	*b = Banner{}
}

func (o *Orchestrator) clearBanner() {
	o.mu.Lock()
	o.banner.clear()
	o.mu.Unlock()
}

func (o *Orchestrator) setSuccess(msg string) {
	o.mu.Lock()
	o.banner.setSuccess(msg)
	o.mu.Unlock()
}

// reportError shows err in the banner and returns it.
func (o *Orchestrator) reportError(err *types.MintError) error {
	o.mu.Lock()
	o.banner.setError(err.Message)
	o.mu.Unlock()
	return err
}

// Banner returns the messages currently shown.
func (o *Orchestrator) Banner() Banner {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.banner
}
