package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/vitwit/ticketmint/clients"
)

// terminalApprover asks on the terminal before the wallet exposes accounts,
// changes chain or signs.
type terminalApprover struct {
	mu   sync.Mutex
	in   *bufio.Reader
	out  io.Writer
	auto bool
}

func newTerminalApprover(in *bufio.Reader, out io.Writer, auto bool) *terminalApprover {
	return &terminalApprover{in: in, out: out, auto: auto}
}

func (a *terminalApprover) Approve(ctx context.Context, req clients.ApprovalRequest) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.auto {
		fmt.Fprintf(a.out, "Approved %s: %s\n", req.Method, req.Summary)
		return true
	}
	if ctx.Err() != nil {
		return false
	}

	fmt.Fprintf(a.out, "Wallet request %s: %s. Approve? [y/N] ", req.Method, req.Summary)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(a.out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// printPortal prints the verification URL instead of opening a browser.
type printPortal struct {
	out io.Writer
}

func (p printPortal) Open(url string) error {
	_, err := fmt.Fprintf(p.out, "Open %s in your browser to complete Proof of Humanity.\n", url)
	return err
}
