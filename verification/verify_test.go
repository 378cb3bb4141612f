package verification

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/ticketmint/types"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func serve(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckVerified(t *testing.T) {
	var path string
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(" true\n"))
	})

	v := NewVerifier(srv.URL + "/poh/v2/")
	status, err := v.Check(context.Background(), alice)

	require.NoError(t, err)
	assert.Equal(t, types.VerificationVerified, status)
	assert.Equal(t, types.VerificationVerified, v.Status(alice))
	assert.Equal(t, "/poh/v2/"+alice.Hex(), path)
	assert.False(t, v.Checking(alice))
}

func TestCheckRejected(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("false"))
	})

	v := NewVerifier(srv.URL)
	status, err := v.Check(context.Background(), alice)

	require.NoError(t, err)
	assert.Equal(t, types.VerificationRejected, status)
	assert.Equal(t, types.VerificationRejected, v.Status(alice))
}

func TestCheckHTTPErrorLeavesUnknown(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})

	v := NewVerifier(srv.URL)
	status, err := v.Check(context.Background(), alice)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, types.VerificationUnknown, status)
	assert.Equal(t, types.VerificationUnknown, v.Status(alice))
	assert.False(t, v.Checking(alice))
}

func TestCheckTransportErrorLeavesUnknown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	v := NewVerifier(url, WithHTTPClient(&http.Client{Timeout: time.Second}))
	status, err := v.Check(context.Background(), alice)

	require.Error(t, err)
	assert.Equal(t, types.VerificationUnknown, status)
}

func TestStatusIsPerAddress(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("true"))
	})

	v := NewVerifier(srv.URL)
	_, err := v.Check(context.Background(), alice)
	require.NoError(t, err)

	assert.Equal(t, types.VerificationUnknown, v.Status(bob))

	v.Invalidate(bob)
	assert.Equal(t, types.VerificationUnknown, v.Status(alice))
	assert.Equal(t, types.VerificationUnknown, v.Status(bob))
}

func TestStaleCheckDoesNotOverwriteNewAddress(t *testing.T) {
	release := make(chan struct{})
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, alice.Hex()) {
			<-release
			_, _ = w.Write([]byte("true"))
			return
		}
		_, _ = w.Write([]byte("false"))
	})

	v := NewVerifier(srv.URL)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = v.Check(context.Background(), alice)
	}()

	require.Eventually(t, func() bool { return v.Checking(alice) }, time.Second, time.Millisecond)

	status, err := v.Check(context.Background(), bob)
	require.NoError(t, err)
	assert.Equal(t, types.VerificationRejected, status)

	close(release)
	wg.Wait()

	assert.Equal(t, types.VerificationRejected, v.Status(bob))
	assert.Equal(t, types.VerificationUnknown, v.Status(alice))
	assert.False(t, v.Checking(bob))
}

func TestCheckMarksUnknownWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte("true"))
	})

	v := NewVerifier(srv.URL)
	v.Invalidate(alice)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = v.Check(context.Background(), alice)
	}()

	require.Eventually(t, func() bool { return v.Checking(alice) }, time.Second, time.Millisecond)
	assert.Equal(t, types.VerificationUnknown, v.Status(alice))

	close(release)
	<-done
	assert.Equal(t, types.VerificationVerified, v.Status(alice))
}

func TestReset(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("true"))
	})
	v := NewVerifier(srv.URL)
	_, err := v.Check(context.Background(), alice)
	require.NoError(t, err)

	v.Reset()
	assert.Equal(t, types.VerificationUnknown, v.Status(alice))
}

func TestResolveRecordsOnlyLatestGeneration(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("true"))
	})
	v := NewVerifier(srv.URL)
	ctx := context.Background()

	old := v.Begin(alice)
	v.Invalidate(bob)
	gen := v.Begin(bob)
	assert.True(t, v.Checking(bob))

	status, err := v.Resolve(ctx, alice, old)
	require.NoError(t, err)
	assert.Equal(t, types.VerificationVerified, status)
	assert.Equal(t, types.VerificationUnknown, v.Status(alice))
	assert.True(t, v.Checking(bob))

	_, err = v.Resolve(ctx, bob, gen)
	require.NoError(t, err)
	assert.Equal(t, types.VerificationVerified, v.Status(bob))
	assert.False(t, v.Checking(bob))
}
