// Package transport defines the transport-layer contract the core consumes
// (spec §1: "Transport layer ... consumed as send_request, resend_request,
// send_response") and a loopback double for tests. No real socket code
// lives here — opening UDP/TCP/TLS connections is out of scope.
package transport

import (
	"context"
	"errors"

	"github.com/sipflow/callcore/sip"
)

// ErrNoRoute is returned by a Sender that cannot reach the given
// destination at all (as opposed to a response arriving late/never).
var ErrNoRoute = errors.New("transport: no route to destination")

// Options carries per-send hints. StatelessVia tells the sender to
// compute a deterministic Via branch from the message, so a later response
// can be matched without any retained per-request state (spec §4.4).
// RewriteDest/RewritePort, when RewriteDest is non-empty, tell SendResponse
// to route to that destination over a fresh association rather than
// reusing the socket the request arrived on (spec §4.4's response path:
// the UAS-side socket cannot reach the upstream client).
type Options struct {
	StatelessVia bool
	RewriteDest  string
	RewritePort  int
}

// Sender is the outbound half of the transport contract.
type Sender interface {
	// SendRequest transmits req and returns the request as actually sent
	// (e.g. with a transport-assigned Via filled in).
	SendRequest(ctx context.Context, req *sip.Request, opts Options) (*sip.Request, error)

	// ResendRequest retransmits a request already sent once; used for
	// UDP retransmission and non-2xx ACK delivery.
	ResendRequest(ctx context.Context, req *sip.Request, opts Options) error

	// SendResponse transmits a response, routed by its Via stack.
	SendResponse(ctx context.Context, resp *sip.Response, opts Options) error
}
