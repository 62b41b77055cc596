package proxy

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/sipflow/callcore/sip"
	"github.com/sipflow/callcore/transport"
)

// Relay is the Stateless Relay (spec §4.4): it forwards requests with a
// deterministic Via and returns responses by popping the Via it added,
// without retaining any per-request state.
type Relay struct {
	Sender transport.Sender
	Log    zerolog.Logger
}

func NewRelay(sender transport.Sender, log zerolog.Logger) *Relay {
	return &Relay{Sender: sender, Log: log}
}

// Forward implements the request path: set R-URI to uri, augment opts
// with a deterministic Via (stateless_via), and hand off to transport.
func (r *Relay) Forward(ctx context.Context, req *sip.Request, uri sip.Uri, _ map[string]string) error {
	out := req.Clone()
	out.RequestURI = uri.StripExt()

	via := sip.NewViaHeader(out.Transport(), uri.Host, uri.Port)
	via.Params.Add("branch", sip.GenerateBranch())
	out.PrependVia(via)

	_, err := r.Sender.SendRequest(ctx, out, transport.Options{StatelessVia: true})
	if err != nil {
		r.Log.Debug().Err(err).Str("uri", uri.String()).Msg("stateless relay: send_request failed")
		return err
	}
	return nil
}

// Return implements the response path: drop unforwardable/malformed
// responses, otherwise read the return destination off our own top Via
// (the one the request picked up transiting through us, "received"/"rport"
// recorded by whoever accepted it from the wire), pop it, and send by the
// remaining Via stack over a fresh association.
func (r *Relay) Return(ctx context.Context, resp *sip.Response) error {
	if resp.StatusCode < 101 {
		r.Log.Debug().Int("code", resp.StatusCode).Msg("stateless relay: dropping unforwardable response")
		return nil
	}

	if len(resp.Via) < 2 {
		r.Log.Warn().Int("vias", len(resp.Via)).Msg("stateless relay: response missing second Via, dropping")
		return nil
	}

	ours, ok := resp.PopVia()
	if !ok {
		return nil
	}
	next, _ := resp.Top()

	dest, port := destinationFromVia(ours, next)

	return r.Sender.SendResponse(ctx, resp, transport.Options{RewriteDest: dest, RewritePort: port})
}

// destinationFromVia reads the host/port a response should be sent to per
// spec §4.4: "received"/"rport" off the relay's own (just-popped) Via,
// falling back to that Via's own host and the next Via's port.
func destinationFromVia(ours, next *sip.ViaHeader) (host string, port int) {
	host = ours.Host
	if received, ok := ours.Params.Get("received"); ok && received != "" {
		host = received
	}
	port = ours.Port
	if rport, ok := ours.Params.Get("rport"); ok && rport != "" {
		if p, err := strconv.Atoi(rport); err == nil {
			port = p
		}
	} else if next != nil {
		port = next.Port
	}
	return host, port
}
