// Package proxy implements the Proxy Router (spec §4.3) and the Stateless
// Relay (spec §4.4): the decision of whether a request is forked
// statefully, forwarded statelessly, or answered directly, and the
// Via-based mechanics of the stateless path.
package proxy

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/sipflow/callcore/metrics"
	"github.com/sipflow/callcore/service"
	"github.com/sipflow/callcore/sip"
	"github.com/sipflow/callcore/uriset"
	"github.com/sipflow/callcore/validate"
)

// Kind tags a Result's disposition, the three outcomes spec §4.3 names.
type Kind int

const (
	// Fork carries a request plus destination set for the transaction
	// manager to spawn child UAC transactions over; the router itself
	// never spawns them.
	Fork Kind = iota
	// Reply short-circuits with a response to send back upstream.
	Reply
	// NoReply means the router fully handled the request itself (the
	// stateless relay path) and nothing further is owed.
	NoReply
)

// Result is what Route returns.
type Result struct {
	Kind Kind

	// Fork fields.
	Request *sip.Request
	UriSet  sip.UriSet
	Opts    map[string]string

	// Reply fields.
	ReplyResp *sip.Response
}

var (
	ErrTemporarilyUnavailable = errors.New("proxy: temporarily unavailable")
	ErrBadExtension           = errors.New("proxy: bad extension")
)

// Router orchestrates the normalizer, validator, and service hook
// (spec §4.3 step-by-step) to decide fork vs reply vs stateless relay.
type Router struct {
	Hook    service.Hook
	Relay   *Relay
	Metrics *metrics.Registry
	Log     zerolog.Logger
}

// NewRouter builds a Router with hook defaulting to a no-op when nil.
func NewRouter(hook service.Hook, relay *Relay, m *metrics.Registry, log zerolog.Logger) *Router {
	if hook == nil {
		hook = service.NoOp{}
	}
	return &Router{Hook: hook, Relay: relay, Metrics: m, Log: log}
}

// Route implements spec §4.3's algorithm. uriList is whatever shape the
// caller handed in (see uriset.Normalize); opts carries string flags such
// as "stateless" and "path"; req is the UAS-side request being routed.
func (r *Router) Route(ctx context.Context, uriList any, opts map[string]string, req *sip.Request) (Result, error) {
	if opts == nil {
		opts = map[string]string{}
	}

	set := uriset.Normalize(uriList)
	if set.Empty() {
		return r.replyTemporarilyUnavailable(req), nil
	}

	hookArgs := service.Args{UriSet: set, Opts: opts, Request: req}
	hookRes, err := r.Hook.Invoke(ctx, service.HookRoute, hookArgs)
	if err != nil {
		return Result{}, err
	}
	switch hookRes.Disposition {
	case service.Reply:
		return Result{Kind: Reply, ReplyResp: replyFromSpec(req, hookRes.Reply)}, nil
	case service.Ok:
		return Result{Kind: NoReply}, nil
	}
	if newSet, ok := hookRes.Args.UriSet.(sip.UriSet); ok {
		set = newSet
	}
	if hookRes.Args.Opts != nil {
		opts = hookRes.Args.Opts
	}
	if newReq, ok := hookRes.Args.Request.(*sip.Request); ok && newReq != nil {
		req = newReq
	}

	validated, fail := validate.Check(req, validate.Options{Path: opts["path"] == "true"})
	if fail != nil {
		return r.replyFromFailure(req, fail), nil
	}
	req = validated

	if req.Method == sip.ACK {
		if opts["stateless"] == "true" {
			return r.routeStateless(ctx, req, set, opts)
		}
		return r.fork(req, set, opts), nil
	}

	if pr, ok := req.HeaderByName("Proxy-Require"); ok {
		tokens := pr.Value()
		return Result{Kind: Reply, ReplyResp: badExtensionResponse(req, tokens)}, nil
	}

	if opts["stateless"] == "true" {
		return r.routeStateless(ctx, req, set, opts)
	}
	return r.fork(req, set, opts), nil
}

func (r *Router) fork(req *sip.Request, set sip.UriSet, opts map[string]string) Result {
	if r.Metrics != nil {
		r.Metrics.ForksTotal.Inc()
	}
	return Result{Kind: Fork, Request: req, UriSet: set, Opts: opts}
}

func (r *Router) routeStateless(ctx context.Context, req *sip.Request, set sip.UriSet, opts map[string]string) (Result, error) {
	if r.Relay == nil {
		return Result{}, errors.New("proxy: stateless routing requested but no Relay configured")
	}
	first, ok := set.First()
	if !ok {
		return r.replyTemporarilyUnavailable(req), nil
	}
	if r.Metrics != nil {
		r.Metrics.RelaysTotal.Inc()
	}
	if err := r.Relay.Forward(ctx, req, first, opts); err != nil {
		return Result{}, err
	}
	return Result{Kind: NoReply}, nil
}

func (r *Router) replyTemporarilyUnavailable(req *sip.Request) Result {
	resp := sip.NewResponseFromRequest(req, 480, "Temporarily Unavailable", "")
	return Result{Kind: Reply, ReplyResp: resp}
}

func (r *Router) replyFromFailure(req *sip.Request, fail *validate.Failure) Result {
	if fail.Synthesize != nil {
		return Result{Kind: Reply, ReplyResp: fail.Synthesize}
	}
	switch {
	case errors.Is(fail.Err, validate.ErrTooManyHops):
		return Result{Kind: Reply, ReplyResp: sip.NewResponseFromRequest(req, 483, "Too Many Hops", "")}
	case errors.Is(fail.Err, validate.ErrExtensionRequired):
		resp := sip.NewResponseFromRequest(req, 421, "Extension Required", "")
		resp.AppendHeader(sip.NewTokenListHeader("Require", fail.Extension))
		return Result{Kind: Reply, ReplyResp: resp}
	default:
		return Result{Kind: Reply, ReplyResp: sip.NewResponseFromRequest(req, 400, "Bad Request", "")}
	}
}

func badExtensionResponse(req *sip.Request, tokens string) *sip.Response {
	resp := sip.NewResponseFromRequest(req, 420, "Bad Extension", "")
	resp.AppendHeader(&sip.GenericHeader{HeaderName: "Unsupported", Contents: tokens})
	return resp
}

func replyFromSpec(req *sip.Request, spec service.ReplySpec) *sip.Response {
	code := spec.Code
	if code == 0 {
		code = 500
	}
	reason := spec.Reason
	if reason == "" {
		reason = "Server Error"
	}
	return sip.NewResponseFromRequest(req, code, reason, "")
}
