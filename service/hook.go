// Package service defines the extension/service-dispatch hook spec §6
// names srv_invoke(hook, args): a point the Proxy Router and the UAC
// state machine call out to before committing to a decision, so an
// embedding application can observe or override it.
package service

import "context"

// Hook names this core invokes (spec §4.3, §4.5).
const (
	HookRoute       = "nksip_route"
	HookUACResponse = "nksip_uac_response"
)

// Disposition is the tag half of a Result.
type Disposition int

const (
	// Continue proceeds with (possibly modified) Args.
	Continue Disposition = iota
	// Reply short-circuits with a reply spec.
	Reply
	// Ok short-circuits silently.
	Ok
)

// Args is the hook call's payload; fields are populated by the caller and
// may be rewritten by the hook when it returns Continue.
type Args struct {
	UriSet  any
	Opts    map[string]string
	Request any
	Call    any
	// Extra carries any field neither the router nor the UAC machine
	// declare a dedicated slot for.
	Extra map[string]any
}

// ReplySpec is an opaque reply description; the caller interprets it via
// reply_build (out of scope here, spec §6 "Reply sink").
type ReplySpec struct {
	Code   int
	Reason string
	Fields map[string]any
}

// Result is what a Hook invocation returns.
type Result struct {
	Disposition Disposition
	Args        Args
	Reply       ReplySpec
}

// Hook is the srv_invoke(hook, args) contract.
type Hook interface {
	Invoke(ctx context.Context, name string, args Args) (Result, error)
}

// NoOp is the default Hook: every call continues unmodified. Embedding
// applications register their own Hook to observe or override routing.
type NoOp struct{}

func (NoOp) Invoke(_ context.Context, _ string, args Args) (Result, error) {
	return Result{Disposition: Continue, Args: args}, nil
}
