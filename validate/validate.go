// Package validate implements the Request Validator (spec §4.2): the
// Max-Forwards decrement/exhaustion rules and the Path extension check
// that gate every request before the Proxy Router forks or relays it.
package validate

import (
	"errors"
	"strings"

	"github.com/sipflow/callcore/sip"
)

// Sentinel failure kinds a caller branches on; Failure itself carries
// enough to build the reply spec via reply_build (out of scope here).
var (
	ErrTooManyHops       = errors.New("validate: too many hops")
	ErrInvalidRequest    = errors.New("validate: invalid request")
	ErrExtensionRequired = errors.New("validate: extension required")
)

// Options are the opts a caller passes alongside the request; spec §4.2
// rule 5 keys off the "path" entry.
type Options struct {
	Path bool
}

// Failure is the {reply, spec} outcome of a failed check: either a
// synthesized success (the zero-Max-Forwards OPTIONS case) or an error
// classifying which sentinel applies, plus any data reply_build needs.
type Failure struct {
	Err        error
	Extension  string   // set when Err is ErrExtensionRequired
	Reason     string   // reason phrase to use when synthesizing a response
	Synthesize *sip.Response
}

func (f *Failure) Error() string {
	if f.Extension != "" {
		return f.Err.Error() + ": " + f.Extension
	}
	return f.Err.Error()
}

// Check runs the validator rules in order and returns either the mutated
// request (Max-Forwards decremented) or a Failure describing the reply to
// send instead.
func Check(req *sip.Request, opts Options) (*sip.Request, *Failure) {
	switch {
	case req.MaxForwards > 0:
		req.MaxForwards--
	case req.MaxForwards == 0 && req.Method == sip.OPTIONS:
		resp := NewMaxForwardsResponse(req)
		return nil, &Failure{Err: ErrTooManyHops, Reason: "Max Forwards", Synthesize: resp}
	case req.MaxForwards == 0:
		return nil, &Failure{Err: ErrTooManyHops}
	default:
		return nil, &Failure{Err: ErrInvalidRequest}
	}

	if opts.Path {
		if !requestSupports(req, "path") {
			return nil, &Failure{Err: ErrExtensionRequired, Extension: "path"}
		}
	}

	return req, nil
}

// NewMaxForwardsResponse builds the synthesized 200 OK a zero-Max-Forwards
// OPTIONS request gets in place of a forwarding attempt (spec §4.2 rule 2):
// reason phrase "Max Forwards", carrying Supported/Accept/Allow.
func NewMaxForwardsResponse(req *sip.Request) *sip.Response {
	resp := sip.NewResponseFromRequest(req, 200, "Max Forwards", "")
	resp.AppendHeader(sip.NewTokenListHeader("Supported", "path", "100rel"))
	resp.AppendHeader(sip.NewTokenListHeader("Accept", "application/sdp"))
	resp.AppendHeader(sip.NewTokenListHeader("Allow",
		string(sip.INVITE), string(sip.ACK), string(sip.CANCEL), string(sip.BYE), string(sip.OPTIONS)))
	return resp
}

// requestSupports reports whether req's Supported header lists token.
func requestSupports(req *sip.Request, token string) bool {
	h, ok := req.HeaderByName("Supported")
	if !ok {
		return false
	}
	if tl, ok := h.(*sip.TokenListHeader); ok {
		return tl.Has(token)
	}
	return strings.Contains(strings.ToLower(h.Value()), strings.ToLower(token))
}
