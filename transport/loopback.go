package transport

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/sipflow/callcore/sip"
)

// Loopback is a recording, in-memory Sender for tests: it never touches a
// socket, just appends everything handed to it, grounded on the teacher's
// connRecorder test double.
type Loopback struct {
	mu            sync.Mutex
	requests      []*sip.Request
	resends       []*sip.Request
	responses     []*sip.Response
	responseSends []Options

	// FailSend/FailResend, if set, are returned instead of recording.
	FailSend   error
	FailResend error
}

func NewLoopback() *Loopback {
	return &Loopback{}
}

func (l *Loopback) SendRequest(_ context.Context, req *sip.Request, opts Options) (*sip.Request, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailSend != nil {
		return nil, l.FailSend
	}
	sent := req.Clone()
	if opts.StatelessVia {
		if via, ok := sent.Top(); ok {
			h := fnv.New64a()
			h.Write([]byte(sent.RequestURI.String()))
			h.Write([]byte(sent.CallIDHdr))
			if b, ok := via.Branch(); ok {
				h.Write([]byte(b))
			}
			via.Params.Add("branch", sip.RFC3261BranchMagicCookie+"."+strconv.FormatUint(h.Sum64(), 36))
		}
	}
	l.requests = append(l.requests, sent)
	return sent, nil
}

func (l *Loopback) ResendRequest(_ context.Context, req *sip.Request, _ Options) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailResend != nil {
		return l.FailResend
	}
	l.resends = append(l.resends, req.Clone())
	return nil
}

func (l *Loopback) SendResponse(_ context.Context, resp *sip.Response, opts Options) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.responses = append(l.responses, resp.Clone())
	l.responseSends = append(l.responseSends, opts)
	return nil
}

// ResponseSends returns the Options passed alongside each SendResponse
// call, in order, so tests can assert on the rewritten destination.
func (l *Loopback) ResponseSends() []Options {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Options(nil), l.responseSends...)
}

func (l *Loopback) Requests() []*sip.Request {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*sip.Request(nil), l.requests...)
}

func (l *Loopback) Resends() []*sip.Request {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*sip.Request(nil), l.resends...)
}

func (l *Loopback) Responses() []*sip.Response {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*sip.Response(nil), l.responses...)
}
