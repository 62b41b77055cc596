package dialog

import (
	"context"
	"sync"

	"github.com/sipflow/callcore/sip"
)

// Invocation records one Invoke call, for assertions in tests.
type Invocation struct {
	DialogID string
	Method   sip.RequestMethod
	Opts     map[string]string
}

// Memory is an in-memory reference Subsystem: it tracks which dialog ids
// have been updated and records every Invoke/AuthUpdate/RemoveProvEvent
// call, but does not model dialog state machines, re-INVITEs, or session
// timers — those remain out of scope.
type Memory struct {
	mu sync.Mutex

	updated      map[string]int
	authUpdated  map[string]int
	provRemoved  int
	invocations  []Invocation

	// FailInvoke, if set, is returned by Invoke instead of recording.
	FailInvoke error
}

func NewMemory() *Memory {
	return &Memory{
		updated:     make(map[string]int),
		authUpdated: make(map[string]int),
	}
}

func (m *Memory) Update(_ context.Context, req *sip.Request, resp *sip.Response, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := dialogIDOf(req, resp)
	m.updated[id]++
	return nil
}

func (m *Memory) AuthUpdate(_ context.Context, dialogID string, _ *sip.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authUpdated[dialogID]++
	return nil
}

func (m *Memory) RemoveProvEvent(_ context.Context, _ *sip.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.provRemoved++
	return nil
}

func (m *Memory) Invoke(_ context.Context, dialogID string, method sip.RequestMethod, opts map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailInvoke != nil {
		return m.FailInvoke
	}
	m.invocations = append(m.invocations, Invocation{DialogID: dialogID, Method: method, Opts: opts})
	return nil
}

func (m *Memory) Invocations() []Invocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Invocation(nil), m.invocations...)
}

func (m *Memory) UpdateCount(dialogID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updated[dialogID]
}

func dialogIDOf(req *sip.Request, resp *sip.Response) string {
	callID := string(req.CallIDHdr)
	fromTag, _ := req.FromHdr.Tag()
	toTag, _ := resp.ToHdr.Tag()
	return sip.DialogIDMake(callID, fromTag, toTag)
}
