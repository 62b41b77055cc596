package transaction

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sipflow/callcore/dialog"
	"github.com/sipflow/callcore/metrics"
	"github.com/sipflow/callcore/service"
	"github.com/sipflow/callcore/sip"
	"github.com/sipflow/callcore/transport"
)

func newInviteRequest(t *testing.T) *sip.Request {
	t.Helper()
	ruri := sip.Uri{User: "bob", Host: "biloxi.com"}
	from := &sip.FromHeader{NameAddr: sip.NameAddr{Address: sip.Uri{User: "alice", Host: "atlanta.com"}, Params: sip.NewParams()}}
	from.Params.Add("tag", "fromtag")
	to := &sip.ToHeader{NameAddr: sip.NameAddr{Address: ruri, Params: sip.NewParams()}}
	req := sip.NewRequest(sip.INVITE, ruri, from, to, sip.CallIDHeader("call-xyz"), 1)
	via := sip.NewViaHeader("UDP", "pc33.atlanta.com", 5060)
	via.Params.Add("branch", sip.GenerateBranch())
	req.PrependVia(via)
	req.SetTransport("UDP")
	return req
}

type testRig struct {
	call *Call
	lb   *transport.Loopback
	dlg  *dialog.Memory
}

func newTestCall(t *testing.T) *testRig {
	t.Helper()
	lb := transport.NewLoopback()
	dlg := dialog.NewMemory()
	m := metrics.New(prometheus.NewRegistry())
	call := NewCall("svc-1", lb, dlg, service.NoOp{}, m, zerolog.Nop())
	return &testRig{call: call, lb: lb, dlg: dlg}
}

// newInviteTrans builds an invite_calling transaction already registered on
// the rig's Call, transport "udp" unless overridden.
func newInviteTrans(t *testing.T, rig *testRig, transportName string) *Trans {
	t.Helper()
	req := newInviteRequest(t)
	req.SetTransport(transportName)
	key, ok := req.TxKey()
	require.True(t, ok)
	tr := &Trans{
		ID:        key,
		Method:    sip.INVITE,
		Transport: transportName,
		From:      Origin{Kind: OriginUser},
		Opts:      map[string]string{},
		Request:   req,
		Status:    StatusInviteCalling,
	}
	rig.call.AddTrans(tr)
	rig.call.ArmInitialTimers(tr)
	return tr
}

func responseTo(t *testing.T, req *sip.Request, code int, reason, toTag string) *sip.Response {
	t.Helper()
	return sip.NewResponseFromRequest(req, code, reason, toTag)
}
