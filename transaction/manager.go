package transaction

import (
	"context"
	"fmt"

	"github.com/sipflow/callcore/proxy"
	"github.com/sipflow/callcore/sip"
	"github.com/sipflow/callcore/transport"
)

// SpawnFork is the transaction manager spec §4.3 describes but places out
// of the Proxy Router's own responsibility ("The fork result is a tuple the
// transaction manager uses to spawn child UAC transactions; the Proxy
// Router itself does not spawn them"): given a Fork-kind proxy.Result, it
// builds one child client transaction per destination in the first
// non-empty parallel group and sends each over the transport, registering
// them on call with OriginFork pointing at a shared fork group id.
//
// Serial fallover across later groups in the URI set (trying the next
// group only if every branch of the current one fails) is not implemented
// here: spec §4.3/§4.5 define the per-transaction state machine in full but
// leave fork-group sequencing contract-only ("the transaction manager uses
// [the tuple] to spawn"), so this is the minimal spawn this core commits to.
func SpawnFork(ctx context.Context, call *Call, res proxy.Result) ([]*Trans, error) {
	if res.Kind != proxy.Fork {
		return nil, fmt.Errorf("transaction: SpawnFork called on non-fork result (kind=%v)", res.Kind)
	}

	group, hasGroup := firstGroup(res.UriSet)
	if !hasGroup {
		return nil, nil
	}

	parentID := forkGroupID(res.Request)

	children := make([]*Trans, 0, len(group))
	for _, uri := range group {
		tr, err := spawnBranch(ctx, call, res.Request, uri, res.Opts, parentID)
		if err != nil {
			call.Log.Warn().Err(err).Str("uri", uri.String()).Msg("uac: fork branch send failed")
			continue
		}
		children = append(children, tr)
	}
	return children, nil
}

func spawnBranch(ctx context.Context, call *Call, req *sip.Request, uri sip.Uri, opts map[string]string, parentID string) (*Trans, error) {
	out := req.Clone()
	out.RequestURI = uri.StripExt()
	via := sip.NewViaHeader(out.Transport(), localViaHost(out), 0)
	via.Params.Add("branch", sip.GenerateBranch())
	out.PrependVia(via)

	sent, err := call.Sender.SendRequest(ctx, out, transport.Options{})
	if err != nil {
		return nil, err
	}

	key, ok := sent.TxKey()
	if !ok {
		return nil, fmt.Errorf("transaction: sent request has no branch to key a transaction by")
	}

	tr := &Trans{
		ID:        key,
		Method:    sent.Method,
		Transport: sent.Transport(),
		From:      Origin{Kind: OriginFork, ParentTransID: parentID},
		Opts:      opts,
		Request:   sent,
		Status:    initialStatus(sent.Method),
	}
	call.AddTrans(tr)
	call.ArmInitialTimers(tr)
	return tr, nil
}

func initialStatus(method sip.RequestMethod) Status {
	if method == sip.INVITE {
		return StatusInviteCalling
	}
	return StatusTrying
}

func firstGroup(set sip.UriSet) ([]sip.Uri, bool) {
	for _, group := range set {
		if len(group) > 0 {
			return group, true
		}
	}
	return nil, false
}

func forkGroupID(req *sip.Request) string {
	if req == nil || req.CSeqHdr == nil {
		return ""
	}
	return string(req.CallIDHdr) + "/" + req.CSeqHdr.Value()
}

// localViaHost is a placeholder local-hop host; a real deployment's
// transport layer owns the actual bound address (spec §1 names transport
// as an external collaborator). It is the request's Source address when
// one is set, otherwise "0.0.0.0", until wired to a real listener.
func localViaHost(req *sip.Request) string {
	if host := req.Source(); host != "" {
		return host
	}
	return "0.0.0.0"
}
