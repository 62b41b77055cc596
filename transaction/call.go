// Package transaction implements the UAC Response State Machine (spec
// §4.5): the largest component, advancing a Call's client transactions
// through their lifecycle as responses and timers fire. Grounded on the
// teacher's transaction package (transaction.go, client_tx.go,
// client_tx_fsm.go) for naming and timer-arming style, adapted from a
// per-transaction-mutex/goroutine model to the single-actor-per-call model
// spec §5 and §9 describe: a Call is touched by exactly one goroutine at a
// time, so no locks are needed within it.
package transaction

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sipflow/callcore/dialog"
	"github.com/sipflow/callcore/metrics"
	"github.com/sipflow/callcore/service"
	"github.com/sipflow/callcore/sip"
	"github.com/sipflow/callcore/transport"
)

// localSource marks a response this package synthesized itself (the
// `nkport == nil` case spec §3/§4.5 describes: "origin transport handle;
// nil when the message was locally synthesized").
const localSource = "local"

func isLocal(resp *sip.Response) bool {
	return resp.Source() == localSource
}

// LogEntry is one line of a Call's message log (spec §3 "list of recent
// message identifiers (msg_id, trans_id, dialog_id)").
type LogEntry struct {
	MsgID    string
	TransID  string
	DialogID string
}

// ReplyFunc is the reply sink spec §6 names: `reply(resp_event, trans,
// call)`, feeding the calling application. The zero value drops replies
// silently except for a debug log line, useful for tests that only care
// about transaction/timer state and side-effect counts.
type ReplyFunc func(ctx context.Context, resp *sip.Response, tr *Trans)

// Call is the aggregate state spec §3 names: a service id, the owned
// transaction map, a message log, and configured timeouts, plus the
// external collaborators the state machine calls into.
type Call struct {
	ServiceID string

	Trans map[string]*Trans

	// MessageLog holds recent (msg_id, trans_id, dialog_id) triples,
	// most-recent-first.
	MessageLog []LogEntry

	TransTimeout time.Duration

	Sender  transport.Sender
	Dialog  dialog.Subsystem
	Hook    service.Hook
	Metrics *metrics.Registry
	Log     zerolog.Logger

	Reply ReplyFunc

	inbound chan inboundEvent
}

// inboundEvent is one unit of work for a Call's actor loop: either a
// response to run through HandleResponse, or a timer fire to run through
// fireTimer. Keeping both on one channel is what gives spec §5's ordering
// guarantee ("across transactions of the same call, ordering follows actor
// message order") for free.
type inboundEvent struct {
	resp      *sip.Response
	transID   string
	timerKind string
}

// NewCall builds a Call with its defaults filled in (trans_time, hook, a
// ready-to-use transaction map) and a bounded inbound queue for Run.
func NewCall(serviceID string, sender transport.Sender, dlg dialog.Subsystem, hook service.Hook, m *metrics.Registry, log zerolog.Logger) *Call {
	if hook == nil {
		hook = service.NoOp{}
	}
	return &Call{
		ServiceID:    serviceID,
		Trans:        make(map[string]*Trans),
		TransTimeout: DefaultTransTimeout,
		Sender:       sender,
		Dialog:       dlg,
		Hook:         hook,
		Metrics:      m,
		Log:          log,
		inbound:      make(chan inboundEvent, 256),
	}
}

// Run is the Call's actor loop (spec §5 "single-threaded cooperative
// actor"): it processes one inbound event at a time until ctx is
// cancelled, so everything it touches (the transaction map, message log,
// timers) needs no internal locking. Submit/submitTimer feed it; callers
// that don't need actor semantics (e.g. single-threaded tests) may call
// HandleResponse directly instead, since that is exactly the function Run
// serializes calls into.
func (c *Call) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.inbound:
			if ev.resp != nil {
				if err := c.HandleResponse(ctx, ev.resp); err != nil {
					c.Log.Warn().Err(err).Msg("uac: HandleResponse failed")
				}
				continue
			}
			c.fireTimer(ev.transID, ev.timerKind)
		}
	}
}

// Submit enqueues a response for the actor loop started by Run. It never
// blocks the caller beyond the channel buffer; a full queue means the Call
// is falling behind and callers should apply backpressure upstream.
func (c *Call) Submit(resp *sip.Response) {
	c.inbound <- inboundEvent{resp: resp}
}

// submitTimer enqueues a timer fire for the actor loop, the same queue
// Submit uses, so timer-driven transitions are never interleaved with
// response-driven ones out of arrival order (spec §5).
func (c *Call) submitTimer(transID, kind string) {
	select {
	case c.inbound <- inboundEvent{transID: transID, timerKind: kind}:
	default:
		// No Run loop draining the queue (e.g. a synchronous caller that
		// never started one): fall back to firing inline rather than
		// leaking the event, since HandleResponse in that mode is already
		// being called synchronously with no actor to race against.
		c.fireTimer(transID, kind)
	}
}

// AddTrans registers a freshly created transaction, wiring its timer set to
// post fires back through this Call (spec §9: timers are handles owned by
// the transaction; this Call is the only thing that ever fires them).
func (c *Call) AddTrans(tr *Trans) {
	tr.timers = newTimerSet(func(kind string) {
		c.submitTimer(tr.ID, kind)
	})
	c.Trans[tr.ID] = tr
	if c.Metrics != nil {
		c.Metrics.TransactionsActive.Inc()
	}
}

// ArmInitialTimers starts the timers a transaction owns from the moment it
// is created (spec §4.6): retransmission over UDP, the wall-clock timeout,
// and expire when the request carries an `Expires` header.
func (c *Call) ArmInitialTimers(tr *Trans) {
	tr.Start = time.Now()
	if tr.isUDP() {
		tr.retransmitInterval = T1
		tr.timers.arm(TimerRetransmit, tr.retransmitInterval)
	}
	tr.timers.arm(TimerTimeout, c.TransTimeout)
	if d, ok := expiresDuration(tr.Request); ok {
		tr.timers.arm(TimerExpire, d)
	}
}

// expiresDuration reads the request's Expires header, if any (RFC 3261
// §20.19: a delta-seconds value). There is no dedicated ExpiresHeader type
// in the sip package, so this reads it off the generic header list the
// same way any header without dedicated fields is carried.
func expiresDuration(req *sip.Request) (time.Duration, bool) {
	if req == nil {
		return 0, false
	}
	h, ok := req.HeaderByName("Expires")
	if !ok {
		return 0, false
	}
	secs, err := strconv.Atoi(h.Value())
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// HandleResponse is the Call's synchronous entry point for an inbound
// response: it looks up the owning transaction by the response's
// branch+method key and runs it through entry pre-processing and per-status
// dispatch (spec §4.5). Callers that want actor semantics serialize their
// own calls into HandleResponse/fireTimer from a single goroutine per Call
// (spec §5); this method itself holds no lock, by design.
func (c *Call) HandleResponse(ctx context.Context, resp *sip.Response) error {
	key, ok := resp.TxKey()
	if !ok {
		c.Log.Debug().Msg("uac: response missing branch/CSeq, dropping")
		return nil
	}
	tr, ok := c.Trans[key]
	if !ok {
		c.Log.Debug().Str("key", key).Msg("uac: response matches no transaction, dropping")
		return nil
	}
	return c.process(ctx, tr, resp)
}

func (c *Call) fireTimer(transID, kind string) {
	tr, ok := c.Trans[transID]
	if !ok {
		return
	}
	if c.Metrics != nil {
		c.Metrics.TimerFiresTotal.WithLabelValues(kind).Inc()
	}
	c.processTimer(context.Background(), tr, kind)
}

// process runs entry pre-processing (spec §4.5 steps 1-6) then dispatches
// on tr.Status (step 7).
func (c *Call) process(ctx context.Context, tr *Trans, resp *sip.Response) error {
	resp = c.entryPreprocess(ctx, tr, resp)

	switch tr.Status {
	case StatusInviteCalling:
		return c.dispatchInviteCalling(ctx, tr, resp)
	case StatusInviteProceeding:
		return c.dispatchInviteProceeding(ctx, tr, resp)
	case StatusInviteAccepted:
		return c.dispatchInviteAccepted(ctx, tr, resp)
	case StatusInviteCompleted:
		return c.dispatchInviteCompleted(ctx, tr, resp)
	case StatusTrying:
		return c.dispatchTrying(ctx, tr, resp)
	case StatusProceeding:
		return c.dispatchProceeding(ctx, tr, resp)
	case StatusCompleted:
		return c.dispatchCompleted(ctx, tr, resp)
	case StatusFinished:
		// Spec §7: "Unrecognized combinations ... are silently dropped."
		return nil
	default:
		return nil
	}
}

// entryPreprocess runs spec §4.5's pre-processing steps 1-6, which apply
// regardless of the transaction's current status; process does step 7.
func (c *Call) entryPreprocess(ctx context.Context, tr *Trans, resp *sip.Response) *sip.Response {
	if time.Since(tr.Start) > c.TransTimeout {
		resp = synthesizeTimeout(tr.Request)
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		did := dialogID(tr.Request, responseToTag(resp))
		if err := c.Dialog.AuthUpdate(ctx, did, resp); err != nil {
			c.Log.Warn().Err(err).Str("dialog", did).Msg("uac: auth_update failed")
		}
	}

	tr.Response = resp
	tr.Code = resp.StatusCode
	c.Trans[tr.ID] = tr

	if tr.Opts["no_dialog"] != "true" && tr.Request != nil {
		if err := c.Dialog.Update(ctx, tr.Request, resp, tr.From.IsProxy()); err != nil {
			c.Log.Warn().Err(err).Msg("uac: dialog_update failed")
		}
	}

	if resp.StatusCode >= 300 && (tr.Method == sip.SUBSCRIBE || tr.Method == sip.REFER) {
		if err := c.Dialog.RemoveProvEvent(ctx, tr.Request); err != nil {
			c.Log.Warn().Err(err).Msg("uac: remove_prov_event failed")
		}
	}

	c.appendLog(tr, resp)

	return resp
}

// appendLog prepends a (msg_id, trans_id, dialog_id) entry (spec §3, §4.5
// step 6). msg_id is a fresh random identifier per message, grounded on the
// teacher's own use of uuid.NewRandom for message-scoped ids (client.go's
// Call-ID generation) rather than a monotonic counter, since message ids
// here have no ordering requirement, only uniqueness.
func (c *Call) appendLog(tr *Trans, resp *sip.Response) {
	entry := LogEntry{
		MsgID:    uuid.NewString(),
		TransID:  tr.ID,
		DialogID: dialogID(tr.Request, responseToTag(resp)),
	}
	c.MessageLog = append([]LogEntry{entry}, c.MessageLog...)
}

func (c *Call) reply(ctx context.Context, tr *Trans, resp *sip.Response) {
	if c.Reply == nil {
		c.Log.Debug().Int("code", resp.StatusCode).Str("trans", tr.ID).Msg("uac: reply dropped, no sink configured")
		return
	}
	c.Reply(ctx, resp, tr)
}

func synthesizeTimeout(req *sip.Request) *sip.Response {
	var resp *sip.Response
	if req != nil {
		resp = sip.NewResponseFromRequest(req, 408, "Transaction Timeout", "")
	} else {
		resp = &sip.Response{StatusCode: 408, ReasonPhrase: "Transaction Timeout"}
		resp.Init()
	}
	resp.SetSource(localSource)
	return resp
}

// initiateCancel sends the CANCEL for tr's pending INVITE (spec §5
// "Cancellation": triggered exactly once, on a provisional response, while
// `cancel == to_cancel`).
func (c *Call) initiateCancel(ctx context.Context, tr *Trans) {
	cancelReq := sip.NewCancelRequest(tr.Request)
	if _, err := c.Sender.SendRequest(ctx, cancelReq, transport.Options{}); err != nil {
		c.Log.Warn().Err(err).Str("trans", tr.ID).Msg("uac: CANCEL send failed")
	}
	tr.Cancel = CancelCancelled
}

// invokeUACHook calls the nksip_uac_response service hook and returns the
// response to use afterward: the hook's rewritten value on {continue, ...}
// with a *sip.Response in Args.Call, otherwise resp unchanged.
func (c *Call) invokeUACHook(ctx context.Context, tr *Trans, resp *sip.Response) *sip.Response {
	res, err := c.Hook.Invoke(ctx, service.HookUACResponse, service.Args{Request: tr.Request, Call: resp, Opts: tr.Opts})
	if err != nil {
		c.Log.Warn().Err(err).Msg("uac: nksip_uac_response hook failed")
		return resp
	}
	if res.Disposition == service.Continue {
		if rewritten, ok := res.Args.Call.(*sip.Response); ok && rewritten != nil {
			return rewritten
		}
	}
	return resp
}
