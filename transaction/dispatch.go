package transaction

import (
	"context"

	"github.com/sipflow/callcore/sip"
	"github.com/sipflow/callcore/transport"
)

// dispatchInviteCalling implements spec §4.5 "invite_calling": transition
// immediately to invite_proceeding, cancel the retransmission timer, fall
// through.
func (c *Call) dispatchInviteCalling(ctx context.Context, tr *Trans, resp *sip.Response) error {
	tr.Status = StatusInviteProceeding
	tr.timers.cancel(TimerRetransmit)
	return c.dispatchInviteProceeding(ctx, tr, resp)
}

func (c *Call) dispatchInviteProceeding(ctx context.Context, tr *Trans, resp *sip.Response) error {
	switch {
	case resp.StatusCode < 200:
		return c.inviteProceedingProvisional(ctx, tr, resp)
	case resp.StatusCode <= 299:
		return c.inviteProceedingSuccess(ctx, tr, resp)
	default:
		return c.inviteProceedingFailure(ctx, tr, resp)
	}
}

// inviteProceedingProvisional: arm timer_c, deliver upward, trigger a
// pending cancel, consult the service hook (spec §4.5).
func (c *Call) inviteProceedingProvisional(ctx context.Context, tr *Trans, resp *sip.Response) error {
	tr.timers.arm(TimerC, DefaultTimerC)
	c.reply(ctx, tr, resp)
	if tr.Cancel == CancelToCancel {
		c.initiateCancel(ctx, tr)
	}
	c.invokeUACHook(ctx, tr, resp)
	return nil
}

// inviteProceedingSuccess: the first 2xx (spec §4.5 "first success").
func (c *Call) inviteProceedingSuccess(ctx context.Context, tr *Trans, resp *sip.Response) error {
	c.reply(ctx, tr, resp)

	toTag := responseToTag(resp)
	tr.Status = StatusInviteAccepted
	tr.Cancel = CancelNone
	tr.ToTags = []string{toTag}
	tr.Response = nil
	tr.timers.cancel(TimerC)
	tr.timers.cancel(TimerExpire)
	tr.timers.arm(TimerM, DefaultTimerM)

	if tr.Opts["auto_2xx_ack"] == "true" {
		did := dialogID(tr.Request, toTag)
		if err := c.Dialog.Invoke(ctx, did, sip.ACK, tr.Opts); err != nil {
			c.Log.Warn().Err(err).Str("dialog", did).Msg("uac: auto 2xx ACK failed")
		}
	}
	return nil
}

// inviteProceedingFailure: code >= 300, either locally synthesized or a
// wire response (spec §4.5's two "code >= 300" branches).
func (c *Call) inviteProceedingFailure(ctx context.Context, tr *Trans, resp *sip.Response) error {
	if isLocal(resp) {
		c.reply(ctx, tr, resp)
		tr.Status = StatusFinished
		tr.timers.cancel(TimerTimeout)
		tr.timers.cancel(TimerC)
		tr.timers.cancel(TimerExpire)
		return nil
	}

	toTag := responseToTag(resp)
	if tr.Request != nil && tr.Request.ToHdr != nil && toTag != "" {
		tr.Request.ToHdr.Params = tr.Request.ToHdr.Params.Clone()
		tr.Request.ToHdr.Params.Add("tag", toTag)
	}
	tr.ToTags = []string{toTag}
	tr.timers.cancel(TimerTimeout)
	tr.timers.cancel(TimerC)
	tr.timers.cancel(TimerExpire)

	c.sendNon2xxAck(ctx, tr, resp)

	if tr.isUDP() {
		tr.Status = StatusInviteCompleted
		tr.timers.arm(TimerD, DefaultTimerD)
	} else {
		tr.Status = StatusFinished
	}

	delivered := c.invokeUACHook(ctx, tr, resp)
	c.reply(ctx, tr, delivered)
	return nil
}

// sendNon2xxAck emits the RFC 3261 §17.1.1.3 ACK for a non-2xx final
// response. Spec §4.4/§4.5 route this send through resend_request, the
// same transport entry point UDP retransmission uses, rather than
// send_request: this ACK rides the transaction's already-established
// association instead of opening a new one.
func (c *Call) sendNon2xxAck(ctx context.Context, tr *Trans, resp *sip.Response) {
	if tr.Request == nil {
		return
	}
	ack := sip.NewAckRequest(tr.Request, resp)
	if err := c.Sender.ResendRequest(ctx, ack, transport.Options{}); err != nil {
		c.Log.Warn().Err(err).Str("trans", tr.ID).Msg("uac: non-2xx ACK send failed")
		return
	}
	if c.Metrics != nil {
		c.Metrics.AcksSentTotal.Inc()
	}
}

// dispatchInviteAccepted implements spec §4.5 "invite_accepted": drop
// provisionals, ignore primary retransmissions, hang up on anything else.
func (c *Call) dispatchInviteAccepted(ctx context.Context, tr *Trans, resp *sip.Response) error {
	if resp.StatusCode < 200 {
		return nil
	}
	toTag := responseToTag(resp)
	if primary, ok := tr.primaryTag(); ok && toTag == primary {
		c.Log.Debug().Str("trans", tr.ID).Msg("uac: primary retransmission in invite_accepted, ignoring")
		return nil
	}
	return c.receivedHangup(ctx, tr, resp)
}

// dispatchInviteCompleted implements spec §4.5 "invite_completed": only
// final responses are processed.
func (c *Call) dispatchInviteCompleted(ctx context.Context, tr *Trans, resp *sip.Response) error {
	if resp.StatusCode < 200 {
		return nil
	}
	toTag := responseToTag(resp)
	primary, hasPrimary := tr.primaryTag()
	if hasPrimary && toTag == primary {
		if resp.StatusCode == tr.Code {
			c.sendNon2xxAck(ctx, tr, resp)
			return nil
		}
		c.Log.Debug().Str("trans", tr.ID).Msg("uac: primary tag, code mismatch in invite_completed, ignoring")
		return nil
	}
	return c.receivedHangup(ctx, tr, resp)
}

// receivedHangup implements spec §4.5 "Received-hangup (secondary INVITE
// response)": a forked branch answering after the primary already reached
// a final outcome.
func (c *Call) receivedHangup(ctx context.Context, tr *Trans, resp *sip.Response) error {
	toTag := responseToTag(resp)
	if !tr.hasToTag(toTag) {
		tr.ToTags = append(tr.ToTags, toTag)
	}

	if resp.StatusCode >= 300 {
		c.Log.Debug().Str("trans", tr.ID).Str("to_tag", toTag).Msg("uac: secondary final error, logging only")
		return nil
	}

	did := dialogID(tr.Request, toTag)
	opts := tr.Opts
	dlg := c.Dialog
	log := c.Log
	go func() {
		if err := dlg.Invoke(ctx, did, sip.ACK, opts); err != nil {
			log.Warn().Err(err).Str("dialog", did).Msg("uac: fork-hangup ACK failed")
		}
		if err := dlg.Invoke(ctx, did, sip.BYE, opts); err != nil {
			log.Warn().Err(err).Str("dialog", did).Msg("uac: fork-hangup BYE failed")
		}
	}()
	return nil
}

// dispatchTrying implements spec §4.5 "trying": transition to proceeding,
// cancel the retransmission timer, fall through.
func (c *Call) dispatchTrying(ctx context.Context, tr *Trans, resp *sip.Response) error {
	tr.Status = StatusProceeding
	tr.timers.cancel(TimerRetransmit)
	return c.dispatchProceeding(ctx, tr, resp)
}

func (c *Call) dispatchProceeding(ctx context.Context, tr *Trans, resp *sip.Response) error {
	if resp.StatusCode < 200 {
		c.reply(ctx, tr, resp)
		return nil
	}

	if isLocal(resp) {
		c.reply(ctx, tr, resp)
		tr.Status = StatusFinished
		tr.timers.cancel(TimerTimeout)
		return nil
	}

	tr.ToTags = []string{responseToTag(resp)}
	if tr.isUDP() {
		tr.Status = StatusCompleted
		tr.Request = nil
		tr.Response = nil
		tr.timers.arm(TimerK, DefaultTimerK)
	} else {
		tr.Status = StatusFinished
		tr.timers.cancel(TimerTimeout)
	}

	delivered := c.invokeUACHook(ctx, tr, resp)
	c.reply(ctx, tr, delivered)
	return nil
}

// dispatchCompleted implements spec §4.5 "completed (non-INVITE)".
func (c *Call) dispatchCompleted(_ context.Context, tr *Trans, resp *sip.Response) error {
	toTag := responseToTag(resp)
	if primary, ok := tr.primaryTag(); ok && toTag == primary {
		c.Log.Debug().Str("trans", tr.ID).Msg("uac: retransmission in completed, ignoring")
		return nil
	}
	if !tr.hasToTag(toTag) {
		tr.ToTags = append(tr.ToTags, toTag)
	}
	return nil
}

// processTimer implements spec §4.6's fire actions. Timer_C and Expire
// fire actions are not pinned down by an RFC-numbered rule in spec §4.6
// beyond "arm when / cancel when" — this package's judgment call (recorded
// in DESIGN.md) treats both as transaction-ending guards: Timer_C fires
// like a local transaction timeout (synthesize 408 and run it through the
// normal entry path), Expire cancels the pending INVITE the same way a
// user-initiated CANCEL would.
func (c *Call) processTimer(ctx context.Context, tr *Trans, kind string) {
	switch kind {
	case TimerTimeout, TimerC:
		resp := synthesizeTimeout(tr.Request)
		_ = c.process(ctx, tr, resp)
	case TimerExpire:
		if tr.Status == StatusInviteProceeding {
			tr.Cancel = CancelToCancel
			c.initiateCancel(ctx, tr)
		}
	case TimerD, TimerK, TimerM:
		tr.Status = StatusFinished
		tr.timers.cancelAll()
		if c.Metrics != nil {
			c.Metrics.TransactionsActive.Dec()
		}
	case TimerRetransmit:
		c.fireRetransmit(ctx, tr)
	}
}

func (c *Call) fireRetransmit(ctx context.Context, tr *Trans) {
	if tr.Request == nil {
		return
	}
	if err := c.Sender.ResendRequest(ctx, tr.Request, transport.Options{}); err != nil {
		c.Log.Warn().Err(err).Str("trans", tr.ID).Msg("uac: retransmission failed")
	}
	next := tr.retransmitInterval * 2
	if next == 0 {
		next = T1 * 2
	}
	if !tr.isInvite() && next > T2 {
		next = T2
	}
	tr.retransmitInterval = next
	tr.timers.arm(TimerRetransmit, next)
}
