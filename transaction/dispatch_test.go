package transaction

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipflow/callcore/sip"
)

type replyRecorder struct {
	mu    sync.Mutex
	codes []int
}

func (r *replyRecorder) record(_ context.Context, resp *sip.Response, _ *Trans) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, resp.StatusCode)
}

func (r *replyRecorder) Codes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.codes...)
}

// Scenario (e): 180 -> 200 (tag T1) -> 200 (tag T2, a forked secondary).
func TestInviteForkedSecondary200TriggersHangup(t *testing.T) {
	rig := newTestCall(t)
	rec := &replyRecorder{}
	rig.call.Reply = rec.record
	tr := newInviteTrans(t, rig, "udp")

	ctx := context.Background()
	require.NoError(t, rig.call.HandleResponse(ctx, responseTo(t, tr.Request, 180, "Ringing", "")))
	require.NoError(t, rig.call.HandleResponse(ctx, responseTo(t, tr.Request, 200, "OK", "T1")))

	assert.Equal(t, StatusInviteAccepted, tr.Status)
	assert.Equal(t, []string{"T1"}, tr.ToTags)
	assert.Equal(t, []int{180, 200}, rec.Codes())

	require.NoError(t, rig.call.HandleResponse(ctx, responseTo(t, tr.Request, 200, "OK", "T2")))

	// T2 is not delivered upward.
	assert.Equal(t, []int{180, 200}, rec.Codes())
	assert.Equal(t, []string{"T1", "T2"}, tr.ToTags)

	require.Eventually(t, func() bool {
		return len(rig.dlg.Invocations()) == 2
	}, time.Second, time.Millisecond, "expected async ACK+BYE on secondary dialog")

	invocations := rig.dlg.Invocations()
	assert.Equal(t, sip.ACK, invocations[0].Method)
	assert.Equal(t, sip.BYE, invocations[1].Method)
}

// Scenario (f): INVITE 486 over UDP.
func TestInvite486OverUDPSendsAckAndArmsTimerD(t *testing.T) {
	rig := newTestCall(t)
	rec := &replyRecorder{}
	rig.call.Reply = rec.record
	tr := newInviteTrans(t, rig, "udp")

	ctx := context.Background()
	require.NoError(t, rig.call.HandleResponse(ctx, responseTo(t, tr.Request, 486, "Busy Here", "T1")))

	assert.Equal(t, []int{486}, rec.Codes())
	assert.Equal(t, StatusInviteCompleted, tr.Status)
	assert.True(t, tr.timers.armed(TimerD))
	assert.Equal(t, 1, tr.timers.armedCount())

	resends := rig.lb.Resends()
	require.Len(t, resends, 1)
	assert.Equal(t, sip.ACK, resends[0].Method)
}

// Scenario (g): response arrives after trans_time -> synthesized 408.
func TestResponseAfterTransTimeYieldsSynthesized408(t *testing.T) {
	rig := newTestCall(t)
	rec := &replyRecorder{}
	rig.call.Reply = rec.record
	tr := newInviteTrans(t, rig, "udp")
	// Backdate Start and cancel the real timeout timer so the 408 is
	// synthesized deterministically by entry pre-processing's own wall
	// clock check, rather than racing a live time.AfterFunc goroutine.
	tr.timers.cancel(TimerTimeout)
	tr.Start = time.Now().Add(-time.Hour)

	ctx := context.Background()
	require.NoError(t, rig.call.HandleResponse(ctx, responseTo(t, tr.Request, 200, "OK", "T1")))

	codes := rec.Codes()
	require.Len(t, codes, 1)
	assert.Equal(t, 408, codes[0])
	assert.Equal(t, StatusFinished, tr.Status)
}

// Property 6: 2xx absorption — a primary retransmission in invite_accepted
// produces no outward send and leaves ToTags/status unchanged.
func TestInviteAcceptedAbsorbsPrimaryRetransmission(t *testing.T) {
	rig := newTestCall(t)
	rec := &replyRecorder{}
	rig.call.Reply = rec.record
	tr := newInviteTrans(t, rig, "udp")

	ctx := context.Background()
	require.NoError(t, rig.call.HandleResponse(ctx, responseTo(t, tr.Request, 200, "OK", "T1")))
	require.NoError(t, rig.call.HandleResponse(ctx, responseTo(t, tr.Request, 200, "OK", "T1")))

	assert.Equal(t, []int{200}, rec.Codes(), "retransmission must not be delivered again")
	assert.Equal(t, []string{"T1"}, tr.ToTags)
	assert.Equal(t, StatusInviteAccepted, tr.Status)
	assert.Empty(t, rig.dlg.Invocations())
}

// Property 8: idempotent retransmission response in invite_completed.
func TestInviteCompletedRetransmissionReAcksWithoutExtraTimers(t *testing.T) {
	rig := newTestCall(t)
	tr := newInviteTrans(t, rig, "udp")

	ctx := context.Background()
	require.NoError(t, rig.call.HandleResponse(ctx, responseTo(t, tr.Request, 486, "Busy Here", "T1")))
	require.Equal(t, 1, tr.timers.armedCount())

	require.NoError(t, rig.call.HandleResponse(ctx, responseTo(t, tr.Request, 486, "Busy Here", "T1")))

	assert.Len(t, rig.lb.Resends(), 2, "each retransmission re-emits exactly one ACK")
	assert.Equal(t, 1, tr.timers.armedCount(), "timer set must not grow on retransmission")
	assert.True(t, tr.timers.armed(TimerD))
}

// timer_c must not survive a transition out of invite_proceeding, otherwise
// it fires minutes later into a transaction already past that state.
func TestInviteFinalResponseCancelsTimerC(t *testing.T) {
	rig := newTestCall(t)
	rec := &replyRecorder{}
	rig.call.Reply = rec.record
	tr := newInviteTrans(t, rig, "udp")

	ctx := context.Background()
	require.NoError(t, rig.call.HandleResponse(ctx, responseTo(t, tr.Request, 180, "Ringing", "")))
	require.True(t, tr.timers.armed(TimerC), "timer_c must be armed on a provisional")

	require.NoError(t, rig.call.HandleResponse(ctx, responseTo(t, tr.Request, 200, "OK", "T1")))
	assert.False(t, tr.timers.armed(TimerC), "timer_c must be cancelled on the final response")
}

func TestInviteFailureResponseCancelsTimerC(t *testing.T) {
	rig := newTestCall(t)
	rec := &replyRecorder{}
	rig.call.Reply = rec.record
	tr := newInviteTrans(t, rig, "udp")

	ctx := context.Background()
	require.NoError(t, rig.call.HandleResponse(ctx, responseTo(t, tr.Request, 180, "Ringing", "")))
	require.True(t, tr.timers.armed(TimerC))

	require.NoError(t, rig.call.HandleResponse(ctx, responseTo(t, tr.Request, 486, "Busy Here", "T1")))
	assert.False(t, tr.timers.armed(TimerC), "timer_c must be cancelled on a failure final response")
}

// Non-INVITE family smoke test: trying -> proceeding -> completed over UDP.
func TestNonInviteFinalResponseArmsTimerK(t *testing.T) {
	rig := newTestCall(t)
	rec := &replyRecorder{}
	rig.call.Reply = rec.record

	req := newInviteRequest(t)
	req.Method = sip.OPTIONS
	req.CSeqHdr.MethodName = sip.OPTIONS
	req.SetTransport("udp")
	key, ok := req.TxKey()
	require.True(t, ok)
	tr := &Trans{
		ID:        key,
		Method:    sip.OPTIONS,
		Transport: "udp",
		From:      Origin{Kind: OriginUser},
		Opts:      map[string]string{},
		Request:   req,
		Status:    StatusTrying,
	}
	rig.call.AddTrans(tr)
	rig.call.ArmInitialTimers(tr)

	require.NoError(t, rig.call.HandleResponse(context.Background(), responseTo(t, req, 200, "OK", "T1")))

	assert.Equal(t, []int{200}, rec.Codes())
	assert.Equal(t, StatusCompleted, tr.Status)
	assert.True(t, tr.timers.armed(TimerK))
	assert.Nil(t, tr.Request, "request cleared once completed over UDP")
}
