package transaction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipflow/callcore/sip"
)

func TestArmInitialTimersArmsExpireWhenHeaderPresent(t *testing.T) {
	rig := newTestCall(t)
	req := newInviteRequest(t)
	req.AppendHeader(&sip.GenericHeader{HeaderName: "Expires", Contents: "5"})
	key, ok := req.TxKey()
	require.True(t, ok)

	tr := &Trans{ID: key, Method: sip.INVITE, Transport: "udp", From: Origin{Kind: OriginUser}, Opts: map[string]string{}, Request: req, Status: StatusInviteCalling}
	rig.call.AddTrans(tr)
	rig.call.ArmInitialTimers(tr)

	assert.True(t, tr.timers.armed(TimerExpire))
}

func TestArmInitialTimersSkipsExpireWithoutHeader(t *testing.T) {
	rig := newTestCall(t)
	tr := newInviteTrans(t, rig, "udp")

	assert.False(t, tr.timers.armed(TimerExpire))
}

func TestExpiresDurationRejectsMalformedValue(t *testing.T) {
	req := newInviteRequest(t)
	req.AppendHeader(&sip.GenericHeader{HeaderName: "Expires", Contents: "not-a-number"})

	_, ok := expiresDuration(req)
	assert.False(t, ok)
}

func TestExpiresDurationParsesDeltaSeconds(t *testing.T) {
	req := newInviteRequest(t)
	req.AppendHeader(&sip.GenericHeader{HeaderName: "Expires", Contents: "120"})

	d, ok := expiresDuration(req)
	require.True(t, ok)
	assert.Equal(t, 120*time.Second, d)
}
