package sip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResponseFromRequestCopiesDialogHeaders(t *testing.T) {
	invite := sampleInvite(t)
	resp := NewResponseFromRequest(invite, 200, "OK", "")

	assert.Equal(t, invite.CallIDHdr, resp.CallIDHdr)
	assert.Equal(t, invite.CSeqHdr.SeqNo, resp.CSeqHdr.SeqNo)
	assert.Len(t, resp.Via, len(invite.Via))

	fromTag, _ := resp.FromHdr.Tag()
	origFromTag, _ := invite.FromHdr.Tag()
	assert.Equal(t, origFromTag, fromTag)
}

func TestNewResponseFromRequestAddsToTagOnlyIfMissing(t *testing.T) {
	invite := sampleInvite(t)
	resp := NewResponseFromRequest(invite, 200, "OK", "tag-from-callee")

	tag, ok := resp.ToHdr.Tag()
	require.True(t, ok)
	assert.Equal(t, "tag-from-callee", tag)

	invite.ToHdr.Params.Add("tag", "tag-already-set")
	resp2 := NewResponseFromRequest(invite, 200, "OK", "should-not-override")
	already, _ := resp2.ToHdr.Tag()
	assert.Equal(t, "tag-already-set", already)
}

func TestResponseStatusClassPredicates(t *testing.T) {
	cases := []struct {
		code       int
		provision  bool
		success    bool
		final      bool
		clientErr  bool
	}{
		{100, true, false, false, false},
		{180, true, false, false, false},
		{200, false, true, true, false},
		{302, false, false, true, false},
		{486, false, false, true, true},
		{500, false, false, true, false},
	}
	for _, c := range cases {
		r := &Response{StatusCode: c.code}
		assert.Equal(t, c.provision, r.IsProvisional(), "code %d provisional", c.code)
		assert.Equal(t, c.success, r.IsSuccess(), "code %d success", c.code)
		assert.Equal(t, c.final, r.IsFinal(), "code %d final", c.code)
		assert.Equal(t, c.clientErr, r.IsClientError(), "code %d clientErr", c.code)
	}
}

func TestResponseCloneIsIndependent(t *testing.T) {
	invite := sampleInvite(t)
	resp := NewResponseFromRequest(invite, 200, "OK", NewTag())

	clone := resp.Clone()
	clone.ToHdr.Params.Add("extra", "1")

	origTag, _ := resp.ToHdr.Tag()
	cloneTag, _ := clone.ToHdr.Tag()
	assert.Equal(t, origTag, cloneTag)
	assert.False(t, resp.ToHdr.Params.Has("extra"))
	assert.True(t, clone.ToHdr.Params.Has("extra"))
}

func TestResponseTxKeyMatchesRequest(t *testing.T) {
	invite := sampleInvite(t)
	resp := NewResponseFromRequest(invite, 180, "Ringing", "")

	reqKey, _ := invite.TxKey()
	respKey, _ := resp.TxKey()
	assert.Equal(t, reqKey, respKey)
}
