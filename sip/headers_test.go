package sip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHeaderValue(t *testing.T) {
	from := &FromHeader{NameAddr{
		DisplayName: "Alice",
		Address:     Uri{User: "alice", Host: "atlanta.com"},
		Params:      NewParams(),
	}}
	from.Params.Add("tag", "1928301774")
	assert.Equal(t, `"Alice" <sip:alice@atlanta.com>;tag=1928301774`, from.Value())
}

func TestNameAddrTag(t *testing.T) {
	to := &ToHeader{NameAddr{Address: Uri{User: "bob", Host: "biloxi.com"}, Params: NewParams()}}
	_, ok := to.Tag()
	assert.False(t, ok)

	to.Params.Add("tag", "abc123")
	tag, ok := to.Tag()
	require.True(t, ok)
	assert.Equal(t, "abc123", tag)
}

func TestHeaderCloneIndependence(t *testing.T) {
	from := &FromHeader{NameAddr{Address: Uri{User: "alice", Host: "atlanta.com"}, Params: NewParams()}}
	from.Params.Add("tag", "abc")

	clone := from.Clone().(*FromHeader)
	clone.Params.Add("extra", "1")

	assert.Equal(t, 1, from.Params.Length())
	assert.Equal(t, 2, clone.Params.Length())
}

func TestViaHeaderValue(t *testing.T) {
	via := NewViaHeader("UDP", "pc33.atlanta.com", 5060)
	via.Params.Add("branch", "z9hG4bK776asdhds")
	assert.Equal(t, "SIP/2.0/UDP pc33.atlanta.com:5060;branch=z9hG4bK776asdhds", via.Value())

	branch, ok := via.Branch()
	require.True(t, ok)
	assert.Equal(t, "z9hG4bK776asdhds", branch)
}

func TestTokenListHeader(t *testing.T) {
	h := NewTokenListHeader("Supported", "100rel", "timer")
	assert.Equal(t, "100rel, timer", h.Value())
	assert.True(t, h.Has("100REL"))
	assert.False(t, h.Has("path"))
}

func TestCSeqHeaderValue(t *testing.T) {
	cseq := &CSeqHeader{SeqNo: 314159, MethodName: INVITE}
	assert.Equal(t, "314159 INVITE", cseq.Value())
}

func TestMaxForwardsHeaderValue(t *testing.T) {
	var mf MaxForwardsHeader = 70
	assert.Equal(t, "70", mf.Value())
}
