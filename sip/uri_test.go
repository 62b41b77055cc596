package sip

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUriString(t *testing.T) {
	uri := Uri{User: "alice", Host: "atlanta.com", Port: 5060}
	assert.Equal(t, "sip:alice@atlanta.com:5060", uri.String())
}

func TestUriStringSips(t *testing.T) {
	uri := Uri{Encrypted: true, Host: "atlanta.com"}
	assert.Equal(t, "sips:atlanta.com", uri.String())
}

func TestUriStringWithParams(t *testing.T) {
	uri := Uri{Host: "atlanta.com"}
	uri.UriParams = NewParams()
	uri.UriParams.Add("transport", "tcp")
	assert.Equal(t, "sip:atlanta.com;transport=tcp", uri.String())
}

func TestUriCloneIsIndependent(t *testing.T) {
	uri := Uri{Host: "atlanta.com"}
	uri.UriParams = NewParams()
	uri.UriParams.Add("transport", "tcp")
	uri.ExtOpts = NewParams()
	uri.ExtOpts.Add("outbound-proxy", "sip:proxy.atlanta.com")

	clone := uri.Clone()
	clone.UriParams.Add("lr", "")
	clone.ExtOpts.Add("extra", "1")

	assert.Equal(t, 1, uri.UriParams.Length())
	assert.Equal(t, 2, clone.UriParams.Length())
	assert.Equal(t, 1, uri.ExtOpts.Length())
	assert.Equal(t, 2, clone.ExtOpts.Length())
}

func TestUriStripExt(t *testing.T) {
	uri := Uri{Host: "atlanta.com"}
	uri.ExtOpts = NewParams()
	uri.ExtOpts.Add("outbound-proxy", "sip:proxy.atlanta.com")
	uri.ExtHeaders = NewParams()
	uri.ExtHeaders.Add("x-trace", "abc")

	stripped := uri.StripExt()
	assert.Nil(t, stripped.ExtOpts)
	assert.Nil(t, stripped.ExtHeaders)
}

func TestUriTransportDefaultsToUDP(t *testing.T) {
	uri := Uri{Host: "atlanta.com"}
	uri.UriParams = NewParams()
	assert.Equal(t, "UDP", uri.Transport())

	uri.UriParams.Add("transport", "tcp")
	assert.Equal(t, "TCP", uri.Transport())
}
