package sip

import (
	"io"
	"strconv"
	"strings"
)

// Uri is a SIP or SIPS URI (RFC 3261 §19.1). ExtOpts/ExtHeaders hold
// caller-supplied routing hints that must never leak onto the wire once a
// Uri becomes a Request-URI; see StripExt.
type Uri struct {
	Encrypted bool
	Wildcard  bool

	User     string
	Password string
	Host     string
	Port     int

	UriParams Params
	Headers   Params

	// ExtOpts/ExtHeaders are caller-side routing extensions (e.g. a
	// requested outbound proxy or custom headers to add) carried alongside
	// a Uri through normalization. They are never part of the wire form.
	ExtOpts    Params
	ExtHeaders Params
}

func (uri Uri) String() string {
	var b strings.Builder
	uri.StringWrite(&b)
	return b.String()
}

func (uri Uri) StringWrite(buffer io.StringWriter) {
	if uri.Encrypted {
		buffer.WriteString("sips:")
	} else {
		buffer.WriteString("sip:")
	}

	if uri.User != "" {
		buffer.WriteString(uri.User)
		if uri.Password != "" {
			buffer.WriteString(":")
			buffer.WriteString(uri.Password)
		}
		buffer.WriteString("@")
	}

	buffer.WriteString(uri.Host)

	if uri.Port > 0 {
		buffer.WriteString(":")
		buffer.WriteString(strconv.Itoa(uri.Port))
	}

	if uri.UriParams.Length() > 0 {
		buffer.WriteString(";")
		uri.UriParams.ToStringWrite(';', buffer)
	}

	if uri.Headers.Length() > 0 {
		buffer.WriteString("?")
		uri.Headers.ToStringWrite('&', buffer)
	}
}

// Clone returns a deep-enough copy: param lists are copied, so mutating the
// clone's params never mutates the original's.
func (uri Uri) Clone() Uri {
	c := uri
	c.UriParams = uri.UriParams.Clone()
	c.Headers = uri.Headers.Clone()
	c.ExtOpts = uri.ExtOpts.Clone()
	c.ExtHeaders = uri.ExtHeaders.Clone()
	return c
}

// StripExt clears the extension slots, turning a Uri into a valid Request-URI.
// Every Uri the normalizer emits already has empty slots; StripExt exists for
// callers that build a Uri by hand and then use it as an R-URI.
func (uri Uri) StripExt() Uri {
	uri.ExtOpts = nil
	uri.ExtHeaders = nil
	return uri
}

// Transport returns the "transport" URI param, upper-cased, defaulting to UDP.
func (uri Uri) Transport() string {
	if t, ok := uri.UriParams.Get("transport"); ok && t != "" {
		return strings.ToUpper(t)
	}
	return "UDP"
}
