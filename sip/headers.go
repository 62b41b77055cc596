package sip

import (
	"io"
	"strconv"
	"strings"
)

// Header is a single SIP header.
type Header interface {
	Name() string
	Value() string
	String() string
	StringWrite(w io.StringWriter)
	Clone() Header
}

// GenericHeader is an opaque header carried verbatim.
type GenericHeader struct {
	HeaderName string
	Contents   string
}

func (h *GenericHeader) Name() string  { return h.HeaderName }
func (h *GenericHeader) Value() string { return h.Contents }
func (h *GenericHeader) String() string {
	var b strings.Builder
	h.StringWrite(&b)
	return b.String()
}
func (h *GenericHeader) StringWrite(buffer io.StringWriter) {
	buffer.WriteString(h.HeaderName)
	buffer.WriteString(": ")
	buffer.WriteString(h.Contents)
}
func (h *GenericHeader) Clone() Header {
	if h == nil {
		return nil
	}
	c := *h
	return &c
}

// TokenListHeader is a comma-joined list of tokens: Supported, Require,
// Proxy-Require, Allow, Accept.
type TokenListHeader struct {
	HeaderName string
	Tokens     []string
}

func NewTokenListHeader(name string, tokens ...string) *TokenListHeader {
	return &TokenListHeader{HeaderName: name, Tokens: tokens}
}

func (h *TokenListHeader) Name() string  { return h.HeaderName }
func (h *TokenListHeader) Value() string { return strings.Join(h.Tokens, ", ") }
func (h *TokenListHeader) String() string {
	var b strings.Builder
	h.StringWrite(&b)
	return b.String()
}
func (h *TokenListHeader) StringWrite(buffer io.StringWriter) {
	buffer.WriteString(h.HeaderName)
	buffer.WriteString(": ")
	buffer.WriteString(h.Value())
}
func (h *TokenListHeader) Clone() Header {
	if h == nil {
		return nil
	}
	c := &TokenListHeader{HeaderName: h.HeaderName, Tokens: append([]string(nil), h.Tokens...)}
	return c
}
func (h *TokenListHeader) Has(token string) bool {
	for _, t := range h.Tokens {
		if strings.EqualFold(t, token) {
			return true
		}
	}
	return false
}

// NameAddr is a display-name + Uri + params address, the shape shared by
// From/To/Contact (RFC 3261 §20.10).
type NameAddr struct {
	DisplayName string
	Address     Uri
	Params      Params
}

func (a NameAddr) ValueString() string {
	var b strings.Builder
	a.ValueStringWrite(&b)
	return b.String()
}

func (a NameAddr) ValueStringWrite(buffer io.StringWriter) {
	if a.DisplayName != "" {
		buffer.WriteString("\"")
		buffer.WriteString(a.DisplayName)
		buffer.WriteString("\" ")
	}
	buffer.WriteString("<")
	a.Address.StringWrite(buffer)
	buffer.WriteString(">")
	if a.Params.Length() > 0 {
		buffer.WriteString(";")
		a.Params.ToStringWrite(';', buffer)
	}
}

// Tag returns the address's "tag" param, RFC 3261's dialog identifier half.
func (a NameAddr) Tag() (string, bool) {
	return a.Params.Get("tag")
}

// ToHeader is the SIP 'To' header.
type ToHeader struct{ NameAddr }

func (h *ToHeader) Name() string   { return "To" }
func (h *ToHeader) Value() string  { return h.ValueString() }
func (h *ToHeader) String() string { return h.Name() + ": " + h.Value() }
func (h *ToHeader) StringWrite(buffer io.StringWriter) {
	buffer.WriteString(h.Name())
	buffer.WriteString(": ")
	h.ValueStringWrite(buffer)
}
func (h *ToHeader) Clone() Header {
	if h == nil {
		return nil
	}
	c := *h
	c.Address = h.Address.Clone()
	c.Params = h.Params.Clone()
	return &c
}

// FromHeader is the SIP 'From' header.
type FromHeader struct{ NameAddr }

func (h *FromHeader) Name() string   { return "From" }
func (h *FromHeader) Value() string  { return h.ValueString() }
func (h *FromHeader) String() string { return h.Name() + ": " + h.Value() }
func (h *FromHeader) StringWrite(buffer io.StringWriter) {
	buffer.WriteString(h.Name())
	buffer.WriteString(": ")
	h.ValueStringWrite(buffer)
}
func (h *FromHeader) Clone() Header {
	if h == nil {
		return nil
	}
	c := *h
	c.Address = h.Address.Clone()
	c.Params = h.Params.Clone()
	return &c
}

// CallIDHeader is the SIP 'Call-ID' header.
type CallIDHeader string

func (h CallIDHeader) Name() string         { return "Call-ID" }
func (h CallIDHeader) Value() string        { return string(h) }
func (h CallIDHeader) String() string       { return h.Name() + ": " + h.Value() }
func (h CallIDHeader) StringWrite(w io.StringWriter) {
	w.WriteString(h.Name())
	w.WriteString(": ")
	w.WriteString(string(h))
}
func (h CallIDHeader) Clone() Header { return h }

// CSeqHeader is the SIP 'CSeq' header.
type CSeqHeader struct {
	SeqNo      uint32
	MethodName RequestMethod
}

func (h *CSeqHeader) Name() string { return "CSeq" }
func (h *CSeqHeader) Value() string {
	return strconv.Itoa(int(h.SeqNo)) + " " + string(h.MethodName)
}
func (h *CSeqHeader) String() string { return h.Name() + ": " + h.Value() }
func (h *CSeqHeader) StringWrite(w io.StringWriter) {
	w.WriteString(h.Name())
	w.WriteString(": ")
	w.WriteString(h.Value())
}
func (h *CSeqHeader) Clone() Header {
	if h == nil {
		return nil
	}
	c := *h
	return &c
}

// MaxForwardsHeader is the SIP 'Max-Forwards' header. Signed so a
// malformed/negative value arriving from the message parser is
// representable rather than silently wrapping, per the validator's
// "otherwise -> invalid_request" rule.
type MaxForwardsHeader int32

func (h MaxForwardsHeader) Name() string  { return "Max-Forwards" }
func (h MaxForwardsHeader) Value() string { return strconv.Itoa(int(h)) }
func (h MaxForwardsHeader) String() string { return h.Name() + ": " + h.Value() }
func (h MaxForwardsHeader) StringWrite(w io.StringWriter) {
	w.WriteString(h.Name())
	w.WriteString(": ")
	w.WriteString(h.Value())
}
func (h MaxForwardsHeader) Clone() Header { return h }

// ViaHeader is a single Via hop, RFC 3261 §20.42. Incoming messages carry
// these as an ordered stack (MessageData.Via); this module never parses a
// Via from wire text, it only builds one (GenerateBranch) and reads params
// off ones the external message parser already produced.
type ViaHeader struct {
	ProtocolName    string
	ProtocolVersion string
	Transport       string
	Host            string
	Port            int
	Params          Params
}

func NewViaHeader(transport, host string, port int) *ViaHeader {
	return &ViaHeader{
		ProtocolName:    "SIP",
		ProtocolVersion: "2.0",
		Transport:       transport,
		Host:            host,
		Port:            port,
		Params:          NewParams(),
	}
}

func (h *ViaHeader) Name() string { return "Via" }
func (h *ViaHeader) Value() string {
	var b strings.Builder
	h.ValueStringWrite(&b)
	return b.String()
}
func (h *ViaHeader) String() string { return h.Name() + ": " + h.Value() }
func (h *ViaHeader) StringWrite(buffer io.StringWriter) {
	buffer.WriteString(h.Name())
	buffer.WriteString(": ")
	h.ValueStringWrite(buffer)
}
func (h *ViaHeader) ValueStringWrite(buffer io.StringWriter) {
	buffer.WriteString(h.ProtocolName)
	buffer.WriteString("/")
	buffer.WriteString(h.ProtocolVersion)
	buffer.WriteString("/")
	buffer.WriteString(h.Transport)
	buffer.WriteString(" ")
	buffer.WriteString(h.Host)
	if h.Port > 0 {
		buffer.WriteString(":")
		buffer.WriteString(strconv.Itoa(h.Port))
	}
	if h.Params.Length() > 0 {
		buffer.WriteString(";")
		h.Params.ToStringWrite(';', buffer)
	}
}
func (h *ViaHeader) Clone() Header {
	if h == nil {
		return nil
	}
	c := *h
	c.Params = h.Params.Clone()
	return &c
}

// Branch returns the Via's branch param, if any.
func (h *ViaHeader) Branch() (string, bool) {
	return h.Params.Get("branch")
}
