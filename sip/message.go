package sip

import "io"

// MessageData is the field set shared by every SIP request and response
// (RFC 3261 §7): a Via stack, To/From, Call-ID, CSeq, Max-Forwards, an
// ordered header list for everything else, and a body. Embedding this in
// Request and Response gives both the same accessors.
type MessageData struct {
	SipVersion string

	Via         []*ViaHeader
	ToHdr       *ToHeader
	FromHdr     *FromHeader
	CallIDHdr   CallIDHeader
	CSeqHdr     *CSeqHeader
	MaxForwards MaxForwardsHeader

	headers []Header
	Body    []byte

	transport string
	source    string
}

func (m *MessageData) Init() {
	if m.SipVersion == "" {
		m.SipVersion = "SIP/2.0"
	}
	if m.Via == nil {
		m.Via = []*ViaHeader{}
	}
	if m.headers == nil {
		m.headers = []Header{}
	}
}

// Transport is the network transport this message arrived on or should be
// sent over; set by the transport layer, not carried on the wire.
func (m *MessageData) Transport() string { return m.transport }
func (m *MessageData) SetTransport(t string) { m.transport = t }

// Source is the remote address this message arrived from; set by the
// transport layer for responses/requests received off the wire.
func (m *MessageData) Source() string    { return m.source }
func (m *MessageData) SetSource(s string) { m.source = s }

func (m *MessageData) To() *ToHeader     { return m.ToHdr }
func (m *MessageData) From() *FromHeader { return m.FromHdr }
func (m *MessageData) CallID() CallIDHeader { return m.CallIDHdr }
func (m *MessageData) CSeq() *CSeqHeader    { return m.CSeqHdr }

// Top returns the topmost Via, the one a response is routed by.
func (m *MessageData) Top() (*ViaHeader, bool) {
	if len(m.Via) == 0 {
		return nil, false
	}
	return m.Via[0], true
}

// PrependVia pushes a new Via hop onto the front of the stack.
func (m *MessageData) PrependVia(via *ViaHeader) {
	m.Via = append([]*ViaHeader{via}, m.Via...)
}

// PopVia removes and returns the topmost Via, the response-path mirror of
// PrependVia: a stateless relay forwards a response only after popping the
// hop that names it.
func (m *MessageData) PopVia() (*ViaHeader, bool) {
	if len(m.Via) == 0 {
		return nil, false
	}
	top := m.Via[0]
	m.Via = m.Via[1:]
	return top, true
}

// AppendHeader appends a header to the generic header list (anything beyond
// Via/To/From/Call-ID/CSeq/Max-Forwards, which have dedicated fields).
func (m *MessageData) AppendHeader(h Header) {
	m.headers = append(m.headers, h)
}

// Headers returns the generic header list in wire order.
func (m *MessageData) Headers() []Header {
	return m.headers
}

// HeaderByName returns the first generic header matching name, case-insensitively.
func (m *MessageData) HeaderByName(name string) (Header, bool) {
	for _, h := range m.headers {
		if equalFoldASCII(h.Name(), name) {
			return h, true
		}
	}
	return nil, false
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func writeHeaderLines(buffer io.StringWriter, headers []Header) {
	for _, h := range headers {
		h.StringWrite(buffer)
		buffer.WriteString("\r\n")
	}
}
