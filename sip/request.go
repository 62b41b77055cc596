package sip

import (
	"io"
	"strings"
)

// Request is a SIP request: a method, a Request-URI, and the common
// message fields (RFC 3261 §7.1).
type Request struct {
	MessageData

	Method     RequestMethod
	RequestURI Uri
}

// NewRequest builds a request with its mandatory headers populated; callers
// append any remaining headers (Contact, Supported, Proxy-Require, ...)
// with AppendHeader.
func NewRequest(method RequestMethod, ruri Uri, from *FromHeader, to *ToHeader, callID CallIDHeader, cseq uint32) *Request {
	req := &Request{
		Method:     method,
		RequestURI: ruri.StripExt(),
	}
	req.Init()
	req.FromHdr = from
	req.ToHdr = to
	req.CallIDHdr = callID
	req.CSeqHdr = &CSeqHeader{SeqNo: cseq, MethodName: method}
	req.MaxForwards = 70
	return req
}

func (r *Request) IsInvite() bool  { return r.Method == INVITE }
func (r *Request) IsAck() bool     { return r.Method == ACK }
func (r *Request) IsCancel() bool  { return r.Method == CANCEL }

func (r *Request) String() string {
	var b strings.Builder
	r.StringWrite(&b)
	return b.String()
}

func (r *Request) StringWrite(buffer io.StringWriter) {
	buffer.WriteString(string(r.Method))
	buffer.WriteString(" ")
	r.RequestURI.StringWrite(buffer)
	buffer.WriteString(" ")
	buffer.WriteString(r.SipVersion)
	buffer.WriteString("\r\n")
	for _, via := range r.Via {
		via.StringWrite(buffer)
		buffer.WriteString("\r\n")
	}
	r.FromHdr.StringWrite(buffer)
	buffer.WriteString("\r\n")
	r.ToHdr.StringWrite(buffer)
	buffer.WriteString("\r\n")
	r.CallIDHdr.StringWrite(buffer)
	buffer.WriteString("\r\n")
	r.CSeqHdr.StringWrite(buffer)
	buffer.WriteString("\r\n")
	r.MaxForwards.StringWrite(buffer)
	buffer.WriteString("\r\n")
	writeHeaderLines(buffer, r.Headers())
	buffer.WriteString("\r\n")
	buffer.WriteString(string(r.Body))
}

// Clone deep-copies everything a forked or retransmitted request needs to
// be independently mutable (Via stack, headers, params).
func (r *Request) Clone() *Request {
	c := &Request{
		MessageData: r.MessageData,
		Method:      r.Method,
		RequestURI:  r.RequestURI.Clone(),
	}
	c.Via = make([]*ViaHeader, len(r.Via))
	for i, v := range r.Via {
		c.Via[i] = v.Clone().(*ViaHeader)
	}
	if r.FromHdr != nil {
		c.FromHdr = r.FromHdr.Clone().(*FromHeader)
	}
	if r.ToHdr != nil {
		c.ToHdr = r.ToHdr.Clone().(*ToHeader)
	}
	if r.CSeqHdr != nil {
		c.CSeqHdr = r.CSeqHdr.Clone().(*CSeqHeader)
	}
	c.headers = make([]Header, len(r.headers))
	for i, h := range r.headers {
		c.headers[i] = h.Clone()
	}
	c.Body = append([]byte(nil), r.Body...)
	return c
}

// NewAckRequest builds the ACK for a non-2xx final response to an INVITE
// (RFC 3261 §17.1.1.3): same Call-ID/CSeq-number/From/Via-branch/R-URI as
// the INVITE, To taken from the response (it carries the remote tag), and
// no body or extra headers beyond Route copied from the original request.
func NewAckRequest(invite *Request, resp *Response) *Request {
	ack := &Request{
		Method:     ACK,
		RequestURI: invite.RequestURI.Clone(),
	}
	ack.Init()
	ack.SipVersion = invite.SipVersion
	ack.FromHdr = invite.FromHdr.Clone().(*FromHeader)
	ack.ToHdr = resp.ToHdr.Clone().(*ToHeader)
	ack.CallIDHdr = invite.CallIDHdr
	ack.CSeqHdr = &CSeqHeader{SeqNo: invite.CSeqHdr.SeqNo, MethodName: ACK}
	ack.MaxForwards = invite.MaxForwards
	if len(invite.Via) > 0 {
		ack.Via = []*ViaHeader{invite.Via[0].Clone().(*ViaHeader)}
	}
	for _, h := range invite.headers {
		if equalFoldASCII(h.Name(), "Route") {
			ack.headers = append(ack.headers, h.Clone())
		}
	}
	ack.SetTransport(invite.Transport())
	return ack
}

// NewCancelRequest builds the CANCEL for a pending INVITE transaction
// (RFC 3261 §9.1): same R-URI/Call-ID/To/From/CSeq-number/top Via-branch,
// method CANCEL, CSeq method CANCEL, no body.
func NewCancelRequest(invite *Request) *Request {
	cancel := &Request{
		Method:     CANCEL,
		RequestURI: invite.RequestURI.Clone(),
	}
	cancel.Init()
	cancel.SipVersion = invite.SipVersion
	cancel.FromHdr = invite.FromHdr.Clone().(*FromHeader)
	cancel.ToHdr = invite.ToHdr.Clone().(*ToHeader)
	cancel.CallIDHdr = invite.CallIDHdr
	cancel.CSeqHdr = &CSeqHeader{SeqNo: invite.CSeqHdr.SeqNo, MethodName: CANCEL}
	cancel.MaxForwards = invite.MaxForwards
	if len(invite.Via) > 0 {
		cancel.Via = []*ViaHeader{invite.Via[0].Clone().(*ViaHeader)}
	}
	for _, h := range invite.headers {
		if equalFoldASCII(h.Name(), "Route") {
			cancel.headers = append(cancel.headers, h.Clone())
		}
	}
	cancel.SetTransport(invite.Transport())
	return cancel
}

// TxKey derives the RFC 3261 §17.1.3 client-transaction key: branch plus
// method, except ACK which keys off the INVITE's method so a 200-triggered
// ACK and its INVITE still name the same dialog-unaware identity when
// needed by callers that want the pair.
func (r *Request) TxKey() (string, bool) {
	via, ok := r.Top()
	if !ok {
		return "", false
	}
	branch, ok := via.Branch()
	if !ok {
		return "", false
	}
	method := r.Method
	if method == ACK {
		method = INVITE
	}
	return branch + TxSeperator + string(method), true
}
