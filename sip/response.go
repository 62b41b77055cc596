package sip

import (
	"io"
	"strconv"
	"strings"
)

// Response is a SIP response: a status code, a reason phrase, and the
// common message fields (RFC 3261 §7.2).
type Response struct {
	MessageData

	StatusCode   int
	ReasonPhrase string
}

// NewResponseFromRequest builds a response carrying the request's
// dialog-forming headers (Via stack copied, From/Call-ID/CSeq copied
// verbatim, To copied and, if toTag is non-empty, tagged) per RFC 3261
// §8.2.6.2.
func NewResponseFromRequest(req *Request, code int, reason, toTag string) *Response {
	resp := &Response{StatusCode: code, ReasonPhrase: reason}
	resp.Init()
	resp.SipVersion = req.SipVersion
	resp.Via = make([]*ViaHeader, len(req.Via))
	for i, v := range req.Via {
		resp.Via[i] = v.Clone().(*ViaHeader)
	}
	resp.FromHdr = req.FromHdr.Clone().(*FromHeader)
	resp.ToHdr = req.ToHdr.Clone().(*ToHeader)
	if toTag != "" {
		if _, has := resp.ToHdr.Tag(); !has {
			resp.ToHdr.Params = resp.ToHdr.Params.Clone()
			resp.ToHdr.Params.Add("tag", toTag)
		}
	}
	resp.CallIDHdr = req.CallIDHdr
	resp.CSeqHdr = req.CSeqHdr.Clone().(*CSeqHeader)
	return resp
}

// NewTag generates a From/To tag value (RFC 3261 §19.3 token); callers use
// this for locally-generated dialog tags.
func NewTag() string {
	return GenerateTagN(10)
}

func (r *Response) IsProvisional() bool { return r.StatusCode >= 100 && r.StatusCode < 200 }
func (r *Response) IsSuccess() bool     { return r.StatusCode >= 200 && r.StatusCode < 300 }
func (r *Response) IsRedirect() bool    { return r.StatusCode >= 300 && r.StatusCode < 400 }
func (r *Response) IsClientError() bool { return r.StatusCode >= 400 && r.StatusCode < 500 }
func (r *Response) IsServerError() bool { return r.StatusCode >= 500 && r.StatusCode < 600 }
func (r *Response) IsGlobalError() bool { return r.StatusCode >= 600 && r.StatusCode < 700 }
func (r *Response) IsFinal() bool       { return r.StatusCode >= 200 }

func (r *Response) String() string {
	var b strings.Builder
	r.StringWrite(&b)
	return b.String()
}

func (r *Response) StringWrite(buffer io.StringWriter) {
	buffer.WriteString(r.SipVersion)
	buffer.WriteString(" ")
	buffer.WriteString(strconv.Itoa(r.StatusCode))
	buffer.WriteString(" ")
	buffer.WriteString(r.ReasonPhrase)
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
	writeHeaderLines(buffer, r.Headers())
	buffer.WriteString("\r\n")
	buffer.WriteString(string(r.Body))
}

// Clone deep-copies a response so a forked branch's retransmissions never
// alias another branch's mutable state.
func (r *Response) Clone() *Response {
	c := &Response{
		MessageData:  r.MessageData,
		StatusCode:   r.StatusCode,
		ReasonPhrase: r.ReasonPhrase,
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

// TxKey mirrors Request.TxKey for responses, keyed off the CSeq method
// (ACK responses don't exist, so no special-casing is needed here).
func (r *Response) TxKey() (string, bool) {
	via, ok := r.Top()
	if !ok {
		return "", false
	}
	branch, ok := via.Branch()
	if !ok {
		return "", false
	}
	return branch + TxSeperator + string(r.CSeqHdr.MethodName), true
}
