// Package sip holds the message and URI data model shared by the proxy
// router, the stateless relay, and the UAC transaction state machine.
//
// Parsing a request or response from wire bytes is an external concern
// (a message parser feeding this package pre-built values) except for one
// pure function this package does own: ParseURIs, the `parse_uris`
// contract used by the URI-set normalizer.
package sip

import (
	"strings"
)

const (
	RFC3261BranchMagicCookie = "z9hG4bK"

	// TxSeperator joins components of derived transaction/dialog keys.
	TxSeperator = "__"
)

// RequestMethod is a SIP method name.
type RequestMethod string

func (m RequestMethod) String() string { return string(m) }

const (
	INVITE    RequestMethod = "INVITE"
	ACK       RequestMethod = "ACK"
	CANCEL    RequestMethod = "CANCEL"
	BYE       RequestMethod = "BYE"
	REGISTER  RequestMethod = "REGISTER"
	OPTIONS   RequestMethod = "OPTIONS"
	SUBSCRIBE RequestMethod = "SUBSCRIBE"
	NOTIFY    RequestMethod = "NOTIFY"
	REFER     RequestMethod = "REFER"
	INFO      RequestMethod = "INFO"
	MESSAGE   RequestMethod = "MESSAGE"
	PRACK     RequestMethod = "PRACK"
	UPDATE    RequestMethod = "UPDATE"
)

// GenerateBranch returns a random unique Via branch, RFC 3261 §19.3.
func GenerateBranch() string {
	return GenerateBranchN(16)
}

// GenerateBranchN returns a branch of n random characters after the magic cookie.
func GenerateBranchN(n int) string {
	sb := &strings.Builder{}
	sb.Grow(len(RFC3261BranchMagicCookie) + n + 1)
	sb.WriteString(RFC3261BranchMagicCookie)
	sb.WriteString(".")
	RandStringBytesMask(sb, n)
	return sb.String()
}

// GenerateTagN returns a random From/To tag of n characters.
func GenerateTagN(n int) string {
	sb := &strings.Builder{}
	RandStringBytesMask(sb, n)
	return sb.String()
}

// DialogIDMake joins a dialog's Call-ID and two tags into one opaque id.
func DialogIDMake(callID, innerTag, externalTag string) string {
	return strings.Join([]string{callID, innerTag, externalTag}, TxSeperator)
}
