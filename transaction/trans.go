package transaction

import (
	"time"

	"github.com/sipflow/callcore/sip"
)

// Status is a client transaction's position in the state machines spec
// §4.5 names: the INVITE family (invite_calling -> invite_proceeding ->
// {invite_accepted | invite_completed | finished}) and the non-INVITE
// family (trying -> proceeding -> {completed | finished}). Represented as
// one enum per spec §9's "tagged sum type" design note, since a given
// transaction only ever visits the states of its own family.
type Status int

const (
	StatusInviteCalling Status = iota
	StatusInviteProceeding
	StatusInviteAccepted
	StatusInviteCompleted
	StatusTrying
	StatusProceeding
	StatusCompleted
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusInviteCalling:
		return "invite_calling"
	case StatusInviteProceeding:
		return "invite_proceeding"
	case StatusInviteAccepted:
		return "invite_accepted"
	case StatusInviteCompleted:
		return "invite_completed"
	case StatusTrying:
		return "trying"
	case StatusProceeding:
		return "proceeding"
	case StatusCompleted:
		return "completed"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// CancelState is the transaction's cancel intent (spec §5 "Cancellation").
type CancelState int

const (
	CancelNone CancelState = iota
	CancelToCancel
	CancelCancelled
)

// OriginKind distinguishes a transaction started directly by a user request
// from one spawned as one branch of a fork (spec §3 "from").
type OriginKind int

const (
	OriginUser OriginKind = iota
	OriginFork
)

// Origin records who started a transaction: a direct user request, or a
// fork branch naming its parent transaction id.
type Origin struct {
	Kind          OriginKind
	ParentTransID string
}

func (o Origin) IsProxy() bool { return o.Kind == OriginFork }

// Trans is a client transaction (spec §3 "Transaction (Trans)").
type Trans struct {
	ID        string
	Method    sip.RequestMethod
	Transport string // "udp" | "reliable"
	From      Origin
	Opts      map[string]string

	Request  *sip.Request
	Response *sip.Response
	Code     int

	Status Status
	Start  time.Time
	Cancel CancelState

	// ToTags is the ordered list of distinct To-tags seen; the first is
	// the primary response, later ones are secondary (forked) responses.
	ToTags []string

	timers *timerSet

	// retransmitInterval tracks the current backoff for the retransmission
	// timer; doubled on each fire, capped at T2 for non-INVITE (spec §4.6
	// grounded on the teacher's timer_a_time field).
	retransmitInterval time.Duration
}

// isUDP reports whether the transaction's transport needs retransmission
// absorption (timer_d/timer_k arm only over UDP, spec §4.5).
func (t *Trans) isUDP() bool {
	return t.Transport == "" || t.Transport == "udp" || t.Transport == "UDP"
}

// isInvite reports whether this transaction belongs to the INVITE family.
func (t *Trans) isInvite() bool {
	return t.Method == sip.INVITE
}

// hasToTag reports whether tag is already recorded (primary or secondary).
func (t *Trans) hasToTag(tag string) bool {
	for _, existing := range t.ToTags {
		if existing == tag {
			return true
		}
	}
	return false
}

// primaryTag returns the first recorded To-tag, if any.
func (t *Trans) primaryTag() (string, bool) {
	if len(t.ToTags) == 0 {
		return "", false
	}
	return t.ToTags[0], true
}

func responseToTag(resp *sip.Response) string {
	if resp == nil || resp.ToHdr == nil {
		return ""
	}
	tag, _ := resp.ToHdr.Tag()
	return tag
}

// dialogID derives the dialog identifier spec §6's dialog interface keys
// on: Call-ID plus the local (From) tag and remote (To) tag.
func dialogID(req *sip.Request, toTag string) string {
	if req == nil || req.FromHdr == nil {
		return ""
	}
	fromTag, _ := req.FromHdr.Tag()
	return sip.DialogIDMake(string(req.CallIDHdr), fromTag, toTag)
}
