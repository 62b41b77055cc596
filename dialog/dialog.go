// Package dialog defines the dialog-subsystem contract the UAC state
// machine consumes (spec §1/§6: update, auth_update, remove_prov_event,
// invoke) plus a minimal in-memory reference implementation for tests.
// Full dialog state maintenance is a spec Non-goal; this package never
// grows into one.
package dialog

import (
	"context"

	"github.com/sipflow/callcore/sip"
)

// Subsystem is the dialog collaborator the transaction package calls into
// at the points spec §4.5 names.
type Subsystem interface {
	// Update folds a request/response pair into dialog state. isProxy is
	// true when the owning transaction was spawned by a fork rather than
	// a direct user request.
	Update(ctx context.Context, req *sip.Request, resp *sip.Response, isProxy bool) error

	// AuthUpdate refreshes authentication/session state for a 2xx final
	// response on dialogID.
	AuthUpdate(ctx context.Context, dialogID string, resp *sip.Response) error

	// RemoveProvEvent drops a pending provisional-event subscription tied
	// to req, used for SUBSCRIBE/REFER failures.
	RemoveProvEvent(ctx context.Context, req *sip.Request) error

	// Invoke asks the dialog subsystem to act on an established dialog,
	// e.g. method "ACK" or "BYE" for the received-hangup path (spec
	// §4.5 "Received-hangup").
	Invoke(ctx context.Context, dialogID string, method sip.RequestMethod, opts map[string]string) error
}
