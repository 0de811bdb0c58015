package security

import (
	"github.com/mycelia-dev/subsystem-kernel/errs"
	"github.com/mycelia-dev/subsystem-kernel/message"
)

// Kernel is the external collaborator an Identity forwards protected
// sends to (spec §4.8/§1: "concrete kernel transports ... specify
// only their contract").
type Kernel interface {
	SendProtected(pkr *PKR, msg message.Message, opts map[string]any) error
}

// Identity wraps a principal's PKR together with the RWS it owns,
// exposing permission-checked accessors (spec §4.8). Subject is the
// uuid evaluated against RWS; createIdentity binds it to the PKR's
// own principal.
type Identity struct {
	pkr     *PKR
	subject string
	rws     *RWS
	kernel  Kernel
}

// PKR returns the wrapped identity record.
func (id *Identity) PKR() *PKR { return id.pkr }

// CanRead reports whether the subject can read the wrapped RWS.
func (id *Identity) CanRead() bool { return id.rws.CanRead(id.subject) }

// CanWrite reports whether the subject can write the wrapped RWS.
func (id *Identity) CanWrite() bool { return id.rws.CanWrite(id.subject) }

// CanGrant reports whether the subject can grant on the wrapped RWS.
func (id *Identity) CanGrant() bool { return id.rws.CanGrant(id.subject) }

// RequireRead invokes handler only if CanRead, else raises
// Unauthorized.
func (id *Identity) RequireRead(handler func() (any, error)) (any, error) {
	if !id.CanRead() {
		return nil, errs.New(errs.Unauthorized, "read access denied for %q", id.subject)
	}
	return handler()
}

// RequireWrite invokes handler only if CanWrite, else raises
// Unauthorized.
func (id *Identity) RequireWrite(handler func() (any, error)) (any, error) {
	if !id.CanWrite() {
		return nil, errs.New(errs.Unauthorized, "write access denied for %q", id.subject)
	}
	return handler()
}

// RequireGrant invokes handler only if CanGrant, else raises
// Unauthorized.
func (id *Identity) RequireGrant(handler func() (any, error)) (any, error) {
	if !id.CanGrant() {
		return nil, errs.New(errs.Unauthorized, "grant access denied for %q", id.subject)
	}
	return handler()
}

// RequireAuth dispatches to the matching require* wrapper by kind
// ("read", "write", or "grant").
func (id *Identity) RequireAuth(kind string, handler func() (any, error)) (any, error) {
	switch kind {
	case "read":
		return id.RequireRead(handler)
	case "write":
		return id.RequireWrite(handler)
	case "grant":
		return id.RequireGrant(handler)
	default:
		return nil, errs.New(errs.InvalidArgument, "unknown auth kind %q", kind)
	}
}

// GrantReader grants reader to readerUUID, with this identity as
// granter.
func (id *Identity) GrantReader(readerUUID string) error {
	return id.rws.AddReader(id.subject, readerUUID)
}

// GrantWriter grants writer to writerUUID, with this identity as
// granter.
func (id *Identity) GrantWriter(writerUUID string) error {
	return id.rws.AddWriter(id.subject, writerUUID)
}

// RevokeReader revokes readerUUID's reader access.
func (id *Identity) RevokeReader(readerUUID string) error {
	return id.rws.RemoveReader(id.subject, readerUUID)
}

// RevokeWriter revokes writerUUID's writer access.
func (id *Identity) RevokeWriter(writerUUID string) error {
	return id.rws.RemoveWriter(id.subject, writerUUID)
}

// Promote moves uuid from reader to writer on the wrapped RWS.
func (id *Identity) Promote(uuid string) { id.rws.Promote(uuid) }

// Demote moves uuid from writer to reader on the wrapped RWS.
func (id *Identity) Demote(uuid string) { id.rws.Demote(uuid) }

// SendProtected forwards to kernel.SendProtected(ownerPKR, msg, opts).
func (id *Identity) SendProtected(msg message.Message, opts map[string]any) error {
	if id.kernel == nil {
		return errs.New(errs.KernelAbsent, "identity has no kernel to send through")
	}
	return id.kernel.SendProtected(id.pkr, msg, opts)
}
