package security

import (
	"sync"

	"github.com/mycelia-dev/subsystem-kernel/errs"
)

// RWS is the Reader/Writer Set access-control lattice described in
// spec §3/§4.8: owner implicitly has full access, kernel bypasses
// checks, readers and writers are disjoint sets.
type RWS struct {
	mu         sync.Mutex
	pkr        *PKR
	principals *Registry
	readers    map[string]struct{}
	writers    map[string]struct{}
}

func newRWS(pkr *PKR, principals *Registry) *RWS {
	return &RWS{
		pkr:        pkr,
		principals: principals,
		readers:    make(map[string]struct{}),
		writers:    make(map[string]struct{}),
	}
}

// Owner returns the RWS owner's uuid.
func (r *RWS) Owner() string { return r.pkr.uuid }

// IsKernel delegates to the owning registry.
func (r *RWS) IsKernel(uuid string) bool {
	return r.principals.isKernelUUID(uuid)
}

func (r *RWS) isOwner(uuid string) bool { return uuid == r.pkr.uuid }

// CanRead is kernel ∨ owner ∨ reader ∨ writer.
func (r *RWS) CanRead(uuid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.IsKernel(uuid) || r.isOwner(uuid) {
		return true
	}
	_, isReader := r.readers[uuid]
	_, isWriter := r.writers[uuid]
	return isReader || isWriter
}

// CanWrite is kernel ∨ owner ∨ writer.
func (r *RWS) CanWrite(uuid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.IsKernel(uuid) || r.isOwner(uuid) {
		return true
	}
	_, isWriter := r.writers[uuid]
	return isWriter
}

// CanGrant is kernel ∨ owner.
func (r *RWS) CanGrant(uuid string) bool {
	return r.IsKernel(uuid) || r.isOwner(uuid)
}

// AddReader succeeds only when granter canGrant.
func (r *RWS) AddReader(granter, reader string) error {
	if !r.CanGrant(granter) {
		return errs.New(errs.Unauthorized, "%q may not grant read access on %q", granter, r.pkr.uuid)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.writers, reader)
	r.readers[reader] = struct{}{}
	return nil
}

// AddWriter succeeds only when granter canGrant.
func (r *RWS) AddWriter(granter, writer string) error {
	if !r.CanGrant(granter) {
		return errs.New(errs.Unauthorized, "%q may not grant write access on %q", granter, r.pkr.uuid)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.readers, writer)
	r.writers[writer] = struct{}{}
	return nil
}

// RemoveReader succeeds only when granter canGrant.
func (r *RWS) RemoveReader(granter, reader string) error {
	if !r.CanGrant(granter) {
		return errs.New(errs.Unauthorized, "%q may not revoke read access on %q", granter, r.pkr.uuid)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.readers, reader)
	return nil
}

// RemoveWriter succeeds only when granter canGrant.
func (r *RWS) RemoveWriter(granter, writer string) error {
	if !r.CanGrant(granter) {
		return errs.New(errs.Unauthorized, "%q may not revoke write access on %q", granter, r.pkr.uuid)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.writers, writer)
	return nil
}

// Promote moves uuid from reader to writer. A no-op if uuid is not a
// reader.
func (r *RWS) Promote(uuid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.readers[uuid]; !ok {
		return
	}
	delete(r.readers, uuid)
	r.writers[uuid] = struct{}{}
}

// Demote moves uuid from writer to reader. A no-op if uuid is not a
// writer.
func (r *RWS) Demote(uuid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.writers[uuid]; !ok {
		return
	}
	delete(r.writers, uuid)
	r.readers[uuid] = struct{}{}
}

// Clone returns an independent copy sharing the PKR and principals
// reference, per spec §4.8.
func (r *RWS) Clone() *RWS {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := newRWS(r.pkr, r.principals)
	for uuid := range r.readers {
		out.readers[uuid] = struct{}{}
	}
	for uuid := range r.writers {
		out.writers[uuid] = struct{}{}
	}
	return out
}
