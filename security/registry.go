package security

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mycelia-dev/subsystem-kernel/errs"
)

// Principal kinds enumerated in spec §3.
const (
	KindKernel   = "kernel"
	KindTopLevel = "topLevel"
	KindChild    = "child"
	KindFriend   = "friend"
	KindResource = "resource"
)

var validKinds = map[string]bool{
	KindKernel: true, KindTopLevel: true, KindChild: true, KindFriend: true, KindResource: true,
}

// privateKeyKinds is the set of kinds mint() issues a private key
// for, per spec §4.8.
var privateKeyKinds = map[string]bool{KindKernel: true, KindTopLevel: true, KindFriend: true}

// Principal is a registered identity record, per spec §3.
type Principal struct {
	UUID       string
	Kind       string
	PublicKey  KeyHandle
	PrivateKey KeyHandle // nil unless Kind is kernel/topLevel/friend
	Name       string
	Metadata   map[string]any
	CreatedAt  time.Time
	Instance   any
	Owner      string // uuid of owning principal, for child/resource
}

// PrincipalOptions carries createPrincipal's optional fields.
type PrincipalOptions struct {
	Name       string
	Metadata   map[string]any
	Instance   any
	Owner      string
	Expiration string
}

// Registry is the Principal Registry described in spec §4.8: it
// mints and refreshes keys, creates principals/identities/RWSs, and
// enforces uniqueness.
type Registry struct {
	mu sync.Mutex

	kernel   Kernel
	kernelID string

	allocator *KeyAllocator

	byUUID       map[string]*Principal
	byName       map[string]*Principal
	byPublicKey  map[KeyHandle]*Principal
	byPrivateKey map[KeyHandle]*Principal

	pkrByUUID map[string]*PKR
	rwsByUUID map[string]*RWS

	refreshLocks map[string]*sync.Mutex
}

// New builds a Registry around kernel and immediately mints the
// kernel principal and its identity, per spec §4.8.
func New(kernel Kernel) (*Registry, *Identity, error) {
	if kernel == nil {
		return nil, nil, errs.New(errs.KernelAbsent, "registry requires a kernel offering sendProtected")
	}
	r := &Registry{
		kernel:       kernel,
		allocator:    NewKeyAllocator(),
		byUUID:       make(map[string]*Principal),
		byName:       make(map[string]*Principal),
		byPublicKey:  make(map[KeyHandle]*Principal),
		byPrivateKey: make(map[KeyHandle]*Principal),
		pkrByUUID:    make(map[string]*PKR),
		rwsByUUID:    make(map[string]*RWS),
		refreshLocks: make(map[string]*sync.Mutex),
	}
	principal, pkr, err := r.createPrincipalLocked(KindKernel, PrincipalOptions{})
	if err != nil {
		return nil, nil, err
	}
	r.kernelID = principal.UUID
	identity, err := r.createIdentityLocked(pkr)
	if err != nil {
		return nil, nil, err
	}
	return r, identity, nil
}

func (r *Registry) isKernelUUID(uuid string) bool { return uuid != "" && uuid == r.kernelID }

// Mint returns a fresh key pair for kind; privateKey is non-nil only
// for kernel/topLevel/friend.
func (r *Registry) Mint(kind string) (publicKey, privateKey KeyHandle) {
	publicKey = r.allocator.Mint()
	if privateKeyKinds[kind] {
		privateKey = r.allocator.Mint()
	}
	return publicKey, privateKey
}

// CreatePrincipal validates kind, enforces at most one kernel, mints
// keys, and records the principal plus its PKR.
func (r *Registry) CreatePrincipal(kind string, opts PrincipalOptions) (*Principal, *PKR, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createPrincipalLocked(kind, opts)
}

func (r *Registry) createPrincipalLocked(kind string, opts PrincipalOptions) (*Principal, *PKR, error) {
	if !validKinds[kind] {
		return nil, nil, errs.New(errs.InvalidArgument, "unknown principal kind %q", kind)
	}
	if kind == KindKernel && r.kernelID != "" {
		return nil, nil, errs.New(errs.DuplicateKind, "registry already has a kernel principal")
	}
	if opts.Name != "" {
		if _, exists := r.byName[opts.Name]; exists {
			return nil, nil, errs.New(errs.InvalidArgument, "principal name %q already registered", opts.Name)
		}
	}

	pub, priv := r.Mint(kind)
	id := uuid.NewString()
	principal := &Principal{
		UUID:       id,
		Kind:       kind,
		PublicKey:  pub,
		PrivateKey: priv,
		Name:       opts.Name,
		Metadata:   opts.Metadata,
		CreatedAt:  time.Now(),
		Instance:   opts.Instance,
		Owner:      opts.Owner,
	}

	var minter KeyHandle
	if r.kernelID != "" {
		if kp, ok := r.byUUID[r.kernelID]; ok {
			minter = kp.PublicKey
		}
	}
	pkr, err := NewPKR(id, kind, pub, PKROptions{Name: opts.Name, Minter: minter, Expiration: opts.Expiration})
	if err != nil {
		return nil, nil, err
	}

	r.byUUID[id] = principal
	if opts.Name != "" {
		r.byName[opts.Name] = principal
	}
	r.byPublicKey[pub] = principal
	if priv != nil {
		r.byPrivateKey[priv] = principal
	}
	r.pkrByUUID[id] = pkr

	return principal, pkr, nil
}

// ResolvePKR returns the private key for pkr's public key, or nil if
// unknown.
func (r *Registry) ResolvePKR(pkr *PKR) KeyHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byPublicKey[pkr.publicKey]
	if !ok {
		return nil
	}
	return p.PrivateKey
}

// RefreshPrincipal mints a new key pair for principal if its current
// PKR has expired, atomically per-principal. An unexpired PKR is
// returned unchanged.
func (r *Registry) RefreshPrincipal(principal *Principal) (*PKR, error) {
	lock := r.refreshLockFor(principal.UUID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	current, ok := r.pkrByUUID[principal.UUID]
	r.mu.Unlock()
	if !ok {
		return nil, errs.New(errs.UnknownPrincipal, "no PKR for principal %q", principal.UUID)
	}
	if !current.IsExpired() {
		return current, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	oldPub, oldPriv := principal.PublicKey, principal.PrivateKey
	newPub, newPriv := r.Mint(principal.Kind)

	var minter KeyHandle
	if r.kernelID != "" {
		if kp, ok := r.byUUID[r.kernelID]; ok {
			minter = kp.PublicKey
		}
	}
	newPKR, err := NewPKR(principal.UUID, principal.Kind, newPub, PKROptions{Name: principal.Name, Minter: minter})
	if err != nil {
		return nil, err
	}

	principal.PublicKey = newPub
	principal.PrivateKey = newPriv

	delete(r.byPublicKey, oldPub)
	if oldPriv != nil {
		delete(r.byPrivateKey, oldPriv)
	}
	r.byPublicKey[newPub] = principal
	if newPriv != nil {
		r.byPrivateKey[newPriv] = principal
	}
	r.pkrByUUID[principal.UUID] = newPKR
	delete(r.rwsByUUID, principal.UUID) // replaces identity wrappers: force recreation

	return newPKR, nil
}

func (r *Registry) refreshLockFor(uuid string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.refreshLocks[uuid]
	if !ok {
		lock = &sync.Mutex{}
		r.refreshLocks[uuid] = lock
	}
	return lock
}

// CreateRWS returns the per-principal RWS for pkr, creating and
// caching it on first use.
func (r *Registry) CreateRWS(pkr *PKR) *RWS {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createRWSLocked(pkr)
}

func (r *Registry) createRWSLocked(pkr *PKR) *RWS {
	if rws, ok := r.rwsByUUID[pkr.uuid]; ok {
		return rws
	}
	rws := newRWS(pkr, r)
	r.rwsByUUID[pkr.uuid] = rws
	return rws
}

// CreateIdentity wraps pkr with its RWS; requires a kernel.
func (r *Registry) CreateIdentity(pkr *PKR) (*Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createIdentityLocked(pkr)
}

func (r *Registry) createIdentityLocked(pkr *PKR) (*Identity, error) {
	if r.kernel == nil {
		return nil, errs.New(errs.KernelAbsent, "registry has no kernel")
	}
	rws := r.createRWSLocked(pkr)
	return &Identity{pkr: pkr, subject: pkr.uuid, rws: rws, kernel: r.kernel}, nil
}

// CreateFriendIdentity is CreateIdentity, restricted to friend
// principals.
func (r *Registry) CreateFriendIdentity(pkr *PKR) (*Identity, error) {
	r.mu.Lock()
	principal, ok := r.byUUID[pkr.uuid]
	r.mu.Unlock()
	if !ok {
		return nil, errs.New(errs.UnknownPrincipal, "no principal for pkr %q", pkr.uuid)
	}
	if principal.Kind != KindFriend {
		return nil, errs.New(errs.InvalidArgument, "principal %q is not a friend", pkr.uuid)
	}
	return r.CreateIdentity(pkr)
}

// Get accepts a uuid string, name string, or KeyHandle and resolves
// the matching Principal.
func (r *Registry) Get(key any) (*Principal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch k := key.(type) {
	case string:
		if p, ok := r.byUUID[k]; ok {
			return p, true
		}
		p, ok := r.byName[k]
		return p, ok
	case KeyHandle:
		if p, ok := r.byPublicKey[k]; ok {
			return p, true
		}
		p, ok := r.byPrivateKey[k]
		return p, ok
	default:
		return nil, false
	}
}

// Has reports whether key resolves to a known principal.
func (r *Registry) Has(key any) bool {
	_, ok := r.Get(key)
	return ok
}

// Delete removes every mapping for the principal key resolves to.
// Deleting the kernel clears kernelID.
func (r *Registry) Delete(key any) {
	p, ok := r.Get(key)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byUUID, p.UUID)
	if p.Name != "" {
		delete(r.byName, p.Name)
	}
	delete(r.byPublicKey, p.PublicKey)
	if p.PrivateKey != nil {
		delete(r.byPrivateKey, p.PrivateKey)
	}
	delete(r.pkrByUUID, p.UUID)
	delete(r.rwsByUUID, p.UUID)
	if p.UUID == r.kernelID {
		r.kernelID = ""
	}
}

// Clear removes all mappings and the RWS cache.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUUID = make(map[string]*Principal)
	r.byName = make(map[string]*Principal)
	r.byPublicKey = make(map[KeyHandle]*Principal)
	r.byPrivateKey = make(map[KeyHandle]*Principal)
	r.pkrByUUID = make(map[string]*PKR)
	r.rwsByUUID = make(map[string]*RWS)
	r.kernelID = ""
}
