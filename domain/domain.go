// Package domain implements the process-wide type registry: installed
// parcels, the head-to-head dependency-alias map, the cache of loaded type
// handles, and the load algorithm that links a qualified name into a
// fully-resolved, verified type handle.
package domain

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"yama/module"
	"yama/parcel"
	"yama/typedesc"
	"yama/verifier"
)

var (
	ErrNotFound      = errors.New("domain: qualified name not found")
	ErrUnknownHead   = errors.New("domain: unknown head")
	ErrMalformedName = errors.New("domain: malformed qualified name")
	ErrVerification  = errors.New("domain: descriptor failed verification")
	ErrOrphanOwner   = errors.New("domain: owner member not loadable")
)

// builtinHead is the reserved head alias bound directly to a domain's
// built-in primitive handles, bypassing parcel resolution entirely. Not
// literally part of spec.md's qualified-name grammar (which only names
// "self" and declared deps); see DESIGN.md's Open Question decisions for
// why the loader needs a third, reserved alias to give the seven built-in
// primitives plus Type a qualified name at all.
const builtinHead = "builtin"

var builtinNames = [...]string{"None", "Int", "UInt", "Float", "Bool", "Char", "Fn", "Type"}

// Handle is a loaded type: it implements scalar.TypeHandle (via
// QualifiedName) and carries the resolved descriptor, or nil for one of
// the eight built-in primitives, which have no descriptor of their own.
type Handle struct {
	qualName string
	desc     *typedesc.Descriptor
}

func (h *Handle) QualifiedName() string            { return h.qualName }
func (h *Handle) Descriptor() *typedesc.Descriptor { return h.desc }
func (h *Handle) IsBuiltin() bool                  { return h.desc == nil }

func newHandle(qualName string, desc *typedesc.Descriptor) *Handle {
	return &Handle{qualName: qualName, desc: desc}
}

// Domain is append-only during install (see Apply) and otherwise read-only
// besides the lazily-populated load cache, which is safe for concurrent
// use once installs have stopped (spec.md §5 shared-resources discipline).
type Domain struct {
	mu      sync.Mutex
	parcels map[string]parcel.Parcel
	depMap  map[string]map[string]string // installerHead -> depName -> targetHead

	cache   map[string]*Handle
	pending map[string]*Handle

	importGroup singleflight.Group
	modCache    map[string]*module.Module // head -> imported module, memoized once

	builtins map[string]*Handle
}

// New returns an empty domain pre-populated with the eight built-in
// primitive handles.
func New() *Domain {
	d := &Domain{
		parcels:  make(map[string]parcel.Parcel),
		depMap:   make(map[string]map[string]string),
		cache:    make(map[string]*Handle),
		pending:  make(map[string]*Handle),
		modCache: make(map[string]*module.Module),
		builtins: make(map[string]*Handle),
	}
	for _, name := range builtinNames {
		d.builtins[name] = newHandle(builtinHead+":"+name, nil)
	}
	return d
}

// Builtin returns the handle for one of the eight built-in primitives (the
// seven scalar kinds plus Type), or ok=false if name isn't one of them.
func (d *Domain) Builtin(name string) (*Handle, bool) {
	h, ok := d.builtins[name]
	return h, ok
}

// Apply installs a batch atomically: every install and map_dep call in b
// succeeds together, or the domain is left completely unchanged.
func (d *Domain) Apply(b *parcel.Batch) error {
	if err := b.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	newParcels := make(map[string]parcel.Parcel, len(d.parcels)+len(b.Installs()))
	for k, v := range d.parcels {
		newParcels[k] = v
	}
	for _, ins := range b.Installs() {
		newParcels[ins.Head] = ins.Parcel
	}

	newDepMap := make(map[string]map[string]string, len(d.depMap))
	for k, v := range d.depMap {
		cp := make(map[string]string, len(v))
		for dk, dv := range v {
			cp[dk] = dv
		}
		newDepMap[k] = cp
	}
	for _, dm := range b.DepMaps() {
		if _, ok := newParcels[dm.InstallerHead]; !ok {
			return errors.Wrapf(ErrUnknownHead, "installer %q", dm.InstallerHead)
		}
		if !newParcels[dm.InstallerHead].Metadata().HasDep(dm.DepName) {
			return errors.Wrapf(parcel.ErrUnknownDep, "installer %q dep %q", dm.InstallerHead, dm.DepName)
		}
		if _, ok := newParcels[dm.TargetHead]; !ok {
			return errors.Wrapf(ErrUnknownHead, "target %q", dm.TargetHead)
		}
		if newDepMap[dm.InstallerHead] == nil {
			newDepMap[dm.InstallerHead] = make(map[string]string)
		}
		newDepMap[dm.InstallerHead][dm.DepName] = dm.TargetHead
	}

	d.parcels = newParcels
	d.depMap = newDepMap
	return nil
}

// ParseQualifiedName splits "head:name" or "head:Owner::name" per spec.md
// §6's grammar.
func ParseQualifiedName(qualName string) (head, unqual string, err error) {
	i := strings.Index(qualName, ":")
	if i <= 0 || i == len(qualName)-1 {
		return "", "", errors.Wrapf(ErrMalformedName, "%q", qualName)
	}
	head = qualName[:i]
	unqual = qualName[i+1:]
	if strings.Contains(head, ":") {
		return "", "", errors.Wrapf(ErrMalformedName, "%q", qualName)
	}
	return head, unqual, nil
}

// Load implements the §4.5 algorithm: cache check, parcel import
// (memoized per head), name lookup, member-owner check, verification,
// type-constant linking (with two-phase cyclic resolution via a pending
// table), and cache insertion.
func (d *Domain) Load(qualName string) (*Handle, error) {
	head, unqual, err := ParseQualifiedName(qualName)
	if err != nil {
		return nil, err
	}
	return d.load(head, unqual)
}

func (d *Domain) load(head, unqual string) (*Handle, error) {
	qualName := head + ":" + unqual

	if head == builtinHead {
		h, ok := d.builtins[unqual]
		if !ok {
			return nil, errors.Wrapf(ErrNotFound, "%q", qualName)
		}
		return h, nil
	}

	d.mu.Lock()
	if h, ok := d.cache[qualName]; ok {
		d.mu.Unlock()
		return h, nil
	}
	if h, ok := d.pending[qualName]; ok {
		d.mu.Unlock()
		return h, nil // cycle: return the in-progress handle; its slots finish resolving up the call stack
	}
	p, ok := d.parcels[head]
	d.mu.Unlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownHead, "%q", head)
	}

	mod, err := d.importModule(head, p)
	if err != nil {
		return nil, err
	}

	desc, ok := mod.Lookup(unqual)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%q", qualName)
	}

	if typedesc.IsMethodName(unqual) {
		owner, _ := typedesc.OwnerOf(unqual)
		if _, err := d.load(head, owner); err != nil {
			return nil, errors.Wrapf(ErrOrphanOwner, "%q: %v", qualName, err)
		}
	}

	meta := p.Metadata()
	if ok, signals := verifier.Verify(qualName, desc, meta); !ok {
		return nil, errors.Wrapf(ErrVerification, "%q: %v", qualName, signals)
	}

	handle := newHandle(qualName, desc)
	d.mu.Lock()
	d.pending[qualName] = handle
	d.mu.Unlock()

	for _, idx := range desc.Consts().TypeConstIndices() {
		entry, _ := desc.Consts().Get(idx)
		targetHead, targetUnqual, rerr := d.resolveQualName(head, entry.QualName, meta)
		if rerr != nil {
			d.evict(qualName)
			return nil, rerr
		}
		th, lerr := d.load(targetHead, targetUnqual)
		if lerr != nil {
			d.evict(qualName)
			return nil, lerr
		}
		desc.Consts().Resolve(idx, th)
	}
	desc.SetOwnerHead(head)

	d.mu.Lock()
	delete(d.pending, qualName)
	d.cache[qualName] = handle
	d.mu.Unlock()
	return handle, nil
}

func (d *Domain) evict(qualName string) {
	d.mu.Lock()
	delete(d.pending, qualName)
	d.mu.Unlock()
}

// resolveQualName rewrites a constant-table entry's authored qualified
// name (whose head is "self", "builtin", or one of the installing
// parcel's declared dep names) to a real domain head, per spec.md §6.
func (d *Domain) resolveQualName(installerHead, rawQualName string, meta parcel.Metadata) (realHead, unqual string, err error) {
	rawHead, unqual, err := ParseQualifiedName(rawQualName)
	if err != nil {
		return "", "", err
	}
	if rawHead == builtinHead {
		return builtinHead, unqual, nil
	}
	if rawHead == "self" {
		return installerHead, unqual, nil
	}
	d.mu.Lock()
	targetHead, ok := d.depMap[installerHead][rawHead]
	d.mu.Unlock()
	if ok {
		return targetHead, unqual, nil
	}
	if meta.HasDep(rawHead) {
		return "", "", errors.Wrapf(ErrUnknownHead, "dep %q declared but never mapped by an install batch", rawHead)
	}
	return "", "", errors.Wrapf(ErrUnknownHead, "%q is neither self, builtin, nor a declared dep", rawHead)
}

// importModule resolves a parcel's top-level module, memoizing exactly one
// concurrent call per head via singleflight even if Load is invoked from
// multiple goroutines for names sharing that head.
func (d *Domain) importModule(head string, p parcel.Parcel) (*module.Module, error) {
	d.mu.Lock()
	if mod, ok := d.modCache[head]; ok {
		d.mu.Unlock()
		return mod, nil
	}
	d.mu.Unlock()

	v, err, _ := d.importGroup.Do(head, func() (interface{}, error) {
		mod, ok := p.Import("")
		if !ok {
			return nil, errors.Wrapf(ErrNotFound, "parcel %q has no top-level module", head)
		}
		d.mu.Lock()
		d.modCache[head] = mod
		d.mu.Unlock()
		return mod, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*module.Module), nil
}
