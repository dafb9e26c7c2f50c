// Package module implements the append-only-then-frozen collection of type
// descriptors a compiler or host builds up before installing it under a
// parcel. A Module is immutable once Finish is called.
package module

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"yama/typedesc"
)

// ErrDuplicateName is returned by Builder.Add when the unqualified name is
// already present.
var ErrDuplicateName = errors.New("module: duplicate descriptor name")

// ErrOrphanMethod is returned by Finish when a method descriptor's owner
// struct name does not also exist in the same module.
var ErrOrphanMethod = errors.New("module: method owner not found in module")

// Module is a frozen, ordered set of descriptors with O(1) lookup by
// unqualified name.
type Module struct {
	order  []string
	byName map[string]*typedesc.Descriptor
}

// Len returns the number of descriptors.
func (m *Module) Len() int { return len(m.order) }

// Lookup returns the descriptor named name, if present.
func (m *Module) Lookup(name string) (*typedesc.Descriptor, bool) {
	d, ok := m.byName[name]
	return d, ok
}

// Names returns every descriptor name, in insertion order.
func (m *Module) Names() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Descriptors returns every descriptor, in insertion order.
func (m *Module) Descriptors() []*typedesc.Descriptor {
	return lo.Map(m.order, func(name string, _ int) *typedesc.Descriptor {
		return m.byName[name]
	})
}

// Has reports whether a member name (used for Owner::Name existence checks
// during method-owner validation) is present in the module.
func (m *Module) Has(name string) bool {
	_, ok := m.byName[name]
	return ok
}

// Builder accumulates descriptors; names must be unique within one module.
// Finish freezes the builder into an immutable Module.
type Builder struct {
	order  []string
	byName map[string]*typedesc.Descriptor
	frozen bool
}

func NewBuilder() *Builder {
	return &Builder{byName: make(map[string]*typedesc.Descriptor)}
}

// Add appends a descriptor under its own unqualified name. Returns
// ErrDuplicateName if the name is already present.
func (b *Builder) Add(d *typedesc.Descriptor) error {
	if b.frozen {
		panic("module: add after finish")
	}
	if _, exists := b.byName[d.Name()]; exists {
		return errors.Wrapf(ErrDuplicateName, "name %q", d.Name())
	}
	b.order = append(b.order, d.Name())
	b.byName[d.Name()] = d
	return nil
}

// Finish validates every method descriptor's owner exists in the same
// module, then freezes the builder into a Module. The builder must not be
// reused afterward.
func (b *Builder) Finish() (*Module, error) {
	b.frozen = true
	for _, name := range b.order {
		d := b.byName[name]
		if d.Kind() != typedesc.KindMethod {
			continue
		}
		owner, _ := typedesc.OwnerOf(d.Name())
		if owner == "" {
			return nil, errors.Wrapf(ErrOrphanMethod, "malformed method name %q", d.Name())
		}
		ownerDesc, ok := b.byName[owner]
		if !ok || ownerDesc.Kind() != typedesc.KindStruct {
			return nil, errors.Wrapf(ErrOrphanMethod, "method %q", d.Name())
		}
	}

	m := &Module{
		order:  make([]string, len(b.order)),
		byName: make(map[string]*typedesc.Descriptor, len(b.byName)),
	}
	copy(m.order, b.order)
	for k, v := range b.byName {
		m.byName[k] = v
	}
	return m, nil
}
