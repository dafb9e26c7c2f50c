// Package parcel implements the named unit of shippable modules: the
// Parcel interface, its metadata, and the atomic install batch that wires
// parcels and their dependency aliases into a domain.
package parcel

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"yama/module"
)

// Metadata is a parcel's self-name plus the dependency names it declares.
// The self-name is the alias a parcel's own modules use to refer to
// themselves in qualified names (the "self" head).
type Metadata struct {
	SelfName string
	DepNames []string
}

// HasDep reports whether name is among the parcel's declared dependencies.
func (m Metadata) HasDep(name string) bool {
	return lo.Contains(m.DepNames, name)
}

// Parcel is a named unit of distribution: a resolver from relative import
// path to module, plus declared metadata. Implementations are typically a
// compiled-module bundle or a thin wrapper around a single built-in module.
type Parcel interface {
	Metadata() Metadata
	// Import resolves a relative path (parcel-defined; Single in this
	// package resolves only the empty string, to its one module) to a
	// module, or ok=false if no such module exists.
	Import(relativePath string) (*module.Module, bool)
}

// Single wraps exactly one module behind the Parcel interface — the shape
// most host-installed built-in parcels take.
type Single struct {
	meta Metadata
	mod  *module.Module
}

// NewSingle builds a Single parcel. Its Import resolves only the empty
// string, to mod (the parcel's top-level module).
func NewSingle(meta Metadata, mod *module.Module) *Single {
	return &Single{meta: meta, mod: mod}
}

func (s *Single) Metadata() Metadata { return s.meta }

func (s *Single) Import(relativePath string) (*module.Module, bool) {
	if relativePath != "" {
		return nil, false
	}
	return s.mod, true
}

// Install is one (head, parcel) pair queued in a Batch.
type Install struct {
	Head   string
	Parcel Parcel
}

// DepMap is one (installerHead, depName, targetHead) mapping queued in a
// Batch.
type DepMap struct {
	InstallerHead string
	DepName       string
	TargetHead    string
}

// Batch accumulates install and map_dep calls for atomic application to a
// domain: all installs in a batch succeed together, or the domain rejects
// the whole batch and stays unchanged (see domain.Domain.Apply).
type Batch struct {
	installs []Install
	depMaps  []DepMap
}

func NewBatch() *Batch { return &Batch{} }

// Install queues installing p under head-name head.
func (b *Batch) Install(head string, p Parcel) *Batch {
	b.installs = append(b.installs, Install{Head: head, Parcel: p})
	return b
}

// MapDep queues mapping installerHead's declared dependency depName to the
// real head-name targetHead.
func (b *Batch) MapDep(installerHead, depName, targetHead string) *Batch {
	b.depMaps = append(b.depMaps, DepMap{InstallerHead: installerHead, DepName: depName, TargetHead: targetHead})
	return b
}

// ErrUnknownDep is returned by Validate when a map_dep call names a dep the
// installer's metadata never declared.
var ErrUnknownDep = errors.New("parcel: map_dep references undeclared dependency")

// Validate checks every queued map_dep call against the installer's own
// declared dependency list, without requiring a domain. A batch that fails
// Validate would also fail domain.Domain.Apply; Validate lets callers catch
// the error earlier, before the atomic installs run.
func (b *Batch) Validate() error {
	metaByHead := make(map[string]Metadata, len(b.installs))
	for _, ins := range b.installs {
		metaByHead[ins.Head] = ins.Parcel.Metadata()
	}
	for _, dm := range b.depMaps {
		meta, ok := metaByHead[dm.InstallerHead]
		if !ok {
			continue // installer not in this batch; checked against the domain at Apply time
		}
		if !meta.HasDep(dm.DepName) {
			return errors.Wrapf(ErrUnknownDep, "installer %q dep %q", dm.InstallerHead, dm.DepName)
		}
	}
	return nil
}

// Installs returns the queued (head, parcel) pairs, in insertion order.
func (b *Batch) Installs() []Install {
	out := make([]Install, len(b.installs))
	copy(out, b.installs)
	return out
}

// DepMaps returns the queued (installerHead, depName, targetHead) triples,
// in insertion order.
func (b *Batch) DepMaps() []DepMap {
	out := make([]DepMap, len(b.depMaps))
	copy(out, b.depMaps)
	return out
}
