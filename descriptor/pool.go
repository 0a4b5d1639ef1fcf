package descriptor

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	deepcopy "github.com/tiendc/go-deepcopy"

	"github.com/anirudhraja/protocore/schema"
	"github.com/anirudhraja/protocore/wire"
)

// Pool owns a set of built files and indexes every message, enum,
// extension and service they declare. Descriptors handed out by a pool are
// immutable; Add only ever introduces new ones.
type Pool struct {
	mu         sync.RWMutex
	files      map[string]*File
	order      []*File
	messages   map[string]*Message
	enums      map[string]*Enum
	services   map[string]*Service
	extensions map[string]map[wire.FieldNumber]*Field // extendee -> number -> extension
	extByName  map[string]*Field
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{
		files:      make(map[string]*File),
		messages:   make(map[string]*Message),
		enums:      make(map[string]*Enum),
		services:   make(map[string]*Service),
		extensions: make(map[string]map[wire.FieldNumber]*Field),
		extByName:  make(map[string]*Field),
	}
}

// Build builds files into a new pool.
func Build(files ...*schema.ProtoFile) (*Pool, error) {
	p := NewPool()
	if err := p.Add(files...); err != nil {
		return nil, err
	}
	return p, nil
}

// Add builds files and adds them to the pool. Files may reference each
// other and anything already in the pool. Either every file is added or,
// on error, the pool is left unchanged. The input is copied, so callers may
// reuse or modify it afterwards.
func (p *Pool) Add(files ...*schema.ProtoFile) error {
	var snapshot []*schema.ProtoFile
	if err := deepcopy.Copy(&snapshot, &files); err != nil {
		return fmt.Errorf("descriptor: copy schema: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	b := newBuilder(p)
	if err := b.build(snapshot); err != nil {
		return err
	}
	b.commit()
	return nil
}

// HasFile reports whether a file with the given name has been added.
func (p *Pool) HasFile(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.files[name]
	return ok
}

// FindFile returns the file with the given name, or nil.
func (p *Pool) FindFile(name string) *File {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.files[name]
}

// Files returns every file in the order it was added.
func (p *Pool) Files() []*File {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*File, len(p.order))
	copy(out, p.order)
	return out
}

// FindMessage returns the message with the given full name, or nil. A
// leading dot is accepted.
func (p *Pool) FindMessage(name string) *Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.messages[strings.TrimPrefix(name, ".")]
}

// FindEnum returns the enum with the given full name, or nil.
func (p *Pool) FindEnum(name string) *Enum {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.enums[strings.TrimPrefix(name, ".")]
}

// FindService returns the service with the given full name, or nil.
func (p *Pool) FindService(name string) *Service {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.services[strings.TrimPrefix(name, ".")]
}

// FindExtension returns the extension of extendee with number n, or nil.
func (p *Pool) FindExtension(extendee string, n wire.FieldNumber) *Field {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.extensions[strings.TrimPrefix(extendee, ".")][n]
}

// FindExtensionByName returns the extension with the given full name, or nil.
func (p *Pool) FindExtensionByName(name string) *Field {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.extByName[strings.TrimPrefix(name, ".")]
}

// Extensions returns every known extension of extendee in ascending number
// order.
func (p *Pool) Extensions(extendee string) []*Field {
	p.mu.RLock()
	defer p.mu.RUnlock()
	byNum := p.extensions[strings.TrimPrefix(extendee, ".")]
	out := make([]*Field, 0, len(byNum))
	for _, f := range byNum {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].number < out[j].number })
	return out
}

// MessageNames returns the full names of every message, sorted.
func (p *Pool) MessageNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return sortedKeys(p.messages)
}

// EnumNames returns the full names of every enum, sorted.
func (p *Pool) EnumNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return sortedKeys(p.enums)
}

// ServiceNames returns the full names of every service, sorted.
func (p *Pool) ServiceNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return sortedKeys(p.services)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
