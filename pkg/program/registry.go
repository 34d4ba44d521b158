package program

import (
	"sync"

	"github.com/lektor-go/lektor/pkg/errors"
	"github.com/lektor-go/lektor/pkg/source"
)

// Factory constructs the BuildProgram for a matched source object.
type Factory func(obj source.Object) BuildProgram

type entry struct {
	match   func(obj source.Object) bool
	factory Factory
}

// Registry is the dispatch table from source object to build program,
// per spec.md §4.E. Lookup walks registrations most-recently-registered
// first, so a later Register call can override an earlier, more general
// one — the Go stand-in for the original's "isinstance, subclasses can
// override" rule.
type Registry struct {
	mu      sync.Mutex
	entries []entry
}

// NewRegistry returns an empty registry. Use NewDefaultRegistry to get
// one pre-populated with the built-in program families.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a (match, factory) pair. Entries registered later take
// priority over earlier ones at Lookup time.
func (r *Registry) Register(match func(source.Object) bool, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{match: match, factory: factory})
}

// Lookup returns the build program for obj, searching most-recently
// registered first.
func (r *Registry) Lookup(obj source.Object) (BuildProgram, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].match(obj) {
			return r.entries[i].factory(obj), nil
		}
	}
	return nil, errors.RegistryError(obj.SourcePath(), obj.Class().String())
}

// ByClass matches any source.Object whose Class() equals c — the
// built-in dispatch rule; Register calls for finer-grained overrides
// (e.g. a specific asset extension) should come after this so they win.
func ByClass(c source.Class) func(source.Object) bool {
	return func(obj source.Object) bool { return obj.Class() == c }
}

// NewDefaultRegistry wires the five built-in program families in the
// order Page, Attachment, Asset directory, Asset file, Transformed asset
// (spec.md §4.E names all five). renderer serves Page;
// processors maps a ProcessableSource's Processor() key to its Processor
// implementation and backs the Transformed asset family.
func NewDefaultRegistry(renderer TemplateRenderer, processors map[string]Processor) *Registry {
	r := NewRegistry()

	r.Register(ByClass(source.ClassRecord), func(obj source.Object) BuildProgram {
		return &PageProgram{obj: obj.(RecordSource), renderer: renderer}
	})
	r.Register(ByClass(source.ClassAttachment), func(obj source.Object) BuildProgram {
		return &AttachmentProgram{obj: obj.(AttachmentSource)}
	})
	r.Register(ByClass(source.ClassAssetDirectory), func(obj source.Object) BuildProgram {
		return &AssetDirectoryProgram{obj: obj.(AssetDirectorySource)}
	})
	r.Register(ByClass(source.ClassAssetFile), func(obj source.Object) BuildProgram {
		return &AssetFileProgram{obj: obj}
	})
	// Transformed asset overrides the generic Asset file program for any
	// asset file that names a registered processor.
	r.Register(func(obj source.Object) bool {
		p, ok := obj.(ProcessableSource)
		if !ok || p.Processor() == "" {
			return false
		}
		_, known := processors[p.Processor()]
		return known
	}, func(obj source.Object) BuildProgram {
		p := obj.(ProcessableSource)
		return &TransformedAssetProgram{obj: p, processor: processors[p.Processor()]}
	})

	return r
}
