// Package source declares the engine's view of the content layer: the
// Object interface that every buildable thing implements, and the Pad
// interface through which the engine walks the content tree. Both are
// consumed only through these interfaces — the content database itself
// (records, attachments, datamodels, queries) is an external collaborator
// and out of scope for this module (spec.md §1).
package source

// Class classifies a source object for build-program dispatch (component
// E). It intentionally closes over the five kinds spec.md's design notes
// (§9) recommend as a sum type rather than open inheritance.
type Class int

const (
	// ClassRecord is a content record rendered through a template (a Page).
	ClassRecord Class = iota
	// ClassAttachment is a record's attached file, copied byte-for-byte.
	ClassAttachment
	// ClassAssetFile is a single file under the asset tree, copied
	// byte-for-byte or run through a transform processor.
	ClassAssetFile
	// ClassAssetDirectory is a directory under the asset tree; it never
	// declares an artifact itself but enumerates its children.
	ClassAssetDirectory
	// ClassVirtual is a generated source with no file of its own, such as
	// a pagination page N>1.
	ClassVirtual
)

func (c Class) String() string {
	switch c {
	case ClassRecord:
		return "record"
	case ClassAttachment:
		return "attachment"
	case ClassAssetFile:
		return "asset-file"
	case ClassAssetDirectory:
		return "asset-directory"
	case ClassVirtual:
		return "virtual"
	default:
		return "unknown"
	}
}

// Object is the engine's view of anything it can build from. The content
// layer owns the concrete implementation; the engine consumes only this
// interface (spec.md §3, SourceObject).
type Object interface {
	// SourcePath is the stable, normalized source-path identifier for
	// this object, used as a dependency key in the build state store.
	SourcePath() string

	// SourceFilenames returns the filesystem paths whose changes should
	// force a rebuild of artifacts built from this object (e.g. a
	// record's contents.lr file plus any attachment files it owns).
	SourceFilenames() []string

	// URLPath returns the public URL path for this object, or "" if it
	// has none (not every source is exposed).
	URLPath() string

	// Class reports which built-in program family should build this
	// object (used by the registry for dispatch).
	Class() Class
}

// Pad is the read-only view of the content database the engine walks to
// discover sources. Root returns the content tree's root object; AssetRoot
// returns the root of the static asset tree. Both are seeded into
// Builder.BuildAll's initial work list, per spec.md §4.F.
type Pad interface {
	Root() Object
	AssetRoot() Object
}
