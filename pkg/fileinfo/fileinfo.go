// Package fileinfo fingerprints files and directories so the build engine
// can detect whether a source changed since the last build without always
// re-reading its contents.
package fileinfo

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"sort"
)

// NullChecksum is the checksum recorded for a file that could not be read.
const NullChecksum = "0000000000000000000000000000000000000000"

// IgnorePredicate reports whether a directory entry name should be excluded
// from directory listings and checksums (dotfiles, platform cruft, etc).
type IgnorePredicate func(name string) bool

// Info is an immutable snapshot of a path's (mtime, size, checksum). Two
// Infos compare equal if their (mtime, size) pair matches, or, failing
// that, if their checksums match — the mtime/size fast path lets callers
// avoid reading file contents when nothing on disk actually moved.
type Info struct {
	filename string
	ignore   IgnorePredicate

	statLoaded bool
	mtime      int64
	size       int64

	checksum string
}

// New returns the (uncomputed) file info for filename. Stat is performed
// lazily on first access to mtime/size/exists, and the checksum is
// computed lazily and only when actually requested.
func New(filename string, ignore IgnorePredicate) *Info {
	if ignore == nil {
		ignore = func(string) bool { return false }
	}
	return &Info{filename: filename, ignore: ignore}
}

// FromStored reconstructs a Info from a previously persisted row, without
// touching the filesystem. Used by the build state store to hand back
// memorized dependency fingerprints for comparison against the live Info.
func FromStored(filename string, mtime, size int64, checksum string) *Info {
	return &Info{
		filename:   filename,
		ignore:     func(string) bool { return false },
		statLoaded: true,
		mtime:      mtime,
		size:       size,
		checksum:   checksum,
	}
}

// Filename returns the path this Info describes.
func (i *Info) Filename() string { return i.filename }

func (i *Info) load() {
	if i.statLoaded {
		return
	}
	i.statLoaded = true

	st, err := os.Stat(i.filename)
	if err != nil {
		i.mtime, i.size = 0, -1
		return
	}

	i.mtime = st.ModTime().Unix()
	if st.IsDir() {
		entries, err := os.ReadDir(i.filename)
		if err != nil {
			i.mtime, i.size = 0, -1
			return
		}
		i.size = int64(countInteresting(entries, i.ignore))
		return
	}
	i.size = st.Size()
}

func countInteresting(entries []os.DirEntry, ignore IgnorePredicate) int {
	n := 0
	for _, e := range entries {
		if ignore(e.Name()) {
			continue
		}
		n++
	}
	return n
}

// Mtime returns the last-modification timestamp, or 0 if the path does not
// exist or could not be stat'd.
func (i *Info) Mtime() int64 {
	i.load()
	return i.mtime
}

// Size returns the file size in bytes, or, for a directory, the count of
// its non-ignored entries. -1 means the path does not exist.
func (i *Info) Size() int64 {
	i.load()
	return i.size
}

// Exists reports whether the path was found on disk.
func (i *Info) Exists() bool {
	return i.Size() >= 0
}

// Checksum returns the SHA-1 checksum of the file, or, for a directory, the
// SHA-1 of "DIR\x00" followed by the sorted non-ignored entry names
// NUL-separated. Computation happens at most once per Info and is skipped
// entirely by Equal when the mtime/size fast path already decides equality.
func (i *Info) Checksum() string {
	if i.checksum != "" {
		return i.checksum
	}
	i.load()

	st, err := os.Stat(i.filename)
	if err != nil {
		i.checksum = NullChecksum
		return i.checksum
	}

	h := sha1.New()
	if st.IsDir() {
		entries, err := os.ReadDir(i.filename)
		if err != nil {
			i.checksum = NullChecksum
			return i.checksum
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if i.ignore(e.Name()) {
				continue
			}
			names = append(names, e.Name())
		}
		sort.Strings(names)

		h.Write([]byte("DIR\x00"))
		for _, name := range names {
			h.Write([]byte(name))
			h.Write([]byte{0})
		}
	} else {
		f, err := os.Open(i.filename)
		if err != nil {
			i.checksum = NullChecksum
			return i.checksum
		}
		defer f.Close()

		buf := make([]byte, 16*1024)
		for {
			n, readErr := f.Read(buf)
			if n > 0 {
				h.Write(buf[:n])
			}
			if readErr != nil {
				break
			}
		}
	}

	i.checksum = hex.EncodeToString(h.Sum(nil))
	return i.checksum
}

// Equal compares two Infos using the mtime/size fast path before falling
// back to a checksum comparison. This is the load-bearing optimization
// that keeps incremental builds cheap: unchanged files are never reread.
func (i *Info) Equal(other *Info) bool {
	if other == nil {
		return false
	}
	if i.Mtime() == other.Mtime() && i.Size() == other.Size() {
		return true
	}
	return i.Checksum() == other.Checksum()
}

// DefaultIgnore implements is_uninteresting_source_name / is_ignored_artifact
// from spec.md §4.A/§6: names starting with "." or "_" are ignored (except
// the allow-listed entries), along with a small set of platform cruft.
func DefaultIgnore(allow ...string) IgnorePredicate {
	allowed := make(map[string]bool, len(allow))
	for _, a := range allow {
		allowed[a] = true
	}
	cruft := map[string]bool{
		"thumbs.db":   true,
		"desktop.ini": true,
		"icon\r":      true,
	}
	return func(name string) bool {
		if allowed[name] {
			return false
		}
		if len(name) > 0 && (name[0] == '.' || name[0] == '_') {
			return true
		}
		return cruft[lower(name)]
	}
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// SourceIgnore is the ignore predicate used against the content tree.
// _htaccess/_htpasswd are the spec-mandated allow-list entries.
var SourceIgnore = DefaultIgnore("_htaccess", "_htpasswd")

// ArtifactIgnore is the ignore predicate used against the output tree.
// .htaccess/.htpasswd are the artifact-space counterparts of the allow-list.
var ArtifactIgnore = DefaultIgnoreArtifact()

// DefaultIgnoreArtifact mirrors DefaultIgnore but allow-lists the
// dot-prefixed artifact names that correspond to the source-space
// underscore-prefixed allow-list (spec.md §6).
func DefaultIgnoreArtifact() IgnorePredicate {
	allowed := map[string]bool{".htaccess": true, ".htpasswd": true}
	cruft := map[string]bool{
		"thumbs.db":   true,
		"desktop.ini": true,
		"icon\r":      true,
	}
	return func(name string) bool {
		if allowed[name] {
			return false
		}
		if len(name) > 0 && (name[0] == '.' || name[0] == '_') {
			return true
		}
		return cruft[lower(name)]
	}
}
