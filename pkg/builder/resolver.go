package builder

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/lektor-go/lektor/pkg/fileinfo"
)

// pathResolver implements artifact.Resolver: it normalizes filesystem
// paths to the stable source-path form, caches FileInfo per source path
// for the duration of one builder invocation (spec.md §3's "lazily
// computed; cached per path per build invocation"), and maps artifact
// names to absolute destination paths.
type pathResolver struct {
	sourceRoot string
	outputRoot string

	mu    sync.Mutex
	cache map[string]*fileinfo.Info
}

func newPathResolver(sourceRoot, outputRoot string) *pathResolver {
	return &pathResolver{
		sourceRoot: sourceRoot,
		outputRoot: outputRoot,
		cache:      make(map[string]*fileinfo.Info),
	}
}

// ToSourcePath normalizes filename to a project-root-relative, forward-
// slashed path (spec.md §3: "a normalized POSIX-style relative path
// under the project root ... round-tripped platform-independently").
func (p *pathResolver) ToSourcePath(filename string) string {
	rel := filename
	if filepath.IsAbs(filename) {
		if r, err := filepath.Rel(p.sourceRoot, filename); err == nil {
			rel = r
		}
	}
	rel = filepath.ToSlash(filepath.Clean(rel))
	return strings.TrimPrefix(rel, "/")
}

// SourceFileInfo returns the cached fingerprint for sourcePath, computing
// it from the filesystem the first time it's asked for.
func (p *pathResolver) SourceFileInfo(sourcePath string) *fileinfo.Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	if info, ok := p.cache[sourcePath]; ok {
		return info
	}
	abs := filepath.Join(p.sourceRoot, filepath.FromSlash(sourcePath))
	info := fileinfo.New(abs, fileinfo.SourceIgnore)
	p.cache[sourcePath] = info
	return info
}

// DestinationFilename returns the absolute output path for an artifact
// name.
func (p *pathResolver) DestinationFilename(artifactName string) string {
	return filepath.Join(p.outputRoot, filepath.FromSlash(artifactName))
}
