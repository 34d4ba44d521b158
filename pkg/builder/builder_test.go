package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/lektor-go/lektor/pkg/artifact"
	"github.com/lektor-go/lektor/pkg/buildctx"
	"github.com/lektor-go/lektor/pkg/buildstate"
	"github.com/lektor-go/lektor/pkg/program"
	"github.com/lektor-go/lektor/pkg/source"
)

// memStore is a minimal in-memory buildstate.Store double.
type memStore struct {
	rows      map[string][]buildstate.DependencyRow
	primary   map[string][]string
	dirty     map[string]bool
	infos     map[string]buildstate.SourceInfo
	removed   []string
}

func newMemStore() *memStore {
	return &memStore{
		rows:    map[string][]buildstate.DependencyRow{},
		primary: map[string][]string{},
		dirty:   map[string]bool{},
		infos:   map[string]buildstate.SourceInfo{},
	}
}

func (m *memStore) IterArtifactDependencies(ctx context.Context, a string) ([]buildstate.DependencyRow, error) {
	return m.rows[a], nil
}
func (m *memStore) PrimarySources(ctx context.Context, a string) ([]string, error) {
	if p, ok := m.primary[a]; ok {
		return p, nil
	}
	var out []string
	for _, r := range m.rows[a] {
		if r.IsPrimary {
			out = append(out, r.Source)
		}
	}
	return out, nil
}
func (m *memStore) RemoveArtifact(ctx context.Context, a string) error {
	delete(m.rows, a)
	delete(m.primary, a)
	m.removed = append(m.removed, a)
	return nil
}
func (m *memStore) AnySourcesAreDirty(ctx context.Context, sources []string) (bool, error) {
	for _, s := range sources {
		if m.dirty[s] {
			return true, nil
		}
	}
	return false, nil
}
func (m *memStore) MarkSourcesDirty(ctx context.Context, sources []string) error {
	for _, s := range sources {
		m.dirty[s] = true
	}
	return nil
}
func (m *memStore) GetSourceInfo(ctx context.Context, s string) (buildstate.SourceInfo, bool, error) {
	info, ok := m.infos[s]
	return info, ok, nil
}
func (m *memStore) SaveSourceInfo(ctx context.Context, info buildstate.SourceInfo) error {
	m.infos[info.SourcePath] = info
	return nil
}
func (m *memStore) IterSourceInfoPaths(ctx context.Context) ([]string, error) {
	var out []string
	for p := range m.infos {
		out = append(out, p)
	}
	return out, nil
}
func (m *memStore) DeleteSourceInfo(ctx context.Context, s string) error {
	delete(m.infos, s)
	return nil
}
func (m *memStore) Begin(ctx context.Context) (buildstate.Tx, error) { return &memTx{store: m}, nil }
func (m *memStore) Close() error                                     { return nil }

type memTx struct {
	store    *memStore
	artifact string
	rows     []buildstate.DependencyRow
}

func (t *memTx) ReplaceArtifactRows(artifact string, rows []buildstate.DependencyRow) error {
	t.artifact, t.rows = artifact, rows
	return nil
}
func (t *memTx) ClearDirty(sources []string) error { return nil }
func (t *memTx) Commit() error {
	t.store.rows[t.artifact] = t.rows
	return nil
}
func (t *memTx) Rollback() error { return nil }

// fakeObj is a minimal source.Object plus whatever the stand-in program
// needs to describe itself. The extra fields below (templateFile, fail,
// buildCount, subArtifactSuffix) are opt-in knobs realProgram reads to
// exercise behavior beyond a plain byte-copy: a recorded non-primary
// dependency, a forced failure, a build-invocation counter, and a
// requested sub-artifact, respectively.
type fakeObj struct {
	path      string
	filenames []string
	url       string
	class     source.Class
	children  []source.Object

	templateFile      string
	fail              *bool
	buildCount        *int
	subArtifactSuffix string
}

func (f *fakeObj) SourcePath() string       { return f.path }
func (f *fakeObj) SourceFilenames() []string { return f.filenames }
func (f *fakeObj) URLPath() string          { return f.url }
func (f *fakeObj) Class() source.Class      { return f.class }

// realProgram is a program.BuildProgram double that declares one
// artifact (unless url is empty) and byte-copies its first source file
// into it, the same way AttachmentProgram/AssetFileProgram do.
type realProgram struct {
	obj *fakeObj
}

func (s *realProgram) DescribeSourceRecord(ctx context.Context) (buildstate.SourceInfo, bool, error) {
	if len(s.obj.filenames) == 0 {
		return buildstate.SourceInfo{}, false, nil
	}
	return buildstate.SourceInfo{SourcePath: s.obj.path, Filename: s.obj.filenames[0]}, true, nil
}

func (s *realProgram) ProduceArtifacts() []program.ArtifactSpec {
	if s.obj.url == "" {
		return nil
	}
	return []program.ArtifactSpec{{Name: s.obj.url, Sources: s.obj.filenames}}
}

func (s *realProgram) BuildArtifact(bctx *buildctx.Context, art *artifact.Artifact, spec program.ArtifactSpec) error {
	if s.obj.templateFile != "" {
		bctx.RecordDependency(s.obj.templateFile)
	}
	if s.obj.fail != nil && *s.obj.fail {
		return fmt.Errorf("simulated build failure for %s", spec.Name)
	}
	if s.obj.buildCount != nil {
		*s.obj.buildCount++
	}

	f, err := art.Open(true, true)
	if err != nil {
		return err
	}
	defer f.Close()
	if len(spec.Sources) == 0 {
		_, err = f.WriteString("empty")
	} else {
		var body []byte
		body, err = os.ReadFile(spec.Sources[0])
		if err == nil {
			_, err = f.Write(body)
		}
	}
	if err != nil {
		return err
	}

	if s.obj.subArtifactSuffix != "" {
		bctx.AddSubArtifact(buildctx.SubArtifactRequest{
			ArtifactName: spec.Name + s.obj.subArtifactSuffix,
			Sources:      spec.Sources,
			SourceObj:    s.obj,
			Build: func(subArt interface{}) error {
				a := subArt.(*artifact.Artifact)
				w, err := a.Open(true, true)
				if err != nil {
					return err
				}
				defer w.Close()
				_, err = w.WriteString("sub")
				return err
			},
		})
	}
	return nil
}

func (s *realProgram) IterChildSources() []source.Object { return s.obj.children }

type fakePad struct{ root, assets source.Object }

func (p *fakePad) Root() source.Object      { return p.root }
func (p *fakePad) AssetRoot() source.Object { return p.assets }

func TestBuildAllWalksRootAndAssetTreeAndChildren(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()

	aboutFile := filepath.Join(srcDir, "about.txt")
	os.WriteFile(aboutFile, []byte("about"), 0644)
	photoFile := filepath.Join(srcDir, "photo.jpg")
	os.WriteFile(photoFile, []byte("photo"), 0644)

	child := &fakeObj{path: "about/photo", filenames: []string{photoFile}, url: "about/photo.jpg", class: source.ClassAttachment}
	root := &fakeObj{path: "about", filenames: []string{aboutFile}, url: "about/index.html", class: source.ClassRecord, children: []source.Object{child}}
	assetRoot := &fakeObj{path: "", class: source.ClassAssetDirectory}

	reg := program.NewRegistry()
	reg.Register(func(o source.Object) bool { return true }, func(o source.Object) program.BuildProgram {
		return &realProgram{obj: o.(*fakeObj)}
	})

	store := newMemStore()
	b := New(store, reg, &fakePad{root: root, assets: assetRoot}, srcDir, outDir)

	if err := b.BuildAll(context.Background(), false); err != nil {
		t.Fatalf("BuildAll: %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "about/index.html")); err != nil {
		t.Fatalf("expected the root record's artifact to be built: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "about/photo.jpg")); err != nil {
		t.Fatalf("expected the child attachment's artifact to be built: %v", err)
	}
	if _, ok := store.infos["about"]; !ok {
		t.Fatal("expected the root record's source info to be indexed")
	}
}

func TestPruneRemovesOrphanedArtifactOnly(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()

	keptSrc := filepath.Join(srcDir, "keep.txt")
	os.WriteFile(keptSrc, []byte("keep"), 0644)

	os.MkdirAll(outDir, 0755)
	os.WriteFile(filepath.Join(outDir, "keep.html"), []byte("k"), 0644)
	os.WriteFile(filepath.Join(outDir, "gone.html"), []byte("g"), 0644)

	store := newMemStore()
	store.primary["keep.html"] = []string{"keep.txt"}
	store.primary["gone.html"] = []string{"does-not-exist.txt"}

	reg := program.NewRegistry()
	b := New(store, reg, &fakePad{root: &fakeObj{}, assets: &fakeObj{}}, srcDir, outDir)

	if err := b.Prune(context.Background(), false); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "keep.html")); err != nil {
		t.Fatal("expected the artifact with an existing primary source to survive pruning")
	}
	if _, err := os.Stat(filepath.Join(outDir, "gone.html")); !os.IsNotExist(err) {
		t.Fatal("expected the orphaned artifact to be removed")
	}

	found := false
	for _, r := range store.removed {
		if r == "gone.html" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected RemoveArtifact to be called for the orphan, got %v", store.removed)
	}
}

func TestUpdateAllSourceInfosDoesNotWriteArtifacts(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	aboutFile := filepath.Join(srcDir, "about.txt")
	os.WriteFile(aboutFile, []byte("about"), 0644)

	root := &fakeObj{path: "about", filenames: []string{aboutFile}, url: "about/index.html", class: source.ClassRecord}
	assetRoot := &fakeObj{path: "", class: source.ClassAssetDirectory}

	reg := program.NewRegistry()
	reg.Register(func(o source.Object) bool { return true }, func(o source.Object) program.BuildProgram {
		return &realProgram{obj: o.(*fakeObj)}
	})

	store := newMemStore()
	b := New(store, reg, &fakePad{root: root, assets: assetRoot}, srcDir, outDir)

	if err := b.UpdateAllSourceInfos(context.Background()); err != nil {
		t.Fatalf("UpdateAllSourceInfos: %v", err)
	}

	if _, ok := store.infos["about"]; !ok {
		t.Fatal("expected the source info index to be populated")
	}
	if _, err := os.Stat(filepath.Join(outDir, "about/index.html")); !os.IsNotExist(err) {
		t.Fatal("expected UpdateAllSourceInfos to never write an artifact")
	}
}

// --- integration tests against the real SQLiteStore ------------------
//
// The tests above exercise the builder against memStore, a hand-rolled
// double. The ones below back the same builder with a real
// buildstate.Open(":memory:") and real temp-directory files, to cover
// the end-to-end incremental-build guarantees the in-memory double can't
// credibly stand in for: idempotent rebuilds, dependency-triggered
// selective rebuilds, dirty-flag recovery from a failed build, and
// atomic sub-artifact commit/prune.

func TestSecondBuildAllRewritesNothingWhenNothingChanged(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	aboutFile := filepath.Join(srcDir, "about.txt")
	os.WriteFile(aboutFile, []byte("about"), 0644)

	builds := 0
	root := &fakeObj{path: "about", filenames: []string{aboutFile}, url: "about/index.html", class: source.ClassRecord, buildCount: &builds}
	assetRoot := &fakeObj{path: "", class: source.ClassAssetDirectory}

	reg := program.NewRegistry()
	reg.Register(func(o source.Object) bool { return true }, func(o source.Object) program.BuildProgram {
		return &realProgram{obj: o.(*fakeObj)}
	})

	store, err := buildstate.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	b := New(store, reg, &fakePad{root: root, assets: assetRoot}, srcDir, outDir)

	if err := b.BuildAll(context.Background(), false); err != nil {
		t.Fatalf("first BuildAll: %v", err)
	}
	if builds != 1 {
		t.Fatalf("expected one build invocation after the first pass, got %d", builds)
	}

	if err := b.BuildAll(context.Background(), false); err != nil {
		t.Fatalf("second BuildAll: %v", err)
	}
	if builds != 1 {
		t.Fatalf("expected the second BuildAll to rewrite nothing (invariant 1), but BuildArtifact ran again: %d calls", builds)
	}
}

func TestTouchingATemplateRebuildsOnlyItsDependents(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()

	tmplFile := filepath.Join(srcDir, "templates", "page.html")
	os.MkdirAll(filepath.Dir(tmplFile), 0755)
	os.WriteFile(tmplFile, []byte("v1"), 0644)

	aFile := filepath.Join(srcDir, "a.txt")
	os.WriteFile(aFile, []byte("a"), 0644)
	bFile := filepath.Join(srcDir, "b.txt")
	os.WriteFile(bFile, []byte("b"), 0644)

	aBuilds, bBuilds := 0, 0
	a := &fakeObj{path: "a", filenames: []string{aFile}, url: "a.html", class: source.ClassRecord, templateFile: tmplFile, buildCount: &aBuilds}
	bObj := &fakeObj{path: "b", filenames: []string{bFile}, url: "b.html", class: source.ClassRecord, buildCount: &bBuilds}
	root := &fakeObj{path: "", url: "", class: source.ClassRecord, children: []source.Object{a, bObj}}
	assetRoot := &fakeObj{path: "", class: source.ClassAssetDirectory}

	reg := program.NewRegistry()
	reg.Register(func(o source.Object) bool { return true }, func(o source.Object) program.BuildProgram {
		return &realProgram{obj: o.(*fakeObj)}
	})

	store, err := buildstate.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	b := New(store, reg, &fakePad{root: root, assets: assetRoot}, srcDir, outDir)

	if err := b.BuildAll(context.Background(), false); err != nil {
		t.Fatalf("first BuildAll: %v", err)
	}
	if aBuilds != 1 || bBuilds != 1 {
		t.Fatalf("expected one build each after the first pass, got a=%d b=%d", aBuilds, bBuilds)
	}

	// a.html's artifact row now also carries tmplFile as a recorded
	// (non-primary) dependency, the same way template rendering would
	// record it via context.record_dependency.
	os.WriteFile(tmplFile, []byte("v2 - changed"), 0644)

	if err := b.BuildAll(context.Background(), false); err != nil {
		t.Fatalf("second BuildAll: %v", err)
	}
	if aBuilds != 2 {
		t.Fatalf("expected a.html to rebuild once its template dependency changed, got %d builds", aBuilds)
	}
	if bBuilds != 1 {
		t.Fatalf("expected b.html, which never referenced the template, to stay untouched, got %d builds", bBuilds)
	}
}

func TestFailedBuildArtifactMarksSourcesDirtyUntilNextSuccess(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	aboutFile := filepath.Join(srcDir, "about.txt")
	os.WriteFile(aboutFile, []byte("about"), 0644)

	shouldFail := true
	root := &fakeObj{path: "about", filenames: []string{aboutFile}, url: "about/index.html", class: source.ClassRecord, fail: &shouldFail}
	assetRoot := &fakeObj{path: "", class: source.ClassAssetDirectory}

	reg := program.NewRegistry()
	reg.Register(func(o source.Object) bool { return true }, func(o source.Object) program.BuildProgram {
		return &realProgram{obj: o.(*fakeObj)}
	})

	store, err := buildstate.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	b := New(store, reg, &fakePad{root: root, assets: assetRoot}, srcDir, outDir)

	if err := b.BuildAll(context.Background(), false); err == nil {
		t.Fatal("expected the first build to fail")
	}

	ctx := context.Background()
	dirty, err := store.AnySourcesAreDirty(ctx, []string{"about.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if !dirty {
		t.Fatal("expected about.txt to be marked dirty after the failed build (invariant 5)")
	}

	shouldFail = false
	if err := b.BuildAll(context.Background(), false); err != nil {
		t.Fatalf("expected the retry to succeed, got %v", err)
	}

	dirty, err = store.AnySourcesAreDirty(ctx, []string{"about.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if dirty {
		t.Fatal("expected the dirty flag to clear once the retry succeeds")
	}
	if _, err := os.Stat(filepath.Join(outDir, "about/index.html")); err != nil {
		t.Fatalf("expected the artifact to exist after the successful retry: %v", err)
	}
}

func TestSubArtifactAndParentPruneTogetherWhenSourceIsRemoved(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	lessFile := filepath.Join(srcDir, "style.less")
	os.WriteFile(lessFile, []byte("body{color:red}"), 0644)

	root := &fakeObj{path: "style.less", filenames: []string{lessFile}, url: "style.css", class: source.ClassAssetFile, subArtifactSuffix: ".map"}
	assetRoot := &fakeObj{path: "", class: source.ClassAssetDirectory}

	reg := program.NewRegistry()
	reg.Register(func(o source.Object) bool { return true }, func(o source.Object) program.BuildProgram {
		return &realProgram{obj: o.(*fakeObj)}
	})

	store, err := buildstate.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	b := New(store, reg, &fakePad{root: root, assets: assetRoot}, srcDir, outDir)

	if err := b.BuildAll(context.Background(), false); err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "style.css")); err != nil {
		t.Fatalf("expected the primary artifact to be built: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "style.css.map")); err != nil {
		t.Fatalf("expected the sub-artifact to be built alongside it: %v", err)
	}

	os.Remove(lessFile)
	if err := b.Prune(context.Background(), false); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "style.css")); !os.IsNotExist(err) {
		t.Fatal("expected the primary artifact to be pruned once its source is gone (S5)")
	}
	if _, err := os.Stat(filepath.Join(outDir, "style.css.map")); !os.IsNotExist(err) {
		t.Fatal("expected the sub-artifact to be pruned along with its parent (S5)")
	}
}
