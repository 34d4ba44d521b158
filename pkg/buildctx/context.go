// Package buildctx implements the per-artifact build context (component D):
// a scratch object that accumulates dependencies and sub-artifact requests
// incurred while an artifact is being built, reachable by collaborating
// subsystems (the template engine, plugin/config readers) through an
// ambient accessor rather than being threaded through every call.
package buildctx

import "sync"

// SubArtifactRequest is one artifact requested from within another
// artifact's update block (spec.md §3 Sub-artifact). ArtifactName and
// Sources describe how to declare it; Build is invoked once it is its
// turn to be built. SourceObj is the optional back-pointer used for
// reporting.
type SubArtifactRequest struct {
	ArtifactName string
	Sources      []string
	SourceObj    interface{}
	Build        func(artifact interface{}) error
}

// Context is the ambient, per-artifact object that collaborating
// subsystems read and write while an artifact's update block is open.
// Exactly one Context exists per in-flight artifact update; nested update
// blocks (sub-artifact recursion onto a different artifact) form a stack,
// with only the top of stack observable via Current.
type Context struct {
	Artifact  interface{}
	SourceObj interface{}
	Pad       interface{}

	// Cache is a general per-artifact scratch map for plugin use (e.g. a
	// transform processor memoizing parsed config across sub-artifacts
	// of the same program).
	Cache map[string]interface{}

	mu                     sync.Mutex
	referencedDependencies map[string]struct{}
	subArtifacts           []SubArtifactRequest
}

// New creates a Context for the given artifact/source/pad triple. artifact,
// sourceObj and pad are typed interface{} here because buildctx sits below
// the artifact and source packages in the dependency graph and must not
// import them; callers type-assert back to the concrete types they need.
func New(artifact, sourceObj, pad interface{}) *Context {
	return &Context{
		Artifact:               artifact,
		SourceObj:              sourceObj,
		Pad:                    pad,
		Cache:                  make(map[string]interface{}),
		referencedDependencies: make(map[string]struct{}),
	}
}

// RecordDependency records a dependency incurred during rendering, e.g. the
// template engine reporting a template file it loaded, or a plugin/config
// reader reporting a config file it consulted. Calls commute: order never
// affects the memorized set (spec.md §5).
func (c *Context) RecordDependency(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.referencedDependencies[path] = struct{}{}
}

// ReferencedDependencies returns the set of paths recorded via
// RecordDependency, in no particular order.
func (c *Context) ReferencedDependencies() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.referencedDependencies))
	for p := range c.referencedDependencies {
		out = append(out, p)
	}
	return out
}

// AddSubArtifact records a request for another artifact to be built,
// processed in insertion order once the current artifact's own build
// completes (spec.md §5).
func (c *Context) AddSubArtifact(req SubArtifactRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subArtifacts = append(c.subArtifacts, req)
}

// SubArtifacts returns the sub-artifact requests recorded so far, in
// insertion order.
func (c *Context) SubArtifacts() []SubArtifactRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SubArtifactRequest, len(c.subArtifacts))
	copy(out, c.subArtifacts)
	return out
}

// stack is the process-wide LIFO of active contexts. Pushing/popping is
// bracketed by an artifact's update block (spec.md §4.D); nested update
// blocks for sub-artifact recursion form a stack. Guarded by mu because,
// per spec.md §5, "the context stack is per-thread" but a Go translation
// either serializes access (single builder goroutine, the default) or
// must itself enforce that two goroutines never interleave pushes —
// the mutex makes that a hard error instead of silent corruption.
var (
	stackMu sync.Mutex
	stack   []*Context
)

// Push makes ctx the current (top-of-stack) context.
func Push(ctx *Context) {
	stackMu.Lock()
	defer stackMu.Unlock()
	stack = append(stack, ctx)
}

// Pop removes the top-of-stack context. It panics if ctx is not the
// current top, matching the "only the top of stack is observable, and
// popping must be balanced" discipline spec.md §4.D requires.
func Pop(ctx *Context) {
	stackMu.Lock()
	defer stackMu.Unlock()
	if len(stack) == 0 || stack[len(stack)-1] != ctx {
		panic("buildctx: unbalanced Pop — context is not the current top of stack")
	}
	stack = stack[:len(stack)-1]
}

// Current returns the top-of-stack context, or nil if no artifact update
// block is currently open. Template-engine and plugin code call this to
// find "the current context" without it being threaded through every call
// (spec.md §9 design notes).
func Current() *Context {
	stackMu.Lock()
	defer stackMu.Unlock()
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}
