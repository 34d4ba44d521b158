// Package processor implements the two Transformed-asset backends named
// in SPEC_FULL.md §4.E: running the transform as a local process, or
// inside a throwaway container for hosts without the transform's
// toolchain installed.
package processor

import (
	"encoding/json"
	"os"

	"github.com/lektor-go/lektor/pkg/errors"
)

// sourceMapV3 is the subset of the Source Map v3 format processors
// (LESS, Sass, bundlers) commonly emit alongside their output; "sources"
// is the side-channel dependency list spec.md §4.E asks us to parse.
type sourceMapV3 struct {
	Sources []string `json:"sources"`
}

// parseSourceMap extracts the dependency list from a source map file, if
// one exists at path. Returns (nil, nil, nil) when the file is absent —
// not every transform emits one.
func parseSourceMap(path string) ([]string, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, errors.Wrap(errors.ErrCodeProcessor, "read source map", err).WithDetail("path", path)
	}
	var sm sourceMapV3
	if err := json.Unmarshal(raw, &sm); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeProcessor, "parse source map", err).WithDetail("path", path)
	}
	return sm.Sources, raw, nil
}
