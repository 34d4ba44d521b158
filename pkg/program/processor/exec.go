package processor

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/lektor-go/lektor/pkg/errors"
)

// ExecProcessor runs a configured local binary against one source file,
// adapted from the teacher's external-process runner
// (pkg/iac/native/process.go's ProcessManager.StartProcess): build an
// *exec.Cmd with an explicit argv and working directory, capture its
// stdio, surface a non-zero exit as a structured error.
type ExecProcessor struct {
	// Command is the binary to invoke, e.g. "lessc".
	Command string
	// Args, when non-empty, is the whole argument list passed to Command,
	// with "{src}" and "{out}" entries replaced by the source and output
	// paths; leave Args empty to invoke Command src out.
	Args []string
	// OutputExt is the extension of the file the tool produces.
	OutputExt string
	// SourceMapExt, if non-empty, names the side-channel source-map file
	// the tool is expected to leave next to outPath (outPath + ext).
	SourceMapExt string
}

func (p *ExecProcessor) OutputExtension() string { return p.OutputExt }

func (p *ExecProcessor) Transform(ctx context.Context, srcPath, outPath string) ([]string, []byte, error) {
	args := p.Args
	if len(args) == 0 {
		args = []string{srcPath, outPath}
	} else {
		args = substitutePlaceholders(args, srcPath, outPath)
	}

	cmd := exec.CommandContext(ctx, p.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeProcessor, "run "+p.Command, err).
			WithDetail("stderr", stderr.String())
	}

	if p.SourceMapExt == "" {
		return nil, nil, nil
	}
	return parseSourceMap(outPath + p.SourceMapExt)
}

func substitutePlaceholders(args []string, src, out string) []string {
	result := make([]string, len(args))
	for i, a := range args {
		switch a {
		case "{src}":
			result[i] = src
		case "{out}":
			result[i] = out
		default:
			result[i] = a
		}
	}
	return result
}
