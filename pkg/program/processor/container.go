package processor

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"

	"github.com/lektor-go/lektor/pkg/errors"
)

// ContainerProcessor runs a transform inside a throwaway Docker
// container, for build agents that don't want the transform's toolchain
// installed on the host, adapted from the teacher's
// pkg/iac/native/docker.go RunOneShot (pull, create, start, wait, tail
// logs, remove) and pkg/iac/container/builder.go's client construction.
type ContainerProcessor struct {
	Image     string
	Command   []string // "{src}" and "{out}" placeholders resolve to the in-container mount paths
	OutputExt string
	// SourceMapExt, if non-empty, names the side-channel source-map file
	// expected at <out>+ext inside the container's output directory.
	SourceMapExt string
}

func (p *ContainerProcessor) OutputExtension() string { return p.OutputExt }

func (p *ContainerProcessor) Transform(ctx context.Context, srcPath, outPath string) ([]string, []byte, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeProcessor, "create docker client", err)
	}
	defer cli.Close()

	workDir, err := os.MkdirTemp("", "lektor-container-transform-*")
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeProcessor, "stage container workspace", err)
	}
	defer os.RemoveAll(workDir)

	inDir := filepath.Join(workDir, "in")
	outDir := filepath.Join(workDir, "out")
	if err := os.MkdirAll(inDir, 0o755); err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, nil, err
	}

	inFile := filepath.Join(inDir, filepath.Base(srcPath))
	if err := copyFile(srcPath, inFile); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeProcessor, "stage source into container workspace", err)
	}

	containerOut := "/out/" + filepath.Base(outPath)
	containerIn := "/in/" + filepath.Base(srcPath)
	cmd := substitutePlaceholders(p.Command, containerIn, containerOut)

	reader, err := cli.ImagePull(ctx, p.Image, image.PullOptions{})
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeProcessor, "pull processor image", err).WithDetail("image", p.Image)
	}
	_, _ = io.Copy(io.Discard, reader)
	reader.Close()

	resp, err := cli.ContainerCreate(ctx, &container.Config{
		Image: p.Image,
		Cmd:   cmd,
	}, &container.HostConfig{
		Mounts: []mount.Mount{
			{Type: mount.TypeBind, Source: inDir, Target: "/in", ReadOnly: true},
			{Type: mount.TypeBind, Source: outDir, Target: "/out"},
		},
	}, nil, nil, "")
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeProcessor, "create transform container", err)
	}
	containerID := resp.ID
	defer cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})

	if err := cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeProcessor, "start transform container", err)
	}

	statusCh, errCh := cli.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeProcessor, "wait for transform container", err)
		}
	case status := <-statusCh:
		if status.StatusCode != 0 {
			logs, _ := cli.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
			var output []byte
			if logs != nil {
				output, _ = io.ReadAll(logs)
				logs.Close()
			}
			return nil, nil, errors.New(errors.ErrCodeProcessor, "transform container exited non-zero").
				WithDetail("exit_code", status.StatusCode).
				WithDetail("logs", string(output))
		}
	}

	stagedOut := filepath.Join(outDir, filepath.Base(outPath))
	if err := copyFile(stagedOut, outPath); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeProcessor, "collect transform output", err)
	}

	if p.SourceMapExt == "" {
		return nil, nil, nil
	}
	return parseSourceMap(stagedOut + p.SourceMapExt)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
