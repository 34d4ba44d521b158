package config

import (
	"strings"

	"github.com/lektor-go/lektor/pkg/buildstate/remotecache"
	"github.com/lektor-go/lektor/pkg/content"
	"github.com/lektor-go/lektor/pkg/errors"
	"github.com/lektor-go/lektor/pkg/program/processor"
)

// BuildProcessorFor turns the configured asset_processors map into the
// extension-to-processor-key lookup content.Load needs to route asset
// files to the Transformed asset program.
func BuildProcessorFor(cfgs map[string]ProcessorConfig) content.ProcessorFor {
	out := make(content.ProcessorFor)
	for key, c := range cfgs {
		for _, ext := range c.Extensions {
			out[strings.ToLower(ext)] = key
		}
	}
	return out
}

// BuildProcessors turns the configured asset_processors map into the
// map[string]processor.Processor NewDefaultRegistry expects.
func BuildProcessors(cfgs map[string]ProcessorConfig) (map[string]processor.Processor, error) {
	out := make(map[string]processor.Processor, len(cfgs))
	for key, c := range cfgs {
		switch c.Mode {
		case "exec":
			out[key] = &processor.ExecProcessor{
				Command:      c.Command,
				Args:         c.Args,
				OutputExt:    c.OutputExt,
				SourceMapExt: c.SourceMapExt,
			}
		case "container":
			out[key] = &processor.ContainerProcessor{
				Image:        c.Image,
				Command:      c.ContainerArgs,
				OutputExt:    c.OutputExt,
				SourceMapExt: c.SourceMapExt,
			}
		default:
			return nil, errors.New(errors.ErrCodeConfig, "unknown processor mode "+c.Mode).WithDetail("processor", key)
		}
	}
	return out, nil
}

// BuildRemoteCacheBackend constructs the remotecache.Backend named by
// cfg.Backend, or returns (nil, nil) when cfg is nil (remote cache sync is
// an optional, additive concern — see SPEC_FULL.md §4.K).
func BuildRemoteCacheBackend(cfg *RemoteCacheConfig) (remotecache.Backend, error) {
	if cfg == nil {
		return nil, nil
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = cfg.Container
	}
	b, err := remotecache.New(cfg.Backend, bucket, cfg.Key, cfg.Extra)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRemoteCache, "build remote cache backend", err)
	}
	return b, nil
}
