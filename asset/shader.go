// Package asset loads the files the labs are built from: GLSL sources,
// Wavefront OBJ models and texture images.
package asset

import (
	"fmt"
	"io/fs"
	"path"

	"github.com/der-antikeks/glabs/gpu"
)

// stage by file extension
var shaderExtensions = map[string]gpu.Stage{
	".vert": gpu.VertexStage,
	".cont": gpu.TessControlStage,
	".tesc": gpu.TessControlStage,
	".eval": gpu.TessEvaluationStage,
	".tese": gpu.TessEvaluationStage,
	".geom": gpu.GeometryStage,
	".frag": gpu.FragmentStage,
}

// ShaderStage returns the pipeline stage a file name is meant for.
func ShaderStage(name string) (gpu.Stage, bool) {
	s, ok := shaderExtensions[path.Ext(name)]
	return s, ok
}

// LoadShaders reads the named sources from fsys. A file that cannot be
// read is reported as a compile error of its stage.
func LoadShaders(fsys fs.FS, names ...string) ([]gpu.ShaderSource, error) {
	sources := make([]gpu.ShaderSource, 0, len(names))
	for _, name := range names {
		stage, ok := ShaderStage(name)
		if !ok {
			return nil, fmt.Errorf("shader %q: unknown stage extension", name)
		}

		src, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, &gpu.CompileError{Stage: stage, Name: name, Log: err.Error()}
		}

		sources = append(sources, gpu.ShaderSource{
			Stage:  stage,
			Name:   name,
			Source: string(src),
		})
	}
	return sources, nil
}
