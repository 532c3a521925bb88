// Package shaders embeds the GLSL sources of the labs. A file's
// extension names its pipeline stage.
package shaders

import "embed"

//go:embed *.vert *.cont *.eval *.frag
var FS embed.FS
