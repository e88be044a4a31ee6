package assets

import (
	_ "embed"
)

// IndexHTML is the viewer landing page served at the stream root.
//
//go:embed index.html
var IndexHTML []byte
