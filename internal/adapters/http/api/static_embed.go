package api

import (
	"embed"
	"io/fs"
)

// The console page ships inside the binary so the safety API stays a
// single deployable artifact.
//
//go:embed static
var apiStaticFS embed.FS

// dashboardFS exposes a sub-filesystem rooted at static/.
var dashboardFS fs.FS = func() fs.FS {
	sub, err := fs.Sub(apiStaticFS, "static")
	if err != nil {
		return apiStaticFS
	}
	return sub
}()
