package reportserver

import (
	"embed"
	"io/fs"
	"strings"
)

//go:embed assets/style.css
var assetFiles embed.FS

// staticAssets is the embedded assets directory served under /assets/.
var staticAssets = mustSub(assetFiles, "assets")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// stylesheetURL points at the embedded stylesheet, or at base/style.css when
// pages should load assets from elsewhere.
func stylesheetURL(base string) string {
	if base = strings.TrimRight(base, "/"); base != "" {
		return base + "/style.css"
	}
	return "/assets/style.css"
}
