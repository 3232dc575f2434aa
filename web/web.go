// Package web embeds the pool's HTML templates and browser assets.
package web

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed templates/*
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Pages lists the templates the pool server parses at startup. Admin pages
// other than login are rendered inside admin/layout.html.
var Pages = []string{
	"index.html",
	"participant.html",
	"admin/login.html",
	"admin/layout.html",
	"admin/dashboard.html",
	"admin/grid.html",
	"admin/game.html",
	"admin/props.html",
	"admin/participants.html",
	"admin/settings.html",
}

// Assets lists the static files the pages link to
var Assets = []string{
	"css/app.css",
	"js/app.js",
	"js/admin.js",
}

// GetTemplatesFS returns the embedded templates filesystem
func GetTemplatesFS() fs.FS {
	return mustSub(templatesFS, "templates")
}

// GetStaticFS returns the embedded static files filesystem
func GetStaticFS() fs.FS {
	return mustSub(staticFS, "static")
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(fmt.Sprintf("web: embedded %s: %v", dir, err))
	}
	return sub
}

// Verify reports the first page or asset missing from the given filesystems
// so a bad build fails before the server starts listening.
func Verify(templates, static fs.FS) error {
	if err := requireFiles(templates, "template", Pages); err != nil {
		return err
	}
	return requireFiles(static, "static file", Assets)
}

func requireFiles(fsys fs.FS, kind string, names []string) error {
	for _, name := range names {
		info, err := fs.Stat(fsys, name)
		if err != nil {
			return fmt.Errorf("missing %s %s: %w", kind, name, err)
		}
		if info.IsDir() || info.Size() == 0 {
			return fmt.Errorf("empty %s %s", kind, name)
		}
	}
	return nil
}
