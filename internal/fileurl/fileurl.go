// Package fileurl normalizes stored attachment references into fetchable
// URLs and classifies them for rendering.
package fileurl

import (
	"net/url"
	"path"
	"strings"
)

// Kind buckets an attachment for the renderer.
type Kind int

const (
	KindOther Kind = iota
	KindImage
	KindVideo
	KindPDF
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	case KindPDF:
		return "pdf"
	default:
		return "other"
	}
}

// Resolver turns bare stored filenames or /file/... relative paths into
// fully-qualified URLs against the configured API base.
type Resolver struct {
	base string
}

func NewResolver(apiBase string) *Resolver {
	return &Resolver{base: strings.TrimRight(apiBase, "/")}
}

// Resolve maps a stored reference to a fetchable URL. Already-absolute URLs
// pass through untouched; anything else is treated as a stored filename
// under /file/.
func (r *Resolver) Resolve(stored string) string {
	if stored == "" {
		return ""
	}
	if u, err := url.Parse(stored); err == nil && u.Scheme != "" && u.Host != "" {
		return stored
	}
	if strings.HasPrefix(stored, "/file/") {
		return r.base + stored
	}
	if strings.HasPrefix(stored, "/") {
		return r.base + stored
	}
	return r.base + "/file/" + url.PathEscape(stored)
}

// Classify buckets an attachment by MIME type, falling back to the filename
// extension when the type is missing or the generic octet-stream label.
func Classify(mimeType, filename string) Kind {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	case strings.HasPrefix(mt, "video/"):
		return KindVideo
	case mt == "application/pdf":
		return KindPDF
	}
	if mt == "" || mt == "application/octet-stream" {
		return classifyByExtension(filename)
	}
	return KindOther
}

// CoerceMIME returns the MIME type a preview should be built with. Backends
// occasionally store PDFs as octet-stream; the preview path corrects that
// before constructing the blob, so the inline viewer still works.
func CoerceMIME(mimeType, filename string) string {
	switch Classify(mimeType, filename) {
	case KindPDF:
		return "application/pdf"
	}
	if mimeType == "" {
		return "application/octet-stream"
	}
	return mimeType
}

func classifyByExtension(filename string) Kind {
	switch strings.ToLower(path.Ext(filename)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".svg":
		return KindImage
	case ".mp4", ".webm", ".mov", ".mkv", ".avi":
		return KindVideo
	case ".pdf":
		return KindPDF
	default:
		return KindOther
	}
}
