package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/collabry/collabry-go/internal/fileurl"
	"github.com/collabry/collabry-go/internal/httpx"
	"github.com/collabry/collabry-go/internal/models"
	"github.com/collabry/collabry-go/pkg/apperr"
)

// Assets fetches attachment bytes for the preview and download actions. PDF
// previews are materialized lazily, only on an explicit user toggle, and the
// temp files are removed by Cleanup when the view goes away.
type Assets struct {
	http     *httpx.Client
	resolver *fileurl.Resolver
	log      zerolog.Logger

	tmp []string
}

func NewAssets(http *httpx.Client, resolver *fileurl.Resolver, log zerolog.Logger) *Assets {
	return &Assets{http: http, resolver: resolver, log: log}
}

// PreviewPDF fetches the attachment and writes it to a temp file for the
// inline viewer. A PDF mislabeled as octet-stream is coerced before the
// preview is constructed; an attachment that is not a PDF at all is
// rejected.
func (a *Assets) PreviewPDF(ctx context.Context, att *models.Attachment) (string, error) {
	coerced := fileurl.CoerceMIME(att.MIMEType, att.Name)
	if fileurl.Classify(coerced, att.Name) != fileurl.KindPDF {
		return "", apperr.InvalidArg("attachment is not a pdf")
	}

	data, _, err := a.http.GetBytes(ctx, a.resolver.Resolve(att.URL))
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp("", "collabry-preview-*.pdf")
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "creating preview file", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", apperr.Wrap(apperr.CodeInternal, "writing preview file", err)
	}
	if err := f.Close(); err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "closing preview file", err)
	}
	a.tmp = append(a.tmp, f.Name())
	return f.Name(), nil
}

// Download writes the attachment into dir under its original name.
func (a *Assets) Download(ctx context.Context, att *models.Attachment, dir string) (string, error) {
	data, _, err := a.http.GetBytes(ctx, a.resolver.Resolve(att.URL))
	if err != nil {
		return "", err
	}
	name := att.Name
	if name == "" {
		name = filepath.Base(strings.TrimRight(att.URL, "/"))
	}
	dest := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "writing download", err)
	}
	return dest, nil
}

// Cleanup removes the preview temp files, the moral equivalent of revoking
// blob URLs when the view unmounts.
func (a *Assets) Cleanup() {
	for _, path := range a.tmp {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			a.log.Debug().Err(err).Str("path", path).Msg("preview cleanup failed")
		}
	}
	a.tmp = nil
}
