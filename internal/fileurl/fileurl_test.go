package fileurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	r := NewResolver("https://api.collabry.io/")

	assert.Equal(t, "https://cdn.example.com/a.png", r.Resolve("https://cdn.example.com/a.png"))
	assert.Equal(t, "https://api.collabry.io/file/abc123.png", r.Resolve("/file/abc123.png"))
	assert.Equal(t, "https://api.collabry.io/file/brief.pdf", r.Resolve("brief.pdf"))
	assert.Equal(t, "https://api.collabry.io/uploads/x.mp4", r.Resolve("/uploads/x.mp4"))
	assert.Equal(t, "", r.Resolve(""))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		mime, name string
		want       Kind
	}{
		{"image/png", "a.png", KindImage},
		{"image/jpeg; charset=binary", "a.jpg", KindImage},
		{"video/mp4", "v.mp4", KindVideo},
		{"application/pdf", "doc.pdf", KindPDF},
		{"application/octet-stream", "doc.pdf", KindPDF},
		{"", "photo.JPG", KindImage},
		{"application/zip", "bundle.zip", KindOther},
		{"application/octet-stream", "data.bin", KindOther},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.mime, tc.name), "%s %s", tc.mime, tc.name)
	}
}

func TestCoerceMIME(t *testing.T) {
	// The mislabeled-PDF case: preview must be built as application/pdf.
	assert.Equal(t, "application/pdf", CoerceMIME("application/octet-stream", "contract.pdf"))
	assert.Equal(t, "application/pdf", CoerceMIME("", "contract.pdf"))
	assert.Equal(t, "image/png", CoerceMIME("image/png", "a.png"))
	assert.Equal(t, "application/octet-stream", CoerceMIME("", "data.bin"))
}
