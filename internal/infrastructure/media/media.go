package media

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/validate"
)

const MaxFileSize = 10 * 1024 * 1024

var typeRules = map[domain.MediaKind]validate.Rule{
	domain.MediaImage: validate.Field("image", validate.Required(), validate.MimePrefix("image/"),
		validate.OneOf("image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp", "image/heic")),
	domain.MediaAudio: validate.Field("audio", validate.Required(), validate.MimePrefix("audio/"),
		validate.OneOf("audio/m4a", "audio/x-m4a", "audio/mp4", "audio/mpeg", "audio/aac", "audio/wav", "audio/x-wav", "audio/webm", "audio/ogg")),
}

// CheckType rejects a content type that does not belong to kind. Parameters
// such as "; codecs=opus" are ignored.
func CheckType(kind domain.MediaKind, contentType string) error {
	rule, ok := typeRules[kind]
	if !ok {
		return fmt.Errorf("%w: unknown media kind %q", domain.ErrInvalidInput, kind)
	}
	return rule(normalizeType(contentType))
}

// Check rejects empty, oversized or mistyped attachments before any
// provider is called.
func Check(m domain.Media) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%w: empty %s", domain.ErrInvalidInput, m.Kind)
	}
	if len(m.Data) > MaxFileSize {
		return fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrInvalidInput, m.Kind, MaxFileSize)
	}
	return CheckType(m.Kind, m.ContentType)
}

// objectName builds a collision-free name that keeps the upload's
// extension, e.g. "image/1b9d...e4.jpg".
func objectName(m domain.Media) string {
	ext := strings.ToLower(filepath.Ext(m.Filename))
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(normalizeType(m.ContentType)); len(exts) > 0 {
			ext = exts[0]
		}
	}
	if ext == "" {
		ext = ".bin"
	}
	return string(m.Kind) + "/" + uuid.NewString() + ext
}

func normalizeType(contentType string) string {
	t := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(t, ";"); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}
