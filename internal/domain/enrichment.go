package domain

import "context"

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaAudio MediaKind = "audio"
)

// Media is an attachment captured by the client, not yet uploaded.
type Media struct {
	Kind        MediaKind
	Filename    string
	ContentType string
	Data        []byte
}

func (m *Media) Empty() bool {
	return m == nil || len(m.Data) == 0
}

// MediaStore uploads an attachment and returns its public URL.
type MediaStore interface {
	Upload(ctx context.Context, media Media) (string, error)
}

// Locator resolves an approximate position when the client sent none.
type Locator interface {
	Locate(ctx context.Context, clientIP string) (*Location, error)
}

// Classifier returns a raw priority label for a report description.
// Callers normalise it with ParsePriority.
type Classifier interface {
	Classify(ctx context.Context, description string, category Category) (string, error)
}
