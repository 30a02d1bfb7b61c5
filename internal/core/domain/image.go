package domain

import "time"

type ImageStatus string

const (
	StatusPending    ImageStatus = "pending"
	StatusProcessing ImageStatus = "processing"
	StatusCompleted  ImageStatus = "completed"
	StatusFailed     ImageStatus = "failed"
)

// CanTransition reports whether the lifecycle allows moving from s to next.
// No transition skips processing; failed may re-enter processing on retry.
func (s ImageStatus) CanTransition(next ImageStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	case StatusFailed:
		return next == StatusProcessing
	case StatusCompleted:
		return false
	}
	return false
}

type (
	Product struct {
		ID        int64
		SKU       string
		Name      string
		Brand     string
		Category  string
		Size      string
		Color     string
		Price     int64
		Barcode   string
		Rank      int
		Status    string
		CreatedAt time.Time
	}

	ImageRecord struct {
		ID               int64
		ProductID        int64
		OriginalLocator  string
		ProcessedLocator string
		Status           ImageStatus
		CreatedAt        time.Time
	}
)

// CanonicalImage is the resolved target of one removal operation:
// either a persisted record or self-contained inline bytes.
type CanonicalImage struct {
	Record *ImageRecord
	Inline []byte
}

func (c CanonicalImage) IsInline() bool {
	return c.Record == nil
}

// SourceURL returns the fetchable original locator, empty for inline images.
func (c CanonicalImage) SourceURL() string {
	if c.Record == nil {
		return ""
	}
	return c.Record.OriginalLocator
}

// ProbeRef is a transient convention-probe result. It lives for the
// duration of one merge or resolve and is never persisted directly.
type ProbeRef struct {
	SKU   string
	Index int
	URL   string
}

// RemovalOutcome is the normalized result of one provider chain run.
type RemovalOutcome struct {
	Provider         string
	ProcessedLocator string
	ProcessedBytes   []byte
	Opaque           bool
}

type ImageSource string

const (
	SourceCatalog ImageSource = "catalog"
	SourceRemote  ImageSource = "remote"
	SourceProbe   ImageSource = "probe"
)

// ImageView is one entry of the merged per-product image list.
type ImageView struct {
	ID               int64
	OriginalLocator  string
	ProcessedLocator string
	Status           ImageStatus
	Source           ImageSource
}

type RemovalEvent struct {
	SKU        string
	ImageID    int64
	Status     ImageStatus
	Provider   string
	OccurredAt time.Time
}
