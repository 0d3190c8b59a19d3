package services

import "context"

// ImageStore uploads a data URL ("data:image/png;base64,...") and returns
// its public URL.
type ImageStore interface {
	UploadDataURL(ctx context.Context, keyPrefix, dataURL string) (string, error)
}

// LabelDetector returns the names of objects found in a data URL image.
type LabelDetector interface {
	DetectLabels(ctx context.Context, dataURL string) ([]string, error)
}
