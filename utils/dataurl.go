package utils

import (
	"encoding/base64"
	"errors"
	"mime"
	"strings"
)

var ErrInvalidDataURL = errors.New("invalid base64 image")

// DecodeDataURL splits "data:<mime>;base64,<data>" into its content type,
// a file extension and the decoded bytes.
func DecodeDataURL(dataURL string) (contentType, ext string, data []byte, err error) {
	meta, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(meta, "data:") || !strings.HasSuffix(meta, ";base64") {
		return "", "", nil, ErrInvalidDataURL
	}
	contentType = strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64")
	if !strings.HasPrefix(contentType, "image/") {
		return "", "", nil, ErrInvalidDataURL
	}

	switch contentType {
	case "image/jpeg", "image/jpg":
		ext = ".jpg"
	default:
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		} else if _, sub, ok := strings.Cut(contentType, "/"); ok {
			ext = "." + sub
		}
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return "", "", nil, ErrInvalidDataURL
	}
	return contentType, ext, data, nil
}
