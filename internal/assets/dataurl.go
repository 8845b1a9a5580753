package assets

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var errEmptyImage = errors.New("empty image data")

// EncodeDataURL is the default portable encoding: a base64 data URL.
func EncodeDataURL(data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", errEmptyImage
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// DataURLPayload returns the base64 part of a data URL, or "" when dataURL is
// not base64-encoded.
func DataURLPayload(dataURL string) string {
	head, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(head, "data:") || !strings.HasSuffix(head, ";base64") {
		return ""
	}
	return payload
}

// DecodeDataURL returns the bytes carried by a base64 data URL.
func DecodeDataURL(dataURL string) ([]byte, error) {
	payload := DataURLPayload(dataURL)
	if payload == "" {
		return nil, fmt.Errorf("not a base64 data URL")
	}
	return base64.StdEncoding.DecodeString(payload)
}
