// Package document stores uploaded proof documents by content hash.
package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"mime"
	"net/http"
	"strings"

	dErrors "trustchain/pkg/domain-errors"
)

// Accepted content types, keyed by normalized mime type.
var accepted = map[string]string{
	"application/pdf": ".pdf",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
}

// Handle references a stored document.
type Handle struct {
	Key      string `json:"key"`
	SHA256   string `json:"sha256"`
	MimeType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// Blobs is the raw object storage behind a Store.
type Blobs interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Store validates and persists documents. Keys are content addressed, so
// storing the same bytes twice yields the same handle.
type Store struct {
	blobs    Blobs
	maxBytes int
}

func NewStore(blobs Blobs, maxBytes int) *Store {
	return &Store{blobs: blobs, maxBytes: maxBytes}
}

// Store saves data and returns its handle. Only PDF, PNG and JPEG are
// accepted; a missing or generic mime type is sniffed from the bytes.
func (s *Store) Store(ctx context.Context, data []byte, mimeType string) (Handle, error) {
	if len(data) == 0 {
		return Handle{}, dErrors.New(dErrors.CodeValidation, "document is empty")
	}
	if s.maxBytes > 0 && len(data) > s.maxBytes {
		return Handle{}, dErrors.New(dErrors.CodeValidation, "document is too large")
	}

	normalized, err := Normalize(mimeType, data)
	if err != nil {
		return Handle{}, err
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	h := Handle{
		Key:      "sha256/" + digest + accepted[normalized],
		SHA256:   digest,
		MimeType: normalized,
		Size:     len(data),
	}
	if err := s.blobs.Put(ctx, h.Key, data, normalized); err != nil {
		return Handle{}, dErrors.Wrap(err, dErrors.CodePersistence, "failed to store document")
	}
	return h, nil
}

// Normalize maps mimeType onto an accepted type or fails with
// CodeUnsupportedDocument.
func Normalize(mimeType string, data []byte) (string, error) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if mt != "" {
		parsed, _, err := mime.ParseMediaType(mt)
		if err != nil {
			return "", dErrors.New(dErrors.CodeUnsupportedDocument, "unreadable content type")
		}
		mt = parsed
	}
	if mt == "" || mt == "application/octet-stream" {
		mt, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}
	if mt == "image/jpg" || mt == "image/pjpeg" {
		mt = "image/jpeg"
	}
	if _, ok := accepted[mt]; !ok {
		return "", dErrors.New(dErrors.CodeUnsupportedDocument, "only PDF, PNG and JPG documents are accepted")
	}
	return mt, nil
}
