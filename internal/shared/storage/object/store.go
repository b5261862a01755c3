package object

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/google/uuid"

	"medscan-backend/internal/shared/util"
)

// ErrInvalidKey is returned for storage keys that would escape the store's namespace.
var ErrInvalidKey = errors.New("invalid storage key")

// ObjectStore defines the contract for the scratch area holding images while they are analyzed.
// Keys are slash-separated and relative; Delete of a missing key succeeds.
type ObjectStore interface {
	Save(ctx context.Context, sessionID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}

// NewKey returns "<hashed session>/<uuid>_<sanitized name>", unique per call.
func NewKey(sessionID, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(util.HashSessionKey(sessionID), uuid.NewString()+"_"+name), nil
}

const sniffLen = 512

// Sniff detects the content type from the first bytes of r.
// The returned reader yields the full stream, sniffed bytes included.
func Sniff(r io.Reader) (mimeType string, full io.Reader, err error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
	case err != nil:
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	return http.DetectContentType(head), io.MultiReader(bytes.NewReader(head), r), nil
}
