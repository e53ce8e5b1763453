package imaging

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidImage is the sentinel for all intake validation failures. The
// wrapped message carries the human-readable reason; there is no retry, the
// caller has to resubmit a different image.
var ErrInvalidImage = errors.New("invalid image")

// SupportedMimeTypes is the intake allow-list. Types are sniffed from the
// decoded bytes, never trusted from the data URI header.
var SupportedMimeTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/gif",
}

// MaxImageBytes caps the decoded payload at 5MiB.
const MaxImageBytes = 5 * 1024 * 1024

var rxDataURI = regexp.MustCompile(`^data:([a-zA-Z0-9]+/[a-zA-Z0-9\-.+]+);base64,(.+)$`)

// Image is a validated intake payload.
type Image struct {
	Bytes    []byte
	MimeType string
	Base64   string // payload without the data: prefix
}

// DataURI re-encodes the image as a base64 data URI for the model request.
func (i Image) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MimeType, i.Base64)
}

// Decode accepts either a data URI or a bare base64 string, decodes it, sniffs
// the real MIME type and validates it against the allow-list and size ceiling.
func Decode(input string) (Image, error) {
	payload := strings.TrimSpace(input)
	if payload == "" {
		return Image{}, fmt.Errorf("%w: no image provided", ErrInvalidImage)
	}
	if m := rxDataURI.FindStringSubmatch(payload); m != nil {
		payload = m[2]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("%w: payload is not valid base64", ErrInvalidImage)
	}
	if len(raw) > MaxImageBytes {
		return Image{}, fmt.Errorf("%w: image exceeds the %dMB size limit", ErrInvalidImage, MaxImageBytes/(1024*1024))
	}

	mime := http.DetectContentType(raw)
	if !supported(mime) {
		return Image{}, fmt.Errorf("%w: unsupported format %s (supported: %s)",
			ErrInvalidImage, mime, strings.Join(SupportedMimeTypes, ", "))
	}

	return Image{Bytes: raw, MimeType: mime, Base64: payload}, nil
}

// Fingerprint computes a cheap, non-cryptographic digest over a prefix of the
// base64 payload. Collisions are acceptable; this keys a session-local cache
// and nothing else.
func Fingerprint(base64Payload string) string {
	sample := base64Payload
	if len(sample) > 1000 {
		sample = sample[:1000]
	}
	var h int32
	for i := 0; i < len(sample); i++ {
		h = h<<5 - h + int32(sample[i])
	}
	return strconv.FormatInt(int64(h), 36)
}

func supported(mime string) bool {
	for _, m := range SupportedMimeTypes {
		if m == mime {
			return true
		}
	}
	return false
}
