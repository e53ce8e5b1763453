package imaging

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	pngBytes  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
)

func TestDecodeBareBase64(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString(pngBytes)

	img, err := Decode(b64)
	require.NoError(t, err)
	require.Equal(t, "image/png", img.MimeType)
	require.Equal(t, pngBytes, img.Bytes)
	require.Equal(t, b64, img.Base64)
}

func TestDecodeDataURI(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString(pngBytes)

	img, err := Decode("data:image/png;base64," + b64)
	require.NoError(t, err)
	require.Equal(t, "image/png", img.MimeType)
	require.Equal(t, b64, img.Base64)
	require.Equal(t, "data:image/png;base64,"+b64, img.DataURI())
}

func TestDecodeSniffsRealType(t *testing.T) {
	// declared type in the URI is a lie; the sniffed type wins
	b64 := base64.StdEncoding.EncodeToString(jpegBytes)

	img, err := Decode("data:image/png;base64," + b64)
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", img.MimeType)
}

func TestDecodeRejectsUnsupportedFormat(t *testing.T) {
	bmp := append([]byte{'B', 'M'}, make([]byte, 12)...)
	_, err := Decode(base64.StdEncoding.EncodeToString(bmp))
	require.ErrorIs(t, err, ErrInvalidImage)
	require.Contains(t, err.Error(), "image/bmp")

	_, err = Decode(base64.StdEncoding.EncodeToString([]byte("just some text")))
	require.ErrorIs(t, err, ErrInvalidImage)
}

func TestDecodeRejectsOversizedPayload(t *testing.T) {
	big := append([]byte{}, pngBytes...)
	big = append(big, make([]byte, MaxImageBytes)...)

	_, err := Decode(base64.StdEncoding.EncodeToString(big))
	require.ErrorIs(t, err, ErrInvalidImage)
	require.Contains(t, err.Error(), "size limit")
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "   ", "!!!not base64!!!"} {
		_, err := Decode(input)
		require.ErrorIs(t, err, ErrInvalidImage, "input %q", input)
	}
}

func TestFingerprintStable(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString(pngBytes)
	require.Equal(t, Fingerprint(b64), Fingerprint(b64))
	require.NotEmpty(t, Fingerprint(b64))
	require.NotEqual(t, Fingerprint(b64), Fingerprint(b64+"x"))
}

func TestFingerprintUsesPrefixOnly(t *testing.T) {
	prefix := strings.Repeat("A", 1000)
	require.Equal(t, Fingerprint(prefix+"tail-one"), Fingerprint(prefix+"tail-two"))
}
