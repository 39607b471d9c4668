package upload

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestFromBytes(t *testing.T) {
	img, err := FromBytes(pngHeader, "application/octet-stream")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(img), "data:image/png;base64,"))

	_, err = FromBytes(nil, "image/png")
	require.ErrorIs(t, err, ErrEmpty)

	_, err = FromBytes([]byte("just some text"), "text/plain")
	require.ErrorIs(t, err, ErrNotImage)

	_, err = FromBytes(make([]byte, MaxBytes+1), "image/png")
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestFromReaderRejectsOversize(t *testing.T) {
	big := bytes.NewReader(append(append([]byte{}, pngHeader...), make([]byte, MaxBytes)...))
	_, err := FromReader(big, "")
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestRoundTripThroughFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "product.png")
	require.NoError(t, os.WriteFile(src, pngHeader, 0o644))

	img, err := FromFile(src)
	require.NoError(t, err)

	mt, raw, err := Decode(string(img))
	require.NoError(t, err)
	assert.Equal(t, "image/png", mt)
	assert.Equal(t, pngHeader, raw)

	out, err := Save(filepath.Join(dir, "out"), "TEMUDESIGN_1.png", string(img))
	require.NoError(t, err)
	saved, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, saved)
}

func TestDecode(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("abc"))

	mt, raw, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mt)
	assert.Equal(t, []byte("abc"), raw)

	mt, _, err = Decode("data:image/jpeg;base64," + payload)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mt)
	assert.Equal(t, ".jpg", Extension(mt))

	_, _, err = Decode("data:image/png," + payload)
	require.ErrorIs(t, err, ErrMalformed)
	_, _, err = Decode("data:image/png;base64,***")
	require.ErrorIs(t, err, ErrMalformed)
}
