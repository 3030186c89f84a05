package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalBV(t *testing.T) {
	assert.Equal(t, 67.5, TotalBV(3, 22.5))
	assert.Equal(t, 0.3, TotalBV(3, 0.1))
	assert.Equal(t, 0.0, TotalBV(0, 39))
	assert.Equal(t, 0.375, TotalBV(3, 0.125))
	assert.Equal(t, 2.4691, TotalBV(1, 2.4691))
}

func TestSumBV(t *testing.T) {
	assert.Equal(t, 0.3, SumBV(0.1, 0.2))
	assert.Equal(t, 0.0, SumBV())
	assert.Equal(t, 0.755, SumBV(0.375, 0.38))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+254712345678", NormalizePhone("0712 345678", "KE"))
	assert.Empty(t, NormalizePhone("  ", "KE"))
	assert.Equal(t, "12", NormalizePhone(" 12 ", "KE"))
	assert.Equal(t, "not a phone", NormalizePhone("not a phone", "KE"))
}

func TestTokenRoundTrip(t *testing.T) {
	InitJWT("test-secret")

	token, err := GenerateToken("abc", "admin")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "abc", claims.ID)
	assert.Equal(t, "admin", claims.Role)

	InitJWT("other-secret")
	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("1234")
	require.NoError(t, err)
	assert.NoError(t, VerifyPassword(hash, "1234"))
	assert.Error(t, VerifyPassword(hash, "4321"))
}

func TestPreparePhoto(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1200, 600))
	for x := 0; x < 1200; x++ {
		img.Set(x, x%600, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	main, preview, err := PreparePhoto(buf.Bytes(), "image/png")
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(main))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 800, cfg.Width)

	cfg, _, err = image.DecodeConfig(bytes.NewReader(preview))
	require.NoError(t, err)
	assert.LessOrEqual(t, cfg.Width, 300)

	_, _, err = PreparePhoto(buf.Bytes(), "image/gif")
	assert.ErrorIs(t, err, ErrUnsupportedPhoto)
}
