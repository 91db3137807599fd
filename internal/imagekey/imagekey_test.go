package imagekey

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundtrip(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		id          int64
	}{
		{"shampoo.png", "image/png", 7},
		{"Soap Bar.jpg", "image/jpeg", 12},
		{"", "image/webp", 3},
		{"weird name!!.gif", "image/gif", 481},
		{"no-extension", "image/png", 99},
		{"C:\\Users\\ana\\Pictures\\face cream.png", "image/png", 1},
	}
	for _, tc := range cases {
		key := Encode(tc.name, tc.contentType, tc.id)
		id, ok := Decode(key)
		require.True(t, ok, "key %q should decode", key)
		assert.Equal(t, tc.id, id, "key %q", key)
	}
}

func TestEncodeAnonymousKeyDoesNotDecode(t *testing.T) {
	key := Encode("shampoo.png", "image/png", 0)
	_, ok := Decode(key)
	assert.False(t, ok, "anonymous key %q must not decode as an id", key)
}

func TestEncodeFallbackStemAndExtension(t *testing.T) {
	key := Encode("", "image/jpeg", 0)
	assert.True(t, strings.HasPrefix(key, "image_"), "key %q", key)
	assert.True(t, strings.HasSuffix(key, ".jpg"), "key %q", key)

	key = Encode("!!!", "application/octet-stream", 5)
	assert.True(t, strings.HasPrefix(key, "5_"), "key %q", key)
	assert.True(t, strings.HasSuffix(key, ".bin"), "key %q", key)
}

func TestEncodeSanitizesFilename(t *testing.T) {
	key := Encode("My Face Cream.PNG", "image/png", 42)
	assert.True(t, strings.HasSuffix(key, "_my_face_cream.png"), "key %q", key)
	assert.NotContains(t, key, " ")
}

func TestDecodeForeignKeys(t *testing.T) {
	for _, key := range []string{
		"notes.txt",
		"readme",
		"",
		"_leading_separator.png",
		"-7_negative-ish.png",
		"abc_def.png",
		"0_zero.png",
		"-1_negative.png",
		"shampoo_1712345678901.png",
	} {
		_, ok := Decode(key)
		assert.False(t, ok, "key %q must not decode", key)
	}
}

func TestDecodeTolerantOfVariants(t *testing.T) {
	cases := map[string]int64{
		"7_shampoo.png":           7,
		"12_soap.jpg":             12,
		"19-1712345678901.png":    19,
		"products/33-mask.webp":   33,
		"5_Shampoo_Premium_X.png": 5,
	}
	for key, want := range cases {
		id, ok := Decode(key)
		require.True(t, ok, "key %q", key)
		assert.Equal(t, want, id, "key %q", key)
	}
}

func TestKeyFromURL(t *testing.T) {
	key, ok := KeyFromURL("http://localhost:9000/products/7_shampoo.png")
	require.True(t, ok)
	assert.Equal(t, "7_shampoo.png", key)

	key, ok = KeyFromURL("https://cdn.example.com/12_soap.jpg?v=2")
	require.True(t, ok)
	assert.Equal(t, "12_soap.jpg", key)

	for _, raw := range []string{"", "http://host/", "://bad url"} {
		if _, ok := KeyFromURL(raw); ok {
			t.Fatalf("KeyFromURL(%q) should report no key", raw)
		}
	}
}
