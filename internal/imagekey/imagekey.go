// Package imagekey derives object-store keys from upload metadata and, in
// reverse, recovers product ids from keys found in the bucket.
//
// Key forms:
//
//	7_1712345678901_shampoo.png   id known at upload time
//	shampoo_1712345678901.png     id not yet known (store-assigned on insert)
//
// The leading-id convention is what batch reconciliation relies on; the
// anonymous form deliberately puts the stem first so an unrelated upload never
// decodes as a record id.
package imagekey

import (
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

// defaultStem is used when the upload carries no usable filename.
const defaultStem = "image"

// extByContentType maps the image content types the catalog accepts to file
// extensions. Anything else gets a generic binary extension.
var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Encode builds a bucket key for an uploaded image. When id is positive it is
// prefixed to the key so Decode can recover it later; otherwise the key starts
// with the sanitized filename stem. A millisecond timestamp keeps concurrent
// uploads of the same filename distinct.
func Encode(originalName, contentType string, id int64) string {
	stem, ext := splitName(originalName)
	if stem == "" {
		stem = defaultStem
	}
	if ext == "" {
		ext = extForContentType(contentType)
	}

	now := time.Now().UnixMilli()
	if id > 0 {
		return strconv.FormatInt(id, 10) + "_" + strconv.FormatInt(now, 10) + "_" + stem + ext
	}
	return stem + "_" + strconv.FormatInt(now, 10) + ext
}

// Decode recovers a product id from a bucket key: the token before the first
// "_" or "-" in the key's base name, parsed as a positive integer. This is a
// best-effort heuristic — foreign files in a shared bucket simply report no id.
func Decode(key string) (int64, bool) {
	name := key
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}

	sep := strings.IndexAny(name, "_-")
	if sep <= 0 {
		return 0, false
	}

	id, err := strconv.ParseInt(name[:sep], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// KeyFromURL extracts the object key from a public URL's last path segment.
// Malformed URLs or URLs without a path report no key.
func KeyFromURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	key := path.Base(u.Path)
	if key == "" || key == "." || key == "/" {
		return "", false
	}
	return key, true
}

// splitName sanitizes an original filename into a key-safe stem and lowercase
// extension. Directory components, whitespace, and characters outside
// [a-z0-9._-] are stripped.
func splitName(name string) (stem, ext string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", ""
	}
	// Browsers may send a full client-side path.
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))

	ext = path.Ext(name)
	stem = strings.TrimSuffix(name, ext)

	var b strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	stem = strings.Trim(b.String(), "._-")

	if !validExt(ext) {
		ext = ""
	}
	return stem, ext
}

// validExt reports whether ext looks like a plain file extension.
func validExt(ext string) bool {
	if len(ext) < 2 || ext[0] != '.' {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func extForContentType(contentType string) string {
	if ext, ok := extByContentType[contentType]; ok {
		return ext
	}
	return ".bin"
}
