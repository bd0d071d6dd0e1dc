// Package media runs the song search-and-send pipeline and prepares
// stickers. Temp files live in a Store and never outlive their job.
package media

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DetectMIME returns the MIME type from magic bytes (not file extension)
func DetectMIME(data []byte) string {
	return mimetype.Detect(data).String()
}

// BaseMIME strips parameters: "audio/mp4; codecs=..." -> "audio/mp4".
func BaseMIME(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

// ExtensionFor returns a file extension for mime, e.g. ".m4a" for audio/mp4.
func ExtensionFor(mime string) string {
	base := BaseMIME(mime)
	if base == "audio/mp4" {
		return ".m4a"
	}
	if m := mimetype.Lookup(base); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".bin"
}

// IsImage reports whether data sniffs as an image.
func IsImage(data []byte) bool {
	return strings.HasPrefix(DetectMIME(data), "image/")
}
