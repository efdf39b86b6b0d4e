package service

import (
	"mime"
	"path"
	"strings"
)

const octetStream = "application/octet-stream"

// FileType returns the lower-cased extension after the last dot of
// filename, or "" when it has none.
func FileType(filename string) string {
	base := path.Base(filename)
	i := strings.LastIndexByte(base, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(base[i+1:])
}

// ContentTypeFor guesses a MIME type from the extension of filename.
func ContentTypeFor(filename string) string {
	ext := path.Ext(filename)
	if ext == "" {
		return octetStream
	}
	if ct := mime.TypeByExtension(strings.ToLower(ext)); ct != "" {
		return ct
	}
	return octetStream
}
