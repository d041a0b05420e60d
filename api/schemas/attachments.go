// File: api/schemas/attachments.go
package schemas

import (
	"mime"
	"path/filepath"
	"strings"
)

// mediaTypes covers the formats the backend accepts for schematics and
// datasheets. mime.TypeByExtension handles anything else.
var mediaTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// MediaTypeFor derives the media type of an attachment from its file name.
// Unknown extensions fall back to application/octet-stream.
func MediaTypeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if mt, ok := mediaTypes[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		return mt
	}
	return "application/octet-stream"
}
