package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
)

// OpenUpload checks the uploaded file's extension and size and opens it.
// The caller closes the returned file.
func OpenUpload(fileHeader *multipart.FileHeader, maxBytes int64, allowedExt ...string) (multipart.File, error) {
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	allowed := false
	for _, a := range allowedExt {
		if ext == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
	if maxBytes > 0 && fileHeader.Size > maxBytes {
		return nil, fmt.Errorf("file too large: %d bytes", fileHeader.Size)
	}
	return fileHeader.Open()
}
