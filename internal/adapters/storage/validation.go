package storage

import (
	"fmt"
)

// AllowedContentTypes are the payload types the archive accepts.
var AllowedContentTypes = map[string]bool{
	"application/json": true,
	"text/csv":         true,
}

// ValidateObject checks the archive object before upload.
func ValidateObject(obj ArchiveObject) error {
	if obj.ID == "" {
		return fmt.Errorf("archive object has no id")
	}
	if !AllowedContentTypes[obj.ContentType] {
		return fmt.Errorf("content type %q is not archived", obj.ContentType)
	}
	if len(obj.Data) == 0 {
		return fmt.Errorf("archive object is empty")
	}
	return nil
}
