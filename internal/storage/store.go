package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"
)

// ImageStore persists uploaded images and returns the key under which they were stored.
// Delete takes a key returned by Save; deleting a missing object is not an error.
type ImageStore interface {
	Save(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// PlumberRequestPrefix namespaces service request photos.
const PlumberRequestPrefix = "plumber-requests"

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ImageKey builds "<prefix>/<unix-ms>-<sanitised name>" for an uploaded file.
func ImageKey(prefix, filename string, now time.Time) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "image"
	}
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return fmt.Sprintf("%s/%d-%s", prefix, now.UnixMilli(), name)
}
