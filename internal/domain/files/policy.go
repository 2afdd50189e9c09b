package files

import (
	"strconv"
	"strings"
	"time"

	"fileservices/internal/storage"
)

const (
	DownloadRoute   = "/download"
	ImageRoute      = "/images"
	StaticImageBase = "/public/images"

	maxNameComponent = 200
)

// StoredName derives the on-storage filename: arrival time in epoch
// milliseconds, a dash, then the sanitized original name.
func StoredName(now time.Time, original string) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + SanitizeName(original)
}

// SanitizeName reduces a client-supplied name to a single safe path element.
// Only the last path segment survives, runes outside [A-Za-z0-9._-] become
// '_', and leading dots are dropped. The result may be empty.
func SanitizeName(original string) string {
	if i := strings.LastIndexAny(original, `/\`); i >= 0 {
		original = original[i+1:]
	}

	name := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, original)
	name = strings.TrimLeft(name, ".")

	if len(name) > maxNameComponent {
		name = name[len(name)-maxNameComponent:]
		name = strings.TrimLeft(name, ".")
	}
	return name
}

// KindFor places a declared content type: image/* goes to the image store,
// everything else to generic uploads.
func KindFor(contentType string) storage.Kind {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return storage.KindImage
	}
	return storage.KindUpload
}

// URLFor is the access URL reported for a stored file.
func URLFor(kind storage.Kind, filename string) string {
	if kind == storage.KindImage {
		return StaticImageBase + "/" + filename
	}
	return DownloadRoute + "/" + filename
}
