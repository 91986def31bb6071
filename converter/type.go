package converter

import (
	"fmt"
	"strings"
)

// Format is an output codec selected by file extension.
type Format struct {
	ext string
}

var (
	PNG  = Format{".png"}
	JPEG = Format{".jpg"}
	WEBP = Format{".webp"}
	BMP  = Format{".bmp"}
	TIFF = Format{".tiff"}
	GIF  = Format{".gif"}
	AVIF = Format{".avif"}
)

var formatAliases = map[string]Format{
	"png":  PNG,
	"jpg":  JPEG,
	"jpeg": JPEG,
	"jpe":  JPEG,
	"webp": WEBP,
	"bmp":  BMP,
	"dib":  BMP,
	"tif":  TIFF,
	"tiff": TIFF,
	"gif":  GIF,
	"avif": AVIF,
}

var contentTypes = map[Format]string{
	PNG:  "image/png",
	JPEG: "image/jpeg",
	WEBP: "image/webp",
	BMP:  "image/bmp",
	TIFF: "image/tiff",
	GIF:  "image/gif",
	AVIF: "image/avif",
}

// ParseFormat accepts ".png", "png", "PNG" and the usual aliases.
func ParseFormat(s string) (Format, error) {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	if f, ok := formatAliases[key]; ok {
		return f, nil
	}

	return Format{}, fmt.Errorf("unknown format: %q", s)
}

func (f Format) String() string {
	return f.ext
}

func (f Format) Ext() string {
	return f.ext
}

func (f Format) ContentType() string {
	if ct, ok := contentTypes[f]; ok {
		return ct
	}
	return "application/octet-stream"
}

func (f Format) IsZero() bool {
	return f.ext == ""
}

func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.ext), nil
}
