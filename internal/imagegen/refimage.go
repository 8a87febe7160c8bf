package imagegen

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const DefaultMaxReferenceBytes = 4 << 20

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// ReferenceImage is an optional style/content reference attached to a
// generation task. Exactly one of URL, Path, or Data should be set.
type ReferenceImage struct {
	URL  string
	Path string
	Data []byte
}

// ReferencePolicy bounds what reference material may be sent to a
// provider.
type ReferencePolicy struct {
	MaxBytes     int64
	AllowedTypes []string
}

func (p ReferencePolicy) maxBytes() int64 {
	if p.MaxBytes <= 0 {
		return DefaultMaxReferenceBytes
	}
	return p.MaxBytes
}

func (p ReferencePolicy) allowed(mime string) bool {
	if mime == "" {
		return false
	}
	for _, t := range p.AllowedTypes {
		if strings.EqualFold(t, mime) {
			return true
		}
	}
	return false
}

// Resolve validates ref and converts it into the request field the
// task-submission payload expects: image_url for remote references,
// image_b64 for local ones. Oversized or unrecognized references are
// rejected before any provider call.
func (p ReferencePolicy) Resolve(ref *ReferenceImage) (field, value string, err error) {
	switch {
	case ref.URL != "":
		mime := mimeFromName(ref.URL)
		if !p.allowed(mime) {
			return "", "", fmt.Errorf("reference image URL %q has unsupported type %q", ref.URL, mime)
		}
		return "image_url", ref.URL, nil

	case ref.Path != "":
		info, statErr := os.Stat(ref.Path)
		if statErr != nil {
			return "", "", fmt.Errorf("reference image %s: %w", ref.Path, statErr)
		}
		if info.Size() > p.maxBytes() {
			return "", "", fmt.Errorf("reference image %s is %d bytes, limit is %d", ref.Path, info.Size(), p.maxBytes())
		}
		data, readErr := os.ReadFile(ref.Path)
		if readErr != nil {
			return "", "", fmt.Errorf("reference image %s: %w", ref.Path, readErr)
		}
		mime := sniffMIME(data)
		if mime == "" {
			mime = mimeFromName(ref.Path)
		}
		if !p.allowed(mime) {
			return "", "", fmt.Errorf("reference image %s has unsupported type %q", ref.Path, mime)
		}
		return "image_b64", base64.StdEncoding.EncodeToString(data), nil

	case len(ref.Data) > 0:
		if int64(len(ref.Data)) > p.maxBytes() {
			return "", "", fmt.Errorf("reference image is %d bytes, limit is %d", len(ref.Data), p.maxBytes())
		}
		mime := sniffMIME(ref.Data)
		if !p.allowed(mime) {
			return "", "", fmt.Errorf("reference image bytes have unsupported type %q", mime)
		}
		return "image_b64", base64.StdEncoding.EncodeToString(ref.Data), nil
	}

	return "", "", fmt.Errorf("reference image is empty")
}

// sniffMIME detects PNG/JPEG by signature bytes.
func sniffMIME(data []byte) string {
	if bytes.HasPrefix(data, pngMagic) {
		return "image/png"
	}
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	return ""
}

func mimeFromName(name string) string {
	switch strings.ToLower(filepath.Ext(stripQuery(name))) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	}
	return ""
}

func stripQuery(name string) string {
	if i := strings.IndexByte(name, '?'); i >= 0 {
		return name[:i]
	}
	return name
}
