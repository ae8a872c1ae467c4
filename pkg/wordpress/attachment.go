package wordpress

import (
	"fmt"
	"path"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/wolfslender/Media-Usage-Checker/pkg/phpserial"
)

// Attachment is a media library entry as seen by the scanner.
type Attachment struct {
	ID           uint64 `json:"id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	MimeType     string `json:"mime_type"`
	GUID         string `json:"guid"`
	URL          string `json:"url"`
	Path         string `json:"path,omitempty"`
	RelativePath string `json:"relative_path,omitempty"`

	// Sizes are the file names of generated image sizes and the original of
	// a scaled upload, all living next to RelativePath.
	Sizes []string `json:"sizes,omitempty"`
}

// Filename is the bare name of the main file.
func (a Attachment) Filename() string {
	switch {
	case a.RelativePath != "":
		return path.Base(a.RelativePath)
	case a.URL != "":
		return path.Base(strings.SplitN(a.URL, "?", 2)[0])
	}
	return ""
}

// Files returns the relative paths of the main file and every generated size.
func (a Attachment) Files() []string {
	if a.RelativePath == "" {
		return nil
	}

	files := []string{a.RelativePath}
	dir := path.Dir(a.RelativePath)
	for _, size := range a.Sizes {
		if dir == "." {
			files = append(files, size)
		} else {
			files = append(files, path.Join(dir, size))
		}
	}
	return files
}

// AttachmentMetadata mirrors the serialized _wp_attachment_metadata array.
type AttachmentMetadata struct {
	Width         int                  `mapstructure:"width"`
	Height        int                  `mapstructure:"height"`
	File          string               `mapstructure:"file"`
	OriginalImage string               `mapstructure:"original_image"`
	Sizes         map[string]ImageSize `mapstructure:"sizes"`
}

type ImageSize struct {
	File     string `mapstructure:"file"`
	Width    int    `mapstructure:"width"`
	Height   int    `mapstructure:"height"`
	MimeType string `mapstructure:"mime-type"`
}

// ParseAttachmentMetadata decodes a serialized metadata value. Empty input
// yields empty metadata.
func ParseAttachmentMetadata(raw string) (AttachmentMetadata, error) {
	var meta AttachmentMetadata
	if strings.TrimSpace(raw) == "" {
		return meta, nil
	}

	value, ok := phpserial.Decode(raw)
	if !ok {
		return meta, fmt.Errorf("failed to decode attachment metadata")
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &meta,
	})
	if err != nil {
		return meta, fmt.Errorf("failed to create metadata decoder: %w", err)
	}

	if err := decoder.Decode(value.Interface()); err != nil {
		return meta, fmt.Errorf("failed to decode attachment metadata: %w", err)
	}
	return meta, nil
}

// SizeFiles lists generated size files, without duplicates, in a stable order.
func (m AttachmentMetadata) SizeFiles() []string {
	seen := make(map[string]bool)
	var files []string

	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		files = append(files, name)
	}

	add(m.OriginalImage)
	for _, name := range sortedKeys(m.Sizes) {
		add(m.Sizes[name].File)
	}
	return files
}
