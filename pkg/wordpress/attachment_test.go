package wordpress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAttachmentMetadata(t *testing.T) {
	raw := `a:3:{s:4:"file";s:22:"2024/01/big-scaled.jpg";s:14:"original_image";s:7:"big.jpg";s:5:"sizes";a:1:{s:5:"large";a:2:{s:4:"file";s:16:"big-1024x768.jpg";s:5:"width";s:4:"1024";}}}`

	meta, err := ParseAttachmentMetadata(raw)
	require.NoError(t, err)
	assert.Equal(t, "2024/01/big-scaled.jpg", meta.File)
	assert.Equal(t, 1024, meta.Sizes["large"].Width)
	assert.Equal(t, []string{"big.jpg", "big-1024x768.jpg"}, meta.SizeFiles())
}

func TestParseAttachmentMetadataEmptySizes(t *testing.T) {
	meta, err := ParseAttachmentMetadata(`a:1:{s:5:"sizes";a:0:{}}`)
	require.NoError(t, err)
	assert.Empty(t, meta.SizeFiles())

	meta, err = ParseAttachmentMetadata("")
	require.NoError(t, err)
	assert.Empty(t, meta.SizeFiles())

	_, err = ParseAttachmentMetadata("not serialized")
	assert.Error(t, err)
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cat.jpg", "cat.jpg"},
		{"100%", "100!%"},
		{"my_file", "my!_file"},
		{"wow!", "wow!!"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EscapeLike(tt.in))
	}
	assert.Equal(t, "%a!_b%", Contains("a_b"))
}

func TestMimePatterns(t *testing.T) {
	assert.Nil(t, MimePatterns(nil))
	assert.Nil(t, MimePatterns([]string{"image", "document", "video", "audio"}))
	assert.Equal(t, []string{"image/%"}, MimePatterns([]string{"image", "image"}))
	assert.Equal(t, []string{"application/%", "text/%", "video/%"}, MimePatterns([]string{"video", "document"}))
}

func TestPattern(t *testing.T) {
	assert.Equal(t, "theme!_mods!_%", Pattern("theme_mods_%"))
	assert.Equal(t, "%widget%", Pattern("%widget%"))
	assert.Equal(t, "%", Pattern("%"))
}
