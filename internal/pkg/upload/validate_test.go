package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var jpegHead = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
var pngHead = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

func TestValidateImageBySniff(t *testing.T) {
	mime, err := ValidateImageBySniff("IMG_4711.jpg", jpegHead)
	assert.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)

	mime, err = ValidateImageBySniff("screenshot.PNG", pngHead)
	assert.NoError(t, err)
	assert.Equal(t, "image/png", mime)
}

func TestValidateImageBySniffRejectsUnknownExtension(t *testing.T) {
	_, err := ValidateImageBySniff("notes.txt", jpegHead)
	assert.Error(t, err)
}

func TestValidateImageBySniffRejectsHTML(t *testing.T) {
	_, err := ValidateImageBySniff("payload.jpg", []byte("<html><script>alert(1)</script>"))
	assert.Error(t, err)
}

func TestValidateImageBySniffRejectsSVG(t *testing.T) {
	_, err := ValidateImageBySniff("vector.png", []byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg"/>`))
	assert.Error(t, err)
}

func TestValidateImageBySniffAllowsOctetStreamByExtension(t *testing.T) {
	// Exotic but legal encodings sometimes sniff as octet-stream.
	mime, err := ValidateImageBySniff("raw.webp", []byte{0x00, 0x01, 0x02, 0x03})
	assert.NoError(t, err)
	assert.Equal(t, "application/octet-stream", mime)
}
