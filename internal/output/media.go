package output

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// seedImageTypes are the image formats the video model accepts as a first frame
var seedImageTypes = []string{"image/png", "image/jpeg", "image/webp"}

// DetectImageType sniffs data and returns its MIME type when it is a
// supported seed image format.
func DetectImageType(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("image is empty")
	}
	mime := mimetype.Detect(data)
	for _, t := range seedImageTypes {
		if mime.Is(t) {
			return t, nil
		}
	}
	return "", fmt.Errorf("image is %s, expected PNG, JPEG or WebP", mime.String())
}
