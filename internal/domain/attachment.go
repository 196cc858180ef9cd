package domain

import (
	"errors"
	"fmt"
	"slices"
)

// MaxImageSize is the largest image a learner may attach.
const MaxImageSize = 5 * 1024 * 1024

// ImageTypes lists the media types accepted for uploaded images.
var ImageTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/webp"}

// DefaultImageQuestion accompanies an image sent without a caption.
const DefaultImageQuestion = "What's the math problem in this image?"

var (
	ErrUnsupportedImage = errors.New("invalid file type, please upload a JPG, PNG, or WebP image")
	ErrImageTooLarge    = errors.New("file size too large, maximum allowed size is 5MB")
)

// ValidateImage checks an upload's media type and size in bytes.
func ValidateImage(mediaType string, size int64) error {
	if !slices.Contains(ImageTypes, mediaType) {
		return fmt.Errorf("%w (selected: %s)", ErrUnsupportedImage, mediaType)
	}
	if size > MaxImageSize {
		return fmt.Errorf("%w (got %.2fMB)", ErrImageTooLarge, float64(size)/(1024*1024))
	}
	return nil
}

// NewImageMessage builds a user message with a caption and one image
// attachment given as a data URL.
func NewImageMessage(id, caption string, image FilePart) Message {
	if caption == "" {
		caption = DefaultImageQuestion
	}
	return Message{ID: id, Role: RoleUser, Parts: []Part{TextPart{Text: caption}, image}}
}
