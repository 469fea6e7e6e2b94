package assistant

import "errors"

// PromptKind tags the shape of a user turn so downstream code can switch on
// it instead of re-checking field emptiness.
type PromptKind int

const (
	TextOnly PromptKind = iota
	TextWithImages
	ImagesOnly
)

// Image is one picture attached to a user turn.
type Image struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// Prompt is a validated user turn. Construct it with NewPrompt; the Kind is
// derived from which fields are populated.
type Prompt struct {
	Kind   PromptKind
	Text   string
	Images []Image
}

// ErrEmptyPrompt is returned when a turn carries neither text nor images.
var ErrEmptyPrompt = errors.New("prompt has neither text nor images")

// NewPrompt classifies and validates a user turn.
func NewPrompt(text string, images []Image) (Prompt, error) {
	switch {
	case text == "" && len(images) == 0:
		return Prompt{}, ErrEmptyPrompt
	case text == "":
		return Prompt{Kind: ImagesOnly, Images: images}, nil
	case len(images) == 0:
		return Prompt{Kind: TextOnly, Text: text}, nil
	default:
		return Prompt{Kind: TextWithImages, Text: text, Images: images}, nil
	}
}
