package domain

import (
	"errors"
	"fmt"
)

type ItemKind string

const (
	ItemKindText      ItemKind = "text"
	ItemKindRecording ItemKind = "recording"
	ItemKindImage     ItemKind = "image"
)

var (
	ErrUnknownItemKind = errors.New("unknown complaint item kind")
	ErrMissingPayload  = errors.New("complaint item payload is missing")
)

func (k ItemKind) IsValid() bool {
	switch k {
	case ItemKindText, ItemKindRecording, ItemKindImage:
		return true
	}
	return false
}

// Blob is a binary payload (audio or picture) stored apart from its owner.
type Blob struct {
	ID          string
	ContentType string
	Data        []byte
}

// Item is one piece of evidence attached to a complaint. Kind selects which
// payload fields are meaningful:
//
//	text      -> Text
//	recording -> Audio, Text holds the transcript (may be empty)
//	image     -> Image
type Item struct {
	ID    string
	Kind  ItemKind
	Order int
	Text  string
	Audio *Blob
	Image *Blob
}

// ItemInput describes an item to be attached to a complaint. A nil Order
// appends the item after the existing ones.
type ItemInput struct {
	Kind  ItemKind
	Text  string
	Audio *Blob
	Image *Blob
	Order *int
}

// Validate checks that the payload required by Kind is present.
func (i Item) Validate() error {
	switch i.Kind {
	case ItemKindText:
		if i.Text == "" {
			return fmt.Errorf("%w: text is required for a text item", ErrMissingPayload)
		}
	case ItemKindRecording:
		if i.Audio == nil || len(i.Audio.Data) == 0 {
			return fmt.Errorf("%w: audio is required for a recording item", ErrMissingPayload)
		}
	case ItemKindImage:
		if i.Image == nil || len(i.Image.Data) == 0 {
			return fmt.Errorf("%w: image is required for an image item", ErrMissingPayload)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownItemKind, i.Kind)
	}
	return nil
}

// NewItem builds an item from input, assigning fresh IDs to the item and
// to any blob that lacks one.
func NewItem(input ItemInput, order int) (Item, error) {
	item := Item{
		ID:    NewID(),
		Kind:  input.Kind,
		Order: order,
	}

	switch input.Kind {
	case ItemKindText:
		item.Text = input.Text
	case ItemKindRecording:
		item.Text = input.Text
		item.Audio = withBlobID(input.Audio)
	case ItemKindImage:
		item.Image = withBlobID(input.Image)
	}

	if err := item.Validate(); err != nil {
		return Item{}, err
	}
	return item, nil
}

// Payload returns the binary payload of recording and image items.
func (i Item) Payload() *Blob {
	switch i.Kind {
	case ItemKindRecording:
		return i.Audio
	case ItemKindImage:
		return i.Image
	}
	return nil
}

// NeedsTranscript reports whether the item is a recording without text yet.
func (i Item) NeedsTranscript() bool {
	return i.Kind == ItemKindRecording && i.Text == ""
}

func withBlobID(b *Blob) *Blob {
	if b == nil {
		return nil
	}
	cp := *b
	if cp.ID == "" {
		cp.ID = NewID()
	}
	return &cp
}

// Apply returns a copy of the item updated from input. Payloads that are not
// supplied are kept, and a replaced blob reuses the previous blob ID so the
// stored payload is overwritten rather than duplicated.
func (i Item) Apply(input ItemInput) (Item, error) {
	out := i
	if input.Kind != "" {
		out.Kind = input.Kind
	}
	if input.Order != nil {
		out.Order = *input.Order
	}

	switch out.Kind {
	case ItemKindText:
		out.Text = input.Text
		out.Audio, out.Image = nil, nil
	case ItemKindRecording:
		if input.Text != "" || input.Audio != nil {
			out.Text = input.Text
		}
		if input.Audio != nil {
			out.Audio = replaceBlob(i.Audio, input.Audio)
		}
		out.Image = nil
	case ItemKindImage:
		out.Text = ""
		if input.Image != nil {
			out.Image = replaceBlob(i.Image, input.Image)
		}
		out.Audio = nil
	}

	if err := out.Validate(); err != nil {
		return Item{}, err
	}
	return out, nil
}

func replaceBlob(previous, next *Blob) *Blob {
	cp := *next
	if cp.ID == "" && previous != nil {
		cp.ID = previous.ID
	}
	return withBlobID(&cp)
}
