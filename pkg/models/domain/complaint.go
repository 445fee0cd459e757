package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

type ComplaintType string

const (
	ComplaintTypeFinding ComplaintType = "finding"
	ComplaintTypeAction  ComplaintType = "action"
)

var ErrInvalidComplaintType = errors.New("invalid complaint type")

func (t ComplaintType) IsValid() bool {
	switch t {
	case ComplaintTypeFinding, ComplaintTypeAction:
		return true
	}
	return false
}

// Label is the human readable name used in fallback titles.
func (t ComplaintType) Label() string {
	switch t {
	case ComplaintTypeFinding:
		return "Finding"
	case ComplaintTypeAction:
		return "Action"
	}
	return string(t)
}

type Complaint struct {
	ID    string
	Type  ComplaintType
	Title string
	Order int
	Items []Item
}

func NewComplaint(t ComplaintType) (*Complaint, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidComplaintType, t)
	}
	return &Complaint{
		ID:    NewID(),
		Type:  t,
		Items: []Item{},
	}, nil
}

// AddItem appends a new item. Without an explicit order the item is placed
// at len(Items).
func (c *Complaint) AddItem(input ItemInput) (Item, error) {
	order := len(c.Items)
	if input.Order != nil {
		order = *input.Order
	}

	item, err := NewItem(input, order)
	if err != nil {
		return Item{}, err
	}

	c.Items = append(c.Items, item)
	c.SortItems()
	return item, nil
}

// RestoreItem puts back an item that was previously removed, keeping its ID.
func (c *Complaint) RestoreItem(item Item) {
	if c.ItemByID(item.ID) != nil {
		return
	}
	c.Items = append(c.Items, item)
	c.SortItems()
}

func (c *Complaint) UpdateItem(item Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	for i := range c.Items {
		if c.Items[i].ID == item.ID {
			c.Items[i] = item
			c.SortItems()
			return nil
		}
	}
	return fmt.Errorf("item %s is not part of complaint %s", item.ID, c.ID)
}

// RemoveItem drops the item and reports whether it was present.
func (c *Complaint) RemoveItem(itemID string) bool {
	n := len(c.Items)
	c.Items = slices.DeleteFunc(c.Items, func(it Item) bool {
		return it.ID == itemID
	})
	return len(c.Items) != n
}

func (c *Complaint) ItemByID(itemID string) *Item {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

// SortItems orders items by Order; ties keep insertion order.
func (c *Complaint) SortItems() {
	slices.SortStableFunc(c.Items, func(a, b Item) int {
		return a.Order - b.Order
	})
}

// Reorder reassigns orders 0..n-1 following the current sequence.
func (c *Complaint) Reorder() {
	c.SortItems()
	for i := range c.Items {
		c.Items[i].Order = i
	}
}

// Text joins all text notes and transcripts in display order.
func (c *Complaint) Text() string {
	parts := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		if it.Kind == ItemKindImage || it.Text == "" {
			continue
		}
		parts = append(parts, it.Text)
	}
	return strings.Join(parts, " ")
}
