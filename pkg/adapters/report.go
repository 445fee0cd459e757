package adapters

import (
	"fmt"

	"github.com/de-tools/site-report/pkg/models/domain"
	"github.com/de-tools/site-report/pkg/models/store"
)

func MapStoreBlobToDomain(b *store.Blob) *domain.Blob {
	if b == nil {
		return nil
	}
	return &domain.Blob{ID: b.ID, ContentType: b.ContentType, Data: b.Data}
}

func MapDomainBlobToStore(b *domain.Blob) *store.Blob {
	if b == nil {
		return nil
	}
	return &store.Blob{ID: b.ID, ContentType: b.ContentType, Data: b.Data}
}

// MapStoreItemToDomain dispatches on the stored type and fails when the
// payload the type requires is missing.
func MapStoreItemToDomain(it *store.ComplaintItem) (*domain.Item, error) {
	if it == nil {
		return nil, nil
	}

	item := domain.Item{
		ID:    it.ID,
		Kind:  domain.ItemKind(it.Type),
		Order: it.Order,
	}
	switch item.Kind {
	case domain.ItemKindText:
		item.Text = it.Text
	case domain.ItemKindRecording:
		item.Text = it.Text
		item.Audio = MapStoreBlobToDomain(it.Blob)
	case domain.ItemKindImage:
		item.Image = MapStoreBlobToDomain(it.Blob)
	}

	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("stored item %s: %w", it.ID, err)
	}
	return &item, nil
}

func MapDomainItemToStore(it domain.Item) store.ComplaintItem {
	res := store.ComplaintItem{
		ID:    it.ID,
		Type:  string(it.Kind),
		Order: it.Order,
	}
	if it.Kind != domain.ItemKindImage {
		res.Text = it.Text
	}
	if b := it.Payload(); b != nil {
		res.Blob = MapDomainBlobToStore(b)
		res.BlobID = &res.Blob.ID
	}
	return res
}

func MapStoreComplaintToDomain(c *store.Complaint) (*domain.Complaint, error) {
	if c == nil {
		return nil, nil
	}

	res := &domain.Complaint{
		ID:    c.ID,
		Type:  domain.ComplaintType(c.Type),
		Title: c.Title,
		Order: c.Order,
		Items: make([]domain.Item, 0, len(c.Items)),
	}
	for i := range c.Items {
		item, err := MapStoreItemToDomain(&c.Items[i])
		if err != nil {
			return nil, fmt.Errorf("complaint %s: %w", c.ID, err)
		}
		res.Items = append(res.Items, *item)
	}
	res.SortItems()
	return res, nil
}

// MapDomainComplaintToStore keeps ItemIDs in step with Items so an emptied
// complaint is persisted with an empty list.
func MapDomainComplaintToStore(c *domain.Complaint) store.Complaint {
	res := store.Complaint{
		ID:      c.ID,
		Type:    string(c.Type),
		Title:   c.Title,
		Order:   c.Order,
		ItemIDs: make([]string, 0, len(c.Items)),
		Items:   make([]store.ComplaintItem, 0, len(c.Items)),
	}
	for _, it := range c.Items {
		res.ItemIDs = append(res.ItemIDs, it.ID)
		res.Items = append(res.Items, MapDomainItemToStore(it))
	}
	return res
}

func MapStoreReportToDomain(r *store.Report) (*domain.Report, error) {
	if r == nil {
		return nil, nil
	}

	res := &domain.Report{
		ID:           r.ID,
		Name:         r.Name,
		CreatedAt:    r.CreatedAt,
		LastModified: r.LastModified,
		Complaints:   make([]*domain.Complaint, 0, len(r.Complaints)),
	}
	for i := range r.Complaints {
		c, err := MapStoreComplaintToDomain(&r.Complaints[i])
		if err != nil {
			return nil, fmt.Errorf("report %s: %w", r.ID, err)
		}
		res.Complaints = append(res.Complaints, c)
	}
	return res, nil
}

func MapDomainReportToStore(r *domain.Report) store.Report {
	res := store.Report{
		ID:           r.ID,
		Name:         r.Name,
		CreatedAt:    r.CreatedAt,
		LastModified: r.LastModified,
		ComplaintIDs: make([]string, 0, len(r.Complaints)),
		Complaints:   make([]store.Complaint, 0, len(r.Complaints)),
	}
	for _, c := range r.Complaints {
		res.ComplaintIDs = append(res.ComplaintIDs, c.ID)
		res.Complaints = append(res.Complaints, MapDomainComplaintToStore(c))
	}
	return res
}
