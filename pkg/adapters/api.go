package adapters

import (
	"github.com/de-tools/site-report/pkg/models/api"
	"github.com/de-tools/site-report/pkg/models/domain"
)

func MapBlobApiToDomain(b *api.Blob) *domain.Blob {
	if b == nil {
		return nil
	}
	return &domain.Blob{ContentType: b.ContentType, Data: b.Data}
}

func MapBlobDomainToApi(b *domain.Blob) *api.Blob {
	if b == nil {
		return nil
	}
	return &api.Blob{ContentType: b.ContentType, Data: b.Data}
}

func MapItemRequestToDomain(r api.ItemRequest) domain.ItemInput {
	return domain.ItemInput{
		Kind:  domain.ItemKind(r.Kind),
		Text:  r.Text,
		Audio: MapBlobApiToDomain(r.Audio),
		Image: MapBlobApiToDomain(r.Image),
		Order: r.Order,
	}
}

func MapItemDomainToApi(it domain.Item) api.Item {
	return api.Item{
		ID:    it.ID,
		Kind:  string(it.Kind),
		Order: it.Order,
		Text:  it.Text,
		Audio: MapBlobDomainToApi(it.Audio),
		Image: MapBlobDomainToApi(it.Image),
	}
}

// MapComplaintDomainToApi leaves out items for which hidden returns true.
// A nil hidden keeps every item.
func MapComplaintDomainToApi(c *domain.Complaint, hidden func(itemID string) bool) api.Complaint {
	res := api.Complaint{
		ID:    c.ID,
		Type:  string(c.Type),
		Title: c.Title,
		Order: c.Order,
		Items: make([]api.Item, 0, len(c.Items)),
	}
	for _, it := range c.Items {
		if hidden != nil && hidden(it.ID) {
			continue
		}
		res.Items = append(res.Items, MapItemDomainToApi(it))
	}
	return res
}

func MapReportDomainToApi(r *domain.Report, hidden func(itemID string) bool) api.Report {
	res := api.Report{
		ID:           r.ID,
		Name:         r.Name,
		CreatedAt:    r.CreatedAt,
		LastModified: r.LastModified,
		Complaints:   make([]api.Complaint, 0, len(r.Complaints)),
	}
	for _, c := range r.Complaints {
		res.Complaints = append(res.Complaints, MapComplaintDomainToApi(c, hidden))
	}
	return res
}

func MapReportDomainToSummary(r *domain.Report) api.ReportSummary {
	return api.ReportSummary{
		ID:             r.ID,
		Name:           r.Name,
		CreatedAt:      r.CreatedAt,
		LastModified:   r.LastModified,
		ComplaintCount: len(r.Complaints),
	}
}
