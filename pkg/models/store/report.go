package store

import "time"

// Report is the persisted report row. Only ComplaintIDs is written; Complaints
// is filled when a report graph is resolved on read.
type Report struct {
	ID           string
	Name         string
	CreatedAt    time.Time
	LastModified time.Time
	ComplaintIDs []string
	Complaints   []Complaint
}

// Complaint is the persisted complaint row. Only ItemIDs is written; Items is
// filled when the complaint is resolved on read.
type Complaint struct {
	ID      string
	Type    string
	Title   string
	Order   int
	ItemIDs []string
	Items   []ComplaintItem
}

type ComplaintItem struct {
	ID     string
	Type   string
	Order  int
	Text   string
	BlobID *string
	Blob   *Blob
}

type Blob struct {
	ID          string
	ContentType string
	Data        []byte
}

// CollectItemIDs returns the IDs of the resolved items, or ItemIDs when no
// items are attached.
func (c Complaint) CollectItemIDs() []string {
	if len(c.Items) == 0 {
		return nonNil(c.ItemIDs)
	}
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ID)
	}
	return ids
}

func (r Report) CollectComplaintIDs() []string {
	if len(r.Complaints) == 0 {
		return nonNil(r.ComplaintIDs)
	}
	ids := make([]string, 0, len(r.Complaints))
	for _, c := range r.Complaints {
		ids = append(ids, c.ID)
	}
	return ids
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
