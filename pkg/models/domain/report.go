package domain

import (
	"fmt"
	"slices"
	"time"
)

const reportNameLayout = "2006-01-02 15:04:05"

// Report represents an inspection report and the complaints it owns.
type Report struct {
	ID           string
	Name         string
	CreatedAt    time.Time
	LastModified time.Time
	Complaints   []*Complaint
}

// NewReport creates an empty report. A blank name is replaced by one derived
// from the creation time.
func NewReport(name string) *Report {
	ts := now()
	if name == "" {
		name = fmt.Sprintf("New Report %s", ts.Format(reportNameLayout))
	}
	return &Report{
		ID:           NewID(),
		Name:         name,
		CreatedAt:    ts,
		LastModified: ts,
		Complaints:   []*Complaint{},
	}
}

// Touch marks the report as modified, e.g. after one of its complaints changed.
func (r *Report) Touch() {
	r.LastModified = now()
}

func (r *Report) Rename(name string) {
	r.Name = name
	r.Touch()
}

// AddComplaint appends c and sets its order to its position in the report.
func (r *Report) AddComplaint(c *Complaint) {
	c.Order = len(r.Complaints)
	r.Complaints = append(r.Complaints, c)
	r.Touch()
}

func (r *Report) RemoveComplaint(complaintID string) bool {
	n := len(r.Complaints)
	r.Complaints = slices.DeleteFunc(r.Complaints, func(c *Complaint) bool {
		return c.ID == complaintID
	})
	if len(r.Complaints) == n {
		return false
	}
	r.Touch()
	return true
}

func (r *Report) ComplaintByID(complaintID string) *Complaint {
	for _, c := range r.Complaints {
		if c.ID == complaintID {
			return c
		}
	}
	return nil
}

// now is truncated to the precision timestamps are stored with.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
