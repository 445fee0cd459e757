package api

import "time"

type Blob struct {
	ContentType string `json:"contentType,omitempty" validate:"omitempty,max=255"`
	Data        []byte `json:"data" validate:"required"`
}

type Item struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Order int    `json:"order"`
	Text  string `json:"text,omitempty"`
	Audio *Blob  `json:"audio,omitempty"`
	Image *Blob  `json:"image,omitempty"`
}

type Complaint struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	Order int    `json:"order"`
	Items []Item `json:"items"`
}

type Report struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	CreatedAt    time.Time   `json:"createdAt"`
	LastModified time.Time   `json:"lastModified"`
	Complaints   []Complaint `json:"complaints"`
}

type ReportSummary struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"createdAt"`
	LastModified   time.Time `json:"lastModified"`
	ComplaintCount int       `json:"complaintCount"`
}

type CreateReportRequest struct {
	Name string `json:"name" validate:"max=200"`
}

type RenameReportRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type AddComplaintRequest struct {
	Type string `json:"type" validate:"required,oneof=finding action"`
}

// ItemRequest creates or updates a complaint item. On update Kind may be
// omitted to keep the current one.
type ItemRequest struct {
	Kind  string `json:"kind" validate:"omitempty,oneof=text recording image"`
	Text  string `json:"text" validate:"max=20000"`
	Audio *Blob  `json:"audio,omitempty"`
	Image *Blob  `json:"image,omitempty"`
	Order *int   `json:"order,omitempty" validate:"omitempty,min=0"`
}

type PendingDelete struct {
	TransactionID string    `json:"transactionId"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// ComplaintList names the complaints of one type, across all reports.
type ComplaintList struct {
	Type string   `json:"type"`
	IDs  []string `json:"ids"`
}

type TranscriptionResult struct {
	Transcribed int `json:"transcribed"`
}

type SendReportRequest struct {
	To string `json:"to" validate:"required,email"`
}
