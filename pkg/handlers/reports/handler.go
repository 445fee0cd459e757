package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/de-tools/site-report/pkg/adapters"
	"github.com/de-tools/site-report/pkg/export"
	"github.com/de-tools/site-report/pkg/models/api"
	"github.com/de-tools/site-report/pkg/models/domain"
	"github.com/de-tools/site-report/pkg/models/store"
	"github.com/de-tools/site-report/pkg/services/complaint"
	"github.com/de-tools/site-report/pkg/services/report"
	"github.com/de-tools/site-report/pkg/undo"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies; items carry base64 encoded media.
const maxBodyBytes = 32 << 20

type Transcriber interface {
	TranscribeComplaint(ctx context.Context, complaintID string) (int, error)
	TranscribeReport(ctx context.Context, reportID string) (int, error)
}

type Deliverer interface {
	Export(ctx context.Context, reportID string) (*export.Document, error)
	Send(ctx context.Context, reportID, to string) (bool, error)
}

type Handler struct {
	reports       report.Service
	complaints    complaint.Service
	transcription Transcriber
	delivery      Deliverer
	tracker       *undo.Tracker
	validate      *validator.Validate
}

func NewHandler(
	reports report.Service,
	complaints complaint.Service,
	transcription Transcriber,
	delivery Deliverer,
	tracker *undo.Tracker,
) *Handler {
	return &Handler{
		reports:       reports,
		complaints:    complaints,
		transcription: transcription,
		delivery:      delivery,
		tracker:       tracker,
		validate:      validator.New(),
	}
}

// Routes mounts the handler on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/", h.ListReports)
		r.Post("/", h.CreateReport)
		r.Route("/{reportID}", func(r chi.Router) {
			r.Get("/", h.GetReport)
			r.Patch("/", h.RenameReport)
			r.Delete("/", h.DeleteReport)
			r.Post("/complaints", h.AddComplaint)
			r.Delete("/complaints/{complaintID}", h.RemoveComplaint)
			r.Post("/titles", h.GenerateTitles)
			r.Post("/transcriptions", h.TranscribeReport)
			r.Get("/export", h.ExportReport)
			r.Post("/send", h.SendReport)
		})
	})
	r.Get("/complaints", h.ListComplaints)
	r.Route("/complaints/{complaintID}", func(r chi.Router) {
		r.Get("/", h.GetComplaint)
		r.Post("/items", h.AddItem)
		r.Post("/transcriptions", h.TranscribeComplaint)
		r.Put("/items/{itemID}", h.UpdateItem)
		r.Delete("/items/{itemID}", h.DeleteItem)
	})
	r.Post("/transactions/flush", h.FlushTransactions)
	r.Post("/transactions/{transactionID}/undo", h.UndoTransaction)
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.GetAll(r.Context())
	if err != nil {
		writeError(w, r, err, "failed to list reports")
		return
	}

	response := make([]api.ReportSummary, 0, len(reports))
	for _, rep := range reports {
		response = append(response, adapters.MapReportDomainToSummary(rep))
	}
	writeJSON(w, r, http.StatusOK, response)
}

func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req api.CreateReportRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	rep, err := h.reports.Create(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err, "failed to create report")
		return
	}
	writeJSON(w, r, http.StatusCreated, adapters.MapReportDomainToApi(rep, h.tracker.IsPending))
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.Get(r.Context(), chi.URLParam(r, "reportID"))
	h.respondReport(w, r, rep, err, "failed to get report")
}

func (h *Handler) RenameReport(w http.ResponseWriter, r *http.Request) {
	var req api.RenameReportRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	rep, err := h.reports.Rename(r.Context(), chi.URLParam(r, "reportID"), req.Name)
	h.respondReport(w, r, rep, err, "failed to rename report")
}

func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	ok, err := h.reports.Delete(r.Context(), chi.URLParam(r, "reportID"))
	respondDone(w, r, ok, err, "failed to delete report")
}

func (h *Handler) AddComplaint(w http.ResponseWriter, r *http.Request) {
	var req api.AddComplaintRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	c, err := h.reports.AddComplaint(r.Context(), chi.URLParam(r, "reportID"), domain.ComplaintType(req.Type))
	if err != nil {
		writeError(w, r, err, "failed to add complaint")
		return
	}
	if c == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, r, http.StatusCreated, adapters.MapComplaintDomainToApi(c, h.tracker.IsPending))
}

func (h *Handler) RemoveComplaint(w http.ResponseWriter, r *http.Request) {
	ok, err := h.reports.RemoveComplaint(r.Context(), chi.URLParam(r, "reportID"), chi.URLParam(r, "complaintID"))
	respondDone(w, r, ok, err, "failed to remove complaint")
}

func (h *Handler) GenerateTitles(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.GenerateTitles(r.Context(), chi.URLParam(r, "reportID"))
	h.respondReport(w, r, rep, err, "failed to generate titles")
}

func (h *Handler) TranscribeReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID := chi.URLParam(r, "reportID")

	rep, err := h.reports.Get(ctx, reportID)
	if err != nil {
		writeError(w, r, err, "failed to get report")
		return
	}
	if rep == nil {
		http.NotFound(w, r)
		return
	}

	n, err := h.transcription.TranscribeReport(ctx, reportID)
	if err != nil {
		writeError(w, r, err, "failed to transcribe report")
		return
	}
	writeJSON(w, r, http.StatusOK, api.TranscriptionResult{Transcribed: n})
}

func (h *Handler) ListComplaints(w http.ResponseWriter, r *http.Request) {
	t := domain.ComplaintType(r.URL.Query().Get("type"))
	ids, err := h.complaints.ListByType(r.Context(), t)
	if err != nil {
		writeError(w, r, err, "failed to list complaints")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, r, http.StatusOK, api.ComplaintList{Type: string(t), IDs: ids})
}

func (h *Handler) TranscribeComplaint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	complaintID := chi.URLParam(r, "complaintID")

	c, err := h.complaints.Get(ctx, complaintID)
	if err != nil {
		writeError(w, r, err, "failed to get complaint")
		return
	}
	if c == nil {
		http.NotFound(w, r)
		return
	}

	n, err := h.transcription.TranscribeComplaint(ctx, complaintID)
	if err != nil {
		writeError(w, r, err, "failed to transcribe complaint")
		return
	}
	writeJSON(w, r, http.StatusOK, api.TranscriptionResult{Transcribed: n})
}

func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	doc, err := h.delivery.Export(r.Context(), chi.URLParam(r, "reportID"))
	if err != nil {
		writeError(w, r, err, "failed to export report")
		return
	}
	if doc == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to write export")
	}
}

func (h *Handler) SendReport(w http.ResponseWriter, r *http.Request) {
	var req api.SendReportRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	ok, err := h.delivery.Send(r.Context(), chi.URLParam(r, "reportID"), req.To)
	respondDone(w, r, ok, err, "failed to send report")
}

func (h *Handler) GetComplaint(w http.ResponseWriter, r *http.Request) {
	c, err := h.complaints.Get(r.Context(), chi.URLParam(r, "complaintID"))
	if err != nil {
		writeError(w, r, err, "failed to get complaint")
		return
	}
	if c == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapComplaintDomainToApi(c, h.tracker.IsPending))
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req api.ItemRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	if req.Kind == "" {
		http.Error(w, "kind is required", http.StatusBadRequest)
		return
	}

	it, err := h.complaints.AddItem(r.Context(), chi.URLParam(r, "complaintID"), adapters.MapItemRequestToDomain(req))
	h.respondItem(w, r, http.StatusCreated, it, err, "failed to add item")
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req api.ItemRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	itemID := chi.URLParam(r, "itemID")
	if h.tracker.IsPending(itemID) {
		http.NotFound(w, r)
		return
	}

	it, err := h.complaints.UpdateItem(r.Context(), chi.URLParam(r, "complaintID"), itemID, adapters.MapItemRequestToDomain(req))
	h.respondItem(w, r, http.StatusOK, it, err, "failed to update item")
}

// DeleteItem hides the item at once and removes it when the undo window
// closes. Deleting an item that is already pending returns the same
// transaction.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	complaintID := chi.URLParam(r, "complaintID")
	itemID := chi.URLParam(r, "itemID")

	c, err := h.complaints.Get(ctx, complaintID)
	if err != nil {
		writeError(w, r, err, "failed to get complaint")
		return
	}
	if c == nil || c.ItemByID(itemID) == nil {
		http.NotFound(w, r)
		return
	}

	tx := h.tracker.Schedule(ctx, itemID, func(ctx context.Context) error {
		_, err := h.complaints.RemoveItem(ctx, complaintID, itemID)
		return err
	})
	writeJSON(w, r, http.StatusAccepted, api.PendingDelete{
		TransactionID: tx.ID(),
		ExpiresAt:     tx.ExpiresAt(),
	})
}

func (h *Handler) UndoTransaction(w http.ResponseWriter, r *http.Request) {
	if _, err := h.tracker.Cancel(chi.URLParam(r, "transactionID")); err != nil {
		writeError(w, r, err, "failed to undo transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) FlushTransactions(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.Flush(r.Context()); err != nil {
		writeError(w, r, err, "failed to flush transactions")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondReport(w http.ResponseWriter, r *http.Request, rep *domain.Report, err error, msg string) {
	if err != nil {
		writeError(w, r, err, msg)
		return
	}
	if rep == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapReportDomainToApi(rep, h.tracker.IsPending))
}

func (h *Handler) respondItem(w http.ResponseWriter, r *http.Request, status int, it *domain.Item, err error, msg string) {
	if err != nil {
		writeError(w, r, err, msg)
		return
	}
	if it == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, r, status, adapters.MapItemDomainToApi(*it))
}

func respondDone(w http.ResponseWriter, r *http.Request, ok bool, err error, msg string) {
	if err != nil {
		writeError(w, r, err, msg)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads and validates a JSON body. With allowEmpty an empty body
// leaves dst at its zero value.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if errors.Is(err, io.EOF) && allowEmpty {
		err = nil
	}
	if err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, r, err, "invalid request")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	logger := zerolog.Ctx(r.Context())

	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Msg(msg)
		http.Error(w, http.StatusText(status), status)
		return
	}
	logger.Debug().Err(err).Int("status", status).Msg(msg)
	http.Error(w, err.Error(), status)
}

func statusOf(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs),
		errors.Is(err, domain.ErrMissingPayload),
		errors.Is(err, domain.ErrUnknownItemKind),
		errors.Is(err, domain.ErrInvalidComplaintType):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, undo.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
