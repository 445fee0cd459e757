package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/de-tools/site-report/pkg/export"
	"github.com/de-tools/site-report/pkg/models/api"
	"github.com/de-tools/site-report/pkg/services/complaint"
	"github.com/de-tools/site-report/pkg/services/item"
	"github.com/de-tools/site-report/pkg/services/report"
	"github.com/de-tools/site-report/pkg/services/titles"
	"github.com/de-tools/site-report/pkg/store/duckdb"
	duckdbblob "github.com/de-tools/site-report/pkg/store/duckdb/blob"
	complaintstore "github.com/de-tools/site-report/pkg/store/duckdb/complaint"
	itemstore "github.com/de-tools/site-report/pkg/store/duckdb/item"
	reportstore "github.com/de-tools/site-report/pkg/store/duckdb/report"
	"github.com/de-tools/site-report/pkg/undo"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTranscriber struct {
	mock.Mock
}

func (m *mockTranscriber) TranscribeComplaint(ctx context.Context, complaintID string) (int, error) {
	args := m.Called(ctx, complaintID)
	return args.Int(0), args.Error(1)
}

func (m *mockTranscriber) TranscribeReport(ctx context.Context, reportID string) (int, error) {
	args := m.Called(ctx, reportID)
	return args.Int(0), args.Error(1)
}

type mockDeliverer struct {
	mock.Mock
}

func (m *mockDeliverer) Export(ctx context.Context, reportID string) (*export.Document, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*export.Document), args.Error(1)
}

func (m *mockDeliverer) Send(ctx context.Context, reportID, to string) (bool, error) {
	args := m.Called(ctx, reportID, to)
	return args.Bool(0), args.Error(1)
}

type fixture struct {
	server      *httptest.Server
	tracker     *undo.Tracker
	transcriber *mockTranscriber
	delivery    *mockDeliverer
}

func setupFixture(t *testing.T) *fixture {
	g := duckdb.NewGateway(duckdb.Settings{DbPath: ":memory:"})
	blobs, err := duckdbblob.NewStore(g)
	require.NoError(t, err)
	items, err := itemstore.NewStore(g, blobs)
	require.NoError(t, err)
	complaints, err := complaintstore.NewStore(g, items)
	require.NoError(t, err)
	reports, err := reportstore.NewStore(g, complaints)
	require.NoError(t, err)

	complaintService := complaint.NewService(complaints, item.NewService(items), complaint.WithTransactions(g))
	reportService := report.NewService(reports, complaintService, titles.NewGenerator(nil, nil))

	f := &fixture{
		tracker:     undo.NewTracker(time.Hour, nil),
		transcriber: &mockTranscriber{},
		delivery:    &mockDeliverer{},
	}
	h := NewHandler(reportService, complaintService, f.transcriber, f.delivery, f.tracker)

	router := chi.NewRouter()
	router.Route("/api/v1", h.Routes)
	f.server = httptest.NewServer(router)

	t.Cleanup(func() {
		f.server.Close()
		_ = f.tracker.Flush(context.Background())
		_ = g.Close()
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.server.URL+"/api/v1"+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (f *fixture) createComplaintWithItem(t *testing.T) (api.Report, api.Complaint, api.Item) {
	t.Helper()

	resp := f.do(t, http.MethodPost, "/reports", api.CreateReportRequest{Name: "Inspection A"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	rep := decodeBody[api.Report](t, resp)

	resp = f.do(t, http.MethodPost, "/reports/"+rep.ID+"/complaints", api.AddComplaintRequest{Type: "finding"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	c := decodeBody[api.Complaint](t, resp)

	resp = f.do(t, http.MethodPost, "/complaints/"+c.ID+"/items", api.ItemRequest{Kind: "text", Text: "crack in wall"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	it := decodeBody[api.Item](t, resp)
	return rep, c, it
}

func TestHandler_ReportLifecycle(t *testing.T) {
	f := setupFixture(t)
	rep, c, it := f.createComplaintWithItem(t)
	assert.Equal(t, "Inspection A", rep.Name)
	assert.Equal(t, 0, it.Order)

	resp := f.do(t, http.MethodGet, "/reports", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summaries := decodeBody[[]api.ReportSummary](t, resp)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].ComplaintCount)

	resp = f.do(t, http.MethodGet, "/reports/"+rep.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[api.Report](t, resp)
	require.Len(t, got.Complaints, 1)
	assert.Equal(t, c.ID, got.Complaints[0].ID)
	require.Len(t, got.Complaints[0].Items, 1)
	assert.Equal(t, "crack in wall", got.Complaints[0].Items[0].Text)

	resp = f.do(t, http.MethodPut, "/complaints/"+c.ID+"/items/"+it.ID, api.ItemRequest{Text: "crack in east wall"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "crack in east wall", decodeBody[api.Item](t, resp).Text)

	resp = f.do(t, http.MethodPatch, "/reports/"+rep.ID, api.RenameReportRequest{Name: "Inspection B"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Inspection B", decodeBody[api.Report](t, resp).Name)

	resp = f.do(t, http.MethodPost, "/reports/"+rep.ID+"/titles", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Finding 1", decodeBody[api.Report](t, resp).Complaints[0].Title)

	resp = f.do(t, http.MethodDelete, "/reports/"+rep.ID+"/complaints/"+c.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = f.do(t, http.MethodGet, "/complaints/"+c.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/reports/"+rep.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = f.do(t, http.MethodGet, "/reports/"+rep.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = f.do(t, http.MethodDelete, "/reports/"+rep.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_CreateReportWithoutBody(t *testing.T) {
	f := setupFixture(t)

	resp := f.do(t, http.MethodPost, "/reports", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	rep := decodeBody[api.Report](t, resp)
	assert.NotEmpty(t, rep.ID)
	assert.Empty(t, rep.Complaints)
}

func TestHandler_ListComplaints(t *testing.T) {
	f := setupFixture(t)
	_, c, _ := f.createComplaintWithItem(t)

	resp := f.do(t, http.MethodGet, "/complaints?type=finding", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody[api.ComplaintList](t, resp)
	assert.Equal(t, "finding", list.Type)
	assert.Equal(t, []string{c.ID}, list.IDs)

	resp = f.do(t, http.MethodGet, "/complaints?type=action", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeBody[api.ComplaintList](t, resp).IDs)

	resp = f.do(t, http.MethodGet, "/complaints?type=defect", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = f.do(t, http.MethodGet, "/complaints", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_BadRequests(t *testing.T) {
	f := setupFixture(t)
	rep, c, _ := f.createComplaintWithItem(t)

	tests := []struct {
		name           string
		method         string
		path           string
		body           any
		expectedStatus int
	}{
		{
			name:           "unknown complaint type",
			method:         http.MethodPost,
			path:           "/reports/" + rep.ID + "/complaints",
			body:           map[string]string{"type": "remark"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "item without kind",
			method:         http.MethodPost,
			path:           "/complaints/" + c.ID + "/items",
			body:           map[string]string{"text": "hello"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "recording without audio",
			method:         http.MethodPost,
			path:           "/complaints/" + c.ID + "/items",
			body:           api.ItemRequest{Kind: "recording"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "rename to empty name",
			method:         http.MethodPatch,
			path:           "/reports/" + rep.ID,
			body:           api.RenameReportRequest{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "send to invalid address",
			method:         http.MethodPost,
			path:           "/reports/" + rep.ID + "/send",
			body:           api.SendReportRequest{To: "not-an-address"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown report",
			method:         http.MethodGet,
			path:           "/reports/missing",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "item of unknown complaint",
			method:         http.MethodPost,
			path:           "/complaints/missing/items",
			body:           api.ItemRequest{Kind: "text", Text: "hello"},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "unknown item",
			method:         http.MethodDelete,
			path:           "/complaints/" + c.ID + "/items/missing",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestHandler_UndoItemDelete(t *testing.T) {
	f := setupFixture(t)
	_, c, it := f.createComplaintWithItem(t)
	itemPath := "/complaints/" + c.ID + "/items/" + it.ID

	resp := f.do(t, http.MethodDelete, itemPath, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	pending := decodeBody[api.PendingDelete](t, resp)
	assert.NotEmpty(t, pending.TransactionID)
	assert.True(t, pending.ExpiresAt.After(time.Now()))

	resp = f.do(t, http.MethodGet, "/complaints/"+c.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeBody[api.Complaint](t, resp).Items)

	resp = f.do(t, http.MethodDelete, itemPath, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, pending.TransactionID, decodeBody[api.PendingDelete](t, resp).TransactionID)

	resp = f.do(t, http.MethodPut, itemPath, api.ItemRequest{Text: "edited"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/transactions/"+pending.TransactionID+"/undo", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/complaints/"+c.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := decodeBody[api.Complaint](t, resp).Items
	require.Len(t, items, 1)
	assert.Equal(t, it.ID, items[0].ID)

	resp = f.do(t, http.MethodPost, "/transactions/"+pending.TransactionID+"/undo", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_FlushCommitsDelete(t *testing.T) {
	f := setupFixture(t)
	_, c, it := f.createComplaintWithItem(t)

	resp := f.do(t, http.MethodDelete, "/complaints/"+c.ID+"/items/"+it.ID, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	pending := decodeBody[api.PendingDelete](t, resp)

	resp = f.do(t, http.MethodPost, "/transactions/flush", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.False(t, f.tracker.IsPending(it.ID))

	resp = f.do(t, http.MethodPost, "/transactions/"+pending.TransactionID+"/undo", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/complaints/"+c.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeBody[api.Complaint](t, resp).Items)
}

func TestHandler_Transcriptions(t *testing.T) {
	f := setupFixture(t)
	rep, c, _ := f.createComplaintWithItem(t)

	f.transcriber.On("TranscribeReport", mock.Anything, rep.ID).Return(2, nil).Once()
	f.transcriber.On("TranscribeComplaint", mock.Anything, c.ID).Return(1, nil).Once()

	resp := f.do(t, http.MethodPost, "/reports/"+rep.ID+"/transcriptions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, decodeBody[api.TranscriptionResult](t, resp).Transcribed)

	resp = f.do(t, http.MethodPost, "/reports/missing/transcriptions", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/complaints/"+c.ID+"/transcriptions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decodeBody[api.TranscriptionResult](t, resp).Transcribed)

	resp = f.do(t, http.MethodPost, "/complaints/missing/transcriptions", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	f.transcriber.AssertExpectations(t)
}

func TestHandler_ExportAndSend(t *testing.T) {
	f := setupFixture(t)

	doc := &export.Document{
		Filename:    "Inspection A.docx",
		ContentType: export.DOCXContentType,
		Data:        []byte("PK"),
	}
	f.delivery.On("Export", mock.Anything, "r1").Return(doc, nil)
	f.delivery.On("Export", mock.Anything, "missing").Return(nil, nil)
	f.delivery.On("Send", mock.Anything, "r1", "site@example.com").Return(true, nil)
	f.delivery.On("Send", mock.Anything, "missing", "site@example.com").Return(false, nil)

	resp := f.do(t, http.MethodGet, "/reports/r1/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, export.DOCXContentType, resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Inspection A.docx"`, resp.Header.Get("Content-Disposition"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("PK"), body)

	resp = f.do(t, http.MethodGet, "/reports/missing/export", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/reports/r1/send", api.SendReportRequest{To: "site@example.com"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/reports/missing/send", api.SendReportRequest{To: "site@example.com"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	f.delivery.AssertExpectations(t)
}
