package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/de-tools/site-report/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *domain.Report {
	ts := time.Date(2025, 6, 13, 9, 30, 0, 0, time.UTC)
	return &domain.Report{
		ID:           "r1",
		Name:         "Inspection A",
		CreatedAt:    ts,
		LastModified: ts,
		Complaints: []*domain.Complaint{
			{
				ID:    "c1",
				Type:  domain.ComplaintTypeFinding,
				Title: "Missing extinguisher",
				Items: []domain.Item{
					{ID: "i1", Kind: domain.ItemKindText, Text: "none on floor 2"},
					{ID: "i2", Kind: domain.ItemKindImage, Image: &domain.Blob{ContentType: "image/png", Data: []byte{1, 2, 3}}},
				},
			},
			{ID: "c2", Type: domain.ComplaintTypeAction},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("yaml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("csv")
	assert.Error(t, err)
}

func TestReporter_Report(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewReporter(&buf).Report(sampleReport(), FormatText))

	out := buf.String()
	assert.Contains(t, out, "Inspection A\n")
	assert.Contains(t, out, "1. Missing extinguisher (finding, c1)")
	assert.Contains(t, out, "   - [text] none on floor 2")
	assert.Contains(t, out, "   - [image] image/png 3 bytes")
	assert.Contains(t, out, "2. Action 2 (action, c2)")
}

func TestReporter_ReportYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewReporter(&buf).Report(sampleReport(), FormatYAML))

	out := buf.String()
	assert.Contains(t, out, "name: Inspection A")
	assert.Contains(t, out, "title: Action 2")
	assert.Contains(t, out, "contentType: image/png")
}

func TestReporter_Summaries(t *testing.T) {
	var buf bytes.Buffer
	long := sampleReport()
	long.ID = "r2"
	long.Name = strings.Repeat("x", 60)

	require.NoError(t, NewReporter(&buf).Summaries([]*domain.Report{sampleReport(), long}, FormatText))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[1], "| ID ")
	assert.Contains(t, lines[3], "Inspection A")
	assert.Contains(t, lines[4], strings.Repeat("x", 39)+"…")
	for _, l := range lines {
		assert.Equal(t, len([]rune(lines[0])), len([]rune(l)))
	}
}
