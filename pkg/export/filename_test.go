package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Inspection A", want: "Inspection A"},
		{in: `a<b>c:d"e|f?g*h\i/j`, want: "abcdefghij"},
		{in: "tab\there\x00", want: "tabhere"},
		{in: "...hidden...", want: "hidden"},
		{in: "  many   spaces  ", want: "many spaces"},
		{in: "New Report 2025-03-14 09:30:00", want: "New Report 2025-03-14 093000"},
		{in: "Gebäude Nord", want: "Gebäude Nord"},
		{in: "", want: "untitled"},
		{in: "???", want: "untitled"},
		{in: "..", want: "untitled"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}
