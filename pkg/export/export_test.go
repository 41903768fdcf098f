package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset(rows int) Dataset {
	data := Dataset{
		Title:   "Transition 2024-2025",
		Summary: []SummaryLine{{Label: "Promoted", Value: fmt.Sprint(rows)}},
		Headers: []string{"studentId", "outcome", "carriedForward"},
	}
	for i := 0; i < rows; i++ {
		data.Rows = append(data.Rows, map[string]string{
			"studentId":      fmt.Sprintf("S-%03d", i),
			"outcome":        "PROMOTED",
			"carriedForward": "0.00",
		})
	}
	return data
}

func TestCSVExporterRendersRowsInHeaderOrder(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset(2))
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"studentId", "outcome", "carriedForward"}, records[0])
	assert.Equal(t, []string{"S-001", "PROMOTED", "0.00"}, records[2])
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterPaginates(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(120))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestForFormat(t *testing.T) {
	r, err := ForFormat(FormatFromPath("/tmp/report.CSV"))
	require.NoError(t, err)
	assert.IsType(t, &CSVExporter{}, r)

	r, err = ForFormat("pdf")
	require.NoError(t, err)
	assert.IsType(t, &PDFExporter{}, r)

	_, err = ForFormat("xlsx")
	assert.Error(t, err)
}
