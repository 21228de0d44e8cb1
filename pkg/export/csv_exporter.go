package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

// Section is one table inside a report, e.g. per-student or per-lesson performance.
type Section struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Report is the tabular content shared by the CSV and PDF renderers.
type Report struct {
	Title       string
	GeneratedAt time.Time
	Summary     [][2]string
	Sections    []Section
}

func (r Report) validate() error {
	if len(r.Sections) == 0 {
		return fmt.Errorf("report requires at least one section")
	}
	for _, s := range r.Sections {
		if len(s.Headers) == 0 {
			return fmt.Errorf("section %q requires at least one header", s.Name)
		}
	}
	return nil
}

// CSVExporter renders reports into CSV bytes; sections are separated by a blank record.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the report.
func (e *CSVExporter) Render(report Report) ([]byte, error) {
	if err := report.validate(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	writer.UseCRLF = false

	for i, section := range report.Sections {
		if i > 0 {
			if err := writer.Write([]string{}); err != nil {
				return nil, fmt.Errorf("write csv separator: %w", err)
			}
		}
		if section.Name != "" {
			if err := writer.Write([]string{"# " + section.Name}); err != nil {
				return nil, fmt.Errorf("write csv section name: %w", err)
			}
		}
		if err := writer.Write(section.Headers); err != nil {
			return nil, fmt.Errorf("write csv headers: %w", err)
		}
		for _, row := range section.Rows {
			record := make([]string, len(section.Headers))
			copy(record, row)
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
