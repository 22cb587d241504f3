package exporter

import (
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"

	"discord-package-parser/internal/domain"
)

// JSONExporter выводит отчет как JSON-документ {statistics, events}.
type JSONExporter struct {
	indent string
}

// NewJSONExporter создает новый экземпляр JSONExporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{indent: "  "}
}

func (e *JSONExporter) Export(w io.Writer, report *domain.Report) error {
	if report == nil {
		return fmt.Errorf("empty report")
	}
	enc := gojson.NewEncoder(w)
	enc.SetIndent("", e.indent)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
