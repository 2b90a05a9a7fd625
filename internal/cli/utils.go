// Package cli provides CLI output helpers for formkv.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hyperjump/formkv/internal/models"
	"github.com/xuri/excelize/v2"
)

// OutputFormat is the format for extraction output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is the ordered field object, for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputXLSX is a spreadsheet with one row per field.
	OutputXLSX OutputFormat = "xlsx"
)

// ParseOutputFormat validates a --format flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON, OutputXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or xlsx)", s)
	}
}

// WriteFields writes the fields of e to w in the given format.
func WriteFields(w io.Writer, e *models.Extraction, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(e.Fields)
	case OutputXLSX:
		return writeFieldsXLSX(w, e)
	default:
		return writeFieldsText(w, e)
	}
}

func writeFieldsText(w io.Writer, e *models.Extraction) error {
	fmt.Fprintf(w, "%s/%s  (%d fields, %d blocks, via %s)\n\n", e.Bucket, e.Key, e.Fields.Len(), e.BlockCount, e.Provider)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, p := range e.Fields.Pairs() {
		fmt.Fprintf(tw, "%s\t%s\n", displayText(p.Key), displayText(p.Value))
	}
	return tw.Flush()
}

// displayText trims the trailing separator space and marks empty text.
func displayText(s string) string {
	s = strings.TrimRight(s, " ")
	if s == "" {
		return "-"
	}
	return s
}

const fieldsSheet = "Fields"

func writeFieldsXLSX(w io.Writer, e *models.Extraction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", fieldsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(fieldsSheet, "A1", &[]interface{}{"Key", "Value"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, p := range e.Fields.Pairs() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(fieldsSheet, cell, &[]interface{}{p.Key, p.Value}); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(fieldsSheet, "A", "B", 40); err != nil {
		return err
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:       e.Key,
		Subject:     "Form fields",
		Description: fmt.Sprintf("Extraction %s from %s/%s", e.ID, e.Bucket, e.Key),
	}); err != nil {
		return err
	}
	return f.Write(w)
}

// WriteExtractionList writes a page of recorded extractions as a table.
func WriteExtractionList(w io.Writer, list []*models.Extraction, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if list == nil {
			list = []*models.Extraction{}
		}
		return enc.Encode(list)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDOCUMENT\tFIELDS\tPROVIDER\tCREATED")
	for _, e := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			e.ID, Truncate(e.Bucket+"/"+e.Key, 48), e.Fields.Len(), e.Provider, e.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
