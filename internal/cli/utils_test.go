package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/formkv/internal/models"
	"github.com/xuri/excelize/v2"
)

func sampleExtraction() *models.Extraction {
	f := models.NewFields()
	f.Set("Zip ", "101 ")
	f.Set("Name ", "John ")
	f.Set("US citizen ", "X ")
	f.Set("Middle name ", "")
	return &models.Extraction{
		ID:         "ex-1",
		Bucket:     "forms",
		Key:        "w2.png",
		Provider:   "textract",
		BlockCount: 14,
		Fields:     f,
		CreatedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestWriteFields_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFields(&buf, sampleExtraction(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	zip := strings.Index(out, `"Zip "`)
	name := strings.Index(out, `"Name "`)
	if zip < 0 || name < 0 || zip > name {
		t.Errorf("expected Zip before Name in output:\n%s", out)
	}
	if !strings.Contains(out, `"US citizen ": "X "`) {
		t.Errorf("missing checkbox field:\n%s", out)
	}
}

func TestWriteFields_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFields(&buf, sampleExtraction(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "forms/w2.png") {
		t.Errorf("missing document header:\n%s", out)
	}
	if !strings.Contains(out, "4 fields") {
		t.Errorf("missing field count:\n%s", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := lines[len(lines)-1]
	if !strings.HasPrefix(last, "Middle name") || !strings.HasSuffix(last, "-") {
		t.Errorf("empty value should render as '-': %q", last)
	}
}

func TestWriteFields_xlsx(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFields(&buf, sampleExtraction(), OutputXLSX); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(fieldsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 5 {
		t.Fatalf("rows: got %d, want 5 (header + 4)", len(rows))
	}
	if rows[0][0] != "Key" || rows[1][0] != "Zip " || rows[1][1] != "101 " || rows[2][0] != "Name " {
		t.Errorf("rows: got %v", rows)
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"xlsx", OutputXLSX, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteExtractionList(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteExtractionList(&buf, []*models.Extraction{sampleExtraction()}, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "ex-1") || !strings.Contains(out, "2024-05-01 12:00:00") {
		t.Errorf("unexpected list output:\n%s", out)
	}

	buf.Reset()
	if err := WriteExtractionList(&buf, nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty JSON list: got %q", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"empty", "", 5, ""},
		{"short", "hi", 5, "hi"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world", 5, "hello..."},
		{"maxLen zero", "ab", 0, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.s, tt.maxLen)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}
