package models

import (
	"encoding/json"
	"testing"
)

func TestExtractionListQuery_Normalize(t *testing.T) {
	tests := []struct {
		name       string
		query      ExtractionListQuery
		wantOffset int
		wantLimit  int
	}{
		{"defaults", ExtractionListQuery{}, 0, 20},
		{"negative offset", ExtractionListQuery{Offset: -5, Limit: 10}, 0, 10},
		{"caps limit at 100", ExtractionListQuery{Limit: 500}, 0, 100},
		{"keeps valid values", ExtractionListQuery{Offset: 40, Limit: 50}, 40, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			q.Normalize()
			if q.Offset != tt.wantOffset || q.Limit != tt.wantLimit {
				t.Errorf("Normalize() = {%d %d}, want {%d %d}", q.Offset, q.Limit, tt.wantOffset, tt.wantLimit)
			}
		})
	}
}

func TestFields_SetKeepsFirstPosition(t *testing.T) {
	f := NewFields()
	if f.Set("Name ", "John ") {
		t.Error("first Set should not report overwrite")
	}
	f.Set("Date ", "today ")
	if !f.Set("Name ", "Jane ") {
		t.Error("second Set of same key should report overwrite")
	}
	if f.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", f.Len())
	}
	keys := f.Keys()
	if keys[0] != "Name " || keys[1] != "Date " {
		t.Errorf("Keys() = %q", keys)
	}
	if v, _ := f.Get("Name "); v != "Jane " {
		t.Errorf("Get(Name) = %q, want last written value", v)
	}
}

func TestFields_JSONOrder(t *testing.T) {
	f := NewFields()
	f.Set("b", "2")
	f.Set("a", "1")
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"b":"2","a":"1"}` {
		t.Errorf("MarshalJSON = %s", data)
	}

	var back Fields
	if err := json.Unmarshal([]byte(`{"z":"last","y":"","z2":"X "}`), &back); err != nil {
		t.Fatal(err)
	}
	keys := back.Keys()
	if len(keys) != 3 || keys[0] != "z" || keys[1] != "y" || keys[2] != "z2" {
		t.Errorf("UnmarshalJSON keys = %q", keys)
	}
}

func TestFields_UnmarshalRejectsNonObject(t *testing.T) {
	var f Fields
	if err := json.Unmarshal([]byte(`["a"]`), &f); err == nil {
		t.Error("expected error for array input")
	}
}

func TestFields_NilSafe(t *testing.T) {
	var f *Fields
	if f.Len() != 0 || f.Keys() != nil {
		t.Error("nil Fields should be empty")
	}
	data, err := json.Marshal(struct {
		F *Fields `json:"f"`
	}{F: NewFields()})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"f":{}}` {
		t.Errorf("empty fields = %s", data)
	}
}
