package models

import (
	"encoding/json"
	"testing"
)

func TestRowGet(t *testing.T) {
	row := Row{Index: 3, Fields: map[string]string{"doc_id": "d1", "element": ""}}

	if v, ok := row.Get("doc_id"); !ok || v != "d1" {
		t.Errorf("Get(doc_id) = %q, %v", v, ok)
	}
	if v, ok := row.Get("element"); !ok || v != "" {
		t.Errorf("Get(element) = %q, %v; want empty present value", v, ok)
	}
	if _, ok := row.Get("missing"); ok {
		t.Error("Get(missing) reported present")
	}
	if _, ok := (Row{}).Get("doc_id"); ok {
		t.Error("zero Row reported a field")
	}
}

func TestOutputRecord_JSON(t *testing.T) {
	data, err := json.Marshal(OutputRecord{ID: "0", Contents: "who is the announcer"})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	want := `{"id":"0","contents":"who is the announcer"}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}

func TestLookupEntry_JSONShape(t *testing.T) {
	tests := []struct {
		name  string
		entry LookupEntry
		want  string
	}{
		{
			name:  "passage",
			entry: LookupEntry{DocID: "d1", ElementID: "e4", Content: "text"},
			want:  `{"doc_id":"d1","element_id":"e4","content":"text"}`,
		},
		{
			name:  "document",
			entry: LookupEntry{DocID: "d1", Document: "full text"},
			want:  `{"doc_id":"d1","document":"full text"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.entry)
			if err != nil {
				t.Fatalf("Marshal error: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("json = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestLookupEntry_Text(t *testing.T) {
	if got := (LookupEntry{Content: "p"}).Text(); got != "p" {
		t.Errorf("Text() = %q, want p", got)
	}
	if got := (LookupEntry{Document: "d"}).Text(); got != "d" {
		t.Errorf("Text() = %q, want d", got)
	}
}

func TestRecordID(t *testing.T) {
	if RecordID(0) != "0" || RecordID(42) != "42" {
		t.Errorf("RecordID produced %q, %q", RecordID(0), RecordID(42))
	}
}
