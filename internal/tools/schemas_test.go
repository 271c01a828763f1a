package tools

import (
	"encoding/json"
	"testing"
)

func TestRequestFieldNames(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		fields []string
	}{
		{"add-note", AddNoteRequest{Name: "n", Content: "c"}, []string{"name", "content"}},
		{"note name", NoteNameRequest{Name: "n"}, []string{"name"}},
		{"add", AddRequest{A: 1, B: 2}, []string{"a", "b"}},
		{"calculate-bmi", CalculateBMIRequest{WeightKg: 70, HeightM: 1.75}, []string{"weight_kg", "height_m"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			data, err := json.Marshal(test.value)
			if err != nil {
				t.Fatalf("Failed to marshal %T: %v", test.value, err)
			}

			var jsonMap map[string]interface{}
			if err := json.Unmarshal(data, &jsonMap); err != nil {
				t.Fatalf("Failed to unmarshal JSON into map: %v", err)
			}

			if len(jsonMap) != len(test.fields) {
				t.Errorf("Expected %d fields, got %v", len(test.fields), jsonMap)
			}
			for _, field := range test.fields {
				if _, ok := jsonMap[field]; !ok {
					t.Errorf("Expected field %q in %s", field, data)
				}
			}
		})
	}
}

func TestListNotesResponseKeepsEmptyList(t *testing.T) {
	data, err := json.Marshal(ListNotesResponse{Result: []string{}})
	if err != nil {
		t.Fatalf("Failed to marshal ListNotesResponse: %v", err)
	}
	if string(data) != `{"result":[]}` {
		t.Errorf("Expected empty result array, got %s", data)
	}
}

func TestSummarizeNotesArgumentsOmitsEmptyStyle(t *testing.T) {
	data, err := json.Marshal(SummarizeNotesArguments{})
	if err != nil {
		t.Fatalf("Failed to marshal SummarizeNotesArguments: %v", err)
	}
	if string(data) != `{}` {
		t.Errorf("Expected empty object, got %s", data)
	}
}

func TestNoteURITemplate(t *testing.T) {
	if NoteURITemplate != "note://{name}" {
		t.Errorf("Unexpected note URI template %q", NoteURITemplate)
	}
}
