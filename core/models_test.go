package core

import (
	"encoding/json"
	"errors"
	"regexp"
	"testing"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]+$`)

func TestParentID(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "plain text", content: "test content"},
		{name: "empty string", content: ""},
		{name: "unicode", content: "żółć gęślą jaźń"},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := ParentID(tt.content)
			id2 := ParentID(tt.content)

			if id1 != id2 {
				t.Errorf("ParentID() produced different IDs for same content: %s vs %s", id1, id2)
			}
			if len(id1) != 64 {
				t.Errorf("ParentID() length = %d, want 64", len(id1))
			}
			if !hexDigest.MatchString(id1) {
				t.Errorf("ParentID() = %q, want lowercase hex", id1)
			}
		})
	}
}

func TestParentID_KnownDigest(t *testing.T) {
	// BLAKE2b-256 of the empty input
	want := "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8"
	if got := ParentID(""); got != want {
		t.Errorf("ParentID(\"\") = %s, want %s", got, want)
	}
}

func TestParentID_Different(t *testing.T) {
	if ParentID("content1") == ParentID("content2") {
		t.Errorf("ParentID() produced same ID for different content")
	}
	if ParentID("a b") == ParentID("a  b") {
		t.Errorf("ParentID() must hash the untouched text")
	}
}

func TestContentKey(t *testing.T) {
	k := ContentKey("hello")
	if len(k) != 32 {
		t.Errorf("ContentKey() length = %d, want 32", len(k))
	}
	if k != ContentKey("hello") {
		t.Errorf("ContentKey() is not deterministic")
	}
	if k == ContentKey("hello!") {
		t.Errorf("ContentKey() collided for different texts")
	}
}

func TestSourceRow_GetAndWith(t *testing.T) {
	row := SourceRow{Index: 3, Columns: []string{"id", "text"}, Values: []string{"1", "hello"}}

	v, ok := row.Get("text")
	if !ok || v != "hello" {
		t.Fatalf("Get(text) = %q, %v", v, ok)
	}
	if _, ok := row.Get("missing"); ok {
		t.Errorf("Get(missing) reported present")
	}

	replaced := row.With("text", "chunk")
	if got, _ := replaced.Get("text"); got != "chunk" {
		t.Errorf("With() value = %q, want chunk", got)
	}
	if got, _ := row.Get("text"); got != "hello" {
		t.Errorf("With() mutated the receiver: %q", got)
	}
	if replaced.Index != 3 {
		t.Errorf("With() lost the index")
	}

	appended := row.With("embedding", "[]")
	if len(appended.Columns) != 3 || appended.Columns[2] != "embedding" {
		t.Errorf("With() did not append unknown column: %v", appended.Columns)
	}
	if len(row.Columns) != 2 {
		t.Errorf("With() grew the receiver's columns")
	}
}

func TestEmbeddingResult_String(t *testing.T) {
	tests := []struct {
		name   string
		result EmbeddingResult
		want   string
	}{
		{name: "empty sentinel", result: EmptyEmbedding, want: "[]"},
		{name: "zero length vector", result: EmbeddingResult{Vector: []float32{}}, want: "[]"},
		{name: "single value", result: EmbeddingResult{Vector: []float32{0.5}}, want: "[0.5]"},
		{name: "several values", result: EmbeddingResult{Vector: []float32{0.1, -0.25, 1}}, want: "[0.1, -0.25, 1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEmbeddingResult_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(map[string]EmbeddingResult{
		"empty": EmptyEmbedding,
		"full":  {Vector: []float32{0.1, 0.2}},
	})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string][]float64
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(decoded["empty"]) != 0 || decoded["empty"] == nil {
		t.Errorf("empty embedding = %v, want []", decoded["empty"])
	}
	if len(decoded["full"]) != 2 {
		t.Errorf("full embedding = %v, want 2 values", decoded["full"])
	}
}

func TestErrorTypes(t *testing.T) {
	cfgErr := &ConfigurationError{Field: "embed_column", Message: "required", Err: ErrMissingColumn}
	if !errors.Is(cfgErr, ErrConfiguration) {
		t.Errorf("ConfigurationError does not match ErrConfiguration")
	}
	if !errors.Is(cfgErr, ErrMissingColumn) {
		t.Errorf("ConfigurationError does not match its cause")
	}
	if errors.Is(cfgErr, ErrDataShape) {
		t.Errorf("ConfigurationError matches ErrDataShape")
	}

	shapeErr := &DataShapeError{Row: 4, Err: errors.New("bad field count")}
	if !errors.Is(shapeErr, ErrDataShape) {
		t.Errorf("DataShapeError does not match ErrDataShape")
	}
	if got := shapeErr.Error(); got != "malformed input data: row 4: bad field count" {
		t.Errorf("DataShapeError.Error() = %q", got)
	}

	var target *ConfigurationError
	wrapped := errors.Join(errors.New("other"), NewConfigurationError("model", "must not be empty"))
	if !errors.As(wrapped, &target) || target.Field != "model" {
		t.Errorf("errors.As failed on joined configuration error")
	}
}
