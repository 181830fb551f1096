package form

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize_NoUsableProperties(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty document", ``},
		{"null document", `null`},
		{"no properties", `{"title":"Input"}`},
		{"null properties", `{"properties":null}`},
		{"empty properties", `{"properties":{}}`},
		{"properties not an object", `{"properties":[1,2]}`},
		{"malformed JSON", `{"properties":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, state, err := Normalize("jane~x", []byte(tt.raw))
			if !errors.Is(err, ErrNoUsableInput) {
				t.Errorf("err = %v, want ErrNoUsableInput", err)
			}
			if schema == nil || len(schema.Fields) != 0 {
				t.Errorf("Fields = %v, want empty", schema)
			}
			if schema.ActorID != "jane~x" {
				t.Errorf("ActorID = %q", schema.ActorID)
			}
			if state == nil || len(state) != 0 {
				t.Errorf("state = %v, want empty map", state)
			}
		})
	}
}

func TestNormalize_PreservesOrder(t *testing.T) {
	raw := `{"properties":{
		"zeta":{"type":"string"},
		"alpha":{"type":"integer"},
		"mid":{"type":"boolean"},
		"beta":{"type":"array"}
	}}`
	schema, _, err := Normalize("a", []byte(raw))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := []string{"zeta", "alpha", "mid", "beta"}
	if diff := cmp.Diff(want, schema.Keys()); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_DefaultPriority(t *testing.T) {
	raw := `{"properties":{
		"query":{"type":"string","default":"coffee"},
		"nullDefault":{"type":"string","default":null},
		"plain":{"type":"string"},
		"flag":{"type":"boolean"},
		"flagOn":{"type":"boolean","default":true},
		"flagNull":{"type":"boolean","default":null},
		"count":{"type":"integer"},
		"countDefault":{"type":"integer","default":10},
		"urls":{"type":"array","default":["https://a.example","https://b.example"]},
		"extra":{"type":"object","default":{"depth":2}},
		"typeless":{}
	}}`
	schema, state, err := Normalize("a", []byte(raw))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	want := RawFormState{
		"query":        "coffee",
		"nullDefault":  "",
		"plain":        "",
		"flag":         false,
		"flagOn":       true,
		"flagNull":     false,
		"count":        "",
		"countDefault": float64(10),
		"urls":         []any{"https://a.example", "https://b.example"},
		"extra":        map[string]any{"depth": float64(2)},
		"typeless":     "",
	}
	if diff := cmp.Diff(want, state); diff != "" {
		t.Errorf("initial state mismatch (-want +got):\n%s", diff)
	}

	fd, _ := schema.Field("nullDefault")
	if fd.HasDefault {
		t.Error("null default must not count as declared")
	}
	fd, _ = schema.Field("query")
	if !fd.HasDefault {
		t.Error("string default not recorded")
	}
}

func TestNormalize_Proxy(t *testing.T) {
	tests := []struct {
		name string
		prop string
		want bool
	}{
		{"object default on", `{"type":"object","editor":"proxy","default":{"useApifyProxy":true}}`, true},
		{"object default off", `{"type":"object","editor":"proxy","default":{"useApifyProxy":false}}`, false},
		{"no default", `{"type":"object","editor":"proxy"}`, false},
		{"declared boolean", `{"type":"boolean","default":true}`, true},
		{"declared string", `{"type":"string"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, state, err := Normalize("a", []byte(`{"properties":{"proxy":`+tt.prop+`}}`))
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if got := state[ProxyKey]; got != tt.want {
				t.Errorf("proxy initial = %#v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize_Descriptor(t *testing.T) {
	raw := `{
		"required":["startUrls"],
		"properties":{
			"startUrls":{"title":"Start URLs","type":"array","editor":"requestListSources",
				"description":"URLs to start with. See <a href=\"https://docs.apify.com\">docs</a>."},
			"maybeCount":{"type":["integer","null"]},
			"ratio":{"type":"number","default":0.5}
		}
	}`
	schema, _, err := Normalize("apify~web-scraper", []byte(raw))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	want := []FieldDescriptor{
		{
			Key:         "startUrls",
			Type:        TypeArray,
			RawType:     "array",
			Title:       "Start URLs",
			Description: `URLs to start with. See <a href="https://docs.apify.com">docs</a>.`,
			UIHint:      "requestListSources",
			Required:    true,
		},
		{Key: "maybeCount", Type: TypeInteger, RawType: "integer"},
		{Key: "ratio", Type: TypeOther, RawType: "number", Default: 0.5, HasDefault: true},
	}
	if diff := cmp.Diff(want, schema.Fields); diff != "" {
		t.Errorf("descriptors mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDeclaredType(t *testing.T) {
	tests := []struct {
		in   string
		want DeclaredType
	}{
		{"string", TypeString},
		{"INTEGER", TypeInteger},
		{"boolean", TypeBoolean},
		{"array", TypeArray},
		{"object", TypeObject},
		{"number", TypeOther},
		{"", TypeOther},
	}
	for _, tt := range tests {
		if got := ParseDeclaredType(tt.in); got != tt.want {
			t.Errorf("ParseDeclaredType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRawFormState_Set(t *testing.T) {
	schema, state, err := Normalize("a", []byte(`{"properties":{"q":{"type":"string"},"n":{"type":"integer"}}}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := state.Set(schema, "q", "hello"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := state.Set(schema, "nope", "x"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("Set unknown key err = %v, want ErrUnknownField", err)
	}
	want := RawFormState{"q": "hello", "n": ""}
	if diff := cmp.Diff(want, state); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}
