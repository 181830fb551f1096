package form

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestApplyEdits(t *testing.T) {
	raw := `{"properties":{
		"query":{"type":"string"},
		"startUrls":{"type":"array","default":[{"url":"https://a.example"}]},
		"headless":{"type":"boolean"},
		"proxy":{"type":"object","default":{"useApifyProxy":true}},
		"untouched":{"type":"string","default":"keep"}
	}}`
	schema, state, err := Normalize("a", []byte(raw))
	if err != nil {
		t.Fatal(err)
	}

	values := url.Values{
		"field.query":     {"pizza"},
		"field.startUrls": {`{"url":"https://a.example"}`}, // unchanged display text
		"field.headless":  {"false", "true"},               // checked
		"field.proxy":     {"false"},                       // unchecked
	}
	changed := ApplyEdits(schema, state, values)

	if diff := cmp.Diff([]string{"query", "headless", "proxy"}, changed); diff != "" {
		t.Errorf("changed keys (-want +got):\n%s", diff)
	}
	want := RawFormState{
		"query":     "pizza",
		"startUrls": []any{map[string]any{"url": "https://a.example"}},
		"headless":  true,
		"proxy":     false,
		"untouched": "keep",
	}
	if diff := cmp.Diff(want, state); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyEdits_TextareaCRLF(t *testing.T) {
	schema, state, err := Normalize("a", []byte(`{"properties":{"urls":{"type":"array"}}}`))
	if err != nil {
		t.Fatal(err)
	}
	ApplyEdits(schema, state, url.Values{"field.urls": {"a\r\nb\r\n"}})
	if state["urls"] != "a\nb\n" {
		t.Errorf("urls = %q", state["urls"])
	}
	payload, _ := Coerce(schema, state, nil)
	if diff := cmp.Diff(Payload{"urls": []string{"a", "b"}}, payload); diff != "" {
		t.Errorf("payload (-want +got):\n%s", diff)
	}
}

func TestApplyEdits_UnknownInputsIgnored(t *testing.T) {
	schema, state, err := Normalize("a", []byte(`{"properties":{"q":{"type":"string"}}}`))
	if err != nil {
		t.Fatal(err)
	}
	changed := ApplyEdits(schema, state, url.Values{"field.other": {"x"}, "csrf": {"y"}})
	if len(changed) != 0 {
		t.Errorf("changed = %v", changed)
	}
	if _, ok := state["other"]; ok {
		t.Error("unknown key written to state")
	}
}
