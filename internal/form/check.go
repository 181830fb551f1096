package form

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Advisory is one mismatch between a coerced payload and the actor's input
// schema. Advisories are informational: the platform has the final say and
// a run is never blocked on them.
type Advisory struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// CheckPayload validates payload against the raw input schema document and
// returns what the platform is likely to reject, such as missing required
// fields or out-of-range numbers.
func CheckPayload(rawSchema []byte, payload Payload) ([]Advisory, error) {
	if len(rawSchema) == 0 {
		return nil, nil
	}
	if payload == nil {
		payload = Payload{}
	}
	doc, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("payload is not valid JSON: %w", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(rawSchema), gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("check payload: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	out := make([]Advisory, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		out = append(out, Advisory{Field: re.Field(), Message: re.Description()})
	}
	return out, nil
}
