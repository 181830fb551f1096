package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

var (
	openAPIOnce sync.Once
	openAPIJSON []byte
	openAPIErr  error
)

// handleOpenAPI serves the OpenAPI description of the JSON API.
// GET /api/v1/openapi.json
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	openAPIOnce.Do(func() {
		openAPIJSON, openAPIErr = json.Marshal(OpenAPIDocument())
	})
	if openAPIErr != nil {
		http.Error(w, openAPIErr.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(openAPIJSON)
}

// OpenAPIDocument describes the /api/v1 routes.
func OpenAPIDocument() *openapi3.T {
	envelope := func(data *openapi3.Schema) *openapi3.Schema {
		return openapi3.NewObjectSchema().
			WithProperty("status", openapi3.NewStringSchema().WithEnum("ok", "error")).
			WithProperty("request_id", openapi3.NewStringSchema()).
			WithProperty("timestamp", openapi3.NewDateTimeSchema()).
			WithProperty("data", data).
			WithProperty("error", apiErrorSchema())
	}
	respond := func(desc string, data *openapi3.Schema) *openapi3.ResponseRef {
		return &openapi3.ResponseRef{Value: openapi3.NewResponse().
			WithDescription(desc).
			WithJSONSchema(envelope(data))}
	}
	failure := func(desc string) *openapi3.ResponseRef {
		return respond(desc, openapi3.NewObjectSchema())
	}

	actorIDParam := &openapi3.ParameterRef{Value: openapi3.NewPathParameter("actorId").
		WithDescription("Actor id or username~name").
		WithSchema(openapi3.NewStringSchema())}
	keyHeader := &openapi3.ParameterRef{Value: openapi3.NewHeaderParameter("x-apify-key").
		WithDescription("Apify API token; Authorization: Bearer is accepted too").
		WithSchema(openapi3.NewStringSchema())}

	valuesBody := &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithDescription("Raw form values keyed by field").
		WithJSONSchema(openapi3.NewObjectSchema().
			WithProperty("values", openapi3.NewObjectSchema().WithAnyAdditionalProperties()))}

	op := func(id, summary string, params openapi3.Parameters, body *openapi3.RequestBodyRef, ok *openapi3.ResponseRef, errs map[int]string) *openapi3.Operation {
		o := openapi3.NewOperation()
		o.OperationID = id
		o.Summary = summary
		o.Parameters = params
		o.RequestBody = body
		o.Responses = openapi3.NewResponses(openapi3.WithStatus(http.StatusOK, ok))
		for code, desc := range errs {
			o.Responses.Set(strconv.Itoa(code), failure(desc))
		}
		return o
	}

	authErrors := map[int]string{http.StatusUnauthorized: "Missing or rejected API key"}
	platformErrors := map[int]string{
		http.StatusUnauthorized:        "Missing or rejected API key",
		http.StatusNotFound:            "Actor not found",
		http.StatusInternalServerError: "Platform failure",
	}
	runErrors := map[int]string{
		http.StatusBadRequest:          "Input rejected by the platform, or the actor has no usable input schema",
		http.StatusUnauthorized:        "Missing or rejected API key",
		http.StatusNotFound:            "Actor not found",
		http.StatusInternalServerError: "Platform failure",
	}

	actor := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema()).
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("username", openapi3.NewStringSchema()).
		WithProperty("fullName", openapi3.NewStringSchema())
	field := openapi3.NewObjectSchema().
		WithProperty("key", openapi3.NewStringSchema()).
		WithProperty("type", openapi3.NewStringSchema().WithEnum("string", "integer", "boolean", "array", "object", "other")).
		WithProperty("title", openapi3.NewStringSchema()).
		WithProperty("description", openapi3.NewStringSchema())
	anyObject := openapi3.NewObjectSchema().WithAnyAdditionalProperties()

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "ActorRun API",
			Version:     Version,
			Description: "Schema-driven forms and runs for Apify actors.",
		},
		Paths: openapi3.NewPaths(
			openapi3.WithPath("/api/v1/health", &openapi3.PathItem{
				Get: op("health", "Server health", nil, nil, respond("Health", anyObject), nil),
			}),
			openapi3.WithPath("/api/v1/verify-key", &openapi3.PathItem{
				Post: op("verifyKey", "Check an API key", nil,
					&openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithJSONSchema(
						openapi3.NewObjectSchema().WithProperty("apiKey", openapi3.NewStringSchema()))},
					respond("Key accepted", anyObject), authErrors),
			}),
			openapi3.WithPath("/api/v1/actors", &openapi3.PathItem{
				Get: op("listActors", "List actors", openapi3.Parameters{keyHeader}, nil,
					respond("Actors", openapi3.NewArraySchema().WithItems(actor)), authErrors),
			}),
			openapi3.WithPath("/api/v1/actors/{actorId}/schema", &openapi3.PathItem{
				Get: op("getSchema", "Form derived from the actor input schema",
					openapi3.Parameters{actorIDParam, keyHeader}, nil,
					respond("Form", openapi3.NewObjectSchema().
						WithProperty("actorId", openapi3.NewStringSchema()).
						WithProperty("fields", openapi3.NewArraySchema().WithItems(field)).
						WithProperty("initialValues", anyObject).
						WithProperty("notice", openapi3.NewStringSchema())),
					platformErrors),
			}),
			openapi3.WithPath("/api/v1/actors/{actorId}/preview", &openapi3.PathItem{
				Post: op("previewPayload", "Coerce values without running",
					openapi3.Parameters{actorIDParam, keyHeader}, valuesBody,
					respond("Payload preview", openapi3.NewObjectSchema().
						WithProperty("payload", anyObject).
						WithProperty("issues", openapi3.NewArraySchema().WithItems(anyObject)).
						WithProperty("advisories", openapi3.NewArraySchema().WithItems(anyObject))),
					runErrors),
			}),
			openapi3.WithPath("/api/v1/actors/{actorId}/run", &openapi3.PathItem{
				Post: op("runActor", "Run the actor and return its dataset",
					openapi3.Parameters{actorIDParam, keyHeader}, valuesBody,
					respond("Run result", openapi3.NewObjectSchema().
						WithProperty("runInfo", anyObject).
						WithProperty("results", openapi3.NewArraySchema().WithItems(openapi3.NewSchema())).
						WithProperty("view", anyObject)),
					runErrors),
			}),
			openapi3.WithPath("/api/v1/runs", &openapi3.PathItem{
				Get: op("listRuns", "Run history", openapi3.Parameters{
					keyHeader,
					{Value: openapi3.NewQueryParameter("limit").WithSchema(openapi3.NewIntegerSchema())},
					{Value: openapi3.NewQueryParameter("offset").WithSchema(openapi3.NewIntegerSchema())},
					{Value: openapi3.NewQueryParameter("actor").WithSchema(openapi3.NewStringSchema())},
				}, nil, respond("Runs", openapi3.NewArraySchema().WithItems(anyObject)), authErrors),
			}),
		),
	}
	return doc
}

func apiErrorSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("code", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema())
	s.Nullable = true
	return s
}
