package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "ActorRun API",
		Version:     "v1",
		Description: "Run Apify actors from forms generated out of their input schemas",
		Endpoints: []endpointInfo{
			{"/api/v1/verify-key", []string{"POST"}, "Check an Apify API key and return its account"},
			{"/api/v1/actors", []string{"GET"}, "List the actors available to the key (cached)"},
			{"/api/v1/actors/{actorId}/schema", []string{"GET"}, "Form fields, initial values and widgets derived from the actor's input schema"},
			{"/api/v1/actors/{actorId}/preview", []string{"POST"}, "Coerce form values into the payload a run would submit, without running"},
			{"/api/v1/actors/{actorId}/run", []string{"POST"}, "Coerce form values, run the actor and return its dataset"},
			{"/api/v1/runs", []string{"GET"}, "Run history of the key's account"},
			{"/api/v1/openapi.json", []string{"GET"}, "OpenAPI description of this API"},
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
		},
	})
}
