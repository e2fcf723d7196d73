package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
)

// Handler wraps the Engine and provides HTTP handlers for it.
type Handler struct {
	engine *Engine
}

// NewHandler creates a new REST API handler over the given engine.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// HealthCheck handles GET /v1/health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]interface{}{"status": "ok"}, http.StatusOK)
}

// GetStats handles GET /v1/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	nodes, dim, degree, fitted := h.engine.Stats()
	writeJSON(w, map[string]interface{}{
		"nodes":        nodes,
		"dimensions":   dim,
		"degree_bound": degree,
		"fitted":       fitted,
	}, http.StatusOK)
}

// fitRequest is the POST /v1/fit body: a flat batch of raw vectors to
// quantize and build an initial graph over.
type fitRequest struct {
	Vectors [][]float32 `json:"vectors"`
}

// Fit handles POST /v1/fit. Mutating and bulk, gated by JWT auth.
func (h *Handler) Fit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req fitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Vectors) == 0 {
		writeError(w, "vectors must be non-empty", http.StatusBadRequest)
		return
	}

	if err := h.engine.Fit(req.Vectors); err != nil {
		writeError(w, fmt.Sprintf("Fit failed: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"count": len(req.Vectors)}, http.StatusCreated)
}

// Refine handles POST /v1/refine. Mutating, gated by JWT auth.
func (h *Handler) Refine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.engine.Refine(); err != nil {
		status := http.StatusInternalServerError
		if err == ErrEngineNotFit {
			status = http.StatusConflict
		}
		writeError(w, fmt.Sprintf("Refine failed: %v", err), status)
		return
	}

	writeJSON(w, map[string]interface{}{"status": "refined"}, http.StatusOK)
}

// searchRequest is the POST /v1/search body.
type searchRequest struct {
	Query []float32 `json:"query"`
	K     int       `json:"k"`
	Ef    int       `json:"ef"`
}

// Search handles POST /v1/search. Rate-limited, not auth-gated: the query
// plane is meant to serve many concurrent independent callers.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Query) == 0 {
		writeError(w, "query must be non-empty", http.StatusBadRequest)
		return
	}
	if req.K <= 0 {
		req.K = 10
	}
	if req.Ef <= 0 {
		req.Ef = req.K * 4
	}
	if req.Ef < req.K {
		req.Ef = req.K
	}

	ids, err := h.engine.Search(req.Query, req.K, req.Ef)
	if err != nil {
		status := http.StatusInternalServerError
		if err == ErrEngineNotFit {
			status = http.StatusConflict
		}
		writeError(w, fmt.Sprintf("Search failed: %v", err), status)
		return
	}

	writeJSON(w, map[string]interface{}{"ids": ids}, http.StatusOK)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode response: %v", err), http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  message,
		"status": statusCode,
	})
}

// ServeDocs serves the OpenAPI/Swagger documentation.
func ServeDocs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	content, err := os.ReadFile("docs/api/openapi.yaml")
	if err != nil {
		writeError(w, "OpenAPI spec not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// ServeSwaggerUI serves the Swagger UI HTML page.
func ServeSwaggerUI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	html := `<!DOCTYPE html>
<html>
<head>
    <title>RaBitQ Engine API Documentation</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({
                url: "/docs/openapi.yaml",
                dom_id: '#swagger-ui',
                presets: [
                    SwaggerUIBundle.presets.apis,
                    SwaggerUIBundle.SwaggerUIStandalonePreset
                ],
                layout: "BaseLayout"
            });
        };
    </script>
</body>
</html>`

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

// ParseIntQuery parses an integer query parameter.
func ParseIntQuery(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
