package handler

import (
	"io"
	"net/http"
	"strconv"

	"arrodes-economy/pkg/apierror"

	"github.com/goccy/go-json"
)

// maxBodyBytes bounds request bodies; commands are small.
const maxBodyBytes = 64 << 10

// decodeJSON reads the request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apierror.BadRequest("failed to read request body")
	}
	if len(body) == 0 {
		return apierror.BadRequest("request body is required")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apierror.BadRequest("invalid JSON")
	}
	return nil
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
