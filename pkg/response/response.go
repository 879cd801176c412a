package response

import (
	"net/http"

	"arrodes-economy/pkg/apierror"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Response represents a standard API response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

func write(w http.ResponseWriter, statusCode int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

// JSON sends a successful response with the given status code.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	encode(w, statusCode, Response{Success: true, Data: data})
}

// Page sends one page of a listing along with its pagination metadata.
func Page(w http.ResponseWriter, data interface{}, page, limit int, total int64) {
	encode(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta:    &Meta{Page: page, Limit: limit, Total: total},
	})
}

func encode(w http.ResponseWriter, statusCode int, resp Response) {
	body, err := json.Marshal(resp)
	if err != nil {
		write(w, http.StatusInternalServerError, apierror.InternalError("").ToJSON())
		return
	}
	write(w, statusCode, append(body, '\n'))
}

// Error sends an error response. Game errors map to their status code,
// anything unclassified becomes a 500 and is logged with the request's
// logger, since the client never sees its details.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apierror.FromError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().
			Interface("error", eris.ToJSON(err, true)).
			Int("status", apiErr.StatusCode).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	write(w, apiErr.StatusCode, apiErr.ToJSON())
}

// Created sends a 201 Created response with the created resource.
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// OK sends a 200 OK response.
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}
