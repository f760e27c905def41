package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 style error response.
type Problem struct {
	Type     string      `json:"type,omitempty"`
	Title    string      `json:"title"`
	Status   int         `json:"status"`
	Detail   string      `json:"detail,omitempty"`
	Instance string      `json:"instance,omitempty"`
	Extra    interface{} `json:"extra,omitempty"` // arbitrary payload (map/struct)
}

func WriteProblem(w http.ResponseWriter, status int, title, detail string, extra any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Title:  title,
		Status: status,
		Detail: detail,
		Extra:  extra,
	})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
