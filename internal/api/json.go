package api

import (
	"encoding/json"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Code     string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeError renders err as a Problem using the HTTP code and text code it
// carries. Plain errors become a 500. With opaque set the body carries only
// the status text, so callers learn nothing beyond the status code.
func writeError(w http.ResponseWriter, r *http.Request, err error, opaque bool) {
	status := http.StatusInternalServerError
	p := Problem{Type: "about:blank", Instance: r.URL.Path}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		if rich.Code >= 400 && rich.Code < 600 {
			status = rich.Code
		}
		p.Code = rich.TextCode
		if !opaque && status < 500 {
			p.Detail = rich.Message
		}
	}
	p.Status = status
	p.Title = http.StatusText(status)
	if opaque {
		p.Code = ""
	}
	writeJSON(w, status, p)
}
