package response

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// JSON writes data with the given status. Game state changes on every move,
// so responses are marked uncacheable. The body is encoded before the
// header is written so an encoding failure still yields a clean 500.
func JSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if data != nil {
		if err := json.NewEncoder(&buf).Encode(data); err != nil {
			status = http.StatusInternalServerError
			buf.Reset()
			buf.WriteString(`{"error":{"kind":"internal","code":"INTERNAL_ERROR","message":"Internal server error"}}`)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// NoContent writes a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}
