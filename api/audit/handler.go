// Package audit exposes the dispatch audit log over HTTP.
package audit

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kilianp07/roamnet/core/dispatch/auditlog"
	"github.com/kilianp07/roamnet/core/events"
	"github.com/kilianp07/roamnet/core/model"
)

// Path is where the handler is mounted by the service.
const Path = "/api/dispatch/audit"

// NewHandler returns an HTTP handler answering GET requests with the
// matching audit records. Requests must include an Authorization header
// with "Bearer <token>" when token is non-empty.
//
// Supported query parameters: start, end (RFC3339), operation, result,
// session_id, reservation_id.
func NewHandler(store auditlog.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		params := r.URL.Query()
		q := auditlog.Query{
			Operation:     events.Operation(params.Get("operation")),
			Result:        params.Get("result"),
			SessionID:     model.SessionID(params.Get("session_id")),
			ReservationID: model.ReservationID(params.Get("reservation_id")),
		}
		for key, dst := range map[string]*time.Time{"start": &q.Start, "end": &q.End} {
			s := params.Get(key)
			if s == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid "+key+": "+err.Error(), http.StatusBadRequest)
				return
			}
			*dst = t
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []auditlog.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
