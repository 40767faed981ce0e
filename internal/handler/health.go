package handler

import (
	"context"
	"encoding/json"
	"net/http"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// mailStatus reports the SMTP reachability already observed by the
// transport. Health never dials SMTP itself.
type mailStatus interface {
	Status() string
}

// Health reports database reachability and the last known SMTP status. Only
// a database failure makes the service unhealthy; mail problems are reported
// but tolerated.
func Health(db pinger, mail mailStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{"status": "ok", "database": "ok", "mail": mail.Status()}
		code := http.StatusOK

		if err := db.Ping(r.Context()); err != nil {
			body["status"] = "degraded"
			body["database"] = "unreachable"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	}
}
