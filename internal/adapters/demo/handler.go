package demo

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/trafficradar/internal/ports"
)

// NewHandler exposes svc with the detection service's HTTP contract: four
// GET endpoints answering JSON.
func NewHandler(svc ports.DetectionService) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"message": "DDoS Detection API is running"})
	})

	r.Get("/packet_counts", func(w http.ResponseWriter, r *http.Request) {
		counts, err := svc.FetchPacketCounts(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]interface{}{"packet_counts": counts})
	})

	r.Get("/blocked_ips", func(w http.ResponseWriter, r *http.Request) {
		blocked, err := svc.FetchBlockedIPs(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		list := []string(blocked)
		if list == nil {
			list = []string{}
		}
		writeJSON(w, map[string]interface{}{"blocked_ips": list})
	})

	r.Get("/start_sniffing", func(w http.ResponseWriter, r *http.Request) {
		ack, err := svc.StartSniffing(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, ack)
	})

	r.Get("/unblock_ip/{ip}", func(w http.ResponseWriter, r *http.Request) {
		ip, err := url.PathUnescape(chi.URLParam(r, "ip"))
		if err != nil {
			http.Error(w, "invalid ip", http.StatusBadRequest)
			return
		}
		ack, err := svc.UnblockIP(r.Context(), ip)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, ack)
	})

	return r
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write demo response")
	}
}
