// Package httpapi is the coordinator's HTTP edge: request/response
// translation over the coordinator and ledger, no business logic.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/saingsab/jaamlong/internal/config"
	"github.com/saingsab/jaamlong/internal/coordinator"
	"github.com/saingsab/jaamlong/internal/errs"
	"github.com/saingsab/jaamlong/internal/models"
	"github.com/saingsab/jaamlong/internal/store"
)

// Server bundles the edge's dependencies.
type Server struct {
	coord  *coordinator.Coordinator
	ledger store.Ledger
	cfg    config.ServerConfig
	logger zerolog.Logger
}

// NewServer builds the HTTP edge.
func NewServer(coord *coordinator.Coordinator, ledger store.Ledger, cfg config.ServerConfig, logger zerolog.Logger) *Server {
	return &Server{
		coord:  coord,
		ledger: ledger,
		cfg:    cfg,
		logger: logger.With().Str("component", "httpapi").Logger(),
	}
}

// Handler builds the route table with the middleware chain applied.
func (s *Server) Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /request-tx", s.requestTx)
	mux.HandleFunc("POST /broadcast-tx", s.broadcastTx)

	mux.HandleFunc("GET /networks", s.listNetworks)
	mux.HandleFunc("GET /network/{id}", s.getNetwork)
	mux.HandleFunc("GET /token-addresses", s.listTokens)
	mux.HandleFunc("GET /token-address/{id}", s.getToken)
	mux.HandleFunc("GET /bridges", s.listBridges)
	mux.HandleFunc("GET /bridge", s.getBridge)
	mux.HandleFunc("POST /token", s.createToken)
	mux.HandleFunc("GET /transactions", s.listTransfers)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, models.Success("ok"))
	})
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return Chain(mux, Recovery(s.logger), Logging(s.logger), CORS(s.cfg))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeErr maps a classified error to the fail envelope.
func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, errs.HTTPStatus(err), models.Fail(err.Error()))
}
