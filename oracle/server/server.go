package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/GPTx-global/flightsurety/oracle/health"
	"github.com/GPTx-global/flightsurety/oracle/log"
	"github.com/GPTx-global/flightsurety/oracle/types"
)

const WelcomeMessage = "An API for use with your Dapp!"

type Catalog interface {
	Generate() ([]types.SyntheticFlight, error)
	Current() []types.SyntheticFlight
	Registrations() []types.Registration
}

type OracleDirectory interface {
	Identities() []types.OracleIdentity
	Failed() []common.Address
	Holding(index uint8) []types.OracleIdentity
}

type HealthReporter interface {
	GetStatus() map[string]health.HealthStatus
	IsHealthy() bool
}

// Server is the HTTP facade used by the dapp.
type Server struct {
	catalog Catalog
	oracles OracleDirectory
	health  HealthReporter

	srv *http.Server
}

func New(listen string, catalog Catalog, oracles OracleDirectory, hr HealthReporter) *Server {
	s := &Server{
		catalog: catalog,
		oracles: oracles,
		health:  hr,
	}

	s.srv = &http.Server{
		Addr:              listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Handler is the routed and CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("", s.handleIndex).Methods(http.MethodGet)
	api.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	api.HandleFunc("/fetchFlights", s.handleFetchFlights).Methods(http.MethodGet)
	api.HandleFunc("/flights", s.handleFlights).Methods(http.MethodGet)
	api.HandleFunc("/flights/registrations", s.handleRegistrations).Methods(http.MethodGet)
	api.HandleFunc("/oracles", s.handleOracles).Methods(http.MethodGet)
	api.HandleFunc("/oracles/failed", s.handleFailedOracles).Methods(http.MethodGet)
	api.HandleFunc("/oracles/index/{index:[0-9]+}", s.handleOraclesHolding).Methods(http.MethodGet)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept"},
	})
	return c.Handler(router)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Infof("http server listening on %s", s.srv.Addr)

	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": WelcomeMessage})
}

func (s *Server) handleFetchFlights(w http.ResponseWriter, _ *http.Request) {
	catalog, err := s.catalog.Generate()
	if err != nil {
		log.Errorf("failed to generate flights: %v", err)
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	writeJSON(w, http.StatusOK, catalog)
}

func (s *Server) handleFlights(w http.ResponseWriter, _ *http.Request) {
	catalog := s.catalog.Current()
	if catalog == nil {
		catalog = []types.SyntheticFlight{}
	}

	writeJSON(w, http.StatusOK, catalog)
}

func (s *Server) handleRegistrations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Registrations())
}

func (s *Server) handleOracles(w http.ResponseWriter, _ *http.Request) {
	identities := s.oracles.Identities()
	if identities == nil {
		identities = []types.OracleIdentity{}
	}

	writeJSON(w, http.StatusOK, identities)
}

func (s *Server) handleFailedOracles(w http.ResponseWriter, _ *http.Request) {
	failed := s.oracles.Failed()
	if failed == nil {
		failed = []common.Address{}
	}

	writeJSON(w, http.StatusOK, failed)
}

func (s *Server) handleOraclesHolding(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 8)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	holders := s.oracles.Holding(uint8(index))
	if holders == nil {
		holders = []types.OracleIdentity{}
	}

	writeJSON(w, http.StatusOK, holders)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	code := http.StatusOK
	healthy := s.health.IsHealthy()
	if !healthy {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"healthy": healthy,
		"checks":  s.health.GetStatus(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
