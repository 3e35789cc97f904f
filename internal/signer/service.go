package signer

import (
	"crypto/ecdsa"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"

	"github.com/saingsab/jaamlong/internal/config"
	"github.com/saingsab/jaamlong/internal/errs"
	"github.com/saingsab/jaamlong/internal/metrics"
	"github.com/saingsab/jaamlong/internal/models"
	"github.com/saingsab/jaamlong/internal/sign"
)

// Service signs native and ERC20 release transactions with the bridge key.
type Service struct {
	key     *ecdsa.PrivateKey
	auth    *Authenticator
	cfg     config.SignerConfig
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewService parses the configured key and builds the service.
func NewService(cfg config.SignerConfig, logger zerolog.Logger, m *metrics.Metrics) (*Service, error) {
	key, err := sign.ParseKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}
	logger = logger.With().Str("component", "signer").Logger()
	return &Service{
		key:     key,
		auth:    NewAuthenticator(cfg, logger),
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}, nil
}

// Handler builds the signer's HTTP routes.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", s.auth.Login)
	mux.Handle("POST /sign-raw-tx", s.auth.Middleware(http.HandlerFunc(s.signRawTx)))
	mux.Handle("POST /sign-erc20-tx", s.auth.Middleware(http.HandlerFunc(s.signERC20Tx)))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, models.Success("ok"))
	})
	return s.cors(mux)
}

func (s *Service) signRawTx(w http.ResponseWriter, r *http.Request) {
	s.handleSign(w, r, "sign-raw-tx", false)
}

func (s *Service) signERC20Tx(w http.ResponseWriter, r *http.Request) {
	s.handleSign(w, r, "sign-erc20-tx", true)
}

func (s *Service) handleSign(w http.ResponseWriter, r *http.Request, op string, erc20 bool) {
	var req SignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.ObserveSignerOp(op, err)
		writeJSON(w, http.StatusBadRequest, models.Fail("malformed signing request"))
		return
	}

	env, err := req.envelope(erc20)
	if err != nil {
		s.metrics.ObserveSignerOp(op, err)
		writeJSON(w, errs.HTTPStatus(err), models.Fail(err.Error()))
		return
	}

	signed, err := sign.Sign(env, s.key)
	s.metrics.ObserveSignerOp(op, err)
	if err != nil {
		s.logger.Error().Err(err).Str("op", op).Msg("signing failed")
		writeJSON(w, errs.HTTPStatus(err), models.Fail(err.Error()))
		return
	}

	s.logger.Info().
		Str("op", op).
		Str("to", req.Tx.To).
		Str("tx_hash", signed.Hash.Hex()).
		Uint64("chain_id", env.ChainID).
		Msg("signed transaction")
	writeJSON(w, http.StatusOK, models.Success(hexutil.Encode(signed.Raw)))
}

// cors allows the signer's own configured origin for GET and POST.
func (s *Service) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.cfg.AllowedOrigin; origin != "" && strings.EqualFold(r.Header.Get("Origin"), origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Accept, Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
