package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/config"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/flow"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/metrics"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/models"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server exposes the WhatsApp webhook, the structured-query endpoint used by
// the intent collaborator, health and metrics.
type Server struct {
	cfg        config.APIConfig
	wa         config.WhatsAppConfig
	controller *flow.Controller
	limiter    *rateLimiter
	logger     *zerolog.Logger
	server     *http.Server
}

func NewServer(cfg config.APIConfig, waCfg config.WhatsAppConfig, controller *flow.Controller, logger *zerolog.Logger) *Server {
	srv := &Server{
		cfg:        cfg,
		wa:         waCfg,
		controller: controller,
		limiter:    newRateLimiter(&cfg),
		logger:     logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", srv.handleWebhook)
	mux.HandleFunc("/v1/slot-queries", srv.handleSlotQuery)
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("api server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleWebhook serves both the Cloud API verification handshake (GET) and
// inbound message notifications (POST).
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	metrics.IncWebhook("webhook")

	switch r.Method {
	case http.MethodGet:
		s.handleVerify(w, r)
	case http.MethodPost:
		s.handleInbound(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	if mode != "subscribe" || subtle.ConstantTimeCompare([]byte(token), []byte(s.wa.VerifyToken)) != 1 {
		writeError(w, http.StatusForbidden, "verification failed")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(q.Get("hub.challenge")))
}

type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	From        string `json:"from"`
	Type        string `json:"type"`
	Interactive *struct {
		Type        string    `json:"type"`
		ButtonReply *replyRef `json:"button_reply"`
		ListReply   *replyRef `json:"list_reply"`
	} `json:"interactive"`
}

type replyRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func (m inboundMessage) selectionToken() (string, bool) {
	if m.Type != "interactive" || m.Interactive == nil {
		return "", false
	}
	if m.Interactive.ButtonReply != nil {
		return m.Interactive.ButtonReply.ID, true
	}
	if m.Interactive.ListReply != nil {
		return m.Interactive.ListReply.ID, true
	}
	return "", false
}

func (s *Server) handleInbound(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	// Always 200: the Cloud API redelivers on non-2xx, and redelivering a
	// message we failed on would not help.
	w.WriteHeader(http.StatusOK)

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				token, ok := msg.selectionToken()
				if !ok {
					// Free-text messages go to the intent collaborator,
					// which calls back via /v1/slot-queries.
					continue
				}
				if !s.limiter.allow(msg.From) {
					s.logger.Warn().Str("from", msg.From).Msg("webhook rate limit exceeded")
					continue
				}
				if err := s.controller.HandleSelection(r.Context(), msg.From, token); err != nil {
					s.logger.Error().Err(err).Str("from", msg.From).Msg("selection handling failed")
				}
			}
		}
	}
}

type slotQueryRequest struct {
	CustomerID string           `json:"customer_id"`
	Language   string           `json:"language"`
	Query      models.SlotQuery `json:"query"`
}

func (s *Server) handleSlotQuery(w http.ResponseWriter, r *http.Request) {
	metrics.IncWebhook("slot_queries")

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req slotQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.CustomerID == "" {
		writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}
	if !s.limiter.allow(req.CustomerID) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	if err := s.controller.HandleQuery(r.Context(), req.CustomerID, req.Language, req.Query); err != nil {
		s.logger.Error().Err(err).Str("customer_id", req.CustomerID).Msg("query handling failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"status":"accepted"}`))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
