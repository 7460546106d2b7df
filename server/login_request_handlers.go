package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/verishda/verishda/internal/errors"
)

const closeWriteTimeout = time.Second

// LoginRequestHandler registers a pending login under the path's correlation
// id and upgrades to a websocket that receives exactly one text frame with
// the authorization code.
func (s *Server) LoginRequestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("correlationId")
		logger := log.With().Str("correlation_id", id).Str("request_id", RequestID(r.Context())).Logger()

		entry, err := s.pending.Register(id)
		if err != nil {
			if errors.Is(err, errors.ErrLoginConflict) {
				s.metrics.LoginRequests.WithLabelValues("conflict").Inc()
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			s.metrics.LoginRequests.WithLabelValues("invalid").Inc()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.observePending()
		defer func() {
			entry.Close()
			s.pending.Release(id, entry)
			s.observePending()
		}()

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already answered the request.
			logger.Err(err).Msg("login request upgrade failed")
			s.metrics.LoginRequests.WithLabelValues("invalid").Inc()
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		code, err := entry.Wait(ctx)
		if err != nil {
			if errors.Is(err, errors.ErrLoginAbandoned) {
				logger.Info().Err(err).Msg("login request abandoned")
				s.metrics.LoginRequests.WithLabelValues("abandoned").Inc()
				writeClose(conn, websocket.CloseGoingAway, "login abandoned")
				return
			}
			logger.Debug().Msg("login request stream closed by client")
			s.metrics.LoginRequests.WithLabelValues("closed").Inc()
			return
		}

		if err := conn.WriteMessage(websocket.TextMessage, []byte(code)); err != nil {
			logger.Err(err).Msg("failed to push login code")
			s.metrics.LoginRequests.WithLabelValues("closed").Inc()
			return
		}
		s.metrics.LoginRequests.WithLabelValues("delivered").Inc()
		writeClose(conn, websocket.CloseNormalClosure, "")
	}
}

// LoginTargetHandler is the redirect target of the identity provider. It
// hands the authorization code to the stream waiting under the state
// parameter.
func (s *Server) LoginTargetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		state := q.Get("state")

		if providerErr := q.Get("error"); providerErr != "" {
			if entry, ok := s.pending.Take(state); ok {
				entry.Fail("identity provider returned " + providerErr)
				s.observePending()
			}
			s.metrics.LoginDeliveries.WithLabelValues("provider_error").Inc()
			log.Warn().Str("correlation_id", state).Str("error", providerErr).Str("description", q.Get("error_description")).Msg("identity provider rejected login")
			http.Error(w, "login failed: "+providerErr, http.StatusBadRequest)
			return
		}

		code := q.Get("code")
		if state == "" || code == "" {
			s.metrics.LoginDeliveries.WithLabelValues("invalid").Inc()
			http.Error(w, "missing code or state", http.StatusBadRequest)
			return
		}

		entry, ok := s.pending.Take(state)
		if !ok {
			s.metrics.LoginDeliveries.WithLabelValues("not_found").Inc()
			http.Error(w, errors.ErrNoPendingLogin.Error(), http.StatusNotFound)
			return
		}
		s.observePending()

		if err := entry.Deliver(r.Context(), code); err != nil {
			if errors.Is(err, errors.ErrReceiverGone) {
				s.metrics.LoginDeliveries.WithLabelValues("receiver_gone").Inc()
				http.Error(w, errors.ErrReceiverGone.Error(), http.StatusNotFound)
				return
			}
			log.Err(err).Str("correlation_id", state).Msg("login delivery interrupted")
			return
		}
		s.metrics.LoginDeliveries.WithLabelValues("ok").Inc()
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) observePending() {
	s.metrics.PendingLogins.Set(float64(s.pending.Len()))
}

func writeClose(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
}
