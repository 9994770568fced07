package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/marspr/srp-web/internal/auth"
	"github.com/marspr/srp-web/internal/logging"
	"github.com/marspr/srp-web/pkg/protocol"
	"github.com/marspr/srp-web/pkg/srp"
)

// maxFrameBytes bounds one WebSocket frame. The largest legitimate frame
// carries a base64 group element plus envelope overhead.
const maxFrameBytes = 16 * 1024

// closeReasonFailed is the only close reason a failed exchange ever
// reveals. The specific check that failed stays in the server log.
const closeReasonFailed = "authentication failed"

// handleAuth runs one authentication exchange or one enrollment over a
// WebSocket connection. Exactly one driver per connection; the connection
// closes as soon as a verdict is reached.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	remote := clientAddr(r)
	log := s.logger.WithFields(map[string]any{"remote_addr": remote})

	if s.deps.Limiter != nil {
		if retryAfter, err := s.deps.Limiter.Check(remote); err != nil {
			seconds := auth.RetryAfterSeconds(retryAfter)
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeAPIError(w, http.StatusTooManyRequests, protocol.NewRateLimitExceededError(seconds))
			return
		}
	}

	exchange, err := s.deps.Exchanges.Begin(remote)
	if err != nil {
		writeAPIError(w, http.StatusServiceUnavailable, protocol.NewSystemError())
		log.Warn("exchange rejected", map[string]any{"error": err.Error()})
		return
	}
	defer s.deps.Exchanges.End(exchange)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warn("websocket accept failed", map[string]any{"error": err.Error()})
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxFrameBytes)

	driver, err := srp.NewServerDriver(s.deps.SRPConfig, s.deps.Users, s.deps.ExchangeTimeout)
	if err != nil {
		log.Error("creating exchange driver", map[string]any{"error": err.Error()})
		conn.Close(websocket.StatusInternalError, "")
		return
	}

	ctx, cancel := context.WithDeadline(r.Context(), driver.Deadline())
	defer cancel()

	log.Debug("exchange started", map[string]any{"exchange_id": exchange.ID})

	for {
		var env protocol.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			verdict := driver.Abort(readError(ctx, err))
			log.Info("exchange ended without verdict", map[string]any{
				"exchange_id": exchange.ID,
				"reason":      reasonKind(verdict.Reason),
			})
			return
		}

		if env.Type == protocol.TypeRegister {
			driver.Abort(srp.ErrProtocolOrder)
			s.handleRegister(ctx, conn, &env, log)
			return
		}

		msg, err := s.deps.Codec.Decode(&env)
		if err != nil {
			s.failExchange(ctx, conn, remote, exchange.ID, driver.Abort(err), log)
			return
		}

		reply, verdict, err := driver.Handle(msg)
		if err != nil {
			s.failExchange(ctx, conn, remote, exchange.ID, driver.Abort(err), log)
			return
		}
		if verdict != nil && !verdict.Authenticated {
			s.failExchange(ctx, conn, remote, exchange.ID, verdict, log)
			return
		}
		if verdict != nil {
			s.finishExchange(ctx, conn, remote, exchange.ID, reply, verdict, log)
			return
		}

		out, err := s.deps.Codec.Encode(reply)
		if err != nil {
			log.Error("encoding reply", map[string]any{"error": err.Error()})
			conn.Close(websocket.StatusInternalError, "")
			return
		}
		if err := wsjson.Write(ctx, conn, out); err != nil {
			driver.Abort(err)
			return
		}
	}
}

// finishExchange sends the confirmation with a fresh session token and
// closes the connection normally.
func (s *Server) finishExchange(ctx context.Context, conn *websocket.Conn, remote, exchangeID string, reply srp.Message, verdict *srp.Verdict, log *logging.ContextLogger) {
	confirm, ok := reply.(*srp.ServerConfirm)
	if !ok {
		log.Error("verdict without confirmation message", nil)
		conn.Close(websocket.StatusInternalError, "")
		return
	}

	session, err := s.deps.Sessions.Create(verdict.Username, verdict.Key)
	if err != nil {
		log.Error("issuing session token", map[string]any{"error": err.Error()})
		conn.Close(websocket.StatusInternalError, "")
		return
	}

	out, err := s.deps.Codec.EncodeConfirm(confirm, session.Token)
	if err != nil {
		log.Error("encoding confirmation", map[string]any{"error": err.Error()})
		conn.Close(websocket.StatusInternalError, "")
		return
	}
	if err := wsjson.Write(ctx, conn, out); err != nil {
		return
	}

	if s.deps.Limiter != nil {
		s.deps.Limiter.RecordSuccess(remote)
	}
	log.Info("exchange authenticated", map[string]any{
		"exchange_id": exchangeID,
		"username":    verdict.Username,
	})
	conn.Close(websocket.StatusNormalClosure, "")
}

// failExchange closes a failed exchange with the one generic close the
// peer is allowed to see, after the limiter's progressive delay. The
// specific reason goes to the log only.
func (s *Server) failExchange(ctx context.Context, conn *websocket.Conn, remote, exchangeID string, verdict *srp.Verdict, log *logging.ContextLogger) {
	log.Info("exchange failed", map[string]any{
		"exchange_id": exchangeID,
		"username":    verdict.Username,
		"reason":      reasonKind(verdict.Reason),
	})

	if s.deps.Limiter != nil {
		delay := s.deps.Limiter.RecordFailure(remote)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}
	conn.Close(websocket.StatusPolicyViolation, closeReasonFailed)
}

// handleRegister processes an enrollment frame and closes the connection.
func (s *Server) handleRegister(ctx context.Context, conn *websocket.Conn, env *protocol.Envelope, log *logging.ContextLogger) {
	rec, err := s.deps.Codec.DecodeRegister(env)
	if err != nil {
		_ = wsjson.Write(ctx, conn, protocol.NewErrorEnvelope(protocol.NewMalformedMessageError("invalid enrollment")))
		conn.Close(websocket.StatusPolicyViolation, "")
		return
	}

	if err := s.deps.Users.Add(rec); err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			_ = wsjson.Write(ctx, conn, protocol.NewErrorEnvelope(protocol.NewUserExistsError(rec.Username)))
		} else {
			log.Error("storing enrollment", map[string]any{"error": err.Error()})
			_ = wsjson.Write(ctx, conn, protocol.NewErrorEnvelope(protocol.NewSystemError()))
		}
		conn.Close(websocket.StatusPolicyViolation, "")
		return
	}

	out, err := protocol.NewEnvelope(protocol.TypeRegistered, &protocol.RegisterResponse{Username: rec.Username})
	if err == nil {
		_ = wsjson.Write(ctx, conn, out)
	}
	log.Info("user enrolled", map[string]any{"username": rec.Username})
	conn.Close(websocket.StatusNormalClosure, "")
}

// readError maps a failed read to the exchange error kind it represents.
func readError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return srp.ErrExchangeTimeout
	}
	if websocket.CloseStatus(err) != -1 {
		return err
	}
	return srp.ErrMalformedMessage
}

// reasonKind reduces a verdict reason to its stable kind name for logs.
func reasonKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, srp.ErrInvalidPublicValue):
		return "invalid_public_value"
	case errors.Is(err, srp.ErrProofMismatch):
		return "proof_mismatch"
	case errors.Is(err, srp.ErrProtocolOrder):
		return "protocol_order"
	case errors.Is(err, srp.ErrUnknownUser):
		return "unknown_user"
	case errors.Is(err, srp.ErrInsufficientEntropy):
		return "insufficient_entropy"
	case errors.Is(err, srp.ErrExchangeTimeout):
		return "exchange_timeout"
	case errors.Is(err, srp.ErrMalformedMessage):
		return "malformed_message"
	default:
		return "transport"
	}
}
