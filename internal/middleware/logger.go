package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/coursemuster/portal/internal/session"
	"go.uber.org/zap"
)

// Logger logs one line per request. It must run after RequestID; the user id
// is logged when a later middleware attached a session.
func Logger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			holder := &sessionHolder{}

			next.ServeHTTP(ww, r.WithContext(withSessionHolder(r.Context(), holder)))

			fields := []zap.Field{
				zap.String("request_id", GetRequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", ww.status),
				zap.Int("bytes", ww.bytes),
				zap.Duration("duration", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
			}
			if holder.session != nil {
				fields = append(fields, zap.String("user_id", holder.session.User.ID))
			}
			if holder.rejected {
				fields = append(fields, zap.Bool("token_rejected", true))
			}

			switch {
			case ww.status >= http.StatusInternalServerError:
				logger.Error("HTTP request", fields...)
			case ww.status >= http.StatusBadRequest:
				logger.Warn("HTTP request", fields...)
			default:
				logger.Info("HTTP request", fields...)
			}
		})
	}
}

// statusRecorder wraps http.ResponseWriter to capture status code and size
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// sessionHolder lets the session middleware report the session back up to
// the logger, which runs outside it
type sessionHolder struct {
	session  *session.Session
	rejected bool
}

const sessionHolderKey contextKey = "sessionHolder"

func withSessionHolder(ctx context.Context, h *sessionHolder) context.Context {
	return context.WithValue(ctx, sessionHolderKey, h)
}

// reportSession records s on the holder installed by Logger, if any
func reportSession(ctx context.Context, s *session.Session) {
	if h, ok := ctx.Value(sessionHolderKey).(*sessionHolder); ok {
		h.session = s
	}
}

// reportRejectedToken marks the request as carrying a token that failed inspection
func reportRejectedToken(ctx context.Context) {
	if h, ok := ctx.Value(sessionHolderKey).(*sessionHolder); ok {
		h.rejected = true
	}
}
