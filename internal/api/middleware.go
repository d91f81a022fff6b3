package api

import (
	"fmt"
	"net/http"
)

// errorHandler turns a panicking handler into a 500 and closes the
// connection, since the response may be half written.
func (s *TeamChatApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}

			err, ok := v.(error)
			if !ok {
				err = fmt.Errorf("%v", v)
			}
			s.log.Error("recovered handler panic", "error", err, "method", r.Method, "path", r.URL.Path)

			w.Header().Set("Connection", "close")
			s.writeError(w, NewInternalServerError(err))
		}()

		next.ServeHTTP(w, r)
	})
}

// authMiddleware admits requests carrying a valid token and stores the
// caller's user id on the request context.
func (s *TeamChatApp) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := tokenFromRequest(r)
		if err != nil {
			s.log.Debug("unauthenticated request", "path", r.URL.Path, "error", err)
			s.writeError(w, NewUnauthorizedError())
			return
		}

		userId, err := s.extractUserIdFromToken(token)
		if err != nil {
			s.log.Warn("rejected token", "path", r.URL.Path, "error", err)
			s.writeError(w, NewUnauthorizedError())
			return
		}

		// responses depend on the caller and must not be cached
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(WithUserId(r.Context(), userId)))
	}
}
