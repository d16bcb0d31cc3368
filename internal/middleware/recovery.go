package middleware

import (
	"net/http"
	"runtime/debug"

	"voteflow-backend/internal/logger"
	"voteflow-backend/pkg/utils"
)

func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.For("http").WithField("panic", err).WithField("path", r.URL.Path).
					Errorf("PANIC RECOVERED\n%s", debug.Stack())
				utils.Error(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
