// recover.go — перехват паники обработчика с ответом в формате ошибки API.
package server

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	apierrors "github.com/fede1817/CLOUD-FEDERICO-BRITEZ/internal/api/errors"
)

// recoverer — аналог chi middleware.Recoverer, но отвечает 500 с
// телом {success:false,error}. http.ErrAbortHandler пробрасывается дальше.
func recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("Паника в обработчике",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)
				apierrors.InternalError(w, "Внутренняя ошибка сервера")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
