// Пакет server — HTTP-сервер шлюза Control Center с graceful shutdown.
// Без TLS: TLS termination выполняется на ingress.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	apihandlers "github.com/bigkaa/control-center-gateway/internal/api/handlers"
	"github.com/bigkaa/control-center-gateway/internal/api/middleware"
	"github.com/bigkaa/control-center-gateway/internal/config"
	"github.com/bigkaa/control-center-gateway/internal/gate"
	"github.com/bigkaa/control-center-gateway/internal/session"
	"github.com/bigkaa/control-center-gateway/internal/telemetry"
	uihandlers "github.com/bigkaa/control-center-gateway/internal/ui/handlers"
)

// Deps — обработчики и компоненты, из которых собирается роутер.
type Deps struct {
	Sessions *session.Manager
	Gate     *gate.Gate
	API      *apihandlers.APIHandler
	Health   *apihandlers.HealthHandler
	Auth     *uihandlers.AuthHandler
	Home     *uihandlers.HomeHandler
}

// NewRouter собирает маршруты шлюза.
//
// Health и metrics доступны без сессии. Страницы и /api работают с сессией;
// /api дополнительно проходит gate, изменяющие запросы — проверку роли.
func NewRouter(deps Deps, logger *slog.Logger) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.Recoverer(logger, uihandlers.ErrorPage(logger)))
	router.Use(telemetry.Middleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Health и metrics проверяются Kubernetes напрямую.
	router.Get("/health/live", deps.Health.HealthLive)
	router.Get("/health/ready", deps.Health.HealthReady)
	router.Get("/metrics", deps.Health.GetMetrics)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Session(deps.Sessions, logger))

		// Страницы и OAuth
		r.Get("/", deps.Home.HandleHome)
		r.Get("/login", deps.Auth.HandleLogin)
		r.Get("/callback", deps.Auth.HandleCallback)
		r.Get("/logout", deps.Auth.HandleLogout)
		r.Post("/logout", deps.Auth.HandleLogout)
		r.Post("/auth/revalidate", deps.Auth.HandleRevalidate)

		// JSON API
		r.Route("/api", func(r chi.Router) {
			r.Use(deps.Gate.Middleware(deps.Sessions))

			r.Get("/me", deps.API.GetCurrentUser)

			r.Route("/applications", func(r chi.Router) {
				r.Get("/", deps.API.ListApplications)
				r.Get("/pending", deps.API.GetPendingApplication)
				r.Post("/modules", deps.API.ListModules)
				r.Post("/dimensions", deps.API.ListDimensions)

				r.Group(func(r chi.Router) {
					r.Use(gate.MutationMiddleware)
					r.Post("/modify", deps.API.ModifyApplication)
					r.Post("/submit", deps.API.SubmitApplication)
					r.Post("/delete", deps.API.DeleteApplication)
				})
			})

			r.Route("/administrators", func(r chi.Router) {
				r.Get("/", deps.API.ListAdministrators)
				r.Post("/search", deps.API.SearchAdministrator)

				r.Group(func(r chi.Router) {
					r.Use(gate.MutationMiddleware)
					r.Post("/enroll", deps.API.EnrollAdministrator)
					r.Post("/delete", deps.API.DeleteAdministrator)
				})
			})
		})
	})

	return router
}

// Server — HTTP-сервер шлюза.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с готовым handler (см. NewRouter).
func New(cfg *config.Config, logger *slog.Logger, handler http.Handler) *Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM)
// или отмены ctx. Затем выполняется graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case <-ctx.Done():
		s.logger.Info("Контекст сервера отменён")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
