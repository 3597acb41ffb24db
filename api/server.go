package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"rifei/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the application over HTTP
type Server struct {
	config   *config.Config
	services Services
	engine   *gin.Engine
}

// NewServer builds the router. Call Run to start listening.
func NewServer(cfg *config.Config, services Services) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:   cfg,
		services: services,
		engine:   gin.New(),
	}
	s.routes()
	return s
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	corsConfig := cors.DefaultConfig()
	if len(s.config.CORSOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.config.CORSOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Accept", headerUserID, headerUserRole, headerRequestID}
	corsConfig.ExposeHeaders = []string{headerRequestID}

	r := s.engine
	r.Use(gin.Recovery(), requestID(), requestLogger(), cors.New(corsConfig))

	r.GET("/health", s.health)

	public := r.Group("/api")
	{
		public.GET("/stats", s.getMarketplaceStats)
		public.GET("/raffles", s.listRaffles)
		public.GET("/raffles/ending-soon", s.listEndingSoon)
		public.GET("/raffles/:id", s.getRaffle)
		public.GET("/raffles/:id/numbers", s.getAvailableNumbers)
		public.GET("/raffles/:id/stats", s.getRaffleStats)
		public.GET("/raffles/:id/draw/verify", s.verifyDraw)
		public.POST("/webhooks/mercadopago", s.mercadoPagoWebhook)
	}

	private := r.Group("/api", identity())
	{
		private.POST("/raffles", s.createRaffle)
		private.PUT("/raffles/:id", s.updateRaffle)
		private.DELETE("/raffles/:id", s.deleteRaffle)
		private.POST("/raffles/:id/activate", s.activateRaffle)
		private.POST("/raffles/:id/cancel", s.cancelRaffle)
		private.POST("/raffles/:id/draw", s.drawRaffle)
		private.GET("/raffles/:id/payments", s.getRafflePayments)
		private.POST("/raffles/:id/reservations", s.createReservation)

		private.GET("/reservations", s.listReservations)
		private.GET("/reservations/:id", s.getReservation)
		private.DELETE("/reservations/:id", s.cancelReservation)
		private.POST("/reservations/:id/checkout", s.checkout)

		private.GET("/payments/me", s.listMyPayments)
		private.GET("/payments/stats", s.getMyPaymentStats)
		private.GET("/payments/:id", s.getPayment)
		private.POST("/payments/:id/refund", s.refundPayment)
	}
}

func (s *Server) health(c *gin.Context) {
	if s.services.Database != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.services.Database.Ping(ctx); err != nil {
			log.WithError(err).Warn("Health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", s.config.HTTPAddr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	log.Info("HTTP server stopped")
	return nil
}
