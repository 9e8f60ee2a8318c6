package rest

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/walpredict/stock-optimizer/internal/logger"
	"github.com/walpredict/stock-optimizer/pkg/manager"
)

// A REST server that runs until its context is done
type RESTServer interface {
	Run(ctx context.Context) error
	Handler() http.Handler
}

// Base REST server
type BaseServer struct {
	router *gin.Engine
}

// Options of the base server
type ServerOptions struct {
	AllowedOrigins []string // CORS origins allowed with credentials
}

func NewBaseServer(opts ServerOptions) *BaseServer {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = DefaultAllowedOrigins
	}
	router := gin.New()
	router.Use(
		ginzap.Ginzap(logger.ZapLogger(), time.RFC3339, true),
		ginzap.RecoveryWithZap(logger.ZapLogger(), true),
		requestID(),
		cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", RequestIDHeader},
			ExposeHeaders:    []string{RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)
	return &BaseServer{
		router: router,
	}
}

// Attach a request id to the request context and echo it in the response
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(manager.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func (server *BaseServer) Handler() http.Handler {
	return server.router
}

// start server, shutting down gracefully when the context is done
func (server *BaseServer) Run(ctx context.Context) error {
	var host, port string
	if host = os.Getenv(RestHostEnvName); host == "" {
		host = DefaultRestHost
	}
	if port = os.Getenv(RestPortEnvName); port == "" {
		port = DefaultRestPort
	}
	srv := &http.Server{
		Addr:              host + ":" + port,
		Handler:           server.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Infow("starting REST server", "address", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Log.Info("shutting down REST server")
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
