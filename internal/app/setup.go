// Package app contains the application setup for the Product API.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/productapi/internal/config"
	"github.com/abgdnv/productapi/internal/service"
	"github.com/abgdnv/productapi/internal/store"
	"github.com/abgdnv/productapi/internal/transport/rest"
	"github.com/abgdnv/productapi/pkg/messaging"
	"github.com/abgdnv/productapi/pkg/server"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
)

// HealthServiceName is the gRPC health service name reported as SERVING.
const HealthServiceName = "product.ProductAPI"

type Dependencies struct {
	ProductService service.ProductService
	Logger         *slog.Logger
}

// SetupDependencies wires the service to repo and publisher.
func SetupDependencies(repo store.ProductStore, publisher messaging.Publisher, cfg *config.Config, logger *slog.Logger) *Dependencies {
	pService := service.NewService(repo, publisher, cfg.Messaging.PublishTimeout, logger)

	return &Dependencies{
		ProductService: pService,
		Logger:         logger,
	}
}

// SetupHttpHandler builds the full request pipeline and routes.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies, cfg *config.Config) http.Handler {
	translator := rest.NewErrorTranslator(deps.Logger)
	mux := server.NewChiRouter(deps.Logger, translator.Respond)
	wireRoutes(mux, deps, cfg, translator)
	return otelhttp.NewHandler(mux, "product-api")
}

// wireRoutes sets up the HTTP routes for the Product API.
func wireRoutes(mux *chi.Mux, deps *Dependencies, cfg *config.Config, translator *rest.ErrorTranslator) {
	pipeline := rest.NewPipeline(cfg.Auth.APIKey, cfg.HTTPServer.MaxBodyBytes, translator.Respond)
	productHandler := rest.NewHandler(deps.ProductService, pipeline, translator.Respond, deps.Logger)
	productHandler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures an HTTP server for the Product API.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {

	handler := SetupHttpHandler(deps, cfg)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, handler)
}

// SetupGrpcServer initializes the gRPC server, which serves the standard health service.
func SetupGrpcServer(deps *Dependencies, reflectionEnabled bool) *grpc.Server {
	healthRegisterFunc, _ := server.HealthRegistration(HealthServiceName)
	// create a new gRPC server with reflection if enabled
	return server.NewGRPCServer(deps.Logger, reflectionEnabled, healthRegisterFunc)
}
