package middleware

import (
	"crypto/subtle"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"sidequest/internal/config"
)

// SwaggerConfig represents the configuration for the Swagger UI
type SwaggerConfig struct {
	// URL points to the Swagger JSON endpoint
	URL string
	// DeepLinking enables deep linking for tags and operations
	DeepLinking bool
	// DocExpansion controls the default expansion setting for the operations and tags
	DocExpansion string
}

// DefaultSwaggerConfig returns the default Swagger configuration
func DefaultSwaggerConfig() *SwaggerConfig {
	return &SwaggerConfig{
		URL:          "/swagger/doc.json",
		DeepLinking:  true,
		DocExpansion: "list",
	}
}

// SwaggerHandler returns a handler that serves the Swagger UI
func SwaggerHandler(cfg *SwaggerConfig) http.Handler {
	if cfg == nil {
		cfg = DefaultSwaggerConfig()
	}

	return httpSwagger.Handler(
		httpSwagger.URL(cfg.URL),
		httpSwagger.DeepLinking(cfg.DeepLinking),
		httpSwagger.DocExpansion(cfg.DocExpansion),
		httpSwagger.DomID("swagger-ui"),
	)
}

// SwaggerAuth protects the docs with basic auth when credentials are configured
func SwaggerAuth(cfg config.ServerConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.SwaggerUsername == "" || cfg.SwaggerPassword == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(cfg.SwaggerUsername)) != 1 ||
				subtle.ConstantTimeCompare([]byte(pass), []byte(cfg.SwaggerPassword)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="SideQuest API Documentation"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
