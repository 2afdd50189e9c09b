package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"

	"fileservices/internal/domain/events"
	"fileservices/internal/domain/files"
	"fileservices/internal/middleware"
)

// Deps are the services the router exposes.
type Deps struct {
	Files       *files.Service
	Hub         *events.Hub
	CORSOrigins []string
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Logger(),
		middleware.RequestID(),
		middleware.ErrorLogger(),
		middleware.CORS(deps.CORSOrigins),
	)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "File Services API is running"})
	})

	files.RegisterRoutes(r, files.NewHandler(deps.Files))
	if deps.Hub != nil {
		events.RegisterRoutes(r, events.NewHandler(deps.Hub))
	}

	return r
}

// Handler wraps the engine with response compression. Websocket upgrades
// bypass the gzip writer since they need to hijack the connection.
func Handler(engine http.Handler) http.Handler {
	compressed := gzhttp.GzipHandler(engine)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			engine.ServeHTTP(w, r)
			return
		}
		compressed.ServeHTTP(w, r)
	})
}
