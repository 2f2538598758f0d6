package ui

import (
	"context"
	"log"
	"net/http"

	"xceldash/ai"
	"xceldash/app"
	"xceldash/internal/ingest"

	"github.com/gin-gonic/gin"
)

// Server is the public JSON API
type Server struct {
	router *gin.Engine
	http   *http.Server
}

// Dependencies bundles everything the handlers need
type Dependencies struct {
	Registry  *app.RegistryService
	Catalog   *app.CatalogService
	Resolver  *app.FunctionResolver
	Planner   *app.CombinationPlanner
	Processor *ingest.Processor
	Analyst   *ai.FileAnalyst
}

// NewServer creates the API server and registers all routes
func NewServer(port string, ginMode string, deps Dependencies) *Server {
	gin.SetMode(ginMode)

	router := gin.Default()
	router.MaxMultipartMemory = 32 << 20

	s := &Server{
		router: router,
		http:   &http.Server{Addr: ":" + port, Handler: router},
	}
	s.registerRoutes(deps)
	return s
}

func (s *Server) registerRoutes(deps Dependencies) {
	files := NewFileHandler(deps.Registry, deps.Processor, deps.Analyst)
	widgets := NewWidgetHandler(deps.Catalog, deps.Resolver)
	combine := NewCombineHandler(deps.Planner)

	api := s.router.Group("/api")
	{
		api.POST("/files", files.HandleUpload())
		api.GET("/files", files.HandleList())
		api.GET("/files/:id", files.HandleGet())
		api.POST("/ai/analyze-file/:id", files.HandleAnalyze())

		api.GET("/files/:id/function-options", widgets.HandleFunctionOptions())
		api.GET("/files/:id/widgets", widgets.HandleListByFile())
		api.POST("/widgets", widgets.HandleCreateManual())
		api.POST("/widgets/ai", widgets.HandleCreateFromAI())
		api.PATCH("/widgets/:id", widgets.HandleUpdate())
		api.DELETE("/widgets/:id", widgets.HandleDelete())
		api.POST("/widget-selection/save", widgets.HandleSaveSelection())

		api.POST("/combine-files/preview", combine.HandlePreview())
		api.POST("/combine-files/regenerate", combine.HandleRegenerate())
		api.POST("/combine-files/confirm", combine.HandleConfirm())
	}

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	log.Printf("[API] Listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Router exposes the gin engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}
