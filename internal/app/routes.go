package app

import (
	_ "github.com/birlikkoshan/todos-api/docs"
	"github.com/birlikkoshan/todos-api/internal/config"
	"github.com/birlikkoshan/todos-api/internal/handlers"
	"github.com/birlikkoshan/todos-api/internal/metrics"
	"github.com/birlikkoshan/todos-api/internal/repo"
	"github.com/birlikkoshan/todos-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
)

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, log logrus.FieldLogger, store repo.Store, rec handlers.ActivityRecorder, m *metrics.Metrics) {
	r.GET("/health", healthHandler(cfg))
	r.GET("/version", versionHandler(cfg))
	r.GET("/metrics", gin.WrapH(m.Handler()))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(302, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))

	api := r.Group("", handlers.JSONContentType())
	api.GET("/", handlers.Root)

	todoSvc := service.NewTodoService(store, cfg.Store.IOTimeout.Duration())
	todoHandler := handlers.NewTodoHandler(todoSvc, rec, log.WithField("component", "todos"))
	registerTodoRoutes(api, todoHandler)

	r.NoRoute(handlers.JSONContentType(), handlers.NoRoute)
	r.NoMethod(handlers.JSONContentType(), handlers.MethodNotAllowed)
}

func healthHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true, "env": cfg.App.Env, "store": cfg.Store.Driver})
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"version": cfg.App.Version})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		c.Data(200, "application/json; charset=utf-8", []byte(doc))
	}
}

func registerTodoRoutes(api *gin.RouterGroup, h *handlers.TodoHandler) {
	api.GET("/todos", h.List)
	api.POST("/todos", h.Create)
	api.GET("/todos/:id", h.GetByID)
	api.PUT("/todos/:id", h.Update)
	api.DELETE("/todos/:id", h.Delete)
}
