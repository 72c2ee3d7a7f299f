// Package api serves the shopping list and meal plan over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-box/internal/planner"
)

// Deps are the collaborators the router needs.
type Deps struct {
	Planner   *planner.Orchestrator
	Metrics   http.Handler
	DataPaths []string
	Logger    *zap.Logger
	Debug     bool
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if !d.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(Logger(d.Logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	h := &handler{planner: d.Planner, dataPaths: d.DataPaths, logger: d.Logger}

	router.GET("/health", h.health)
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics))
	}

	list := router.Group("/shopping-list")
	{
		list.GET("", h.shoppingList)
		list.GET("/export", h.exportList)
		list.POST("/items", h.addItem)
		list.POST("/items/:id/toggle", h.toggleItem)
		list.DELETE("/items/:id", h.deleteItem)
		list.POST("/clear-checked", h.clearChecked)
	}

	plan := router.Group("/meal-plan")
	{
		plan.GET("", h.mealPlan)
		plan.DELETE("", h.clearPlan)
		plan.POST("/recipes/:id", h.addRecipe)
		plan.DELETE("/recipes/:id", h.removeRecipe)
	}

	router.POST("/retry", h.retry)
	router.DELETE("/error", h.clearError)

	return router
}
