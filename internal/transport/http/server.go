package http

import (
	"github.com/gin-gonic/gin"

	"syllabo/internal/bootstrap"
	"syllabo/internal/transport/http/handler"
	"syllabo/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	svcs := app.Services
	authHandler := handler.NewAuthHandler(svcs.Auth)
	deckHandler := handler.NewDeckHandler(svcs.Decks, svcs.Ingests)
	queryHandler := handler.NewQueryHandler(svcs.Queries)
	teachHandler := handler.NewTeachHandler(svcs.Teaching)
	practiceHandler := handler.NewPracticeHandler(svcs.Practices)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	decks := v1.Group("/decks")
	decks.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	decks.POST("", deckHandler.Create)
	decks.GET("", deckHandler.List)
	decks.GET("/:id", deckHandler.Get)
	decks.DELETE("/:id", deckHandler.Delete)
	decks.GET("/:id/coverage", deckHandler.Coverage)
	decks.POST("/:id/upload", deckHandler.Upload)
	decks.GET("/:id/ingestion", deckHandler.Files)
	decks.POST("/:id/ask", queryHandler.Ask)
	decks.GET("/:id/queries", queryHandler.History)
	decks.POST("/:id/chat", teachHandler.Turn)
	decks.POST("/:id/practice", practiceHandler.Generate)
	decks.POST("/:id/teach/start", teachHandler.Start)
	decks.GET("/:id/teach/progress", teachHandler.Progress)
	decks.GET("/:id/session", teachHandler.Session)
	decks.DELETE("/:id/session", teachHandler.EndSession)

	return router
}
