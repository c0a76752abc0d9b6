package router

import (
	"karmafeed/internal/config"
	"karmafeed/internal/handlers"
	"karmafeed/internal/middleware"
	"karmafeed/internal/models"
	"karmafeed/internal/services"
	"karmafeed/internal/session"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const sessionName = "karmafeed_session"

// Deps is everything the HTTP layer needs. Tokens is nil when Redis is not configured.
type Deps struct {
	DB       *gorm.DB
	Services *services.Services
	Tokens   *session.TokenStore
	Server   config.ServerConfig
	Log      zerolog.Logger
}

// NewRouter creates and configures the Gin router
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery(d.Log))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Log))
	r.Use(middleware.CORS(d.Server.CORSOrigin))

	store := cookie.NewStore([]byte(d.Server.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 30 * 24 * 3600, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))

	var (
		resolver middleware.TokenResolver
		issuer   handlers.TokenIssuer
	)
	if d.Tokens != nil {
		resolver, issuer = d.Tokens, d.Tokens
	}
	r.Use(middleware.LoadUser(d.Services.Users, resolver))

	RegisterRoutes(r, d, issuer)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps, tokens handlers.TokenIssuer) {
	healthHandler := handlers.NewHealthHandler(d.DB)
	authHandler := handlers.NewAuthHandler(d.Services.Users, tokens, d.Log)
	postHandler := handlers.NewPostHandler(d.Services, d.Log)
	likeHandler := handlers.NewLikeHandler(d.Services, d.Log)
	leaderboardHandler := handlers.NewLeaderboardHandler(d.Services, d.Log)
	userHandler := handlers.NewUserHandler(d.Services, d.Log)

	r.GET("/health", healthHandler.Check)

	api := r.Group("/api")
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/logout", authHandler.Logout)

		api.GET("/posts", postHandler.List)
		api.GET("/posts/:id", postHandler.Detail)
		api.GET("/comments", postHandler.ListComments)
		api.GET("/leaderboard", leaderboardHandler.Top)
		api.GET("/users/:id", userHandler.Profile)
	}

	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/auth/me", authHandler.Me)

		authorized.POST("/posts", postHandler.Create)
		authorized.DELETE("/posts/:id", postHandler.Delete)
		authorized.POST("/posts/:id/comments", postHandler.CreateComment)
		authorized.PATCH("/comments/:id", postHandler.UpdateComment)
		authorized.DELETE("/comments/:id", postHandler.DeleteComment)

		authorized.POST("/posts/:id/like", likeHandler.Like(string(models.TargetPost)))
		authorized.DELETE("/posts/:id/like", likeHandler.Unlike(string(models.TargetPost)))
		authorized.POST("/comments/:id/like", likeHandler.Like(string(models.TargetComment)))
		authorized.DELETE("/comments/:id/like", likeHandler.Unlike(string(models.TargetComment)))
	}
}
