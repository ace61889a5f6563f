package server

import (
	"net/http"
	"strings"
	"time"

	"anoa.com/socialfeed/internal/config"
	"anoa.com/socialfeed/internal/middleware"
	"anoa.com/socialfeed/pkg/events"
	"anoa.com/socialfeed/pkg/metrics"
	"anoa.com/socialfeed/pkg/ratelimiter"
	"anoa.com/socialfeed/pkg/storage"

	engagementHttp "anoa.com/socialfeed/internal/modules/engagement/delivery/http"
	engagementRepo "anoa.com/socialfeed/internal/modules/engagement/repository"
	engagementService "anoa.com/socialfeed/internal/modules/engagement/service"

	feedHttp "anoa.com/socialfeed/internal/modules/feed/delivery/http"
	feedRepo "anoa.com/socialfeed/internal/modules/feed/repository"
	feedService "anoa.com/socialfeed/internal/modules/feed/service"

	notiHttp "anoa.com/socialfeed/internal/modules/notification/delivery/http"
	notifRepo "anoa.com/socialfeed/internal/modules/notification/repository"
	notifService "anoa.com/socialfeed/internal/modules/notification/service"

	postHttp "anoa.com/socialfeed/internal/modules/post/delivery/http"
	postRepo "anoa.com/socialfeed/internal/modules/post/repository"
	postService "anoa.com/socialfeed/internal/modules/post/service"

	userHttp "anoa.com/socialfeed/internal/modules/user/delivery/http"
	userRepo "anoa.com/socialfeed/internal/modules/user/repository"
	userService "anoa.com/socialfeed/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Dependencies are the external resources the HTTP server is built on.
// Redis, MediaStorage and Publisher are optional.
type Dependencies struct {
	DB           *gorm.DB
	Redis        *redis.Client
	MediaStorage storage.MediaStorage
	Publisher    events.Publisher
}

type Server struct {
	engine *gin.Engine
	deps   Dependencies
}

func NewServer(cfg *config.Config, deps Dependencies) *Server {
	db := deps.DB
	if deps.Publisher == nil {
		deps.Publisher = events.Nop{}
	}

	userRepo := userRepo.NewUserRepository(db)
	userSvc := userService.NewUserService(userRepo, deps.MediaStorage, cfg.JWTSecret, cfg.JWTLifetime)
	userHandler := userHttp.NewUserHandler(userSvc)

	notificationRepository := notifRepo.NewNotificationRepository(db)
	notificationSvc := notifService.NewNotificationService(notificationRepository, userRepo, deps.Redis)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc)

	postRepo := postRepo.NewPostRepository(db)
	limiter := ratelimiter.New(deps.Redis)
	postSvc := postService.NewPostService(postRepo, userRepo, notificationSvc, deps.MediaStorage, limiter, deps.Publisher, postService.Limits{
		Global: cfg.RateLimitGlobal,
		Post:   cfg.RateLimitPost,
	})
	postHandler := postHttp.NewPostHandler(postSvc)

	engagementRepo := engagementRepo.NewEngagementRepository(db)
	engagementSvc := engagementService.NewEngagementService(engagementRepo, postRepo, notificationSvc, deps.Publisher)
	engagementHandler := engagementHttp.NewEngagementHandler(engagementSvc)

	feedRepo := feedRepo.NewFeedRepository(db)
	feedSvc := feedService.NewFeedService(feedRepo, userRepo, cfg.FeedPageSize)
	feedHandler := feedHttp.NewFeedHandler(feedSvc)

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(metrics.GinMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	authMiddleware := middleware.NewAuthMiddleware(userRepo, cfg.JWTSecret)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", userHandler.Register)
		auth.POST("/login", userHandler.Login)
	}

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.GET("/users", userHandler.ListUsers)
			adminGroup.DELETE("/posts/:post_id", postHandler.DeletePost)
		}

		// Post routes
		protected.POST("/posts", postHandler.CreatePost)
		protected.GET("/posts/:post_id", postHandler.GetPost)
		protected.DELETE("/posts/:post_id", postHandler.DeletePost)
		protected.POST("/posts/:post_id/comments", postHandler.CreateComment)
		protected.GET("/posts/:post_id/comments", postHandler.GetComments)

		// Engagement routes
		protected.POST("/posts/:post_id/like", engagementHandler.Like)
		protected.DELETE("/posts/:post_id/like", engagementHandler.Unlike)
		protected.POST("/posts/:post_id/repost", engagementHandler.Repost)
		protected.DELETE("/posts/:post_id/repost", engagementHandler.Unrepost)

		// Feed routes
		protected.GET("/feed", feedHandler.GetGlobalFeed)

		// Profile routes
		protected.GET("/profile/me", userHandler.GetMe)
		protected.GET("/profile/:username", userHandler.GetProfile)
		protected.GET("/profile/:username/activity", feedHandler.GetProfileActivity)
		protected.PUT("/profile", userHandler.UpdateProfile)
		protected.GET("/users/suggested", userHandler.GetSuggested)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.GetUnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
	}

	return &Server{
		engine: router,
		deps:   deps,
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	for _, origin := range strings.Split(allowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
