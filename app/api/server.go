package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates the HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	// Set Gin mode (can be controlled via GIN_MODE environment variable)
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Middleware
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	// Health and status endpoints
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	// Outbound syndication: per-feed deduplicated view and bookmarks
	r.GET("/feeds/:id/rss", handler.GetFeedRSS)
	r.GET("/bookmarks.rss", handler.GetBookmarksFeed)

	// API endpoints (conditionally enabled with authentication)
	if apiAccessKey != "" {
		api := r.Group("/api")
		api.Use(authMiddleware(apiAccessKey))
		{
			api.POST("/feeds", handler.APICreateFeed)
			api.GET("/feeds", handler.APIListFeeds)
			api.GET("/feeds/:id", handler.APIGetFeedDetails)
			api.DELETE("/feeds/:id", handler.APIDeleteFeed)
			api.POST("/feeds/:id/pause", handler.APIPauseFeed)
			api.POST("/feeds/:id/resume", handler.APIResumeFeed)
			api.POST("/feeds/:id/refresh", handler.APIRefreshFeed)
			api.GET("/feeds/:id/items", handler.APIGetFeedItems)

			api.POST("/refresh", handler.APIRefreshAll)

			api.GET("/items", handler.APIGetItems)
			api.GET("/items/unread", handler.APIGetUnreadItems)
			api.GET("/items/bookmarks", handler.APIGetBookmarkedItems)
			api.GET("/search", handler.APISearchItems)

			api.POST("/items/:fingerprint/read", handler.APIMarkRead)
			api.DELETE("/items/:fingerprint/read", handler.APIMarkUnread)
			api.POST("/items/:fingerprint/bookmark", handler.APIBookmark)
			api.DELETE("/items/:fingerprint/bookmark", handler.APIUnbookmark)

			api.POST("/maintenance/dedupe", handler.APIDeduplicate)
			api.GET("/export/opml", handler.APIExportOPML)
		}
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Info("API endpoints disabled (API_ACCESS_KEY not set)")
	}

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"health":    "/health",
			"stats":     "/stats",
			"feed_rss":  "/feeds/<id>/rss",
			"bookmarks": "/bookmarks.rss",
		}

		if apiAccessKey != "" {
			endpoints["feeds"] = "/api/feeds (requires X-API-Key header)"
			endpoints["items"] = "/api/items (requires X-API-Key header)"
			endpoints["search"] = "/api/search?q=<query> (requires X-API-Key header)"
			endpoints["refresh"] = "/api/refresh (POST, requires X-API-Key header)"
			endpoints["opml"] = "/api/export/opml (requires X-API-Key header)"
		}

		c.JSON(200, gin.H{
			"service":     "FeedVault",
			"version":     handler.version,
			"description": "Deduplicating feed aggregator with full-text search",
			"endpoints":   endpoints,
			"api_status": map[string]interface{}{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware creates authentication middleware for API endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get API key from X-API-Key header
		providedKey := c.GetHeader("X-API-Key")

		// Also check Authorization header with Bearer prefix
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
