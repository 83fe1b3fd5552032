package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/inkpress/internal/auth"
	"github.com/example/inkpress/internal/config"
	"github.com/example/inkpress/internal/service"
	"github.com/example/inkpress/internal/transport/http/handlers"
)

type Router = *gin.Engine

func NewRouter(cfg *config.Config, posts *service.PostService, accounts *service.AccountService, tokens *auth.TokenManager, denylist auth.Denylist) Router {
	if mode := gin.Mode(); mode == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), Tracing(cfg.ServiceName))

	ph := handlers.NewPostHandler(posts)
	ah := handlers.NewAccountHandler(accounts)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/register", ah.Register)
	api.POST("/login", ah.Login)
	api.GET("/posts", ph.ListPublished)
	api.GET("/posts/search", ph.Search)
	api.GET("/posts/:post", ph.Resolve)
	api.GET("/posts/:post/related", ph.Related)

	authed := api.Group("", handlers.RequireAuth(tokens, denylist))
	authed.POST("/logout", ah.Logout)
	authed.POST("/posts", ph.Create)
	authed.PUT("/posts/:post", ph.Update)
	authed.DELETE("/posts/:post", ph.Delete)
	authed.POST("/posts/:post/publish", ph.Publish)
	authed.POST("/posts/:post/unpublish", ph.Unpublish)
	authed.POST("/posts/:post/archive", ph.Archive)
	authed.GET("/me", ah.Me)
	authed.PUT("/me", ah.UpdateMe)
	authed.PUT("/me/password", ah.ChangePassword)
	authed.DELETE("/me", ah.DeleteMe)
	authed.GET("/me/posts", ph.ListMine)
	authed.GET("/me/posts/:post", ph.GetMine)

	return r
}
