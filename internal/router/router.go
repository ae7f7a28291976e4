package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpy/paths"
	"github.com/psds-microservice/support-chat-service/api"
	"github.com/psds-microservice/support-chat-service/internal/auth"
	"github.com/psds-microservice/support-chat-service/internal/handler"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Deps — хендлеры и middleware, которые собирает application.
type Deps struct {
	Users    *handler.UserHandler
	Messages *handler.MessageHandler
	WS       *handler.WSHandler
	Admins   *handler.AdminHandler
	Lookup   *handler.LookupHandler
	Sessions *auth.SessionStore
}

func New(deps Deps) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET(paths.PathHealth, handler.Health)
	r.GET(paths.PathReady, handler.Ready)
	r.GET(paths.PathSwagger, func(c *gin.Context) { c.Redirect(http.StatusFound, paths.PathSwagger+"/") })
	r.GET(paths.PathSwagger+"/*any", func(c *gin.Context) {
		if strings.TrimPrefix(c.Param("any"), "/") == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if strings.TrimPrefix(c.Param("any"), "/") == "" {
			c.Request.URL.Path = paths.PathSwagger + "/index.html"
			c.Request.RequestURI = paths.PathSwagger + "/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/openapi.json"))(c)
	})

	// Прокси identity-провайдера живёт вне /api/v1 и открыт для CORS.
	lk := r.Group("/lookup", handler.CORS())
	{
		lk.GET("", deps.Lookup.MissingID)
		lk.OPTIONS("", func(c *gin.Context) {})
		lk.GET("/:id", deps.Lookup.Get)
		lk.OPTIONS("/:id", func(c *gin.Context) {})
	}

	v1 := r.Group("/api/v1")
	{
		// Публичная поверхность: статус по известному ID и чат.
		v1.GET("/users/:id", deps.Users.Get)
		v1.GET("/channels/:id/messages", deps.Messages.List)
		v1.POST("/channels/:id/messages", deps.Messages.Create)
		v1.GET("/channels/:id/ws", deps.WS.Subscribe)

		v1.POST("/auth/login", deps.Admins.Login)
		v1.POST("/auth/logout", deps.Admins.Logout)

		// Консоль оператора.
		admin := v1.Group("", auth.Middleware(deps.Sessions))
		{
			admin.POST("/users", deps.Users.Create)
			admin.GET("/users", deps.Users.List)
			admin.PUT("/users/:id", deps.Users.Update)
			admin.DELETE("/users/:id", deps.Users.Delete)
			admin.GET("/logs", deps.Admins.Logs)
		}

		// Страница супер-админа.
		super := v1.Group("/admins", auth.Middleware(deps.Sessions), auth.RequireSuper())
		{
			super.POST("", deps.Admins.Create)
			super.GET("", deps.Admins.List)
			super.DELETE("/:username", deps.Admins.Delete)
		}
	}

	return r
}
