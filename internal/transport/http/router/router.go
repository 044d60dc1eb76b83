package router

import (
	"orderhub/internal/models"
	"orderhub/internal/transport/http/handlers"
	"orderhub/internal/transport/http/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	HeaderWebhookSecret = "X-Webhook-Secret"
	HeaderServiceSecret = "X-Service-Secret"
)

type Deps struct {
	Verifier      middleware.TokenVerifier
	Orders        *handlers.OrderHandler
	Catalog       *handlers.CatalogHandler
	System        *handlers.SystemHandler
	WebhookSecret string
	ServiceSecret string
	AllowOrigins  []string
}

func Router(d Deps, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(log))

	origins := d.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
		AllowCredentials: len(d.AllowOrigins) > 0,
	}))

	r.GET("/health", d.System.Health)

	hooks := r.Group("/api/v1")
	hooks.POST("/payments/webhook", middleware.SharedSecret(HeaderWebhookSecret, d.WebhookSecret), d.Orders.PaymentWebhook)
	hooks.PUT("/internal/users", middleware.SharedSecret(HeaderServiceSecret, d.ServiceSecret), d.Catalog.SyncUser)

	api := r.Group("/api/v1", middleware.AuthRequired(d.Verifier, log))
	{
		api.POST("/orders", middleware.RequireRole(models.RoleCustomer, models.RoleAdmin), d.Orders.Create)
		api.GET("/orders", d.Orders.List)
		api.GET("/orders/:id", d.Orders.Get)
		api.PATCH("/orders/:id/status", d.Orders.UpdateStatus)

		sellers := api.Group("", middleware.RequireRole(models.RoleSeller, models.RoleAdmin))
		sellers.POST("/products", d.Catalog.CreateProduct)
		sellers.PATCH("/products/:id", d.Catalog.UpdateProduct)
		sellers.DELETE("/products/:id", d.Catalog.DeleteProduct)
		sellers.GET("/products/:id/stock", d.Catalog.GetStock)
		sellers.PUT("/products/:id/stock", d.Catalog.PutStock)

		api.PUT("/cart/items/:product_id", d.Catalog.PutCartItem)
		api.DELETE("/cart/items/:product_id", d.Catalog.DeleteCartItem)
		api.PUT("/wishlist/:product_id", d.Catalog.PutWishlistItem)
		api.DELETE("/wishlist/:product_id", d.Catalog.DeleteWishlistItem)

		api.GET("/realtime/stream", d.System.Stream)
		api.GET("/events/status", middleware.RequireRole(models.RoleAdmin), d.System.EventsStatus)
	}

	return r
}
