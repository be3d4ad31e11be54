package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// InitRoutes binds every register endpoint on the given Gin engine.
func InitRoutes(e *gin.Engine, h *posHandler) {
	e.GET("/cart", h.handleGetCart)
	e.POST("/cart/items", h.handleAddCartItem)
	e.PATCH("/cart/items/:id", h.handleUpdateCartItem)
	e.DELETE("/cart/items/:id", h.handleRemoveCartItem)
	e.DELETE("/cart", h.handleClearCart)

	e.POST("/checkout", h.handleCheckout)

	e.GET("/products", h.handleListProducts)
	e.DELETE("/products/:id", h.handleDeleteProduct)

	e.GET("/sync/status", h.handleSyncStatus)
	e.POST("/sync", h.handleSyncNow)

	e.POST("/connectivity", h.handleConnectivity)

	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
}
