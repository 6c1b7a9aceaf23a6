// README: HTTP route registration.
package http

import (
	"github.com/gin-gonic/gin"

	"yoake/internal/http/handlers"
	"yoake/internal/http/middleware"
)

func registerRoutes(api *gin.RouterGroup, deps ServerDeps) {
	catalogHandler := handlers.NewCatalogHandler(deps.Catalog)
	api.GET("/products", catalogHandler.Products)
	api.GET("/customers/:id", catalogHandler.Customer)

	settingsHandler := handlers.NewSettingsHandler(deps.Settings)
	api.GET("/settings", settingsHandler.Get)
	api.PUT("/settings", middleware.RequireRole(middleware.RoleAdmin), settingsHandler.Update)

	deliveryHandler := handlers.NewDeliveryHandler(deps.Pricing)
	api.POST("/geo/extract", deliveryHandler.Extract)
	api.POST("/delivery/quote", deliveryHandler.Quote)

	cartHandler := handlers.NewCartHandler(deps.Carts)
	api.GET("/carts/:terminal", cartHandler.Get)
	api.POST("/carts/:terminal/items", cartHandler.Add)
	api.PATCH("/carts/:terminal/items/:product", cartHandler.SetQuantity)
	api.DELETE("/carts/:terminal", cartHandler.Clear)
	api.POST("/carts/:terminal/submit", cartHandler.Submit)

	orderHandler := handlers.NewOrderHandler(deps.Orders)
	api.POST("/orders", orderHandler.Create)
	api.GET("/orders", orderHandler.List)
	api.GET("/orders/:id", orderHandler.Get)
	api.GET("/orders/:id/events", orderHandler.Events)
	api.PATCH("/orders/:id/status", orderHandler.UpdateStatus)
	api.POST("/orders/:id/advance", orderHandler.Advance)
	api.POST("/orders/:id/dispatch", orderHandler.Dispatch)
	api.POST("/orders/:id/deliver", orderHandler.Deliver)
	api.POST("/orders/:id/pay", orderHandler.Pay)
	api.POST("/orders/:id/cancel", orderHandler.Cancel)
	api.POST("/orders/:id/items", orderHandler.AddItems)

	tableHandler := handlers.NewTableHandler(deps.Tables)
	api.GET("/tables", tableHandler.List)
	api.POST("/tables", tableHandler.Create)
	api.GET("/tables/:id", tableHandler.Get)
	api.PATCH("/tables/:id/open", tableHandler.Open)
	api.PATCH("/tables/:id/close", tableHandler.Close)
	api.PATCH("/tables/:id/reserve", tableHandler.Reserve)
	api.PATCH("/tables/:id/bill", tableHandler.RequestBill)

	registerHandler := handlers.NewRegisterHandler(deps.Registers)
	api.GET("/cash-register/status", registerHandler.Status)
	api.POST("/cash-register/open", registerHandler.Open)
	api.POST("/cash-register/close", registerHandler.Close)
	api.GET("/cash-register/history", registerHandler.History)

	boardHandler := handlers.NewBoardHandler(deps.Boards)
	api.GET("/boards/:bucket/stream", boardHandler.Stream)
}
