package routes

import (
	"net/http"

	"bvstock/controllers"
	"bvstock/middleware"
	"bvstock/models"

	"github.com/gin-gonic/gin"
)

func InitializeRoutes(router *gin.Engine, ctl *controllers.Controller) error {
	if err := controllers.RegisterValidators(); err != nil {
		return err
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/login", ctl.Login)
		auth.POST("/logout", ctl.Logout)
		auth.GET("/me", middleware.AuthMiddleware(), ctl.Me)
	}

	api.GET("/catalog", ctl.ListCatalog)
	api.GET("/catalog/:name", ctl.GetCatalogEntry)

	stock := api.Group("/stock")
	stock.Use(middleware.OptionalAuth())
	{
		stock.POST("", ctl.CreateStock)
		stock.GET("", ctl.ListStock)
		stock.POST("/restock", ctl.Restock)
		stock.GET("/:id", ctl.GetStock)
		stock.PUT("/:id", ctl.UpdateStock)
		stock.DELETE("/:id", ctl.DeleteStock)
		stock.PUT("/:id/photo", ctl.UploadStockPhoto)
	}

	distributors := api.Group("/distributors")
	{
		distributors.POST("", ctl.CreateDistributor)
		distributors.GET("", ctl.ListDistributors)
		distributors.GET("/:id", ctl.GetDistributor)
		distributors.PUT("/:id", ctl.UpdateDistributor)
		distributors.DELETE("/:id", ctl.DeleteDistributor)
	}

	sales := api.Group("/sales")
	{
		sales.POST("", ctl.CreateSale)
		sales.GET("", ctl.ListSales)
		sales.PUT("/:id", ctl.UpdateSale)
		sales.DELETE("/:id", ctl.DeleteSale)
	}

	reports := api.Group("/reports")
	reports.Use(middleware.AuthMiddleware(models.RoleAdmin))
	{
		reports.GET("/summary", ctl.Summary)
		reports.GET("/low-stock", ctl.LowStock)
		reports.GET("/sales.xlsx", ctl.ExportSales)
	}

	users := api.Group("/users")
	users.Use(middleware.AuthMiddleware(models.RoleAdmin))
	{
		users.GET("", ctl.ListUsers)
		users.POST("", ctl.CreateUser)
	}

	return nil
}
