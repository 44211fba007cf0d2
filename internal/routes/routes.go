package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	rf "novea_back_end/internal/handlers/refund"
	"novea_back_end/internal/middleware"
)

func RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Espace client : commandes et remboursements de l'utilisateur connecté
	orders := api.Group("/orders", middleware.AuthRequired(), middleware.APIRateLimit())
	{
		orders.GET("/:orderId/summary", rf.GetOrderSummary)
		orders.GET("/:orderId/refund-status", rf.GetRefundStatus)
		orders.GET("/:orderId/refunds", rf.ListRefundHistory)
		orders.POST("/:orderId/refund", middleware.SubmitRefundRateLimit(), rf.SubmitRefund)
	}

	api.GET("/refunds", middleware.AuthRequired(), middleware.APIRateLimit(), rf.GetMyRefunds)

	// Espace admin : décision, vues transverses, recherche, pièces
	admin := api.Group("/admin/refunds", middleware.AuthRequired(), middleware.RequireAdmin)
	{
		admin.GET("", rf.GetAllRefunds)
		admin.GET("/search", rf.SearchRefunds)
		admin.GET("/evidence", rf.GetEvidenceURL)
		admin.POST("/:refundId/decide", rf.DecideRefund)
	}
}
