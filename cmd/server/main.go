package main

import (
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"novea_back_end/internal/cache"
	"novea_back_end/internal/config"
	"novea_back_end/internal/database"
	rf "novea_back_end/internal/handlers/refund"
	"novea_back_end/internal/refund"
	"novea_back_end/internal/routes"
	"novea_back_end/internal/services"
	"novea_back_end/internal/store"
)

func main() {
	config.Load()

	database.ConnectDatabases()
	defer database.CloseScylla()

	// Cœur du remboursement : commandes (avec cache Redis), ledger Scylla,
	// pièces MinIO, clés d'idempotence Redis, index de recherche Elastic
	orders := cache.NewOrderCache(database.Redis, store.NewScyllaOrderStore())
	ledger := store.NewScyllaRefundLedger()
	svc := refund.NewService(
		orders,
		ledger,
		services.NewEvidenceStore(),
		cache.NewRedisIdempotency(database.Redis),
		services.NewRefundIndexer(),
	)
	rf.Init(svc)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{os.Getenv("FRONTEND_URL")},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
	}))
	routes.RegisterRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Println("🚀 Serveur Novea lancé sur le port", port)
	r.Run(":" + port)
}
