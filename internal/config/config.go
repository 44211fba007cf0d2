package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Frais de port appliqués quand la commande n'en précise pas.
// Surchargeable via DEFAULT_SHIPPING_FEE, jamais recopié en dur ailleurs.
const fallbackShippingFee int64 = 30000

func Load() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé — on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}
}

// DefaultShippingFee retourne les frais de port par défaut (en unité mineure)
func DefaultShippingFee() int64 {
	if v := os.Getenv("DEFAULT_SHIPPING_FEE"); v != "" {
		fee, err := strconv.ParseInt(v, 10, 64)
		if err == nil && fee >= 0 {
			return fee
		}
		log.Printf("⚠️ DEFAULT_SHIPPING_FEE invalide (%q), utilisation de la valeur par défaut", v)
	}
	return fallbackShippingFee
}
