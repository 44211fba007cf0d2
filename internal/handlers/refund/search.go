package rf

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"novea_back_end/internal/services"
)

// SearchRefunds recherche plein texte dans les demandes (admin) :
// motif, motif de rejet ou statut
func SearchRefunds(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre 'q' requis"})
		return
	}

	results, err := services.SearchRefunds(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur recherche", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}

// GetEvidenceURL génère une URL signée temporaire pour consulter une pièce
// justificative (admin). Les objets MinIO ne sont jamais publics.
func GetEvidenceURL(c *gin.Context) {
	objectName := c.Query("object")
	if objectName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre 'object' requis"})
		return
	}

	url, err := services.SignedEvidenceURL(c.Request.Context(), objectName, 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération URL signée"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":        url,
		"expires_in": int((15 * time.Minute).Seconds()),
	})
}
