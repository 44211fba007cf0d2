package services

import (
	"context"
	"net/url"
	"os"
	"time"

	"novea_back_end/internal/database"
)

// SignedEvidenceURL génère une URL de consultation temporaire pour une pièce
// justificative. Les objets ne sont jamais servis en accès public : les
// admins consultent via URL signée à durée limitée.
func SignedEvidenceURL(ctx context.Context, objectName string, duration time.Duration) (string, error) {
	reqParams := make(url.Values)

	presignedURL, err := database.MinIO.PresignedGetObject(
		ctx,
		os.Getenv("MINIO_BUCKET"),
		objectName,
		duration,
		reqParams,
	)
	if err != nil {
		return "", err
	}

	return presignedURL.String(), nil
}
