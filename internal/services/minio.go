package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"

	"novea_back_end/internal/database"
	"novea_back_end/internal/refund"
)

// Types d'images acceptés comme pièce justificative
var allowedEvidenceTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// EvidenceStore range les pièces justificatives de remboursement dans MinIO
// et rend des noms d'objets stables, référencés par le ledger.
type EvidenceStore struct {
	Client *minio.Client
	Bucket string
}

func NewEvidenceStore() *EvidenceStore {
	return &EvidenceStore{
		Client: database.MinIO,
		Bucket: os.Getenv("MINIO_BUCKET"),
	}
}

// Store téléverse les pièces d'une demande. Si un téléversement échoue, les
// objets déjà écrits sont supprimés : tout ou rien vu de l'appelant.
func (e *EvidenceStore) Store(ctx context.Context, orderID gocql.UUID, attachments []refund.Attachment) ([]string, error) {
	if e.Client == nil {
		return nil, fmt.Errorf("%w: MinIO non initialisé", refund.ErrAttachment)
	}

	refs := make([]string, 0, len(attachments))
	for i, att := range attachments {
		if !allowedEvidenceTypes[att.ContentType] {
			e.Remove(ctx, refs)
			return nil, fmt.Errorf("%w: type %q non supporté pour %s", refund.ErrAttachment, att.ContentType, att.FileName)
		}

		objectName := fmt.Sprintf("refunds/%s/%d_%d%s",
			orderID.String(), i, time.Now().Unix(), strings.ToLower(filepath.Ext(att.FileName)))

		_, err := e.Client.PutObject(ctx, e.Bucket, objectName, att.Content, att.Size,
			minio.PutObjectOptions{ContentType: att.ContentType})
		if err != nil {
			log.Printf("❌ Erreur upload pièce justificative %s: %v", objectName, err)
			e.Remove(ctx, refs)
			return nil, fmt.Errorf("%w: échec téléversement de %s", refund.ErrAttachment, att.FileName)
		}
		refs = append(refs, objectName)
	}

	log.Printf("📎 %d pièce(s) justificative(s) stockée(s) pour la commande %s", len(refs), orderID)
	return refs, nil
}

// Remove supprime des objets déjà stockés (compensation après échec)
func (e *EvidenceStore) Remove(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if err := e.Client.RemoveObject(ctx, e.Bucket, ref, minio.RemoveObjectOptions{}); err != nil {
			log.Printf("⚠️ Erreur suppression pièce %s: %v", ref, err)
		}
	}
}
