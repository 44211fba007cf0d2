package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"novea_back_end/internal/database"
	"novea_back_end/internal/models"
)

const refundIndex = "refunds"

// RefundIndexer pousse les demandes de remboursement dans Elasticsearch pour
// la recherche plein texte côté admin. Meilleur effort : une indexation
// ratée est tracée, jamais remontée à l'appelant.
type RefundIndexer struct{}

func NewRefundIndexer() *RefundIndexer {
	return &RefundIndexer{}
}

// IndexRefund indexe (ou réindexe après décision) une demande
func (ri *RefundIndexer) IndexRefund(req models.RefundRequest) {
	if database.Elastic == nil {
		log.Println("⚠️ Elastic non initialisé, impossible d'indexer la demande", req.ID)
		return
	}

	data, _ := json.Marshal(req)
	esReq := esapi.IndexRequest{
		Index:      refundIndex,
		DocumentID: req.ID.String(),
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}

	res, err := esReq.Do(context.Background(), database.Elastic)
	if err != nil {
		log.Println("❌ Erreur envoi Elastic:", err)
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Printf("⚠️ Elastic a renvoyé une erreur pour la demande %s: %s", req.ID, res.String())
	} else {
		log.Printf("✅ Demande indexée dans Elasticsearch: %s", req.ID)
	}
}

// SearchRefunds cherche dans les demandes par motif, motif de rejet ou statut
func SearchRefunds(query string) ([]map[string]interface{}, error) {
	if database.Elastic == nil {
		return nil, errors.New("client Elasticsearch non initialisé")
	}

	var buf bytes.Buffer
	q := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"reason", "reject_reason", "status"},
			},
		},
	}

	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %v", err)
	}

	req := esapi.SearchRequest{
		Index: []string{refundIndex},
		Body:  &buf,
	}
	res, err := req.Do(context.Background(), database.Elastic)
	if err != nil {
		return nil, fmt.Errorf("erreur requête Elastic: %v", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		json.NewDecoder(res.Body).Decode(&e)
		log.Printf("❌ Elasticsearch erreur: %+v", e)
		return nil, errors.New("index non trouvé ou vide")
	}

	var r map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("erreur décodage JSON: %v", err)
	}

	hitsData, ok := r["hits"].(map[string]interface{})
	if !ok {
		return nil, errors.New("réponse Elastic invalide (pas de hits)")
	}

	hitsArray, ok := hitsData["hits"].([]interface{})
	if !ok {
		return nil, errors.New("aucun résultat trouvé")
	}

	results := make([]map[string]interface{}, 0, len(hitsArray))
	for _, hit := range hitsArray {
		hitMap, _ := hit.(map[string]interface{})
		if source, ok := hitMap["_source"].(map[string]interface{}); ok {
			results = append(results, source)
		}
	}

	return results, nil
}
