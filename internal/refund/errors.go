package refund

import "errors"

// Erreurs terminales du cycle de vie de remboursement. Aucune n'est
// transitoire : on ne retente jamais automatiquement côté serveur.
var (
	// Commande ou demande inconnue
	ErrNotFound = errors.New("introuvable")
	// Entrée invalide : motif vide, motif de rejet manquant, action inconnue
	ErrValidation = errors.New("données invalides")
	// Décision rejouée sur une demande déjà tranchée
	ErrConflict = errors.New("demande déjà traitée")
	// Une demande est déjà en attente pour cette commande
	ErrAlreadyPending = errors.New("une demande de remboursement est déjà en attente")
	// La commande a déjà été remboursée, plus aucune demande possible
	ErrAlreadyRefunded = errors.New("commande déjà remboursée")
	// Trois rejets atteints : blocage définitif, aucun déblocage n'existe
	ErrLimitReached = errors.New("limite de demandes de remboursement atteinte")
	// Pièces justificatives invalides (nombre > 3 ou type non supporté)
	ErrAttachment = errors.New("pièces justificatives invalides")
)
