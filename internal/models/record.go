package models

// Record is the flat key/value row handed to the spreadsheet endpoint.
type Record map[string]string

// Record keys recognised by the spreadsheet script.
const (
	KeyType           = "type"
	KeyReference      = "reference"
	KeyNom            = "nom"
	KeyPrenom         = "prenom"
	KeyAge            = "age"
	KeyEmail          = "email"
	KeyTelephone      = "telephone"
	KeyVille          = "ville"
	KeyPremierCours   = "premier_cours"
	KeyRecapitulatif  = "recapitulatif"
	KeyTarif          = "tarif"
	KeyStatutPaiement = "statut_paiement"
	KeyMontant        = "montant"
	KeyDonateur       = "donateur"
	KeyMessage        = "message"
)

// Placeholder fills optional columns that were not provided.
const Placeholder = "Non"

// Payment status labels.
const (
	StatusConfirmed = "Confirmé"
	StatusFree      = "Gratuit"
)

// Flow returns the record's discriminator.
func (r Record) Flow() Flow {
	return Flow(r[KeyType])
}
