package models

import (
	"github.com/shopspring/decimal"
)

// Registrant is the person enrolling in a course. Field names follow the
// spreadsheet columns so the JSON survives the trip through session metadata.
type Registrant struct {
	Nom          string     `json:"nom" binding:"required"`
	Prenom       string     `json:"prenom"`
	Age          FlexString `json:"age"`
	Email        string     `json:"email" binding:"required,email"`
	Telephone    string     `json:"telephone"`
	Ville        string     `json:"ville"`
	PremierCours FlexString `json:"premier_cours"`
}

// Course describes the class being booked.
type Course struct {
	Style   string          `json:"style" binding:"required"`
	Date    string          `json:"date" binding:"required"`
	Time    string          `json:"time"`
	Teacher string          `json:"teacher"`
	Level   string          `json:"level"`
	Price   decimal.Decimal `json:"price" binding:"money"`
}

// Donation describes a one-off gift.
type Donation struct {
	Amount     decimal.Decimal `json:"amount" binding:"money"`
	DonorName  string          `json:"donateur" binding:"required"`
	DonorEmail string          `json:"email" binding:"required,email"`
	Message    string          `json:"message"`
}
