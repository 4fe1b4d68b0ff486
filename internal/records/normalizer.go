// Package records turns confirmed payments into the flat rows the spreadsheet expects.
package records

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/vestige-studio/payments-bridge/internal/models"
)

// ErrNoFlow is returned for a record missing its "type" discriminator.
var ErrNoFlow = errors.New("record has no flow discriminator")

// Summary is the human-readable recap stored in the "recapitulatif" column.
type Summary struct {
	Style      string      `json:"Style"`
	Date       string      `json:"Date"`
	Horaire    string      `json:"Horaire"`
	Professeur string      `json:"Professeur"`
	Niveau     string      `json:"Niveau"`
	Tarif      json.Number `json:"Tarif"`
}

// NewSummary builds the recap for a course.
func NewSummary(c models.Course) Summary {
	return Summary{
		Style:      c.Style,
		Date:       c.Date,
		Horaire:    c.Time,
		Professeur: c.Teacher,
		Niveau:     c.Level,
		Tarif:      json.Number(c.Price.String()),
	}
}

// Normalize maps a classified event to its record.
func Normalize(ev models.PaymentEvent) (models.Record, error) {
	switch ev.Flow {
	case models.FlowDonation:
		return Donation(ev)
	case models.FlowCourse:
		return Course(ev)
	default:
		return nil, fmt.Errorf("%w: %q", ErrNoFlow, ev.Flow)
	}
}

// Course builds the record for a paid course. Sessions created with nested
// userData/courseData get the full recap; flat inscriptions carry the price only.
func Course(ev models.PaymentEvent) (models.Record, error) {
	if _, nested := ev.Metadata[MetaUserData]; nested {
		reg, course, err := DecodeCourseMetadata(ev.Metadata)
		if err != nil {
			return nil, err
		}
		if reg.Email == "" {
			reg.Email = ev.CustomerEmail
		}
		rec, err := courseRecord(reg, course)
		if err != nil {
			return nil, err
		}
		setIf(rec, models.KeyReference, ev.SessionID)
		return rec, nil
	}

	nom, ok := ev.Metadata[MetaNom]
	if !ok {
		return nil, fmt.Errorf("%w: neither %s nor %s present", ErrMalformedMetadata, MetaUserData, MetaNom)
	}
	tarif := ev.Metadata[MetaTarif]
	if tarif == "" && ev.AmountCents > 0 {
		tarif = FromCents(ev.AmountCents)
	}
	rec := models.Record{
		models.KeyType:           string(models.FlowCourse),
		models.KeyNom:            nom,
		models.KeyPrenom:         ev.Metadata[MetaPrenom],
		models.KeyEmail:          firstNonEmpty(ev.Metadata[MetaEmail], ev.CustomerEmail),
		models.KeyTarif:          tarif,
		models.KeyPremierCours:   models.Placeholder,
		models.KeyStatutPaiement: models.StatusConfirmed,
	}
	setIf(rec, models.KeyReference, ev.SessionID)
	return rec, nil
}

// Donation builds the record for a completed donation.
func Donation(ev models.PaymentEvent) (models.Record, error) {
	montant := FromCents(ev.AmountCents)
	if ev.AmountCents == 0 && ev.Metadata[MetaMontant] != "" {
		montant = ev.Metadata[MetaMontant]
	}
	rec := models.Record{
		models.KeyType:     string(models.FlowDonation),
		models.KeyMontant:  montant,
		models.KeyDonateur: firstNonEmpty(ev.Metadata[MetaDonateur], ev.CustomerName),
		models.KeyEmail:    firstNonEmpty(ev.Metadata[MetaEmail], ev.CustomerEmail),
		models.KeyMessage:  firstNonEmpty(ev.Metadata[MetaMessage], models.Placeholder),
	}
	setIf(rec, models.KeyReference, ev.SessionID)
	return rec, nil
}

// FreeRegistration builds the record for a registration that skips payment.
func FreeRegistration(reg models.Registrant, course models.Course) (models.Record, error) {
	rec, err := courseRecord(reg, course)
	if err != nil {
		return nil, err
	}
	rec[models.KeyStatutPaiement] = models.StatusFree
	return rec, nil
}

// Validate checks the invariants a record must hold before forwarding.
func Validate(rec models.Record) error {
	switch rec.Flow() {
	case models.FlowCourse, models.FlowDonation:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrNoFlow, rec[models.KeyType])
	}
}

func courseRecord(reg models.Registrant, course models.Course) (models.Record, error) {
	recap, err := json.Marshal(NewSummary(course))
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	return models.Record{
		models.KeyType:          string(models.FlowCourse),
		models.KeyNom:           reg.Nom,
		models.KeyPrenom:        reg.Prenom,
		models.KeyAge:           reg.Age.String(),
		models.KeyEmail:         reg.Email,
		models.KeyTelephone:     reg.Telephone,
		models.KeyVille:         reg.Ville,
		models.KeyPremierCours:  reg.PremierCours.Or(models.Placeholder),
		models.KeyRecapitulatif: string(recap),
	}, nil
}

func setIf(rec models.Record, key, value string) {
	if value != "" {
		rec[key] = value
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
