package records

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/vestige-studio/payments-bridge/internal/models"
)

// Metadata keys written at session creation and read back from the webhook.
const (
	MetaType       = "type"
	MetaUserData   = "userData"
	MetaCourseData = "courseData"
	MetaNom        = "nom"
	MetaPrenom     = "prenom"
	MetaEmail      = "email"
	MetaTarif      = "tarif"
	MetaDonateur   = "donateur"
	MetaMessage    = "message"
	MetaMontant    = "montant"
)

// Processor limits on metadata.
const (
	MaxMetadataKeys  = 50
	MaxMetadataValue = 500
)

var (
	// ErrMalformedMetadata is returned when session metadata cannot be decoded back.
	ErrMalformedMetadata = errors.New("malformed metadata")
	// ErrMetadataTooLarge is returned when metadata would be rejected by the processor.
	ErrMetadataTooLarge = errors.New("metadata too large")
)

// CourseMetadata serializes the registrant and course compactly into flat metadata.
func CourseMetadata(reg models.Registrant, course models.Course) (map[string]string, error) {
	reg.PremierCours = models.FlexString(reg.PremierCours.Or(models.Placeholder))
	user, err := json.Marshal(reg)
	if err != nil {
		return nil, fmt.Errorf("marshal registrant: %w", err)
	}
	c, err := json.Marshal(course)
	if err != nil {
		return nil, fmt.Errorf("marshal course: %w", err)
	}
	md := map[string]string{
		MetaType:       string(models.FlowCourse),
		MetaUserData:   string(user),
		MetaCourseData: string(c),
	}
	return md, CheckMetadata(md)
}

// DecodeCourseMetadata reverses CourseMetadata.
func DecodeCourseMetadata(md map[string]string) (models.Registrant, models.Course, error) {
	var reg models.Registrant
	var course models.Course
	user, ok := md[MetaUserData]
	if !ok {
		return reg, course, fmt.Errorf("%w: %s missing", ErrMalformedMetadata, MetaUserData)
	}
	if err := json.Unmarshal([]byte(user), &reg); err != nil {
		return reg, course, fmt.Errorf("%w: %s: %v", ErrMalformedMetadata, MetaUserData, err)
	}
	if raw, ok := md[MetaCourseData]; ok {
		if err := json.Unmarshal([]byte(raw), &course); err != nil {
			return reg, course, fmt.Errorf("%w: %s: %v", ErrMalformedMetadata, MetaCourseData, err)
		}
	}
	return reg, course, nil
}

// InscriptionMetadata is the flat variant: identity and price as plain keys.
func InscriptionMetadata(nom, prenom, email, tarif string) (map[string]string, error) {
	md := map[string]string{
		MetaType:   string(models.FlowCourse),
		MetaNom:    nom,
		MetaPrenom: prenom,
		MetaEmail:  email,
		MetaTarif:  tarif,
	}
	return md, CheckMetadata(md)
}

// DonationMetadata tags the intent as a donation and carries the donor fields.
func DonationMetadata(d models.Donation) (map[string]string, error) {
	md := map[string]string{
		MetaType:     string(models.FlowDonation),
		MetaDonateur: d.DonorName,
		MetaEmail:    d.DonorEmail,
		MetaMontant:  d.Amount.StringFixed(2),
	}
	if d.Message != "" {
		md[MetaMessage] = d.Message
	}
	return md, CheckMetadata(md)
}

// CheckMetadata enforces the processor's key count and value length limits.
func CheckMetadata(md map[string]string) error {
	if len(md) > MaxMetadataKeys {
		return fmt.Errorf("%w: %d keys", ErrMetadataTooLarge, len(md))
	}
	for k, v := range md {
		if n := len([]rune(v)); n > MaxMetadataValue {
			return fmt.Errorf("%w: %s is %d characters", ErrMetadataTooLarge, k, n)
		}
	}
	return nil
}
