package cli

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stockwatch/internal/domain/alert"
	"stockwatch/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type userInput struct {
	UserID string `validate:"required,uuid"`
}

// symbolInput is shared by analyze, track and untrack
type symbolInput struct {
	UserID string `validate:"required,uuid"`
	Symbol string `validate:"required,max=15"`
}

type trackInput struct {
	symbolInput
	// Threshold is a percentage; empty means the service default
	Threshold string `validate:"omitempty,numeric"`
}

type alertInput struct {
	UserID  string `validate:"required,uuid"`
	AlertID string `validate:"required,uuid"`
}

type createAlertInput struct {
	symbolInput
	Type      string `validate:"required,oneof=PRICE_DROP PRICE_SPIKE VOLATILITY VOLUME_ANOMALY"`
	Threshold string `validate:"required,numeric"`
}

// check runs struct validation and reports the first failing field as a
// ValidationError, so callers can match errors.ErrInvalidInput
func check(in interface{}) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return errors.NewValidationError(strings.ToLower(fe.Field()), "failed "+fe.Tag(), fe.Value())
	}
	return errors.Wrap(errors.ErrInvalidInput, err.Error())
}

func (in userInput) userID() uuid.UUID {
	return uuid.MustParse(in.UserID)
}

func (in symbolInput) userID() uuid.UUID {
	return uuid.MustParse(in.UserID)
}

func (in trackInput) threshold() decimal.NullDecimal {
	if in.Threshold == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.RequireFromString(in.Threshold))
}

func (in createAlertInput) alertType() alert.Type {
	return alert.Type(in.Type)
}

func (in createAlertInput) threshold() decimal.Decimal {
	return decimal.RequireFromString(in.Threshold)
}

func (in alertInput) ids() (alertID, userID uuid.UUID) {
	return uuid.MustParse(in.AlertID), uuid.MustParse(in.UserID)
}
