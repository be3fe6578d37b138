package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inner struct {
	Mode  string `mapstructure:"mode" validate:"oneof=VIRTUAL IN_PERSON"`
	Slots int    `mapstructure:"slot_minutes" validate:"gt=0"`
}

type outer struct {
	Name  string `mapstructure:"name" validate:"required"`
	Zone  string `mapstructure:"zone" validate:"upper"`
	Inner inner  `mapstructure:"inner"`
}

func upper(s string) bool { return s == strings.ToUpper(s) }

func TestValidateReportsConfigKeys(t *testing.T) {
	v, err := New(WithRule("upper", upper))
	require.NoError(t, err)

	err = v.Validate(outer{Zone: "est", Inner: inner{Mode: "PHONE"}})
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "name is required")
	assert.Contains(t, msg, `zone failed "upper" check, got est`)
	assert.Contains(t, msg, "inner.mode must be one of [VIRTUAL IN_PERSON], got PHONE")
	assert.Contains(t, msg, "inner.slot_minutes must be gt 0, got 0")

	assert.NoError(t, v.Validate(&outer{Name: "stage", Zone: "EST", Inner: inner{Mode: "VIRTUAL", Slots: 30}}))
}

func TestValidateField(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	assert.NoError(t, v.ValidateField("mailbox", "qa@example.com", "omitempty", "email"))
	err = v.ValidateField("mailbox", "not-an-address", "email")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "mailbox "), err.Error())
}
