package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDocument = `{
	"facility_url": "https://booking.example.com/courts/riverside",
	"sport": "badminton",
	"party_size": 2,
	"enabled": true,
	"schedule": {"tuesday": ["09:30"], "friday": ["18:00", "19:00"]}
}`

func TestValidateBookingConfig_Valid(t *testing.T) {
	assert.NoError(t, ValidateBookingConfig([]byte(validDocument)))
}

func TestValidateBookingConfig_MissingRequired(t *testing.T) {
	err := ValidateBookingConfig([]byte(`{"sport": "tennis"}`))
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Errors)
}

func TestValidateBookingConfig_PartySizeOutOfRange(t *testing.T) {
	doc := `{
		"facility_url": "https://booking.example.com/c",
		"sport": "tennis",
		"party_size": 3,
		"schedule": {"monday": ["07:00"]}
	}`
	err := ValidateBookingConfig([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "party_size")
}

func TestValidateBookingConfig_BadTimeFormat(t *testing.T) {
	doc := `{
		"facility_url": "https://booking.example.com/c",
		"sport": "tennis",
		"party_size": 1,
		"schedule": {"monday": ["7am"]}
	}`
	assert.Error(t, ValidateBookingConfig([]byte(doc)))
}

func TestValidateBookingConfig_EmptyScheduleDay(t *testing.T) {
	doc := `{
		"facility_url": "https://booking.example.com/c",
		"sport": "tennis",
		"party_size": 1,
		"schedule": {"monday": []}
	}`
	assert.Error(t, ValidateBookingConfig([]byte(doc)))
}

func TestValidateBookingConfig_UnknownWeekday(t *testing.T) {
	doc := `{
		"facility_url": "https://booking.example.com/c",
		"sport": "tennis",
		"party_size": 1,
		"schedule": {"someday": ["07:00"]}
	}`
	assert.Error(t, ValidateBookingConfig([]byte(doc)))
}

func TestValidateBookingConfig_NotJSON(t *testing.T) {
	assert.Error(t, ValidateBookingConfig([]byte("not json")))
}
