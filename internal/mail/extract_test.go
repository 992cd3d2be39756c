package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCode_PlainText(t *testing.T) {
	body := "Your reservation verification code is 4829. It expires in 5 minutes."
	assert.Equal(t, "4829", ExtractCode(body))
}

func TestExtractCode_HTMLBody(t *testing.T) {
	body := `<html><body><p>Hello,</p><p>Your code: <strong>5678</strong></p></body></html>`
	assert.Equal(t, "5678", ExtractCode(body))
}

func TestExtractCode_NoCode(t *testing.T) {
	assert.Equal(t, "", ExtractCode("Thanks for booking with us!"))
}

func TestExtractCode_IgnoresLongerNumbers(t *testing.T) {
	// Years, order numbers and the like must not be mistaken for codes.
	body := "Order 123456 confirmed on 2024. Code: 9013"
	assert.Equal(t, "9013", ExtractCode(body))
}

func TestExtractCode_FirstMatchInBody(t *testing.T) {
	body := "Code 1111 (previous code 2222 is void)"
	assert.Equal(t, "1111", ExtractCode(body))
}

func TestExtractCode_LabeledCodeBeatsEarlierNumbers(t *testing.T) {
	// A year before the code must not win.
	body := "Booked on 2026-08-31 at 1200 Main St. Your verification code is 7345."
	assert.Equal(t, "7345", ExtractCode(body))
}

func TestExtractCode_UnlabeledFallback(t *testing.T) {
	body := "Use 4321 to verify your reservation."
	assert.Equal(t, "4321", ExtractCode(body))
}
