package browser

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFillFieldsJS_QuotesValues(t *testing.T) {
	script := fmt.Sprintf(fillFieldsJS, `Jane "JD" Doe`, "010-1234-5678", "jane@example.com")
	assert.Contains(t, script, `"Jane \"JD\" Doe"`)
	assert.Contains(t, script, `"010-1234-5678"`)
	assert.Contains(t, script, `"jane@example.com"`)
	assert.Contains(t, script, "dispatchEvent(new Event('input'")
	assert.Contains(t, script, "dispatchEvent(new Event('change'")
}

func TestMergeContext_CallerCancelPropagates(t *testing.T) {
	session := context.Background()
	caller, callerCancel := context.WithCancel(context.Background())

	merged, cancel := mergeContext(session, caller)
	defer cancel()

	callerCancel()

	select {
	case <-merged.Done():
	case <-time.After(time.Second):
		t.Fatal("merged context not cancelled after caller cancel")
	}
}

func TestMergeContext_SessionCancelPropagates(t *testing.T) {
	session, sessionCancel := context.WithCancel(context.Background())
	defer sessionCancel()

	merged, cancel := mergeContext(session, context.Background())
	defer cancel()

	sessionCancel()

	select {
	case <-merged.Done():
	case <-time.After(time.Second):
		t.Fatal("merged context not cancelled after session cancel")
	}
}
