package preflight

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckNoEgress_PassesWhenRunTouchesNothing(t *testing.T) {
	c := New()
	result := c.CheckNoEgress(func(ctx context.Context) {
		// a representative local-only operation: nothing to dial.
	})

	assert.Equal(t, StatusPass, result.Status)
}

func TestCheckNoEgress_FailsWhenRunDialsOut(t *testing.T) {
	c := New()
	result := c.CheckNoEgress(func(ctx context.Context) {
		client := &http.Client{Timeout: 200 * time.Millisecond}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://203.0.113.1:81/", nil)
		if err != nil {
			return
		}
		resp, _ := client.Do(req)
		if resp != nil {
			resp.Body.Close()
		}
	})

	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Details, "203.0.113.1:81")
}
