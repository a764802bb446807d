package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckerOverallStatus(t *testing.T) {
	ctx := context.Background()
	c := NewChecker()
	assert.Equal(t, StatusHealthy, c.GetOverallStatus())

	ok := func(context.Context) error { return nil }
	bad := func(context.Context) error { return errors.New("ping timeout") }

	c.RunCheck(ctx, "a", ok)
	assert.Equal(t, StatusHealthy, c.GetOverallStatus())

	res := c.RunCheck(ctx, "b", bad)
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, "ping timeout", res.Message)
	assert.Equal(t, StatusDegraded, c.GetOverallStatus())

	c.Remove("a")
	assert.Equal(t, StatusUnhealthy, c.GetOverallStatus())

	checks := c.GetAllChecks()
	assert.Len(t, checks, 1)
	assert.Equal(t, "b", checks[0].Name)
}
