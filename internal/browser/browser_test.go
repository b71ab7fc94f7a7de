package browser

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/assert"

	"github.com/spigell/quickapply/internal/driver"
)

func TestTranslate(t *testing.T) {
	assert.ErrorIs(t, translate(&rod.ElementNotFoundError{}), driver.ErrElementNotFound)
	assert.ErrorIs(t, translate(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)), driver.ErrTimedOut)

	other := errors.New("target closed")
	assert.Equal(t, other, translate(other))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	cfg.defaults()
	assert.Equal(t, defaultTimeout, cfg.Timeout)
	assert.Equal(t, defaultNavTimeout, cfg.NavigationTimeout)

	cfg = Config{Timeout: time.Second}
	cfg.defaults()
	assert.Equal(t, time.Second, cfg.Timeout)
}

func TestUnwrapRejectsForeignElements(t *testing.T) {
	_, err := unwrap(foreign{})
	assert.ErrorContains(t, err, "foreign element")
}

type foreign struct{}

func (foreign) Selector() string { return "//x" }
