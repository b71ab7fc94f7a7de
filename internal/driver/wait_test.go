package driver_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/quickapply/internal/driver"
	"github.com/spigell/quickapply/internal/driver/drivertest"
)

func TestWaitUntilPresent(t *testing.T) {
	page := drivertest.New()
	page.Set("//h1", &drivertest.Node{Text: "hello"})

	el, err := driver.WaitUntil(context.Background(), page, driver.Present("//h1"), time.Second, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "//h1", el.Selector())
}

func TestWaitUntilTimesOut(t *testing.T) {
	page := drivertest.New()

	_, err := driver.WaitUntil(context.Background(), page, driver.Present("//h1"), 5*time.Millisecond, time.Millisecond)
	assert.ErrorIs(t, err, driver.ErrTimedOut)
	assert.True(t, driver.IsAbsent(err))
}

func TestWaitUntilStopsOnDriverError(t *testing.T) {
	page := drivertest.New()
	boom := errors.New("session lost")
	page.Errors["//h1"] = boom

	_, err := driver.WaitUntil(context.Background(), page, driver.Present("//h1"), time.Second, time.Millisecond)
	assert.ErrorIs(t, err, boom)
}

func TestClickableIgnoresDisabled(t *testing.T) {
	page := drivertest.New()
	page.Set("//button", &drivertest.Node{Disabled: true})

	_, err := driver.WaitUntil(context.Background(), page, driver.Clickable("//button"), 5*time.Millisecond, time.Millisecond)
	assert.ErrorIs(t, err, driver.ErrTimedOut)

	page.Nodes["//button"][0].Disabled = false
	_, err = driver.WaitUntil(context.Background(), page, driver.Clickable("//button"), time.Second, time.Millisecond)
	assert.NoError(t, err)
}

func TestURLContains(t *testing.T) {
	page := drivertest.New()
	page.URL = "https://example.com/feed/"

	_, err := driver.WaitUntil(context.Background(), page, driver.URLContains("/feed"), time.Second, time.Millisecond)
	assert.NoError(t, err)
}

func TestFirstPresentAndTextOr(t *testing.T) {
	page := drivertest.New()
	card := &drivertest.Node{}
	card.Child("//span", &drivertest.Node{Text: "  Acme  "})
	page.Set("//b", &drivertest.Node{Text: "second"})
	page.Set("//card", card)

	el, err := driver.FirstPresent(context.Background(), page, "//a", "//b")
	require.NoError(t, err)
	assert.Equal(t, "//b", el.Selector())

	_, err = driver.FirstPresent(context.Background(), page, "//x")
	assert.ErrorIs(t, err, driver.ErrElementNotFound)

	assert.Equal(t, "Acme", driver.TextOr(context.Background(), page, card, "//span", "Unknown"))
	assert.Equal(t, "Unknown", driver.TextOr(context.Background(), page, card, "//missing", "Unknown"))
}
