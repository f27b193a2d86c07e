package rate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"telemetry-hub/src/models"
)

func newTestController() *Controller {
	return NewController(50*time.Millisecond, 10*time.Millisecond, 1000*time.Millisecond)
}

// -----------------------------------------------------------------------------

func TestControllerDefaults(t *testing.T) {
	c := newTestController()

	assert.Equal(t, 50*time.Millisecond, c.Get(models.KindPrice))
	assert.Equal(t, 50*time.Millisecond, c.Get(models.KindTrade))
	assert.Equal(t, 50*time.Millisecond, c.Get(models.KindFrame))
}

func TestControllerSetIsPerClass(t *testing.T) {
	c := newTestController()

	applied := c.Set(models.KindPrice, 100*time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, applied)
	assert.Equal(t, 100*time.Millisecond, c.Get(models.KindPrice))
	assert.Equal(t, 50*time.Millisecond, c.Get(models.KindTrade))
}

func TestControllerSetAll(t *testing.T) {
	c := newTestController()
	c.Set(models.KindBook, 300*time.Millisecond)

	c.SetAll(20 * time.Millisecond)
	for _, kind := range []models.StreamKind{models.KindPrice, models.KindTrade, models.KindBook, models.KindSystem, models.KindFrame} {
		assert.Equal(t, 20*time.Millisecond, c.Get(kind), "class %s", kind)
	}
}

// -----------------------------------------------------------------------------

func TestControllerClampsInsteadOfRejecting(t *testing.T) {
	c := newTestController()

	applied := c.Set(models.KindPrice, time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, applied)
	assert.Equal(t, 10*time.Millisecond, c.Get(models.KindPrice))

	applied = c.Set(models.KindPrice, time.Hour)
	assert.Equal(t, 1000*time.Millisecond, applied)

	applied = c.SetAll(-5 * time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, applied)
}

func TestControllerBounds(t *testing.T) {
	c := newTestController()
	min, max := c.Bounds()
	assert.Equal(t, 10*time.Millisecond, min)
	assert.Equal(t, time.Second, max)
}

// -----------------------------------------------------------------------------

// Concurrent writers and readers must always observe some valid clamped
// value, never a torn or out-of-range one.
func TestControllerConcurrentAccess(t *testing.T) {
	c := newTestController()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.SetAll(time.Duration(n*j) * time.Millisecond)
			}
		}(i)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				d := c.Get(models.KindPrice)
				assert.GreaterOrEqual(t, d, 10*time.Millisecond)
				assert.LessOrEqual(t, d, time.Second)
			}
		}()
	}
	wg.Wait()
}
