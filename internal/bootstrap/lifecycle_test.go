package bootstrap

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stockwatch/internal/adapters/config"
	"stockwatch/internal/workers"
	"stockwatch/pkg/kvstore"
	"stockwatch/pkg/logger"
)

func TestLifecycle_WaitForGoroutines(t *testing.T) {
	l := NewLifecycle()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
	}()

	start := time.Now()
	l.waitForGoroutines(&wg, time.Second, logger.Nop())
	assert.Less(t, time.Since(start), time.Second)

	wg.Add(1) // never done
	start = time.Now()
	l.waitForGoroutines(&wg, 20*time.Millisecond, logger.Nop())
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestShutdown_PartiallyInitialized(t *testing.T) {
	c := NewContainer()
	c.Log = logger.Nop()
	c.KV = kvstore.NewMemory()
	c.Background.WorkerScheduler = workers.NewScheduler()

	assert.NotPanics(t, c.Shutdown)
	assert.Error(t, c.Context.Err())
}

func TestShutdown_BeforeConfig(t *testing.T) {
	c := NewContainer()
	assert.NotPanics(t, c.Shutdown)
	assert.Error(t, c.Context.Err())
}

func TestProvideKV_Memory(t *testing.T) {
	c := NewContainer()
	c.Log = logger.Nop()
	c.Config = &config.Config{Store: config.StoreConfig{Backend: config.StoreMemory}}

	kv, err := c.provideKV(c.Context)
	assert.NoError(t, err)
	assert.IsType(t, &kvstore.Memory{}, kv)
	assert.Nil(t, c.Redis)
	assert.Nil(t, c.Badger)
}

func TestProvideNotifier_LogFallback(t *testing.T) {
	n, err := provideNotifier(config.TelegramConfig{}, logger.Nop())
	assert.NoError(t, err)
	assert.Equal(t, "log", n.Name())
}
