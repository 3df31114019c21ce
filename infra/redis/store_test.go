package redis

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/roamnet/core/factory"
	"github.com/kilianp07/roamnet/core/ledger"
	"github.com/kilianp07/roamnet/core/model"
)

func TestNewClient_EmptyAddr(t *testing.T) {
	_, err := NewClient(Config{Addr: "  "})
	require.Error(t, err)
}

func TestFactory_RegistersRedis(t *testing.T) {
	_, err := ledger.NewCDRStore(factory.ModuleConfig{Type: "redis", Conf: map[string]any{"addr": ""}})
	require.Error(t, err, "empty addr must fail before dialing")
}

func startRedis(t *testing.T) Config {
	t.Helper()
	if testing.Short() {
		t.Skip("short mode")
	}
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("failed to start container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })
	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return Config{Addr: fmt.Sprintf("%s:%s", host, port.Port()), Prefix: "test:cdr:"}
}

func TestCDRStore_Integration(t *testing.T) {
	cfg := startRedis(t)
	store, err := Open(cfg)
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	cdr := model.ChargeDetailRecord{
		ID: "c1", SessionID: "s1", Target: model.EVSE("DE*GEF", "1"),
		ProviderID: "DE*EMP", EnergyKWh: 4.2, Start: time.Now().UTC().Truncate(time.Second),
	}
	replaced, err := store.Put(ctx, cdr)
	require.NoError(t, err)
	assert.False(t, replaced)

	cdr.EnergyKWh = 5
	replaced, err = store.Put(ctx, cdr)
	require.NoError(t, err)
	assert.True(t, replaced)

	got, ok, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5.0, got.EnergyKWh)
	assert.Equal(t, cdr.Target, got.Target)

	_, ok, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, store.Delete(ctx, "s1"))
	n, err = store.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCDRStore_ConcurrentPutsReplaceOnce(t *testing.T) {
	cfg := startRedis(t)
	cfg.Prefix = "test:concurrent:"
	store, err := Open(cfg)
	require.NoError(t, err)
	defer store.Close()

	var wg sync.WaitGroup
	var mu sync.Mutex
	fresh := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			replaced, err := store.Put(context.Background(), model.ChargeDetailRecord{SessionID: "same"})
			if err == nil && !replaced {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, fresh, "exactly one writer sees an empty slot")
}
