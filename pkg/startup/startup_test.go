package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStartup(maxAttempts int) (*Startup, *[]time.Duration) {
	s := NewStartup(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}), maxAttempts)
	var waits []time.Duration
	s.wait = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return s, &waits
}

func recorder(journal *[]string, name string) Dependency {
	return Dependency{
		Name:    name,
		OnStart: func(context.Context) error { *journal = append(*journal, "start "+name); return nil },
		OnStop:  func(context.Context) error { *journal = append(*journal, "stop "+name); return nil },
	}
}

func TestStart_DependencyOrder(t *testing.T) {
	s, _ := newTestStartup(1)
	var journal []string

	server := recorder(&journal, "api")
	server.Needs = []string{"postgres", "redis"}
	migrate := recorder(&journal, "migrations")
	migrate.Needs = []string{"postgres"}

	s.AddDependency(server)
	s.AddDependency(migrate)
	s.AddDependency(recorder(&journal, "postgres"))
	s.AddDependency(recorder(&journal, "redis"))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start postgres", "start redis", "start api", "start migrations"}, journal)

	journal = nil
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop migrations", "stop api", "stop redis", "stop postgres"}, journal)
	assert.Equal(t, StartupStatusStopped, s.Status("postgres"))
}

func TestStart_RetriesWithBackoff(t *testing.T) {
	s, waits := newTestStartup(4)
	calls := 0
	s.AddDependency(Dependency{Name: "postgres", OnStart: func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, *waits)
	assert.Equal(t, StartupStatusStarted, s.Status("postgres"))
}

func TestStart_GivesUp(t *testing.T) {
	s, waits := newTestStartup(3)
	boom := errors.New("connection refused")
	s.AddDependency(Dependency{Name: "redis", OnStart: func(context.Context) error { return boom }})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, *waits, 2)
	assert.Equal(t, StartupStatusFailed, s.Status("redis"))
}

func TestStart_UnknownAndCyclicDependencies(t *testing.T) {
	s, _ := newTestStartup(1)
	s.AddDependency(Dependency{Name: "api", Needs: []string{"postgres"}})
	assert.ErrorContains(t, s.Start(context.Background()), "unknown dependency 'postgres'")

	s, _ = newTestStartup(1)
	s.AddDependency(Dependency{Name: "a", Needs: []string{"b"}})
	s.AddDependency(Dependency{Name: "b", Needs: []string{"a"}})
	assert.ErrorContains(t, s.Start(context.Background()), "dependency cycle")
}

func TestStop_ContinuesPastFailures(t *testing.T) {
	s, _ := newTestStartup(1)
	var journal []string
	broken := recorder(&journal, "kafka")
	broken.OnStop = func(context.Context) error { return errors.New("flush failed") }
	s.AddDependency(broken)
	s.AddDependency(recorder(&journal, "redis"))

	require.NoError(t, s.Start(context.Background()))
	journal = nil

	err := s.Stop(context.Background())
	assert.ErrorContains(t, err, "stopping kafka: flush failed")
	assert.Equal(t, []string{"stop redis"}, journal)
	assert.Equal(t, StartupStatusStopped, s.Status("redis"))
}
