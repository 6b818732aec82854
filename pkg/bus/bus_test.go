package bus_test

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gherkindog/gherkindog/pkg/bus"
	"github.com/gherkindog/gherkindog/pkg/event"
)

type recordingListener struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recordingListener) OnEvent(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestSequentialBus_DeliversInRegistrationOrder(t *testing.T) {
	var order []string
	a := event.ListenerFunc(func(e event.Event) { order = append(order, "a") })
	b := event.ListenerFunc(func(e event.Event) { order = append(order, "b") })

	sb := bus.New(false, nil, []event.Listener{a, b})
	sb.Send(event.Event{Kind: event.RunStarted})

	require.Equal(t, []string{"a", "b"}, order)
}

func TestConcurrentBus_NoInterleaving(t *testing.T) {
	rec := &recordingListener{}
	var inFlight, maxInFlight int32
	guard := event.ListenerFunc(func(e event.Event) {
		n := atomic.AddInt32(&inFlight, 1)
		if n > atomic.LoadInt32(&maxInFlight) {
			atomic.StoreInt32(&maxInFlight, n)
		}
		time.Sleep(time.Microsecond)
		atomic.AddInt32(&inFlight, -1)
	})
	cb := bus.New(true, nil, []event.Listener{guard, rec})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			cb.Send(event.Event{Kind: event.StepStarted, Time: time.Now()})
		}(i)
	}
	wg.Wait()

	require.Len(t, rec.events, 50)
	require.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight), "listener callbacks of distinct events overlapped")
}

func TestConcurrentBus_PerScenarioOrderPreserved(t *testing.T) {
	rec := &recordingListener{}
	cb := bus.New(true, nil, []event.Listener{rec})

	var wg sync.WaitGroup
	for s := 0; s < 5; s++ {
		wg.Add(1)
		go func(scenario int) {
			defer wg.Done()
			for step := 0; step < 10; step++ {
				cb.Send(event.Event{Kind: event.StepStarted, URI: strconv.Itoa(scenario), NumCukes: step})
			}
		}(s)
	}
	wg.Wait()

	perScenario := map[string][]int{}
	for _, e := range rec.events {
		perScenario[e.URI] = append(perScenario[e.URI], e.NumCukes)
	}
	for _, steps := range perScenario {
		for i, v := range steps {
			require.Equal(t, i, v)
		}
	}
}

func TestBuiltinsRegisteredFirst(t *testing.T) {
	var order []string
	builtin := event.ListenerFunc(func(e event.Event) { order = append(order, "builtin") })
	user := event.ListenerFunc(func(e event.Event) { order = append(order, "user") })

	b := bus.New(false, []event.Listener{builtin}, []event.Listener{user})
	b.Send(event.Event{Kind: event.RunStarted})

	require.Equal(t, []string{"builtin", "user"}, order)
}

