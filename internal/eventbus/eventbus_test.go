package eventbus

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type started struct{ name string }
type finished struct{ name string }

func TestEmitRoutesByType(t *testing.T) {
	b := New()
	var got []string
	On(b, func(_ context.Context, e started) { got = append(got, "start:"+e.name) })
	On(b, func(_ context.Context, e finished) { got = append(got, "finish:"+e.name) })
	On(b, func(_ context.Context, e started) { got = append(got, "start2:"+e.name) })

	Emit(context.Background(), b, started{"a"})
	Emit(context.Background(), b, finished{"a"})

	require.Equal(t, []string{"start:a", "start2:a", "finish:a"}, got)
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	var calls int
	h := func(context.Context, started) { calls++ }
	first := On(b, h)
	On(b, h)

	first()
	first()
	Emit(context.Background(), b, started{})
	require.Equal(t, 1, calls, "only the second registration remains")
}

func TestNilBusDrops(t *testing.T) {
	require.NotPanics(t, func() { Emit(context.Background(), nil, started{}) })
}

func TestGlobalBus(t *testing.T) {
	t.Cleanup(func() { Use(nil) })

	Use(nil)
	unsubscribe := Subscribe(func(context.Context, started) { t.Fatal("no bus, no delivery") })
	Publish(context.Background(), started{})
	unsubscribe()

	Use(New())
	var mu sync.Mutex
	var names []string
	Subscribe(func(_ context.Context, e started) {
		mu.Lock()
		defer mu.Unlock()
		names = append(names, e.name)
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Publish(context.Background(), started{"x"})
		}()
	}
	wg.Wait()
	require.Len(t, names, 8)
}
