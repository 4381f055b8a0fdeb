package progress

import (
	"sync"
	"testing"

	kitlog "github.com/go-kit/log"
	"github.com/stretchr/testify/require"
)

func TestHandleFlushAccumulatesIntoReporter(t *testing.T) {
	r := New(kitlog.NewNopLogger(), "test-phase", 1000)
	h := r.Handle()

	for i := 0; i < 50; i++ {
		h.Report(1)
	}
	h.Flush()

	require.Equal(t, uint64(50), r.Count())
}

func TestConcurrentHandlesSumCorrectly(t *testing.T) {
	r := New(kitlog.NewNopLogger(), "test-phase", 100000)

	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := r.Handle()
			for i := 0; i < 1000; i++ {
				h.Report(1)
			}
			h.Flush()
		}()
	}
	wg.Wait()

	require.Equal(t, uint64(10000), r.Count())
}
