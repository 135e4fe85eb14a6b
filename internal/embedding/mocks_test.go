package embedding

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// fakeService embeds "tN" as the vector {N}. fail, when set, decides per call
// whether to return an error instead.
type fakeService struct {
	mu      sync.Mutex
	calls   int
	sizes   []int
	fail    func(call int, texts []string) error
	short   bool
	delayFn func(texts []string) time.Duration
}

func (f *fakeService) Embed(ctx context.Context, text string) ([]float32, error) {
	vs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (f *fakeService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.sizes = append(f.sizes, len(texts))
	f.mu.Unlock()

	if f.delayFn != nil {
		time.Sleep(f.delayFn(texts))
	}
	if f.fail != nil {
		if err := f.fail(call, texts); err != nil {
			return nil, err
		}
	}

	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		n, _ := strconv.Atoi(t[1:])
		out = append(out, []float32{float32(n)})
	}
	if f.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (f *fakeService) Dimensions() int              { return 1 }
func (f *fakeService) ModelName() string            { return "fake" }
func (f *fakeService) Ping(_ context.Context) error { return nil }
func (f *fakeService) Close() error                 { return nil }

func (f *fakeService) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeClock records requested sleeps without waiting.
type fakeClock struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.delays = append(c.delays, d)
	c.mu.Unlock()
	return ctx.Err()
}

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "t" + strconv.Itoa(i)
	}
	return out
}
