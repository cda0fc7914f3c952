package identity

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipelineRecorder answers pipelines locally and keeps the commands it saw.
type pipelineRecorder struct {
	mu   sync.Mutex
	cmds [][]any
	err  error
}

func (r *pipelineRecorder) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("dial disabled in tests")
	}
}

func (r *pipelineRecorder) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return next
}

func (r *pipelineRecorder) ProcessPipelineHook(redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(_ context.Context, cmds []redis.Cmder) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		var batch []any
		for _, cmd := range cmds {
			switch cmd.Name() {
			case "incr", "expire":
				r.cmds = append(r.cmds, cmd.Args())
				batch = append(batch, cmd.Name())
			}
		}
		r.cmds = append(r.cmds, []any{"batch", len(batch)})
		return r.err
	}
}

func (r *pipelineRecorder) seen() [][]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]any(nil), r.cmds...)
}

func TestRedisLimiter_FailSetsWindowAtomically(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "recorded", err: nil},
		{name: "redis unavailable", err: errors.New("connection reset"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &pipelineRecorder{err: tt.err}
			client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
			client.AddHook(rec)
			defer client.Close()

			limiter := NewRedisLimiter(client, 5, 15*time.Minute)
			err := limiter.Fail(ctx, "ada@example.com")
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "identity: recording failure")
			} else {
				require.NoError(t, err)
			}

			// INCR and EXPIRE NX travel in a single batch.
			seen := rec.seen()
			require.Len(t, seen, 3)
			assert.Equal(t, []any{"incr", "signin:failures:ada@example.com"}, seen[0])
			expire := seen[1]
			require.Len(t, expire, 4)
			assert.Equal(t, "expire", expire[0])
			assert.Equal(t, "signin:failures:ada@example.com", expire[1])
			assert.EqualValues(t, 900, expire[2])
			assert.Equal(t, "NX", expire[3])
			assert.Equal(t, []any{"batch", 2}, seen[2])
		})
	}
}
