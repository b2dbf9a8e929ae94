package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// Valkey is a Cache backed by a Valkey (or Redis) server.
type Valkey struct {
	client valkey.Client
}

var _ Cache = (*Valkey)(nil)

// NewValkey connects to addr and verifies the connection with PING.
func NewValkey(ctx context.Context, addr string) (*Valkey, error) {
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, fmt.Errorf("valkey: connect %s: %w", addr, err)
	}
	v := &Valkey{client: client}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := v.Ping(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey: ping: %w", err)
	}
	return v, nil
}

func (v *Valkey) Get(ctx context.Context, key string) (string, error) {
	res, err := v.client.Do(ctx, v.client.B().Get().Key(key).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return "", ErrMiss
	}
	if err != nil {
		return "", err
	}
	return res, nil
}

func (v *Valkey) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl > 0 {
		secs := int64(ttl / time.Second)
		if secs < 1 {
			secs = 1
		}
		return v.client.Do(ctx, v.client.B().Set().Key(key).Value(value).ExSeconds(secs).Build()).Error()
	}
	return v.client.Do(ctx, v.client.B().Set().Key(key).Value(value).Build()).Error()
}

func (v *Valkey) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return v.client.Do(ctx, v.client.B().Del().Key(keys...).Build()).AsInt64()
}

func (v *Valkey) Ping(ctx context.Context) error {
	return v.client.Do(ctx, v.client.B().Ping().Build()).Error()
}

func (v *Valkey) Close() error {
	v.client.Close()
	return nil
}
