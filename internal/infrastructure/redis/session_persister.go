package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nextstep/nextstep-bff/internal/session"
)

// SessionPersister stores a session snapshot at nextstep-auth:<sid>. The TTL
// slides forward on every read and write so active sessions never expire.
type SessionPersister struct {
	rdb *goredis.Client
	key string
	ttl time.Duration
}

func NewSessionPersister(c *Client, sid string, ttl time.Duration) *SessionPersister {
	return &SessionPersister{
		rdb: c.Raw(),
		key: SessionKey(sid),
		ttl: ttl,
	}
}

func SessionKey(sid string) string {
	return session.EntryName + ":" + sid
}

// Factory adapts the client into a session.PersisterFactory.
func Factory(c *Client, ttl time.Duration) session.PersisterFactory {
	return func(sid string) session.Persister {
		return NewSessionPersister(c, sid, ttl)
	}
}

func (p *SessionPersister) Load(ctx context.Context) ([]byte, error) {
	if p.rdb == nil {
		return nil, errors.New("redis session persister not configured")
	}

	var get *goredis.StringCmd
	_, err := p.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		get = pipe.Get(ctx, p.key)
		pipe.PExpire(ctx, p.key, p.ttl)
		return nil
	})
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b, err := get.Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	return b, err
}

func (p *SessionPersister) Save(ctx context.Context, data []byte) error {
	if p.rdb == nil {
		return errors.New("redis session persister not configured")
	}
	return p.rdb.Set(ctx, p.key, data, p.ttl).Err()
}

func (p *SessionPersister) Clear(ctx context.Context) error {
	if p.rdb == nil {
		return errors.New("redis session persister not configured")
	}
	return p.rdb.Del(ctx, p.key).Err()
}
