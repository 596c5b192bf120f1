package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/jmgilman/go/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader produces the value for a key on a cache miss.
type Loader[K comparable, V any] func(ctx context.Context, key K) (V, error)

// GetOrLoad returns the live value for key, or calls load and stores its
// result with the default TTL. Concurrent misses for the same key share a
// single load call. Nothing is stored when load fails; the returned error
// wraps the loader's error, keeps its code if it carries one and is coded
// EXECUTION_FAILED otherwise.
//
// The load runs under ctx with cancellation removed, so one caller giving
// up does not fail the others sharing the call. Each caller still returns
// as soon as its own ctx is done; the load then completes in the background
// and stores its result.
//
// Example:
//
//	body, err := c.GetOrLoad(ctx, url, func(ctx context.Context, url string) ([]byte, error) {
//	    return download(ctx, url)
//	})
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, load Loader[K, V]) (V, error) {
	var zero V

	if v, ok := c.lookup(key); ok {
		c.metrics.Hit()
		return v, nil
	}
	c.metrics.Miss()

	id, release := c.loads.acquire(key)
	loadCtx := context.WithoutCancel(ctx)
	ch := c.loads.group.DoChan(id, func() (any, error) {
		// A previous flight may have filled the key while this one was queued.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		v, err := load(loadCtx, key)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
		release()
	case <-ctx.Done():
		// Keep the flight id reserved until the load finishes so equal keys
		// arriving meanwhile still join it.
		go func() {
			<-ch
			release()
		}()
		err := errors.Wrap(ctx.Err(), errors.CodeTimeout, "gave up waiting for cache load")
		return zero, errors.WithContext(err, "key", fmt.Sprint(key))
	}

	if res.Err != nil {
		code := errors.CodeExecutionFailed
		var platformErr errors.PlatformError
		if errors.As(res.Err, &platformErr) {
			code = platformErr.Code()
		}
		err := errors.Wrap(res.Err, code, "cache load failed")
		return zero, errors.WithContext(err, "key", fmt.Sprint(key))
	}
	if res.Shared {
		c.logger.Debug("shared cache load", zap.Any("key", key))
	}

	// A nil interface value does not survive the any round trip as V.
	v, _ := res.Val.(V)
	return v, nil
}

// flights assigns singleflight ids by key identity. Keys are compared
// with ==, so distinct pointers never share a load even when they point
// to equal values.
type flights[K comparable] struct {
	mu    sync.Mutex
	next  uint64
	ids   map[K]*flightID
	group singleflight.Group
}

type flightID struct {
	id   string
	refs int
}

// acquire returns the id for key and a func that must be called once the
// caller no longer needs it. An id lives while at least one caller holds it.
func (f *flights[K]) acquire(key K) (string, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fid, ok := f.ids[key]
	if !ok {
		if f.ids == nil {
			f.ids = make(map[K]*flightID)
		}
		f.next++
		fid = &flightID{id: strconv.FormatUint(f.next, 10)}
		f.ids[key] = fid
	}
	fid.refs++

	return fid.id, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		fid.refs--
		if fid.refs == 0 {
			delete(f.ids, key)
		}
	}
}
