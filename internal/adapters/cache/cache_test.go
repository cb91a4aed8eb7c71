package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
)

type volume struct {
	ID    string `json:"id"`
	Pages int    `json:"pages"`
}

func TestMemoryMaxTTL(t *testing.T) {
	convey.Convey("Given a memory cache with a short max ttl", t, func() {
		ctx := context.Background()
		c := NewMemory(WithMaxTTL(20 * time.Millisecond))
		convey.So(c.Set(ctx, "k", 1, time.Hour), convey.ShouldBeNil)

		convey.Convey("Then long-lived values are still dropped at the ceiling", func() {
			time.Sleep(60 * time.Millisecond)
			var v int
			ok, err := c.Get(ctx, "k", &v)
			convey.So(err, convey.ShouldBeNil)
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}

func TestMemory(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a memory cache with a controllable clock", t, func() {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		c := NewMemory(WithClock(func() time.Time { return now }), WithMaxEntries(2))

		convey.Convey("A stored value round-trips", func() {
			convey.So(c.Set(ctx, "v", volume{ID: "abc", Pages: 320}, time.Minute), convey.ShouldBeNil)
			var got volume
			ok, err := c.Get(ctx, "v", &got)
			convey.So(err, convey.ShouldBeNil)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(got, convey.ShouldResemble, volume{ID: "abc", Pages: 320})
		})

		convey.Convey("A missing key is a miss", func() {
			var got volume
			ok, err := c.Get(ctx, "nope", &got)
			convey.So(err, convey.ShouldBeNil)
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("Values expire after their ttl", func() {
			convey.So(c.Set(ctx, "color", "rgb(1, 2, 3)", time.Minute), convey.ShouldBeNil)
			now = now.Add(time.Minute)
			var got string
			ok, _ := c.Get(ctx, "color", &got)
			convey.So(ok, convey.ShouldBeFalse)
			convey.So(c.Len(), convey.ShouldEqual, 0)
		})

		convey.Convey("A zero ttl never expires", func() {
			convey.So(c.Set(ctx, "k", 1, 0), convey.ShouldBeNil)
			now = now.Add(24 * time.Hour)
			var got int
			ok, _ := c.Get(ctx, "k", &got)
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("A full cache evicts the least recently used value", func() {
			_ = c.Set(ctx, "a", 1, 0)
			_ = c.Set(ctx, "b", 2, 0)
			var v int
			ok, _ := c.Get(ctx, "a", &v)
			convey.So(ok, convey.ShouldBeTrue)
			_ = c.Set(ctx, "c", 3, 0)

			ok, _ = c.Get(ctx, "b", &v)
			convey.So(ok, convey.ShouldBeFalse)
			ok, _ = c.Get(ctx, "a", &v)
			convey.So(ok, convey.ShouldBeTrue)
			ok, _ = c.Get(ctx, "c", &v)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(c.Len(), convey.ShouldEqual, 2)
		})

		convey.Convey("Close empties the cache", func() {
			_ = c.Set(ctx, "k", 1, 0)
			convey.So(c.Close(), convey.ShouldBeNil)
			convey.So(c.Len(), convey.ShouldEqual, 0)
		})

		convey.Convey("Delete removes a value", func() {
			_ = c.Set(ctx, "k", 1, 0)
			convey.So(c.Delete(ctx, "k"), convey.ShouldBeNil)
			var v int
			ok, _ := c.Get(ctx, "k", &v)
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("Decoding into the wrong type fails", func() {
			_ = c.Set(ctx, "k", "text", 0)
			var v int
			_, err := c.Get(ctx, "k", &v)
			convey.So(errors.Is(err, ErrCache), convey.ShouldBeTrue)
		})

		convey.Convey("Unencodable values are rejected", func() {
			err := c.Set(ctx, "ch", make(chan int), 0)
			convey.So(errors.Is(err, ErrCache), convey.ShouldBeTrue)
		})
	})
}

func TestRedisUnreachable(t *testing.T) {
	convey.Convey("Given a redis cache pointing at a closed port", t, func() {
		r := NewRedis(RedisConfig{Addr: "127.0.0.1:1"})
		defer func() { _ = r.Close() }()
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		convey.Convey("Ping reports a cache error", func() {
			convey.So(errors.Is(r.Ping(ctx), ErrCache), convey.ShouldBeTrue)
		})
		convey.Convey("Get reports a cache error rather than a miss", func() {
			var v int
			ok, err := r.Get(ctx, "k", &v)
			convey.So(ok, convey.ShouldBeFalse)
			convey.So(errors.Is(err, ErrCache), convey.ShouldBeTrue)
		})
	})
}
