package positions

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache using Redis GEO commands, so multiple gateway
// instances and the consumer share one fleet picture.
type RedisCache struct {
	client *redis.Client
	key    string
	ctx    context.Context
}

func NewRedisCache(addr, password, key string) *RedisCache {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisCache{client: c, key: key, ctx: context.Background()}
}

func (r *RedisCache) Upsert(p CourierPosition) {
	// GEOADD for the location, HSET for the sidecar metadata
	_, _ = r.client.GeoAdd(r.ctx, r.key, &redis.GeoLocation{Longitude: p.Loc.Lng, Latitude: p.Loc.Lat, Name: p.DriverID}).Result()
	_ = r.client.HSet(r.ctx, metaKey(p.DriverID), map[string]interface{}{
		"order_id": p.OrderID,
		"progress": strconv.Itoa(p.Progress),
		"updated":  time.Now().Format(time.RFC3339),
	}).Err()
}

func (r *RedisCache) Nearby(lat, lng float64, limit int) []CourierPosition {
	res, err := r.client.GeoRadius(r.ctx, r.key, lng, lat, &redis.GeoRadiusQuery{Radius: 50000, Unit: "m", WithCoord: true, WithDist: true, Count: limit, Sort: "ASC"}).Result()
	if err != nil {
		return nil
	}
	out := make([]CourierPosition, 0, len(res))
	for _, g := range res {
		p := CourierPosition{DriverID: g.Name}
		p.Loc.Lat = g.Latitude
		p.Loc.Lng = g.Longitude
		if m, err := r.client.HGetAll(r.ctx, metaKey(g.Name)).Result(); err == nil {
			p.OrderID = m["order_id"]
			if v, ok := m["progress"]; ok {
				if n, err := strconv.Atoi(v); err == nil {
					p.Progress = n
				}
			}
			if v, ok := m["updated"]; ok {
				if t, err := time.Parse(time.RFC3339, v); err == nil {
					p.Updated = t
				}
			}
		}
		out = append(out, p)
	}
	return out
}

func metaKey(id string) string { return "courier:meta:" + id }
