package config

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ConnectRedis returns nil when addr is empty or the server does not answer;
// callers fall back to running without the distributed lock.
func ConnectRedis(addr, password string, logger *logrus.Logger) *redis.Client {
	if addr == "" {
		logger.Info("REDIS_ADDRESS not set; running without redis lock")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
		PoolSize: 20,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.WithField("addr", addr).Warn("failed to connect redis; running without redis lock: " + err.Error())
		_ = rdb.Close()
		return nil
	}

	logger.WithField("addr", addr).Info("connected to redis")
	return rdb
}
