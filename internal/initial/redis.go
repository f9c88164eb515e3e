package initial

import (
	"context"
	"fmt"
	"time"

	"ChatNest/internal/config"
	"ChatNest/pkg/redis"
	"ChatNest/pkg/zlog"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InitRedis 未配置主机时跳过；连接失败只记录日志，缓存层会自动降级
func InitRedis(conf config.RedisConfig) {
	host := conf.Host
	if host == "" {
		zlog.Info("redis not configured, skipping")
		return
	}

	port := conf.Port
	if port == 0 {
		port = 6379
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	zlog.Info("redis connecting", zap.String("addr", addr))

	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     conf.Password,
		DB:           conf.DB,
		PoolSize:     conf.PoolSize,
		MinIdleConns: conf.MinIdleConns,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		zlog.Error("redis connect failed", zap.Error(err))
		_ = client.Close()
		return
	}

	redis.SetClient(client)
	zlog.Info("redis connected")
}
