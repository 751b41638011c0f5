package auth

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// One redis key per user holding the active bearer token. Writing a new
// login token implicitly invalidates the previous session.
const sessionKeyPrefix = "eventchat:session:"

func sessionKey(userId uint) string {
	return sessionKeyPrefix + strconv.FormatUint(uint64(userId), 10)
}

func SetSession(rdb *redis.Client, userId uint, token string, duration time.Duration) error {
	return rdb.Set(context.Background(), sessionKey(userId), token, duration).Err()
}

func GetSession(rdb *redis.Client, userId uint) (string, error) {
	return rdb.Get(context.Background(), sessionKey(userId)).Result()
}

func DeleteSession(rdb *redis.Client, userId uint) error {
	return rdb.Del(context.Background(), sessionKey(userId)).Err()
}

// OnlineUserCount counts users with a live session key.
func OnlineUserCount(rdb *redis.Client) (int, error) {
	ctx := context.Background()
	var cursor uint64
	seen := make(map[string]struct{})
	for {
		keys, next, err := rdb.Scan(ctx, cursor, sessionKeyPrefix+"*", 100).Result()
		if err != nil {
			return 0, err
		}
		for _, key := range keys {
			if id := strings.TrimPrefix(key, sessionKeyPrefix); id != "" && id != key {
				seen[id] = struct{}{}
			}
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	return len(seen), nil
}
