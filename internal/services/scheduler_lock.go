package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/huangang/basewatch/internal/config"
	"github.com/huangang/basewatch/internal/models"
	"github.com/huangang/basewatch/pkg/logger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Lock is a held scheduler lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker grants at most one holder per (name, key) until ttl expires.
// ok is false when another holder has it.
type Locker interface {
	TryLock(ctx context.Context, name, key string, ttl time.Duration) (lock Lock, ok bool, err error)
}

// NewLocker uses Redis when it is enabled and answers a ping, else the database.
func NewLocker(ctx context.Context, db *gorm.DB, cfg *config.RedisConfig) (Locker, *redis.Client) {
	if cfg.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		err := client.Ping(pingCtx).Err()
		if err == nil {
			logger.Infof("[Lock] Using Redis locks at %s", cfg.Addr)
			return NewRedisLocker(client), client
		}
		logger.Warnf("[Lock] Redis ping failed, using database locks: %v", err)
		client.Close()
	}
	return NewDBLocker(db), nil
}

type RedisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(client redislock.RedisClient) *RedisLocker {
	return &RedisLocker{client: redislock.New(client)}
}

func (l *RedisLocker) TryLock(ctx context.Context, name, key string, ttl time.Duration) (Lock, bool, error) {
	lock, err := l.client.Obtain(ctx, fmt.Sprintf("lock:%s:%s", name, key), ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return lock, true, nil
}

// DBLocker relies on the unique (lock_name, lock_key) index of scheduler_locks.
type DBLocker struct {
	db       *gorm.DB
	instance string
	now      func() time.Time
}

func NewDBLocker(db *gorm.DB) *DBLocker {
	host, _ := os.Hostname()
	return &DBLocker{db: db, instance: host + "-" + uuid.NewString()[:8], now: time.Now}
}

func (l *DBLocker) TryLock(ctx context.Context, name, key string, ttl time.Duration) (Lock, bool, error) {
	now := l.now().UTC()
	db := l.db.WithContext(ctx)

	if err := db.Where("lock_name = ? AND lock_key = ? AND expires_at < ?", name, key, now).
		Delete(&models.SchedulerLock{}).Error; err != nil {
		return nil, false, err
	}

	row := models.SchedulerLock{
		LockName:  name,
		LockKey:   key,
		LockedBy:  l.instance,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.Create(&row).Error; err != nil {
		var count int64
		if cerr := db.Model(&models.SchedulerLock{}).Where("lock_name = ? AND lock_key = ?", name, key).Count(&count).Error; cerr != nil {
			return nil, false, err
		}
		if count > 0 {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &dbLock{db: l.db, id: row.ID, owner: l.instance}, true, nil
}

type dbLock struct {
	db    *gorm.DB
	id    uint
	owner string
}

func (l *dbLock) Release(ctx context.Context) error {
	return l.db.WithContext(ctx).Where("id = ? AND locked_by = ?", l.id, l.owner).Delete(&models.SchedulerLock{}).Error
}
