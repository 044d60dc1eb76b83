package eventbus

import (
	"time"

	"orderhub/config"
)

type Config struct {
	Enabled            bool
	MaxQueueSize       int
	BatchSize          int
	ProcessingInterval time.Duration
	RetryAttempts      int
	RetryDelay         time.Duration
	// HandlerTimeout ограничивает один вызов обработчика; 0 — без ограничения.
	HandlerTimeout time.Duration
	// FailureBuffer — ёмкость канала Failures(); при переполнении отказы только считаются.
	FailureBuffer int
}

func DefaultConfig() Config {
	return Config{
		Enabled:            true,
		MaxQueueSize:       1000,
		BatchSize:          10,
		ProcessingInterval: 100 * time.Millisecond,
		RetryAttempts:      3,
		RetryDelay:         time.Second,
		HandlerTimeout:     30 * time.Second,
		FailureBuffer:      100,
	}
}

func ConfigFrom(c config.EventBus) Config {
	return Config{
		Enabled:            c.Enabled,
		MaxQueueSize:       c.MaxQueueSize,
		BatchSize:          c.BatchSize,
		ProcessingInterval: c.ProcessingInterval,
		RetryAttempts:      c.RetryAttempts,
		RetryDelay:         c.RetryDelay,
		HandlerTimeout:     c.HandlerTimeout,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = def.MaxQueueSize
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.FailureBuffer <= 0 {
		c.FailureBuffer = def.FailureBuffer
	}
	if c.RetryAttempts < 0 {
		c.RetryAttempts = 0
	}
	if c.ProcessingInterval < 0 {
		c.ProcessingInterval = 0
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	return c
}
