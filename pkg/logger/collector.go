package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

const collectorPublishTimeout = 30 * time.Second

// Publisher ships aggregated log batches, typically to Kafka.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	TimeInterval   time.Duration // flush period, 30s when unset
	CountThreshold int           // distinct entries that force an early flush, 100 when unset
	Topic          string
	Publisher      Publisher
}

// AggregatedLogEntry is one distinct (level, message, fields, caller) tuple and
// how often it was seen since the previous flush.
type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector folds repeated warnings and errors into counted entries and
// publishes them in batches. A failing analysis that is retried by every
// request therefore costs one message per flush instead of one per request.
type LogCollector struct {
	cfg     CollectionConfig
	mu      sync.Mutex
	entries map[string]*AggregatedLogEntry
	order   []string
	done    chan struct{}
	loop    sync.WaitGroup
	sends   sync.WaitGroup
	once    sync.Once
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	cfg := *config
	if cfg.TimeInterval <= 0 {
		cfg.TimeInterval = 30 * time.Second
	}
	if cfg.CountThreshold <= 0 {
		cfg.CountThreshold = 100
	}

	c := &LogCollector{
		cfg:     cfg,
		entries: make(map[string]*AggregatedLogEntry),
		done:    make(chan struct{}),
	}
	c.loop.Add(1)
	go c.run()
	return c
}

func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := entryKey(level, message, fields, caller)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.Count++
		e.LastSeen = now
		return
	}
	c.entries[key] = &AggregatedLogEntry{
		Level:     level,
		Message:   message,
		Fields:    fields,
		Caller:    caller,
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	}
	c.order = append(c.order, key)
	if len(c.entries) >= c.cfg.CountThreshold {
		c.flushLocked()
	}
}

// Close stops the flush loop, publishes what is pending and waits for every
// in-flight publish to return.
func (c *LogCollector) Close() {
	c.once.Do(func() { close(c.done) })
	c.loop.Wait()
	c.sends.Wait()
}

func (c *LogCollector) run() {
	defer c.loop.Done()

	ticker := time.NewTicker(c.cfg.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.done:
			c.flush()
			return
		}
	}
}

func (c *LogCollector) flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushLocked()
}

// flushLocked hands the current batch to a publishing goroutine; callers hold mu.
func (c *LogCollector) flushLocked() {
	if len(c.entries) == 0 {
		return
	}
	batch := make([]AggregatedLogEntry, 0, len(c.order))
	for _, k := range c.order {
		batch = append(batch, *c.entries[k])
	}
	c.entries = make(map[string]*AggregatedLogEntry)
	c.order = c.order[:0]

	if c.cfg.Publisher == nil {
		return
	}
	c.sends.Add(1)
	go func() {
		defer c.sends.Done()
		ctx, cancel := context.WithTimeout(context.Background(), collectorPublishTimeout)
		defer cancel()
		if err := c.cfg.Publisher.PublishMessage(ctx, c.cfg.Topic, batch); err != nil {
			fmt.Fprintf(os.Stderr, "log collector: publish %d entries: %v\n", len(batch), err)
		}
	}()
}

// entryKey is stable across map iteration order of fields.
func entryKey(level, message string, fields map[string]interface{}, caller string) string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	key := level + "|" + caller + "|" + message
	for _, k := range names {
		v, err := json.Marshal(fields[k])
		if err != nil {
			v = []byte(fmt.Sprint(fields[k]))
		}
		key += "|" + k + "=" + string(v)
	}
	return key
}
