package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Publisher delivers a digest batch; pkg/kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

type DigestConfig struct {
	Interval  time.Duration // flush period
	MaxUnique int           // flush early once this many distinct entries accumulate
	Topic     string
	Publisher Publisher
	OnError   func(error)
}

// DigestEntry is one distinct warning or error with its repeat count.
type DigestEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`

	seq uint64
}

// Digest folds repeated Warn/Error entries (for example the same skip on
// every valuation tick) and publishes them periodically.
type Digest struct {
	cfg     DigestConfig
	mu      sync.Mutex
	entries map[string]*DigestEntry
	seq     uint64
	now     func() time.Time

	stop chan struct{}
	done chan struct{}
}

func NewDigest(cfg DigestConfig) *Digest {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.MaxUnique <= 0 {
		cfg.MaxUnique = 200
	}
	return &Digest{
		cfg:     cfg,
		entries: make(map[string]*DigestEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start runs the periodic flush loop until Close.
func (d *Digest) Start() {
	go func() {
		defer close(d.done)
		t := time.NewTicker(d.cfg.Interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				d.Flush(context.Background())
			case <-d.stop:
				d.Flush(context.Background())
				return
			}
		}
	}()
}

func (d *Digest) Add(level, msg string, fields []Field) {
	fm := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		fm[f.Key] = f.plain()
	}
	key := digestKey(level, msg, fm)
	now := d.now()

	d.mu.Lock()
	if e, ok := d.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		d.seq++
		d.entries[key] = &DigestEntry{Level: level, Message: msg, Fields: fm, Count: 1, FirstSeen: now, LastSeen: now, seq: d.seq}
	}
	full := len(d.entries) >= d.cfg.MaxUnique
	d.mu.Unlock()

	if full {
		go d.Flush(context.Background())
	}
}

// Snapshot drains the accumulated entries, ordered by first occurrence.
func (d *Digest) Snapshot() []DigestEntry {
	d.mu.Lock()
	out := make([]DigestEntry, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, *e)
	}
	d.entries = make(map[string]*DigestEntry)
	d.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Flush publishes and clears the accumulated entries.
func (d *Digest) Flush(ctx context.Context) {
	batch := d.Snapshot()
	if len(batch) == 0 || d.cfg.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := d.cfg.Publisher.Publish(ctx, d.cfg.Topic, nil, batch); err != nil && d.cfg.OnError != nil {
		d.cfg.OnError(err)
	}
}

func (d *Digest) Close() {
	select {
	case <-d.stop:
		return
	default:
		close(d.stop)
	}
	<-d.done
}

func digestKey(level, msg string, fields map[string]interface{}) string {
	b, _ := json.Marshal(struct {
		L string                 `json:"l"`
		M string                 `json:"m"`
		F map[string]interface{} `json:"f"`
	}{level, msg, fields})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
