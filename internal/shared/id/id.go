// Package id generates the prefixed ULIDs used to tag panels, background
// tasks and control API requests in logs.
//
// IDs sort by creation time and carry a short type prefix (panel_*, task_*,
// req_*) so a log line identifies what it refers to at a glance.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// PanelID identifies a panel instance
type PanelID string

// TaskID identifies a background task
type TaskID string

// RequestID identifies a control API request
type RequestID string

const (
	PanelPrefix   = "panel"
	TaskPrefix    = "task"
	RequestPrefix = "req"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the shared generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewPanelID generates a new panel ID
func NewPanelID() PanelID {
	return PanelID(Default().GenerateWithPrefix(PanelPrefix))
}

// NewTaskID generates a new task ID
func NewTaskID() TaskID {
	return TaskID(Default().GenerateWithPrefix(TaskPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func (id PanelID) String() string   { return string(id) }
func (id TaskID) String() string    { return string(id) }
func (id RequestID) String() string { return string(id) }

// Split separates a prefixed ID into its prefix and ULID parts.
func Split(prefixed string) (prefix string, raw string, ok bool) {
	prefix, raw, ok = strings.Cut(prefixed, "_")
	if !ok || prefix == "" || !IsValid(raw) {
		return "", "", false
	}
	return prefix, raw, true
}

// HasPrefix reports whether prefixed is a well-formed ID of the given type.
func HasPrefix(prefixed, prefix string) bool {
	p, _, ok := Split(prefixed)
	return ok && p == prefix
}

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// Timestamp extracts the creation time from a prefixed or bare ULID
func Timestamp(id string) (time.Time, error) {
	if _, raw, ok := Split(id); ok {
		id = raw
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
