package testsupport

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	// Global counter for generating unique sequential IDs in tests
	testSequence uint64

	baseTimestamp = time.Now().UnixNano()
)

func init() {
	// Seed with the current timestamp so sequences stay unique across
	// test runs against shared databases.
	testSequence = uint64(baseTimestamp % 1000000)
}

// NextSequence returns next unique sequence number
func NextSequence() uint64 {
	return atomic.AddUint64(&testSequence, 1)
}

// UniqueName generates a unique name with given prefix
// Example: UniqueName("test_model") -> "test_model_123456"
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, NextSequence())
}

// UniqueSymbol generates a unique trading symbol from a base symbol
// Example: UniqueSymbol("BTCUSDT") -> "BTCUSDT_123456"
func UniqueSymbol(base string) string {
	return fmt.Sprintf("%s_%d", base, NextSequence())
}

// UniqueModelVersion generates a unique model version label
// Example: UniqueModelVersion() -> "ensemble-test-123456"
func UniqueModelVersion() string {
	return fmt.Sprintf("ensemble-test-%d", NextSequence())
}

// UniqueString generates a unique string identifier
// Useful when you need guaranteed uniqueness (uses UUID)
func UniqueString() string {
	return uuid.New().String()
}
