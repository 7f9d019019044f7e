package testsupport

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextSequenceIncrements(t *testing.T) {
	seq1 := NextSequence()
	seq2 := NextSequence()

	assert.Equal(t, seq1+1, seq2)
}

func TestUniqueNameGeneratesUnique(t *testing.T) {
	name1 := UniqueName("test_model")
	name2 := UniqueName("test_model")

	assert.NotEqual(t, name1, name2)
	assert.Contains(t, name1, "test_model_")
}

func TestUniqueSymbolPreservesBase(t *testing.T) {
	btc1 := UniqueSymbol("BTCUSDT")
	btc2 := UniqueSymbol("BTCUSDT")
	eth := UniqueSymbol("ETHUSDT")

	assert.NotEqual(t, btc1, btc2)
	assert.Contains(t, btc1, "BTCUSDT_")
	assert.Contains(t, eth, "ETHUSDT_")
}

func TestUniqueModelVersionGeneratesUnique(t *testing.T) {
	v1 := UniqueModelVersion()
	v2 := UniqueModelVersion()

	assert.NotEqual(t, v1, v2)
	assert.Contains(t, v1, "ensemble-test-")
}

func TestUniqueStringGeneratesUUID(t *testing.T) {
	str1 := UniqueString()
	str2 := UniqueString()

	assert.NotEqual(t, str1, str2)
	assert.Len(t, str1, 36)
}

func TestConcurrentSequenceGeneration(t *testing.T) {
	const goroutines = 100
	const iterations = 100

	seen := sync.Map{}
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				seq := NextSequence()
				_, loaded := seen.LoadOrStore(seq, true)
				assert.False(t, loaded, "sequence %d should be unique", seq)
			}
		}()
	}

	wg.Wait()
}
