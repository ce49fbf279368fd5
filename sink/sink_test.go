package sink

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skeinlog/skein/record"
)

func TestMemory_CapturesInOrder(t *testing.T) {
	m := NewMemory()
	m.Write(record.Fields{"n": 1})
	m.Write(record.Fields{"n": 2})

	records := m.Records()
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0]["n"])
	assert.Equal(t, 2, records[1]["n"])
	assert.Equal(t, 2, m.Len())
}

func TestMemory_CopiesOnWrite(t *testing.T) {
	m := NewMemory()
	fields := record.Fields{"n": 1}
	m.Write(fields)
	fields["n"] = 99

	assert.Equal(t, 1, m.Records()[0]["n"], "Write must copy the record")
}

func TestMemory_Reset(t *testing.T) {
	m := NewMemory()
	m.Write(record.Fields{})
	m.Reset()
	assert.Equal(t, 0, m.Len())
}

func TestMemory_ConcurrentWrites(t *testing.T) {
	m := NewMemory()
	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				m.Write(record.Fields{"n": j})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, writers*perWriter, m.Len())
}

func TestFanout_DeliversToAll(t *testing.T) {
	a := NewMemory()
	b := NewMemory()
	f := NewFanout(a)
	f.Add(b)

	f.Write(record.Fields{"n": 1})
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())

	f.Remove(a)
	f.Write(record.Fields{"n": 2})
	assert.Equal(t, 1, a.Len(), "removed sink still receiving")
	assert.Equal(t, 2, b.Len())
}

func TestFanout_RemoveUnknownIsNoop(t *testing.T) {
	f := NewFanout()
	assert.NotPanics(t, func() { f.Remove(NewMemory()) })
	f.Write(record.Fields{})
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard.Write(record.Fields{"n": 1}) })
}
