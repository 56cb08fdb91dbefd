package tieba

import (
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
)

func Test_PendingTable_CompleteOutOfOrder(t *testing.T) {
	defer leaktest.Check(t)()
	pt := NewPendingTable()
	p1 := pt.Register()
	p2 := pt.Register()
	assert.NotEqual(t, p1.ID(), p2.ID())
	assert.Equal(t, 2, pt.Len())

	var wg sync.WaitGroup
	var got1, got2 []byte
	wg.Add(2)
	go func() {
		defer wg.Done()
		got1, _ = pt.Await(p1, time.Second)
	}()
	go func() {
		defer wg.Done()
		got2, _ = pt.Await(p2, time.Second)
	}()

	assert.True(t, pt.Complete(p2.ID(), []byte("second")))
	assert.True(t, pt.Complete(p1.ID(), []byte("first")))
	wg.Wait()

	assert.Equal(t, []byte("first"), got1)
	assert.Equal(t, []byte("second"), got2)
	assert.Equal(t, 0, pt.Len())
}

func Test_PendingTable_CompleteBeforeAwait(t *testing.T) {
	pt := NewPendingTable()
	p := pt.Register()
	assert.True(t, pt.Complete(p.ID(), []byte("early")))
	data, err := pt.Await(p, time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, []byte("early"), data)
	assert.False(t, pt.Complete(p.ID(), []byte("again")))
}

func Test_PendingTable_Timeout(t *testing.T) {
	pt := NewPendingTable()
	p := pt.Register()
	data, err := pt.Await(p, time.Millisecond*10)
	assert.Nil(t, data)
	assert.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.Equal(t, 0, pt.Len())
	assert.False(t, pt.Complete(p.ID(), []byte("late")))
	assert.Nil(t, p.data)
}

func Test_PendingTable_UnknownID(t *testing.T) {
	pt := NewPendingTable()
	p := pt.Register()
	assert.False(t, pt.Complete(p.ID()+1000, []byte("stray")))
	assert.Equal(t, 1, pt.Len())
	pt.Remove(p)
	assert.Equal(t, 0, pt.Len())
	pt.Remove(p)
	assert.False(t, pt.Complete(p.ID(), nil))
}

func Test_PendingTable_UniqueIDs(t *testing.T) {
	pt := NewPendingTable()
	before := uint32(time.Now().Unix())
	seen := make(map[uint32]bool)
	for i := 0; i < 10000; i++ {
		p := pt.Register()
		assert.False(t, seen[p.ID()])
		seen[p.ID()] = true
		pt.Remove(p)
	}
	first := pt.Register().ID() - 10000
	assert.True(t, first+1 >= before)
}

func Test_PendingTable_IDWraps(t *testing.T) {
	pt := NewPendingTable()
	pt.lastID = ^uint32(0)
	p := pt.Register()
	assert.Equal(t, uint32(0), p.ID())
}

func Test_PendingTable_RaceCompleteTimeout(t *testing.T) {
	defer leaktest.Check(t)()
	pt := NewPendingTable()
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		p := pt.Register()
		wg.Add(2)
		var completed bool
		var data []byte
		var err error
		go func() {
			defer wg.Done()
			completed = pt.Complete(p.ID(), []byte("x"))
		}()
		go func() {
			defer wg.Done()
			data, err = pt.Await(p, time.Microsecond*time.Duration(i%5))
		}()
		wg.Wait()
		if completed {
			assert.NoError(t, err)
			assert.Equal(t, []byte("x"), data)
		} else {
			assert.True(t, IsTimeout(err))
			assert.Nil(t, data)
		}
	}
	assert.Equal(t, 0, pt.Len())
}

func Test_PendingTable_Concurrent(t *testing.T) {
	defer leaktest.Check(t)()
	pt := NewPendingTable()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := pt.Register()
			go pt.Complete(p.ID(), []byte(p.String()))
			data, err := pt.Await(p, time.Second)
			assert.NoError(t, err)
			assert.Equal(t, p.String(), string(data))
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, pt.Len())
}
