package witness

import "fmt"

// CycleValue is one sample of a sparse per-cycle series.
type CycleValue[T any] struct {
	Cycle uint32
	Value T
}

// EntryAccumulator resamples a sparse series at circuit boundaries: value i
// of the expansion is the last sample taken before cycle i*cyclesPerCircuit.
type EntryAccumulator[T any] struct {
	name             string
	cyclesPerCircuit uint32
	initial          T
	samples          []CycleValue[T]
}

func NewEntryAccumulator[T any](name string, cyclesPerCircuit uint32, initial T) *EntryAccumulator[T] {
	return &EntryAccumulator[T]{name: name, cyclesPerCircuit: cyclesPerCircuit, initial: initial}
}

func (me *EntryAccumulator[T]) Push(cycle uint32, value T) {
	if n := len(me.samples); n > 0 && me.samples[n-1].Cycle > cycle {
		panic(fmt.Sprintf("%s: sample at cycle %d after cycle %d", me.name, cycle, me.samples[n-1].Cycle))
	}
	me.samples = append(me.samples, CycleValue[T]{Cycle: cycle, Value: value})
}

// Last is the most recent sample, or the initial value.
func (me *EntryAccumulator[T]) Last() T {
	if len(me.samples) == 0 {
		return me.initial
	}
	return me.samples[len(me.samples)-1].Value
}

func (me *EntryAccumulator[T]) Expand(n int) []T {
	ret := make([]T, n)
	current := me.initial
	pos := 0
	for i := range ret {
		boundary := uint64(i) * uint64(me.cyclesPerCircuit)
		for pos < len(me.samples) && uint64(me.samples[pos].Cycle) < boundary {
			current = me.samples[pos].Value
			pos++
		}
		ret[i] = current
	}
	return ret
}

// PerCircuitAccumulator buckets samples by the circuit their cycle falls in.
type PerCircuitAccumulator[T any] struct {
	name             string
	cyclesPerCircuit uint32
	lastCycle        uint32
	buckets          [][]CycleValue[T]
}

func NewPerCircuitAccumulator[T any](name string, cyclesPerCircuit uint32) *PerCircuitAccumulator[T] {
	return &PerCircuitAccumulator[T]{name: name, cyclesPerCircuit: cyclesPerCircuit}
}

func (me *PerCircuitAccumulator[T]) Push(cycle uint32, value T) {
	if cycle < me.lastCycle {
		panic(fmt.Sprintf("%s: sample at cycle %d after cycle %d", me.name, cycle, me.lastCycle))
	}
	me.lastCycle = cycle
	idx := int(cycle / me.cyclesPerCircuit)
	for len(me.buckets) <= idx {
		me.buckets = append(me.buckets, nil)
	}
	me.buckets[idx] = append(me.buckets[idx], CycleValue[T]{Cycle: cycle, Value: value})
}

// Expand returns n buckets. Samples past the last bucket are a bug upstream.
func (me *PerCircuitAccumulator[T]) Expand(n int) [][]CycleValue[T] {
	if len(me.buckets) > n {
		panic(fmt.Sprintf("%s: %d circuits worth of samples, expected at most %d", me.name, len(me.buckets), n))
	}
	ret := make([][]CycleValue[T], n)
	copy(ret, me.buckets)
	return ret
}

func (me *PerCircuitAccumulator[T]) Name() string {
	return me.name
}

func (me *EntryAccumulator[T]) Name() string {
	return me.name
}
