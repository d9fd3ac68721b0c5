package queue

import (
	"container/heap"
)

// Item is an entry of a PriorityQueue.
type Item[T any] struct {
	value    T
	priority float32
	index    int // maintained by the heap.Interface methods
}

func (item *Item[T]) Value() T {
	return item.value
}

func (item *Item[T]) Priority() float32 {
	return item.priority
}

// PriorityQueue pops the item with the lowest priority first. Items with
// equal priority come out in insertion order.
type PriorityQueue[T any] struct {
	items []*Item[T]
	seq   []uint64
	next  uint64
}

func NewPriorityQueue[T any](capacity int) *PriorityQueue[T] {
	return &PriorityQueue[T]{
		items: make([]*Item[T], 0, capacity),
		seq:   make([]uint64, 0, capacity),
	}
}

func (pq *PriorityQueue[T]) Len() int { return len(pq.items) }

func (pq *PriorityQueue[T]) Less(i, j int) bool {
	a, b := pq.items[i], pq.items[j]
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return pq.seq[i] < pq.seq[j]
}

func (pq *PriorityQueue[T]) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
	pq.seq[i], pq.seq[j] = pq.seq[j], pq.seq[i]
	pq.items[i].index = i
	pq.items[j].index = j
}

// Push is part of heap.Interface; use Insert.
func (pq *PriorityQueue[T]) Push(x any) {
	item := x.(*Item[T])
	item.index = len(pq.items)
	pq.items = append(pq.items, item)
	pq.seq = append(pq.seq, pq.next)
	pq.next++
}

// Pop is part of heap.Interface; use Take.
func (pq *PriorityQueue[T]) Pop() any {
	n := len(pq.items)
	item := pq.items[n-1]
	pq.items[n-1] = nil // avoid memory leak
	item.index = -1
	pq.items = pq.items[:n-1]
	pq.seq = pq.seq[:n-1]
	return item
}

func (pq *PriorityQueue[T]) Insert(value T, priority float32) *Item[T] {
	item := &Item[T]{value: value, priority: priority}
	heap.Push(pq, item)
	return item
}

func (pq *PriorityQueue[T]) Take() T {
	return heap.Pop(pq).(*Item[T]).value
}

func (pq *PriorityQueue[T]) Top() *Item[T] {
	return pq.items[0]
}

func (pq *PriorityQueue[T]) IsEmpty() bool {
	return pq.Len() == 0
}

// Update changes the priority of an item still in the queue.
func (pq *PriorityQueue[T]) Update(item *Item[T], priority float32) {
	item.priority = priority
	heap.Fix(pq, item.index)
}

func (pq *PriorityQueue[T]) Reset() {
	clear(pq.items)
	pq.items = pq.items[:0]
	pq.seq = pq.seq[:0]
	pq.next = 0
}
