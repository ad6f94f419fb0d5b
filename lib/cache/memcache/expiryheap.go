package memcache

import "container/heap"

// item represents one scheduled expiry with a string key for identification
// and a unix-nano deadline used as heap priority.
type item struct {
	Key      string // Cache key of the entry
	Deadline int64  // Expiry deadline in unix nanoseconds
	index    int    // Index in the heap, maintained by heap package
}

// expiryHeap combines a binary min-heap ordered by deadline with a hash map
// for O(1) key-based access, so the janitor can both pop the next entry due
// and reschedule a key in O(log n) when it is overwritten with a new TTL.
//
// Concurrency: this structure is not thread-safe; the owning cache guards it
// with its janitor mutex.
type expiryHeap struct {
	items    []*item
	itemsMap map[string]*item
}

// newExpiryHeap creates an empty expiry schedule
func newExpiryHeap() *expiryHeap {
	return &expiryHeap{
		items:    make([]*item, 0),
		itemsMap: make(map[string]*item),
	}
}

// Len returns the number of scheduled expiries (part of heap.Interface)
func (eh *expiryHeap) Len() int { return len(eh.items) }

// Less compares items by deadline, earliest first (part of heap.Interface)
func (eh *expiryHeap) Less(i, j int) bool {
	return eh.items[i].Deadline < eh.items[j].Deadline
}

// Swap exchanges items at positions i and j (part of heap.Interface)
func (eh *expiryHeap) Swap(i, j int) {
	eh.items[i], eh.items[j] = eh.items[j], eh.items[i]
	eh.items[i].index = i
	eh.items[j].index = j
}

// Push adds an item to the heap (part of heap.Interface)
func (eh *expiryHeap) Push(x interface{}) {
	n := len(eh.items)
	item := x.(*item)
	item.index = n
	eh.items = append(eh.items, item)
	eh.itemsMap[item.Key] = item
}

// Pop removes and returns the earliest-deadline item (part of heap.Interface)
func (eh *expiryHeap) Pop() interface{} {
	old := eh.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // avoid memory leak
	item.index = -1 // for safety
	eh.items = old[:n-1]
	delete(eh.itemsMap, item.Key)
	return item
}

// Schedule adds a new expiry for the key or moves an existing one.
func (eh *expiryHeap) Schedule(key string, deadline int64) {
	if item, exists := eh.itemsMap[key]; exists {
		item.Deadline = deadline
		heap.Fix(eh, item.index)
		return
	}

	heap.Push(eh, &item{
		Key:      key,
		Deadline: deadline,
	})
}

// Unschedule removes the expiry for a key, if any.
func (eh *expiryHeap) Unschedule(key string) {
	if item, exists := eh.itemsMap[key]; exists {
		heap.Remove(eh, item.index)
	}
}

// Peek returns the earliest-deadline item without removing it.
func (eh *expiryHeap) Peek() (*item, bool) {
	if len(eh.items) == 0 {
		return nil, false
	}
	return eh.items[0], true
}
