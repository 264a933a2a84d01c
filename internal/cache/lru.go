package cache

import "container/list"

// lruIndex orders entries by last use, most recent first. It is not
// synchronized; the Coordinator guards it with its own mutex.
type lruIndex struct {
	items map[Key]*list.Element
	order *list.List
}

func newLRUIndex() *lruIndex {
	return &lruIndex{
		items: make(map[Key]*list.Element),
		order: list.New(),
	}
}

func (l *lruIndex) get(k Key) (*entry, bool) {
	elem, ok := l.items[k]
	if !ok {
		return nil, false
	}
	return elem.Value.(*entry), true
}

// add inserts e as most recently used.
func (l *lruIndex) add(e *entry) {
	l.items[e.key] = l.order.PushFront(e)
}

func (l *lruIndex) touch(k Key) {
	if elem, ok := l.items[k]; ok {
		l.order.MoveToFront(elem)
	}
}

func (l *lruIndex) remove(k Key) {
	if elem, ok := l.items[k]; ok {
		delete(l.items, k)
		l.order.Remove(elem)
	}
}

func (l *lruIndex) len() int { return len(l.items) }

// oldestFirst calls fn from the least recently used entry onward until fn
// returns false. fn may remove the entry it is given.
func (l *lruIndex) oldestFirst(fn func(*entry) bool) {
	for elem := l.order.Back(); elem != nil; {
		prev := elem.Prev()
		if !fn(elem.Value.(*entry)) {
			return
		}
		elem = prev
	}
}

func (l *lruIndex) each(fn func(*entry)) {
	for elem := l.order.Front(); elem != nil; {
		next := elem.Next()
		fn(elem.Value.(*entry))
		elem = next
	}
}
