package batch

import (
	"path/filepath"
)

// Entry is a queued audio file. Order is a dense 1-based position that is
// renumbered after every mutation.
type Entry struct {
	Path  string
	Name  string
	Order int
}

// Queue is an ordered list of audio files awaiting batch transcription.
// It is not safe for concurrent use.
type Queue struct {
	entries []Entry
}

func NewQueue() *Queue {
	return &Queue{}
}

// Add appends a file. Paths already queued are ignored so the same file is
// never transcribed twice in one run.
func (q *Queue) Add(path string) bool {
	for _, entry := range q.entries {
		if entry.Path == path {
			return false
		}
	}

	q.entries = append(q.entries, Entry{Path: path, Name: filepath.Base(path)})
	q.renumber()
	return true
}

// Remove drops the entry at the given zero-based index. Out-of-range indices
// are ignored.
func (q *Queue) Remove(index int) {
	if index < 0 || index >= len(q.entries) {
		return
	}
	q.entries = append(q.entries[:index], q.entries[index+1:]...)
	q.renumber()
}

// MoveUp swaps the entry with its predecessor. The first entry stays put.
func (q *Queue) MoveUp(index int) {
	if index <= 0 || index >= len(q.entries) {
		return
	}
	q.entries[index-1], q.entries[index] = q.entries[index], q.entries[index-1]
	q.renumber()
}

// MoveDown swaps the entry with its successor. The last entry stays put.
func (q *Queue) MoveDown(index int) {
	if index < 0 || index >= len(q.entries)-1 {
		return
	}
	q.entries[index], q.entries[index+1] = q.entries[index+1], q.entries[index]
	q.renumber()
}

func (q *Queue) Clear() {
	q.entries = nil
}

func (q *Queue) Len() int {
	return len(q.entries)
}

// Entries returns a copy of the queue in order.
func (q *Queue) Entries() []Entry {
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *Queue) renumber() {
	for i := range q.entries {
		q.entries[i].Order = i + 1
	}
}
