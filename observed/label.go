package observed

import "github.com/cespare/xxhash/v2"

// Label identifies a binding scope. Units advertise the labels they answer
// to by implementing Labeled; bindings scoped to a label resolve against the
// nearest ancestor that does.
type Label uint64

func NewLabel(name string) Label {
	return Label(xxhash.Sum64String(name))
}

type Labeled interface {
	HasLabel(l Label) bool
}

// Labels is an embeddable Labeled implementation.
type Labels struct {
	labels []Label
}

func (ls *Labels) AddLabel(labels ...Label) {
	for _, l := range labels {
		if !ls.HasLabel(l) {
			ls.labels = append(ls.labels, l)
		}
	}
}

func (ls *Labels) HasLabel(l Label) bool {
	for _, x := range ls.labels {
		if x == l {
			return true
		}
	}
	return false
}
