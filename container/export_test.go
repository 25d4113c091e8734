package container

import "github.com/delaneyj/unitgraph/observed"

func NodeOf[T observed.Object](l *List[T], item T) any {
	return l.index[item.Base()]
}
