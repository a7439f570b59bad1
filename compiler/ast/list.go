package ast

// NewList wraps n into a one cell list.
// A list is returned as is.
func NewList(n Node) *List {
	if l, ok := n.(*List); ok {
		return l
	}

	l := &List{Node: n}
	if n != nil {
		l.Line = n.Pos()
	}

	l.end = l

	return l
}

// Append adds child to the end of parent and returns the head.
// A list child is spliced in cell by cell, empty cells skipped.
// A nil parent starts a new list, a nil child is ignored.
func Append(parent *List, child Node) *List {
	if child == nil {
		return parent
	}

	if l, ok := child.(*List); ok {
		if l == nil {
			return parent
		}

		for c := l; c != nil; c = c.Next {
			if c.Node == nil {
				continue
			}

			parent = appendCell(parent, c.Node)
		}

		return parent
	}

	return appendCell(parent, child)
}

func appendCell(parent *List, n Node) *List {
	c := &List{Node: n}
	c.Line = n.Pos()
	c.end = c

	if parent == nil {
		return c
	}

	last := parent.last()

	last.Next = c
	parent.end = c

	return parent
}

func (l *List) last() *List {
	if l.end == nil {
		l.end = l
	}

	for l.end.Next != nil {
		l.end = l.end.Next
	}

	return l.end
}

// Len counts cells.
func (l *List) Len() (n int) {
	for ; l != nil; l = l.Next {
		n++
	}

	return n
}

// Nodes collects cell nodes into a slice.
func (l *List) Nodes() (r []Node) {
	for ; l != nil; l = l.Next {
		r = append(r, l.Node)
	}

	return r
}
