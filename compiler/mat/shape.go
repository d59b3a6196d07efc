package mat

import (
	"tlog.app/go/tlog/tlwire"
)

type (
	Shape struct {
		Rows uint32
		Cols uint32
	}
)

func (s Shape) Valid() bool {
	return s.Rows > 0 && s.Cols > 0
}

func (s Shape) Len() int {
	return int(s.Rows) * int(s.Cols)
}

// Product returns the shape of s x r.
// It's defined only if s has as many columns as r has rows.
func (s Shape) Product(r Shape) (Shape, bool) {
	if s.Cols != r.Rows {
		return Shape{}, false
	}

	return Shape{Rows: s.Rows, Cols: r.Cols}, true
}

func (s Shape) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendKeyInt(b, "rows", int(s.Rows))
	b = e.AppendKeyInt(b, "cols", int(s.Cols))

	return b
}
