package mat

import "tlog.app/go/errors"

type (
	Float interface {
		float32 | float64
	}

	// Matrix is a dense row-major matrix.
	// Operations write into preallocated results and never allocate.
	Matrix[T Float] struct {
		shape Shape
		data  []T
	}
)

func New[T Float](s Shape) *Matrix[T] {
	return &Matrix[T]{
		shape: s,
		data:  make([]T, s.Len()),
	}
}

// Wrap uses data as the matrix storage.
func Wrap[T Float](s Shape, data []T) (*Matrix[T], error) {
	if len(data) != s.Len() {
		return nil, errors.New("matrix %dx%d: %d elements provided", s.Rows, s.Cols, len(data))
	}

	return &Matrix[T]{shape: s, data: data}, nil
}

func (m *Matrix[T]) Shape() Shape { return m.shape }

func (m *Matrix[T]) Rows() int { return int(m.shape.Rows) }

func (m *Matrix[T]) Cols() int { return int(m.shape.Cols) }

// Data returns the underlying storage in row-major order.
func (m *Matrix[T]) Data() []T { return m.data }

func (m *Matrix[T]) At(i, j int) T {
	return m.data[i*m.Cols()+j]
}

func (m *Matrix[T]) Set(i, j int, v T) {
	m.data[i*m.Cols()+j] = v
}

// Copy copies src into m.
func (m *Matrix[T]) Copy(src *Matrix[T]) bool {
	if m == nil || src == nil || m.shape != src.shape {
		return false
	}

	copy(m.data, src.data)

	return true
}

// Sum stores m + x into out.
func (m *Matrix[T]) Sum(x, out *Matrix[T]) bool {
	if m == nil || x == nil || out == nil {
		return false
	}

	if m.shape != x.shape || m.shape != out.shape {
		return false
	}

	for i, v := range m.data {
		out.data[i] = v + x.data[i]
	}

	return true
}

// Scale stores a * m into out.
func (m *Matrix[T]) Scale(a T, out *Matrix[T]) bool {
	if m == nil || out == nil || m.shape != out.shape {
		return false
	}

	for i, v := range m.data {
		out.data[i] = a * v
	}

	return true
}

// Product stores m x f into out.
// out must not share storage with m or f.
func (m *Matrix[T]) Product(f, out *Matrix[T]) bool {
	if m == nil || f == nil || out == nil {
		return false
	}

	s, ok := m.shape.Product(f.shape)
	if !ok || s != out.shape {
		return false
	}

	if out == m || out == f {
		return false
	}

	n, k, p := m.Rows(), m.Cols(), f.Cols()

	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			var sum T

			for l := 0; l < k; l++ {
				sum += m.data[i*k+l] * f.data[l*p+j]
			}

			out.data[i*p+j] = sum
		}
	}

	return true
}
