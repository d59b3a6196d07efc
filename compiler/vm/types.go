package vm

import "github.com/slowlang/rteval/compiler/tp"

// TypeOf returns the evaluator type of T.
// Code has no evaluator type and is reported as void.
func TypeOf[T Scalar]() tp.Type {
	var v T

	switch any(v).(type) {
	case int8:
		return tp.Int8
	case int16:
		return tp.Int16
	case int32:
		return tp.Int32
	case int64:
		return tp.Int64
	case uint8:
		return tp.Uint8
	case uint16:
		return tp.Uint16
	case uint32:
		return tp.Uint32
	case uint64:
		return tp.Uint64
	case float32:
		return tp.Float32
	case float64:
		return tp.Float64
	case bool:
		return tp.Boolean
	}

	return tp.Type{}
}
