package compiler

import (
	"strconv"

	"tlog.app/go/errors"

	"github.com/slowlang/rteval/compiler/tp"
	"github.com/slowlang/rteval/compiler/vm"
)

// ParseValue parses a scalar literal of type t.
// Integers may have a base prefix.
func ParseValue(t tp.Type, s string) (v any, err error) {
	if t.Matrix {
		return nil, errors.Wrap(ErrUnsupportedConst, "%v", t)
	}

	bits := int(t.Bits)

	switch t.Kind {
	case tp.Bool:
		v, err = strconv.ParseBool(s)
	case tp.Float:
		var x float64

		x, err = strconv.ParseFloat(s, bits)
		if bits == 32 {
			v = float32(x)
		} else {
			v = x
		}
	case tp.Signed:
		var x int64

		x, err = strconv.ParseInt(s, 0, bits)

		switch bits {
		case 8:
			v = int8(x)
		case 16:
			v = int16(x)
		case 32:
			v = int32(x)
		default:
			v = x
		}
	case tp.Unsigned:
		var x uint64

		x, err = strconv.ParseUint(s, 0, bits)

		switch bits {
		case 8:
			v = uint8(x)
		case 16:
			v = uint16(x)
		case 32:
			v = uint32(x)
		default:
			v = x
		}
	default:
		return nil, errors.Wrap(ErrUnsupportedConst, "%v", t)
	}

	if err != nil {
		return nil, errors.Wrap(err, "parse %v", t)
	}

	return v, nil
}

func storeValue(c *vm.Context, a vm.Addr, v any) error {
	switch v := v.(type) {
	case bool:
		vm.Store(c, a, v)
	case float32:
		vm.Store(c, a, v)
	case float64:
		vm.Store(c, a, v)
	case int8:
		vm.Store(c, a, v)
	case int16:
		vm.Store(c, a, v)
	case int32:
		vm.Store(c, a, v)
	case int64:
		vm.Store(c, a, v)
	case uint8:
		vm.Store(c, a, v)
	case uint16:
		vm.Store(c, a, v)
	case uint32:
		vm.Store(c, a, v)
	case uint64:
		vm.Store(c, a, v)
	default:
		return errors.New("unsupported value: %T", v)
	}

	if c.Faults.Has(vm.BadAddress) {
		return errors.New("store at %d: %v", a, c.Faults)
	}

	return nil
}

func loadValue(c *vm.Context, v *Variable) any {
	switch v.Type {
	case tp.Boolean:
		return vm.Load[bool](c, v.Addr)
	case tp.Float32:
		return vm.Load[float32](c, v.Addr)
	case tp.Float64:
		return vm.Load[float64](c, v.Addr)
	case tp.Int8:
		return vm.Load[int8](c, v.Addr)
	case tp.Int16:
		return vm.Load[int16](c, v.Addr)
	case tp.Int32:
		return vm.Load[int32](c, v.Addr)
	case tp.Int64:
		return vm.Load[int64](c, v.Addr)
	case tp.Uint8:
		return vm.Load[uint8](c, v.Addr)
	case tp.Uint16:
		return vm.Load[uint16](c, v.Addr)
	case tp.Uint32:
		return vm.Load[uint32](c, v.Addr)
	case tp.Uint64:
		return vm.Load[uint64](c, v.Addr)
	case tp.Float32Matrix:
		if m := vm.Matrix[float32](c, v.Addr); m != nil {
			return m
		}
	case tp.Float64Matrix:
		if m := vm.Matrix[float64](c, v.Addr); m != nil {
			return m
		}
	}

	return nil
}
