package tp

import (
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog/tlwire"
)

type (
	Kind uint8

	// Type describes a value on the evaluator stack.
	// Matrices are passed by reference: on the stack they take one address slot.
	Type struct {
		Kind   Kind
		Bits   uint8
		Matrix bool
	}
)

const (
	Void Kind = iota
	Unsigned
	Signed
	Float
	Bool
)

// Data memory is addressed in words.
const (
	WordSize = 4
	AddrSize = 2
)

var (
	Uint8  = Type{Kind: Unsigned, Bits: 8}
	Uint16 = Type{Kind: Unsigned, Bits: 16}
	Uint32 = Type{Kind: Unsigned, Bits: 32}
	Uint64 = Type{Kind: Unsigned, Bits: 64}

	Int8  = Type{Kind: Signed, Bits: 8}
	Int16 = Type{Kind: Signed, Bits: 16}
	Int32 = Type{Kind: Signed, Bits: 32}
	Int64 = Type{Kind: Signed, Bits: 64}

	Float32 = Type{Kind: Float, Bits: 32}
	Float64 = Type{Kind: Float, Bits: 64}

	Boolean = Type{Kind: Bool, Bits: 8}

	Float32Matrix = Type{Kind: Float, Bits: 32, Matrix: true}
	Float64Matrix = Type{Kind: Float, Bits: 64, Matrix: true}
)

var ErrUnknownType = errors.New("unknown type")

// Numeric lists the scalar numeric types in the order operators are registered.
var Numeric = []Type{Float64, Float32, Uint64, Int64, Uint32, Int32, Uint16, Int16, Uint8, Int8}

var kindNames = [...]string{
	Void:     "void",
	Unsigned: "uint",
	Signed:   "int",
	Float:    "float",
	Bool:     "boolean",
}

func Words(bytes int) int {
	return (bytes + WordSize - 1) / WordSize
}

func (t Type) SameAs(x Type) bool {
	return t == x
}

func (t Type) IsMatrix() bool { return t.Matrix }

func (t Type) IsVoid() bool { return t.Kind == Void }

func (t Type) IsNumeric() bool {
	return !t.Matrix && (t.Kind == Unsigned || t.Kind == Signed || t.Kind == Float)
}

// Elem returns the element type of a matrix or t itself.
func (t Type) Elem() Type {
	t.Matrix = false
	return t
}

// MatrixOf returns matrix of t elements.
func (t Type) MatrixOf() Type {
	t.Matrix = true
	return t
}

// Size is the element storage size in bytes.
func (t Type) Size() int {
	return int(t.Bits) / 8
}

// Words is the number of data memory words the value takes on the stack.
func (t Type) Words() int {
	if t.Matrix {
		return Words(AddrSize)
	}

	return Words(t.Size())
}

func (t Type) String() string {
	if t.Kind == Void {
		return "void"
	}

	var b strings.Builder

	b.WriteString(kindNames[t.Kind])

	if t.Kind != Bool {
		b.WriteString(bitsName(t.Bits))
	}

	if t.Matrix {
		b.WriteString("_M")
	}

	return b.String()
}

func (t Type) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	return e.AppendString(b, t.String())
}

func Parse(s string) (t Type, err error) {
	name, matrix := strings.CutSuffix(s, "_M")

	switch name {
	case "boolean", "bool":
		t = Boolean
	default:
		for _, x := range Numeric {
			if x.String() == name {
				t = x
				break
			}
		}
	}

	if t.Kind == Void {
		return Type{}, errors.Wrap(ErrUnknownType, "%q", s)
	}

	if matrix {
		if t.Kind != Float {
			return Type{}, errors.New("matrix of %v is not supported", t)
		}

		t.Matrix = true
	}

	return t, nil
}

func bitsName(b uint8) string {
	switch b {
	case 8:
		return "8"
	case 16:
		return "16"
	case 32:
		return "32"
	case 64:
		return "64"
	default:
		return "?"
	}
}
