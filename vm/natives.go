package vm

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// RegisterHostFuncs defines the small set of natives shared by the tess
// CLI and the evaluation server:
//
//	print(a, b, ...)  writes the formatted arguments, space separated, to w
//	str(v)            formats v as a string
//	typeof(v)         returns the type name of v
//	num(s)            parses a string as a number
func RegisterHostFuncs(in *Interpreter, w io.Writer) {
	in.DefineFunc("print", func(_ *Interpreter, _ Value, args []Value) (Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = Format(a)
		}
		_, err := fmt.Fprintln(w, strings.Join(parts, " "))
		return Null, err
	})

	in.DefineFunc("str", func(_ *Interpreter, _ Value, args []Value) (Value, error) {
		if err := wantArgs(args, 1); err != nil {
			return nil, err
		}
		return String(Format(args[0])), nil
	})

	in.DefineFunc("typeof", func(_ *Interpreter, _ Value, args []Value) (Value, error) {
		if err := wantArgs(args, 1); err != nil {
			return nil, err
		}
		return String(TypeName(args[0])), nil
	})

	in.DefineFunc("num", func(_ *Interpreter, _ Value, args []Value) (Value, error) {
		if err := wantArgs(args, 1); err != nil {
			return nil, err
		}
		switch v := args[0].(type) {
		case Number:
			return v, nil
		case String:
			f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
			if err != nil {
				return nil, fmt.Errorf("cannot parse %q as a number", string(v))
			}
			return Number(f), nil
		}
		return nil, fmt.Errorf("cannot convert %s to a number", TypeName(args[0]))
	})
}
