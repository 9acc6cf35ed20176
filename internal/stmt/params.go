package stmt

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrBindRange is returned when a parameter position is outside 1..Count.
var ErrBindRange = errors.New("parameter position out of range")

// ParameterBinder fills the parameters of one Mutate iteration.
//
// BindParams is called once per iteration with a zero-based iteration
// index. All parameters start out NULL for every iteration.
type ParameterBinder interface {
	BindParams(index int, p *Params) error
}

// BindFunc adapts a function to the ParameterBinder interface.
type BindFunc func(index int, p *Params) error

// BindParams calls f(index, p).
func (f BindFunc) BindParams(index int, p *Params) error {
	return f(index, p)
}

// Params holds the parameter values for the next step of a prepared
// statement. Positions are 1-based, as in SQLite.
type Params struct {
	values []any
	named  []driver.NamedValue
}

func newParams(n int) *Params {
	return &Params{values: make([]any, n)}
}

// Count returns the number of parameters the statement declares.
func (p *Params) Count() int {
	return len(p.values)
}

// Bind sets parameter pos to v. v may be any type accepted by
// database/sql (integers, floats, bool, string, []byte, time.Time, nil,
// or a driver.Valuer).
func (p *Params) Bind(pos int, v any) error {
	if pos < 1 || pos > len(p.values) {
		return fmt.Errorf("%w: %d (statement has %d)", ErrBindRange, pos, len(p.values))
	}
	cv, err := driver.DefaultParameterConverter.ConvertValue(v)
	if err != nil {
		return fmt.Errorf("parameter %d: %w", pos, err)
	}
	p.values[pos-1] = cv
	return nil
}

// BindNull sets parameter pos to NULL.
func (p *Params) BindNull(pos int) error {
	return p.Bind(pos, nil)
}

// BindInt64 sets parameter pos to an integer.
func (p *Params) BindInt64(pos int, v int64) error {
	return p.Bind(pos, v)
}

// BindInt sets parameter pos to an integer.
func (p *Params) BindInt(pos int, v int) error {
	return p.Bind(pos, int64(v))
}

// BindFloat64 sets parameter pos to a floating point number.
func (p *Params) BindFloat64(pos int, v float64) error {
	return p.Bind(pos, v)
}

// BindText sets parameter pos to a string.
func (p *Params) BindText(pos int, v string) error {
	return p.Bind(pos, v)
}

// BindBlob sets parameter pos to bytes. A nil slice binds an empty blob.
func (p *Params) BindBlob(pos int, v []byte) error {
	if v == nil {
		v = []byte{}
	}
	return p.Bind(pos, v)
}

// BindBool sets parameter pos to 1 or 0.
func (p *Params) BindBool(pos int, v bool) error {
	return p.Bind(pos, v)
}

// BindTime sets parameter pos to a timestamp.
func (p *Params) BindTime(pos int, v time.Time) error {
	return p.Bind(pos, v)
}

// BindNamed sets the parameter written as :name, @name or $name in the
// statement. The prefix may be included or omitted. Names that do not
// occur in the statement are ignored by the engine.
func (p *Params) BindNamed(name string, v any) error {
	name = strings.TrimLeft(name, ":@$")
	if name == "" {
		return errors.New("empty parameter name")
	}
	cv, err := driver.DefaultParameterConverter.ConvertValue(v)
	if err != nil {
		return fmt.Errorf("parameter %s: %w", name, err)
	}
	p.named = append(p.named, driver.NamedValue{Name: name, Value: cv})
	return nil
}

// clear resets every parameter to NULL.
func (p *Params) clear() {
	for i := range p.values {
		p.values[i] = nil
	}
	p.named = p.named[:0]
}

// args returns the driver arguments for the next step. Every position is
// bound, NULL where unset, so no value leaks from a previous iteration.
// Named values follow the positional ones and take precedence.
func (p *Params) args() []driver.NamedValue {
	out := make([]driver.NamedValue, 0, len(p.values)+len(p.named))
	for i, v := range p.values {
		out = append(out, driver.NamedValue{Ordinal: i + 1, Value: v})
	}
	return append(out, p.named...)
}
