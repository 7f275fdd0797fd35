// This file is part of GopherCell.
//
// GopherCell is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GopherCell is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GopherCell.  If not, see <https://www.gnu.org/licenses/>.

package prefs

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Value represents the actual Go preference value.
type Value interface{}

// types supported by the prefs system must implement the pref interface.
type pref interface {
	fmt.Stringer
	Set(value Value) error
	Get() Value
	Reset() error
}

// hooks are shared by all the preference types.
type hooks struct {
	hookPre  func(value Value) error
	hookPost func(value Value) error
}

// SetHookPre sets the callback function to be called just before the prefs
// value is updated. If the callback returns an error the value is not
// changed. The callback is executed even if the value hasn't changed.
func (h *hooks) SetHookPre(f func(value Value) error) {
	h.hookPre = f
}

// SetHookPost sets the callback function to be called just after the prefs
// value is updated.
func (h *hooks) SetHookPost(f func(value Value) error) {
	h.hookPost = f
}

func (h *hooks) store(v *atomic.Value, nv Value) error {
	if h.hookPre != nil {
		if err := h.hookPre(nv); err != nil {
			return err
		}
	}
	v.Store(nv)
	if h.hookPost != nil {
		if err := h.hookPost(nv); err != nil {
			return err
		}
	}
	return nil
}

// Bool implements a boolean type in the prefs system.
type Bool struct {
	hooks
	value atomic.Value // bool
}

func (p *Bool) String() string {
	return fmt.Sprintf("%v", p.Get())
}

// Set new value to Bool type. New value must be of type bool or string. A
// string value of anything other than "true" (case insensitive) will set the
// value to false.
func (p *Bool) Set(v Value) error {
	var nv bool
	switch v := v.(type) {
	case bool:
		nv = v
	case string:
		nv = strings.ToLower(strings.TrimSpace(v)) == "true"
	default:
		return fmt.Errorf("prefs: cannot convert %T to prefs.Bool", v)
	}
	return p.store(&p.value, nv)
}

// Get returns the raw pref value.
func (p *Bool) Get() Value {
	if ov := p.value.Load(); ov != nil {
		return ov.(bool)
	}
	return false
}

// Value is a typed variant of Get().
func (p *Bool) Value() bool {
	return p.Get().(bool)
}

// Reset sets the boolean value to false.
func (p *Bool) Reset() error {
	return p.Set(false)
}

// String implements a string type in the prefs system.
type String struct {
	hooks
	value atomic.Value // string

	// an optional list of accepted values. case insensitive. the stored value
	// is always the upper case version
	options []string
}

func (p *String) String() string {
	if ov := p.value.Load(); ov != nil {
		return ov.(string)
	}
	return ""
}

// SetOptions restricts the values the String will accept. Accepted values are
// stored in upper case.
func (p *String) SetOptions(options ...string) {
	p.options = p.options[:0]
	for _, o := range options {
		p.options = append(p.options, strings.ToUpper(o))
	}
}

// Set new value to String type.
func (p *String) Set(v Value) error {
	nv := strings.TrimSpace(fmt.Sprintf("%v", v))
	if len(p.options) > 0 {
		nv = strings.ToUpper(nv)
		ok := false
		for _, o := range p.options {
			if nv == o {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("prefs: %q is not one of %s", nv, strings.Join(p.options, ", "))
		}
	}
	return p.store(&p.value, nv)
}

// Get returns the raw pref value.
func (p *String) Get() Value {
	return p.String()
}

// Reset sets the string value to the empty string or, if the String has
// options, to the first option.
func (p *String) Reset() error {
	if len(p.options) > 0 {
		return p.Set(p.options[0])
	}
	return p.Set("")
}

// Int implements an integer type in the prefs system.
type Int struct {
	hooks
	value atomic.Value // int
}

func (p *Int) String() string {
	return fmt.Sprintf("%d", p.Get())
}

// Set new value to Int type. New value can be an int or string.
func (p *Int) Set(v Value) error {
	var nv int
	switch v := v.(type) {
	case int64:
		nv = int(v)
	case int32:
		nv = int(v)
	case int:
		nv = v
	case string:
		var err error
		nv, err = strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("prefs: cannot convert %q to prefs.Int: %w", v, err)
		}
	default:
		return fmt.Errorf("prefs: cannot convert %T to prefs.Int", v)
	}
	return p.store(&p.value, nv)
}

// Get returns the raw pref value.
func (p *Int) Get() Value {
	if ov := p.value.Load(); ov != nil {
		return ov.(int)
	}
	return 0
}

// Value is a typed variant of Get().
func (p *Int) Value() int {
	return p.Get().(int)
}

// Reset sets the int value to zero.
func (p *Int) Reset() error {
	return p.Set(0)
}

// Duration implements a time.Duration type in the prefs system. Integer
// values are taken to be milliseconds.
type Duration struct {
	hooks
	value atomic.Value // time.Duration
}

func (p *Duration) String() string {
	return p.Value().String()
}

// Set new value to Duration type. New value can be a time.Duration, an int
// (milliseconds) or a string. A string is parsed with time.ParseDuration() or,
// failing that, as a number of milliseconds.
func (p *Duration) Set(v Value) error {
	var nv time.Duration
	switch v := v.(type) {
	case time.Duration:
		nv = v
	case int:
		nv = time.Duration(v) * time.Millisecond
	case string:
		v = strings.TrimSpace(v)
		d, err := time.ParseDuration(v)
		if err != nil {
			ms, aerr := strconv.Atoi(v)
			if aerr != nil {
				return fmt.Errorf("prefs: cannot convert %q to prefs.Duration: %w", v, err)
			}
			d = time.Duration(ms) * time.Millisecond
		}
		nv = d
	default:
		return fmt.Errorf("prefs: cannot convert %T to prefs.Duration", v)
	}
	if nv < 0 {
		return fmt.Errorf("prefs: negative duration %v", nv)
	}
	return p.store(&p.value, nv)
}

// Get returns the raw pref value.
func (p *Duration) Get() Value {
	if ov := p.value.Load(); ov != nil {
		return ov.(time.Duration)
	}
	return time.Duration(0)
}

// Value is a typed variant of Get().
func (p *Duration) Value() time.Duration {
	return p.Get().(time.Duration)
}

// Reset sets the duration to zero.
func (p *Duration) Reset() error {
	return p.Set(time.Duration(0))
}
