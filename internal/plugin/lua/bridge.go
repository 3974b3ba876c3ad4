package lua

import (
	"fmt"
	"reflect"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// Bridge converts values between Go and Lua.
type Bridge struct {
	L *lua.LState
}

// NewBridge creates a new Bridge for the given Lua state.
func NewBridge(L *lua.LState) *Bridge {
	return &Bridge{L: L}
}

// ToGoValue converts a Lua value to a Go value.
// Sequences become []any, other tables map[string]any. Functions become nil.
func (b *Bridge) ToGoValue(lv lua.LValue) any {
	return b.toGo(lv, make(map[*lua.LTable]bool))
}

func (b *Bridge) toGo(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil // cycle
		}
		visited[v] = true
		defer delete(visited, v)
		return b.tableToGo(v, visited)
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

func (b *Bridge) tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	if n := t.Len(); n > 0 && countKeys(t) == n {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = b.toGo(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		if n, ok := k.(lua.LNumber); ok {
			key = fmt.Sprint(float64(n))
		} else {
			key = k.String()
		}
		m[key] = b.toGo(v, visited)
	})
	return m
}

func countKeys(t *lua.LTable) int {
	n := 0
	t.ForEach(func(_, _ lua.LValue) { n++ })
	return n
}

// ToLuaValue converts a Go value to a Lua value. Maps are emitted in key
// order so scripts see deterministic iteration on first insert. A pointer,
// map or slice that refers back to one of its ancestors becomes nil.
func (b *Bridge) ToLuaValue(v any) lua.LValue {
	return b.toLua(v, make(map[ref]bool))
}

// ref identifies a pointer, map or slice on the current conversion path.
type ref struct {
	typ reflect.Type
	ptr uintptr
}

// enter marks rv as being converted. It reports false if rv is already
// on the path.
func enter(rv reflect.Value, visited map[ref]bool) (ref, bool) {
	r := ref{rv.Type(), rv.Pointer()}
	if visited[r] {
		return r, false
	}
	visited[r] = true
	return r, true
}

func (b *Bridge) toLua(v any, visited map[ref]bool) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case []string:
		t := b.L.CreateTable(len(val), 0)
		for i, s := range val {
			t.RawSetInt(i+1, lua.LString(s))
		}
		return t
	case map[string]any:
		if val == nil {
			return b.L.NewTable()
		}
		r, ok := enter(reflect.ValueOf(val), visited)
		if !ok {
			return lua.LNil // cycle
		}
		defer delete(visited, r)

		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		t := b.L.CreateTable(0, len(val))
		for _, k := range keys {
			t.RawSetString(k, b.toLua(val[k], visited))
		}
		return t
	default:
		return b.reflectToLua(reflect.ValueOf(v), visited)
	}
}

// reflectToLua handles the remaining kinds: numbers of other widths,
// slices, maps with arbitrary keys, pointers and structs.
func (b *Bridge) reflectToLua(rv reflect.Value, visited map[ref]bool) lua.LValue {
	if !rv.IsValid() {
		return lua.LNil
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Map:
		if rv.IsNil() {
			if rv.Kind() == reflect.Map {
				return b.L.NewTable()
			}
			return lua.LNil
		}
	case reflect.Slice:
		if rv.Len() == 0 {
			return b.L.NewTable()
		}
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		r, ok := enter(rv, visited)
		if !ok {
			return lua.LNil // cycle
		}
		defer delete(visited, r)
	}

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float())
	case reflect.Pointer:
		return b.toLua(rv.Elem().Interface(), visited)
	case reflect.Interface:
		if rv.IsNil() {
			return lua.LNil
		}
		return b.toLua(rv.Elem().Interface(), visited)
	case reflect.Slice, reflect.Array:
		t := b.L.CreateTable(rv.Len(), 0)
		for i := 0; i < rv.Len(); i++ {
			t.RawSetInt(i+1, b.toLua(rv.Index(i).Interface(), visited))
		}
		return t
	case reflect.Map:
		t := b.L.NewTable()
		iter := rv.MapRange()
		for iter.Next() {
			t.RawSet(b.toLua(iter.Key().Interface(), visited), b.toLua(iter.Value().Interface(), visited))
		}
		return t
	case reflect.Struct:
		t := b.L.NewTable()
		rt := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			if f := rt.Field(i); f.IsExported() {
				t.RawSetString(f.Name, b.toLua(rv.Field(i).Interface(), visited))
			}
		}
		return t
	default:
		ud := b.L.NewUserData()
		ud.Value = rv.Interface()
		return ud
	}
}

// TableString gets a string field from a Lua table.
func (b *Bridge) TableString(t *lua.LTable, key string) (string, bool) {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s), true
	}
	return "", false
}

// TableFunc gets a function field from a Lua table.
func (b *Bridge) TableFunc(t *lua.LTable, key string) (*lua.LFunction, bool) {
	f, ok := t.RawGetString(key).(*lua.LFunction)
	return f, ok
}
