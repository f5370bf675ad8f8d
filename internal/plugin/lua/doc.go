// Package lua wraps gopher-lua for running plugin scripts.
//
// A State is a sandboxed interpreter: only the base, table, string, math
// and package libraries are opened, dofile/loadfile/load/loadstring are
// removed, and require resolves only preloaded modules and the safe
// built-ins. Every outermost call runs under a timeout enforced through
// the interpreter's context; nested calls made from Go functions invoked
// by Lua share that deadline.
//
// Values cross the boundary through ToLua and ToGo. Tables become
// []any or map[string]any, integral numbers become int64, and Go values
// with no Lua counterpart travel as userdata so they round-trip intact.
//
// A State is not safe for concurrent use. Callers serialize access.
package lua
