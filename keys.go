package kvcache

import "reflect"

// Namespace prefixes raw keys as "<namespace>.<raw>".
//
// Nothing stops a raw key from equalling a rendered namespaced key;
// "Settings.theme" written directly and Namespace("Settings").Key("theme")
// are the same entry.
type Namespace string

func (n Namespace) Key(raw string) string {
	return string(n) + "." + raw
}

// NamespaceFor uses the name of T, without package path, as the namespace.
// Unnamed types fall back to their type string.
func NamespaceFor[T any]() Namespace {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if rt.Name() != "" {
		return Namespace(rt.Name())
	}
	return Namespace(rt.String())
}
