package kvcache

import (
	"time"

	"github.com/unkn0wn-root/kvcache/backend"
)

// Options configure a Store. One of Backend, Path or Name is required.
type Options struct {
	// Backend replaces the built-in preferences file as the default backend.
	// The Store does not close it.
	Backend backend.Backend
	// Name identifies the application; the built-in backend is stored at
	// file.DefaultPath(Name). Ignored when Backend is set.
	Name string
	// Path overrides the location of the built-in backend's document.
	Path string
	// OpenTimeout bounds waiting for the built-in backend's file lock; 0 => 5s.
	OpenTimeout time.Duration

	// Custom, when set, is consulted instead of the default backend.
	// Can be changed later with Store.UseCustom.
	Custom backend.Backend

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used
}
