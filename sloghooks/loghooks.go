package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/kvcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery      uint64
	MissEvery     uint64
	FillDropEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr  atomic.Uint64
	missCtr atomic.Uint64
	dropCtr atomic.Uint64
}

var _ kvcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) CacheHit(key string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("kvcache.cache_hit", "key", h.redact(key))
}

func (h *Hooks) CacheMiss(key string) {
	if h.l == nil || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("kvcache.cache_miss", "key", h.redact(key))
}

func (h *Hooks) TypeMismatch(key, want string) {
	if h.l == nil {
		return
	}
	h.l.Info("kvcache.type_mismatch",
		"key", h.redact(key),
		"want", want)
}

func (h *Hooks) FillDropped(key string) {
	if h.l == nil || !sample(h.opts.FillDropEvery, &h.dropCtr) {
		return
	}
	h.l.Debug("kvcache.fill_dropped", "key", h.redact(key))
}

func (h *Hooks) DecodeFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("kvcache.decode_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) EncodeFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("kvcache.encode_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) BackendFailed(e *kvcache.BackendError) {
	if h.l == nil {
		return
	}
	h.l.Error("kvcache.backend_failed",
		"op", e.Op,
		"key", h.redact(e.Key),
		"err", e.Err)
}

func (h *Hooks) BackendSwapped(custom bool) {
	if h.l == nil {
		return
	}
	h.l.Info("kvcache.backend_swapped", "custom", custom)
}
