// Package notice models the transient banner shown after task actions.
package notice

import (
	"sync"
	"time"
)

type Kind int

const (
	Info Kind = iota
	Success
	Warning
	Error
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// DefaultTTL is how long non-error notices stay visible.
const DefaultTTL = 3 * time.Second

// AutoHide returns how long a notice of kind k stays up. Zero means it stays
// until dismissed.
func (k Kind) AutoHide() time.Duration {
	if k == Error {
		return 0
	}
	return DefaultTTL
}

type Notice struct {
	Kind    Kind
	Message string
	Shown   time.Time
}

// Expired reports whether n should no longer be shown at now.
func (n Notice) Expired(now time.Time) bool {
	ttl := n.Kind.AutoHide()
	return ttl > 0 && !now.Before(n.Shown.Add(ttl))
}

// Board holds the latest notice. A new notice replaces the previous one.
type Board struct {
	mu  sync.Mutex
	cur *Notice
	now func() time.Time
}

func NewBoard(now func() time.Time) *Board {
	if now == nil {
		now = time.Now
	}
	return &Board{now: now}
}

// Show posts a notice and returns it.
func (b *Board) Show(k Kind, msg string) Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := Notice{Kind: k, Message: msg, Shown: b.now()}
	b.cur = &n
	return n
}

// Current returns the visible notice, dropping it first if it has expired.
func (b *Board) Current() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cur == nil {
		return Notice{}, false
	}
	if b.cur.Expired(b.now()) {
		b.cur = nil
		return Notice{}, false
	}
	return *b.cur, true
}

func (b *Board) Dismiss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cur = nil
}
