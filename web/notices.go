package web

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Notice kinds map to CSS classes.
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
	NoticeWarning = "warning"
)

// DefaultNoticeTTL bounds how long an unread notice is kept.
const DefaultNoticeTTL = 5 * time.Minute

// Notice is a transient, dismissible message shown once.
type Notice struct {
	ID      string
	Kind    string
	Message string
}

// Notices stores notices between a POST and the page it redirects to.
// Each notice is returned by Take at most once.
type Notices struct {
	store *cache.Cache
}

// NewNotices creates a notice store whose entries expire after ttl.
func NewNotices(ttl time.Duration) *Notices {
	if ttl <= 0 {
		ttl = DefaultNoticeTTL
	}
	return &Notices{store: cache.New(ttl, 2*ttl)}
}

// Add stores a notice and returns it with its id.
func (n *Notices) Add(kind, message string) Notice {
	notice := newNotice(kind, message)
	n.store.SetDefault(notice.ID, notice)
	return notice
}

// Take returns and removes a notice.
func (n *Notices) Take(id string) (Notice, bool) {
	if id == "" {
		return Notice{}, false
	}
	v, ok := n.store.Get(id)
	if !ok {
		return Notice{}, false
	}
	n.store.Delete(id)
	return v.(Notice), true
}

// Dismiss drops a notice whether or not it was shown.
func (n *Notices) Dismiss(id string) {
	n.store.Delete(id)
}

// Len returns the number of pending notices.
func (n *Notices) Len() int {
	return n.store.ItemCount()
}

func newNotice(kind, message string) Notice {
	return Notice{ID: uuid.NewString(), Kind: kind, Message: message}
}
