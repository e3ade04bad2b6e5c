package domain

import "slices"

// Ledger remembers unique outcomes attempted in the current session.
type Ledger struct {
	keys map[string]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{keys: map[string]struct{}{}}
}

// Claim records a unique attempt and returns the attribution to send with.
// It reports false when the outcome was already attempted for every
// notification in att.
func (l *Ledger) Claim(name string, att Attribution) (Attribution, bool) {
	switch att.Session {
	case SessionDirect, SessionIndirect:
		fresh := make([]string, 0, len(att.NotificationIDs))
		for _, id := range att.NotificationIDs {
			key := name + "\x00n\x00" + id
			if _, seen := l.keys[key]; seen || slices.Contains(fresh, id) {
				continue
			}
			fresh = append(fresh, id)
		}
		if len(fresh) == 0 {
			return att, false
		}
		for _, id := range fresh {
			l.keys[name+"\x00n\x00"+id] = struct{}{}
		}
		return Attribution{Session: att.Session, NotificationIDs: fresh}, true
	default:
		key := name + "\x00u"
		if _, seen := l.keys[key]; seen {
			return att, false
		}
		l.keys[key] = struct{}{}
		return Attribution{Session: SessionUnattributed}, true
	}
}

func (l *Ledger) Reset() {
	clear(l.keys)
}

func (l *Ledger) Len() int {
	return len(l.keys)
}
