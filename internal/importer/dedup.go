package importer

import "github.com/JonMunkholm/prospector/internal/prospect"

// EmailSet is the case-insensitive set of emails already present in a
// tenant scope, grown as rows are admitted.
type EmailSet struct {
	seen map[string]struct{}
}

// NewEmailSet seeds the set with emails already stored in the scope.
func NewEmailSet(existing []string) *EmailSet {
	s := &EmailSet{seen: make(map[string]struct{}, len(existing))}
	for _, e := range existing {
		if e = prospect.NormalizeEmail(e); e != "" {
			s.seen[e] = struct{}{}
		}
	}
	return s
}

// Admit reports whether a row with this email should be kept. Rows
// without an email are always kept and never recorded, so they are never
// treated as duplicates of each other.
func (s *EmailSet) Admit(email *string) bool {
	if email == nil {
		return true
	}
	key := prospect.NormalizeEmail(*email)
	if key == "" {
		return true
	}
	if _, dup := s.seen[key]; dup {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Len is the number of distinct emails known.
func (s *EmailSet) Len() int {
	return len(s.seen)
}
