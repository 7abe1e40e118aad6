package zimp

// ShareMerger applies a parent's sharing to a newly created child.
// The importer treats it as opaque and calls it exactly once per record.
type ShareMerger interface {
	Merge(parent, child *Record, recursive bool)
}

// InheritShares is the default ShareMerger. The child inherits every share
// the parent holds directly or inherited itself. With recursive set, the
// child's inherited shares are what its own descendants will pick up.
type InheritShares struct{}

func (InheritShares) Merge(parent, child *Record, recursive bool) {
	if parent == nil || child == nil {
		return
	}

	inherited := make([]Share, 0, len(parent.Shared)+len(parent.InheritedShares))
	if recursive {
		inherited = appendShares(inherited, parent.InheritedShares)
	}
	inherited = appendShares(inherited, parent.Shared)
	inherited = appendShares(inherited, child.InheritedShares)

	child.InheritedShares = inherited
	child.IsShared = len(child.Shared) > 0 || len(child.InheritedShares) > 0
}

// appendShares appends the shares from src not already present in dst.
// A share is identified by its user or group; rights of duplicates are merged.
func appendShares(dst []Share, src []Share) []Share {
	for _, s := range src {
		found := false
		for i := range dst {
			if dst[i].UserID == s.UserID && dst[i].GroupID == s.GroupID {
				dst[i].Rights = mergeRights(dst[i].Rights, s.Rights)
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, Share{
				UserID:  s.UserID,
				GroupID: s.GroupID,
				Rights:  append([]string(nil), s.Rights...),
			})
		}
	}
	return dst
}

func mergeRights(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	for _, r := range a {
		seen[r] = true
	}
	for _, r := range b {
		if !seen[r] {
			a = append(a, r)
			seen[r] = true
		}
	}
	return a
}
