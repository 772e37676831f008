package unionfs

// Winner is the physical entry chosen to answer a request for a virtual path.
type Winner struct {
	Path string
	Stat Stat
}

func (w Winner) Kind() Kind { return w.Stat.Kind }

// newer reports whether st should replace the current best candidate. Ties
// keep the candidate seen first.
func newer(best *Winner, st Stat) bool {
	return best == nil || st.Mtime.After(best.Stat.Mtime)
}

// Resolve picks the physical entry that realizes a virtual path.
//
// Among regular files the one with the latest modification time wins. Among
// directories the same rule picks the one whose metadata is reported. When a
// name is a file in one root and a directory in another, the index's
// ConflictPolicy decides. Candidates that disappeared since the index was
// built are ignored.
func (ix *Index) Resolve(path string) (Winner, error) {
	path = Clean(path)
	candidates, ok := ix.entries[path]
	if !ok {
		return Winner{}, notFound(path)
	}

	var file, dir *Winner
	for _, c := range candidates {
		st, err := statPath(c)
		if err != nil {
			if isMissing(err) {
				continue
			}
			return Winner{}, ioError(path, err)
		}
		switch st.Kind {
		case KindFile:
			if newer(file, st) {
				file = &Winner{Path: c, Stat: st}
			}
		case KindDir:
			if newer(dir, st) {
				dir = &Winner{Path: c, Stat: st}
			}
		}
	}

	switch ix.policy.kind(file != nil, dir != nil) {
	case KindFile:
		return *file, nil
	case KindDir:
		return *dir, nil
	default:
		return Winner{}, notFound(path)
	}
}
