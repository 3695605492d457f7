package review

// CommentSet is the normalized form of a save submission: indicator name to
// reviewer comment. Both wire shapes (annotations list, indicators map)
// reduce to this before folding.
type CommentSet map[string]string

// NormalizeAnnotations reduces an annotations list to a CommentSet. Later
// entries for the same indicator win, matching the viewer which keeps only
// the latest comment per indicator. Entries with empty comments are dropped.
func NormalizeAnnotations(entries []AnnotationEntry) CommentSet {
	set := make(CommentSet, len(entries))
	for _, e := range entries {
		if e.Indicator == "" || e.Comment == "" {
			continue
		}
		set[e.Indicator] = e.Comment
	}
	return set
}

// NormalizeEdits reduces an indicators map to a CommentSet.
func NormalizeEdits(edits map[string]IndicatorEdit) CommentSet {
	set := make(CommentSet, len(edits))
	for name, e := range edits {
		if name == "" || e.Comment == "" {
			continue
		}
		set[name] = e.Comment
	}
	return set
}

// Fold applies reviewer comments to a base indicator record and returns the
// record to persist. Values carry over untouched; only comments change.
// Scalar values gain a comment by upgrading to structured form. Comments for
// indicators absent from the base record are silently ignored.
func Fold(base IndicatorRecord, comments CommentSet) IndicatorRecord {
	merged := make(IndicatorRecord, len(base))
	for name, v := range base {
		merged[name] = v
	}
	for name, comment := range comments {
		v, ok := merged[name]
		if !ok {
			continue
		}
		merged[name] = v.WithComment(comment)
	}
	return merged
}
