package filter

// MaxTags is the maximum number of tag conditions per request.
const MaxTags = 32

// Filters are the exact-match and tag-containment constraints of a search.
// An empty scalar means "no constraint".
type Filters struct {
	tags         []string
	subject      string
	examBoard    string
	level        string
	resourceType string
}

// New creates Filters. The tag slice is copied.
func New(tags []string, subject, examBoard, level, resourceType string) Filters {
	var t []string
	if len(tags) > 0 {
		t = make([]string, len(tags))
		copy(t, tags)
	}
	return Filters{
		tags:         t,
		subject:      subject,
		examBoard:    examBoard,
		level:        level,
		resourceType: resourceType,
	}
}

// Tags returns a copy of the tag constraints in request order.
func (f Filters) Tags() []string {
	if len(f.tags) == 0 {
		return nil
	}
	out := make([]string, len(f.tags))
	copy(out, f.tags)
	return out
}

// Subject returns the subject constraint.
func (f Filters) Subject() string { return f.subject }

// ExamBoard returns the exam board constraint.
func (f Filters) ExamBoard() string { return f.examBoard }

// Level returns the level constraint.
func (f Filters) Level() string { return f.level }

// Type returns the resource type constraint.
func (f Filters) Type() string { return f.resourceType }

// IsEmpty reports whether no constraint is set.
func (f Filters) IsEmpty() bool {
	return len(f.tags) == 0 && f.subject == "" && f.examBoard == "" && f.level == "" && f.resourceType == ""
}

// Count returns the number of values the filters bind: one per tag plus one per
// non-empty scalar.
func (f Filters) Count() int {
	n := len(f.tags)
	for _, s := range []string{f.subject, f.examBoard, f.level, f.resourceType} {
		if s != "" {
			n++
		}
	}
	return n
}
