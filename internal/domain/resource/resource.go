// Package resource holds the catalogued educational resource returned by searches.
package resource

// Resource is a catalogued learning resource.
type Resource struct {
	id            string
	title         string
	description   string
	averageRating float64
	subject       string
	examBoard     string
	level         string
	resourceType  string
}

// Reconstruct rebuilds a Resource from stored attributes.
func Reconstruct(
	id, title, description string,
	averageRating float64,
	subject, examBoard, level, resourceType string,
) Resource {
	return Resource{
		id:            id,
		title:         title,
		description:   description,
		averageRating: averageRating,
		subject:       subject,
		examBoard:     examBoard,
		level:         level,
		resourceType:  resourceType,
	}
}

// ID returns the resource identifier.
func (r *Resource) ID() string { return r.id }

// Title returns the resource title.
func (r *Resource) Title() string { return r.title }

// Description returns the resource description.
func (r *Resource) Description() string { return r.description }

// AverageRating returns the mean user rating.
func (r *Resource) AverageRating() float64 { return r.averageRating }

// Subject returns the subject, e.g. "Maths".
func (r *Resource) Subject() string { return r.subject }

// ExamBoard returns the exam board, e.g. "AQA".
func (r *Resource) ExamBoard() string { return r.examBoard }

// Level returns the qualification level, e.g. "GCSE".
func (r *Resource) Level() string { return r.level }

// Type returns the resource type, e.g. "worksheet".
func (r *Resource) Type() string { return r.resourceType }
