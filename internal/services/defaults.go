package services

import "github.com/mockly/apiserver/types"

// defaultResources holds the preparation links attached to a new interview
// when the request carries none.
var defaultResources = map[types.InterviewType][]types.InterviewResource{
	types.InterviewBehavioral: {
		{Title: "STAR Method Guide", URL: "https://example.com/star-method", Type: "article"},
		{Title: "Common Behavioral Questions", URL: "https://example.com/behavioral-questions", Type: "video"},
	},
	types.InterviewFrontend: {
		{Title: "React Interview Questions", URL: "https://example.com/react-questions", Type: "article"},
		{Title: "CSS Flexbox Guide", URL: "https://example.com/flexbox", Type: "tutorial"},
	},
	types.InterviewBackend: {
		{Title: "Node.js Best Practices", URL: "https://example.com/nodejs", Type: "article"},
		{Title: "Database Design Patterns", URL: "https://example.com/database", Type: "video"},
	},
	types.InterviewFullstack: {
		{Title: "System Design Interview", URL: "https://example.com/system-design", Type: "article"},
		{Title: "Full Stack Project Ideas", URL: "https://example.com/projects", Type: "tutorial"},
	},
	types.InterviewDSA: {
		{Title: "Data Structures Guide", URL: "https://example.com/data-structures", Type: "article"},
		{Title: "Algorithm Patterns", URL: "https://example.com/algorithms", Type: "video"},
	},
}

// DefaultResources returns a copy of the canned resources for an interview type.
func DefaultResources(interviewType types.InterviewType) []types.InterviewResource {
	canned := defaultResources[interviewType]
	out := make([]types.InterviewResource, len(canned))
	copy(out, canned)
	return out
}
