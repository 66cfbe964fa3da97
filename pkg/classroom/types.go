package classroom

import "time"

// Assignment is one dated coursework item as returned by the provider.
type Assignment struct {
	CourseName string
	Title      string
	DueDate    time.Time
	Link       string
	ExternalID string
}

// UndatedAssignment is a coursework item Classroom returned without a dueDate.
type UndatedAssignment struct {
	CourseName string
	Title      string
	Link       string
	ExternalID string
}

// FetchResult is the full output of one provider fetch for one user.
// All three slices may be empty; that is a valid result, not an error.
type FetchResult struct {
	Dated       []Assignment
	Undated     []UndatedAssignment
	CourseNames []string
}

type course struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type coursesResponse struct {
	Courses       []course `json:"courses"`
	NextPageToken string   `json:"nextPageToken"`
}

type apiDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

type apiTimeOfDay struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

type courseWork struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	AlternateLink string        `json:"alternateLink"`
	DueDate       *apiDate      `json:"dueDate"`
	DueTime       *apiTimeOfDay `json:"dueTime"`
}

type courseWorkResponse struct {
	CourseWork    []courseWork `json:"courseWork"`
	NextPageToken string       `json:"nextPageToken"`
}
