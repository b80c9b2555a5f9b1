package absence

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// StatusApproved is the absence.io status code of an approved absence
const StatusApproved = 2

// FlexibleID handles both string and number IDs from the API.
// User ids are Mongo object ids ("5d1a...") but older payloads carry numbers.
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler for FlexibleID
func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	// Try to unmarshal as string first
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexibleID(s)
		return nil
	}

	// Try as number
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = FlexibleID(strconv.FormatInt(n, 10))
		return nil
	}

	return fmt.Errorf("FlexibleID: cannot unmarshal %s", string(b))
}

// String returns string representation
func (f FlexibleID) String() string {
	return string(f)
}

// Credentials are the login email and password
type Credentials struct {
	Email    string
	Password string
}

// LoginRequest represents the body of POST /auth/login
type LoginRequest struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Company  *string  `json:"company"`
	Trace    []string `json:"trace"`
}

// LoginResponse represents the answer of POST /auth/login
type LoginResponse struct {
	Token    string `json:"token"`
	Language string `json:"language,omitempty"`
}

// User represents the identity resolved from an auth token
type User struct {
	ID           FlexibleID `json:"_id"`
	Email        string     `json:"email,omitempty"`
	Name         string     `json:"name,omitempty"`
	HolidayDates []string   `json:"holidayDates"` // ISO datetime strings
}

// AbsenceQuery represents the body of POST /v2/absences
type AbsenceQuery struct {
	Skip   int            `json:"skip"`
	Limit  int            `json:"limit"`
	Filter AbsenceFilter  `json:"filter"`
	SortBy map[string]int `json:"sortBy"`
}

// AbsenceFilter selects approved absences of one user starting on or after a date
type AbsenceFilter struct {
	AssignedToID string      `json:"assignedToId"`
	Status       InFilter    `json:"status"`
	Start        RangeFilter `json:"start"`
}

// InFilter is a {"$in": [...]} query operator
type InFilter struct {
	In []int `json:"$in"`
}

// RangeFilter is a {"$gte": ...} query operator
type RangeFilter struct {
	Gte string `json:"$gte"`
}

// AbsenceList represents the answer of POST /v2/absences
type AbsenceList struct {
	Skip       int             `json:"skip"`
	Limit      int             `json:"limit"`
	Count      int             `json:"count"`
	TotalCount int             `json:"totalCount"`
	Data       []AbsenceRecord `json:"data"`
}

// AbsenceRecord is a single absence with inclusive start/end dates
type AbsenceRecord struct {
	ID     FlexibleID `json:"_id"`
	Start  string     `json:"start"`
	End    string     `json:"end"`
	Status int        `json:"status"`
}

// CreateTimespanRequest represents the body of POST /v2/timespans/create
type CreateTimespanRequest struct {
	UserID       string   `json:"userId"`
	ID           string   `json:"_id"`
	Timezone     string   `json:"timezone"`
	TimezoneName string   `json:"timezoneName"`
	Type         string   `json:"type"`
	Commentary   string   `json:"commentary"`
	Start        string   `json:"start"` // 2019-08-12T08:30:00Z
	End          string   `json:"end"`
	Trace        []string `json:"trace"`
}
