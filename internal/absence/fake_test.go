package absence

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

const (
	testToken   = "a1b2c3d4e5f6a7b"
	testUserID  = "5d1a2b3c4d5e6f7a8b9c0d1e"
	testOverlap = "Los registros no se pueden solapar"
)

// fakeService is a stateful stand-in for the absence.io API.
// Submitted spans are remembered; a second identical span is rejected as overlap.
type fakeService struct {
	t *testing.T

	mu           sync.Mutex
	loginStatus  int
	loginBody    string
	userStatus   int
	holidayDates []string
	absences     []AbsenceRecord
	createStatus int // forces a status for span creation when non-zero
	created      []CreateTimespanRequest
	absenceQuery *AbsenceQuery
	absenceSkips []int
	requests     map[string]int
}

func newFakeService(t *testing.T) *fakeService {
	return &fakeService{
		t:           t,
		loginStatus: http.StatusOK,
		loginBody:   `{"token":"` + testToken + `","language":"es"}`,
		userStatus:  http.StatusOK,
		requests:    make(map[string]int),
	}
}

func (f *fakeService) start() *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(f.handle))
	f.t.Cleanup(server.Close)
	return server
}

func (f *fakeService) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

func (f *fakeService) createdSpans() []CreateTimespanRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CreateTimespanRequest(nil), f.created...)
}

func (f *fakeService) absencePageSkips() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.absenceSkips...)
}

func (f *fakeService) lastAbsenceQuery() *AbsenceQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.absenceQuery
}

func (f *fakeService) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests[r.URL.Path]++

	if ct := r.Header.Get("Content-Type"); ct != "application/json" {
		f.t.Errorf("Content-Type = %q, want application/json", ct)
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth/login":
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.t.Errorf("failed to decode login request: %v", err)
		}
		w.WriteHeader(f.loginStatus)
		if f.loginStatus == http.StatusOK {
			w.Write([]byte(f.loginBody))
		}

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/auth/"):
		if got := strings.TrimPrefix(r.URL.Path, "/auth/"); got != testToken {
			f.t.Errorf("identity lookup token = %q, want %q", got, testToken)
		}
		if r.Header.Get(tokenHeader) != testToken {
			f.t.Errorf("identity lookup missing %s header", tokenHeader)
		}
		w.WriteHeader(f.userStatus)
		if f.userStatus == http.StatusOK {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"_id":          testUserID,
				"holidayDates": f.holidayDates,
			})
		}

	case r.Method == http.MethodPost && r.URL.Path == "/v2/absences":
		if r.Header.Get(tokenHeader) != testToken {
			f.t.Errorf("absence query missing %s header", tokenHeader)
		}
		var q AbsenceQuery
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			f.t.Errorf("failed to decode absence query: %v", err)
		}
		f.absenceQuery = &q
		f.absenceSkips = append(f.absenceSkips, q.Skip)
		page := f.absences
		if q.Skip < len(page) {
			page = page[q.Skip:]
		} else {
			page = nil
		}
		if q.Limit > 0 && len(page) > q.Limit {
			page = page[:q.Limit]
		}
		json.NewEncoder(w).Encode(AbsenceList{
			Skip:       q.Skip,
			Limit:      q.Limit,
			Count:      len(page),
			TotalCount: len(f.absences),
			Data:       page,
		})

	case r.Method == http.MethodPost && r.URL.Path == "/v2/timespans/create":
		if r.Header.Get(tokenHeader) != testToken {
			f.t.Errorf("timespan create missing %s header", tokenHeader)
		}
		var req CreateTimespanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.t.Errorf("failed to decode timespan: %v", err)
		}
		if f.createStatus != 0 {
			w.WriteHeader(f.createStatus)
			w.Write([]byte("boom"))
			return
		}
		for _, existing := range f.created {
			if existing.Start < req.End && req.Start < existing.End {
				w.WriteHeader(http.StatusPreconditionFailed)
				w.Write([]byte(testOverlap))
				return
			}
		}
		f.created = append(f.created, req)
		w.WriteHeader(http.StatusNoContent)

	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(baseURL string) *Client {
	return NewClient(baseURL, ClientOptions{
		Timeout:        5 * time.Second,
		OverlapMessage: testOverlap,
		TimezoneName:   "hora de verano de Europa central",
	}, zap.NewNop())
}

var testCreds = Credentials{Email: "worker@example.com", Password: "secret"}
