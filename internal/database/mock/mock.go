// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/class-attendance/internal/attendance"
	"github.com/kozaktomas/class-attendance/internal/database"
)

type attendanceKey struct {
	studentID int64
	day       attendance.Day
}

// MockStore is an in-memory implementation of database.Store
type MockStore struct {
	mu         sync.RWMutex
	classes    map[int64]*database.StoredClass
	students   map[int64]*database.StoredStudent
	records    map[int64]*database.StoredAttendance
	recordKeys map[attendanceKey]int64
	nextID     int64
	now        func() time.Time

	// Error injection
	GetClassError       error
	ListClassesError    error
	CreateClassError    error
	UpdateClassError    error
	DeleteClassError    error
	GetStudentError     error
	ListStudentsError   error
	ListEnrolledError   error
	CreateStudentError  error
	UpdateStudentError  error
	DeleteStudentError  error
	GetAttendanceError  error
	ListAttendanceError error
	ApplyMarksError     error
	SetPresenceError    error
	DeleteAttendError   error

	// ApplyMarksCalls counts ApplyMarks invocations
	ApplyMarksCalls int
}

// NewMockStore creates a new empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		classes:    make(map[int64]*database.StoredClass),
		students:   make(map[int64]*database.StoredStudent),
		records:    make(map[int64]*database.StoredAttendance),
		recordKeys: make(map[attendanceKey]int64),
		now:        time.Now,
	}
}

func (m *MockStore) id() int64 {
	m.nextID++
	return m.nextID
}

// AddClass adds a class to the mock store and returns its ID
func (m *MockStore) AddClass(name, subject string) int64 {
	c := &database.StoredClass{Name: name, Subject: subject}
	_ = m.CreateClass(context.Background(), c)
	return c.ID
}

// AddStudent adds a student to the mock store and returns its ID
func (m *MockStore) AddStudent(classID int64, name string, embedding []byte) int64 {
	s := &database.StoredStudent{ClassID: classID, Name: name, FaceEmbedding: embedding}
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	s.CreatedAt = m.now()
	m.students[s.ID] = s
	return s.ID
}

// AttendanceCount returns the number of stored attendance records
func (m *MockStore) AttendanceCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Record returns the stored record of a student for a day
func (m *MockStore) Record(studentID int64, day attendance.Day) (*database.StoredAttendance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.recordKeys[attendanceKey{studentID, day}]
	if !ok {
		return nil, false
	}
	rec := *m.records[id]
	return &rec, true
}

func (m *MockStore) studentCount(classID int64) int {
	n := 0
	for _, s := range m.students {
		if s.ClassID == classID {
			n++
		}
	}
	return n
}

// GetClass retrieves a class by ID
func (m *MockStore) GetClass(ctx context.Context, id int64) (*database.StoredClass, error) {
	if m.GetClassError != nil {
		return nil, m.GetClassError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.classes[id]
	if !ok {
		return nil, nil
	}
	out := *c
	out.StudentCount = m.studentCount(id)
	return &out, nil
}

// ListClasses returns classes ordered by name, optionally filtered by search
func (m *MockStore) ListClasses(ctx context.Context, search string) ([]database.StoredClass, error) {
	if m.ListClassesError != nil {
		return nil, m.ListClassesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	needle := database.NormalizeSearchText(search)
	var out []database.StoredClass
	for _, c := range m.classes {
		if needle != "" && !strings.Contains(c.SearchKey, needle) {
			continue
		}
		cc := *c
		cc.StudentCount = m.studentCount(c.ID)
		out = append(out, cc)
	}
	slices.SortFunc(out, func(a, b database.StoredClass) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// CreateClass inserts a class
func (m *MockStore) CreateClass(ctx context.Context, class *database.StoredClass) error {
	if m.CreateClassError != nil {
		return m.CreateClassError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	class.ID = m.id()
	class.CreatedAt = m.now()
	class.SearchKey = database.SearchKey(class.Name, class.Subject)
	c := *class
	m.classes[c.ID] = &c
	return nil
}

// UpdateClass updates a class
func (m *MockStore) UpdateClass(ctx context.Context, class *database.StoredClass) error {
	if m.UpdateClassError != nil {
		return m.UpdateClassError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.classes[class.ID]
	if !ok {
		return database.ErrNotFound
	}
	existing.Name = class.Name
	existing.Subject = class.Subject
	existing.SearchKey = database.SearchKey(class.Name, class.Subject)
	class.SearchKey = existing.SearchKey
	class.CreatedAt = existing.CreatedAt
	return nil
}

// DeleteClass removes a class, its students and their attendance records
func (m *MockStore) DeleteClass(ctx context.Context, id int64) error {
	if m.DeleteClassError != nil {
		return m.DeleteClassError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.classes[id]; !ok {
		return database.ErrNotFound
	}
	for sid, s := range m.students {
		if s.ClassID == id {
			m.deleteStudentRecords(sid)
			delete(m.students, sid)
		}
	}
	delete(m.classes, id)
	return nil
}

func (m *MockStore) deleteStudentRecords(studentID int64) {
	for rid, r := range m.records {
		if r.StudentID == studentID {
			delete(m.recordKeys, attendanceKey{studentID, attendance.DayOf(r.Day)})
			delete(m.records, rid)
		}
	}
}

// GetStudent retrieves a student by ID
func (m *MockStore) GetStudent(ctx context.Context, id int64) (*database.StoredStudent, error) {
	if m.GetStudentError != nil {
		return nil, m.GetStudentError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok {
		return nil, nil
	}
	out := *s
	return &out, nil
}

func (m *MockStore) listStudents(classID int64, enrolledOnly bool) []database.StoredStudent {
	var out []database.StoredStudent
	for _, s := range m.students {
		if s.ClassID != classID || (enrolledOnly && !s.HasFaceData()) {
			continue
		}
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b database.StoredStudent) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// ListStudents returns all students of a class ordered by ID
func (m *MockStore) ListStudents(ctx context.Context, classID int64) ([]database.StoredStudent, error) {
	if m.ListStudentsError != nil {
		return nil, m.ListStudentsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listStudents(classID, false), nil
}

// ListEnrolledStudents returns students with face data ordered by ID
func (m *MockStore) ListEnrolledStudents(ctx context.Context, classID int64) ([]database.StoredStudent, error) {
	if m.ListEnrolledError != nil {
		return nil, m.ListEnrolledError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listStudents(classID, true), nil
}

func (m *MockStore) rollNumberTaken(s *database.StoredStudent) bool {
	if s.RollNumber == nil {
		return false
	}
	for _, other := range m.students {
		if other.ID != s.ID && other.ClassID == s.ClassID && other.RollNumber != nil && *other.RollNumber == *s.RollNumber {
			return true
		}
	}
	return false
}

// CreateStudent inserts a student
func (m *MockStore) CreateStudent(ctx context.Context, student *database.StoredStudent) error {
	if m.CreateStudentError != nil {
		return m.CreateStudentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rollNumberTaken(student) {
		return database.ErrDuplicateRollNumber
	}
	student.ID = m.id()
	student.CreatedAt = m.now()
	s := *student
	m.students[s.ID] = &s
	return nil
}

// UpdateStudent updates a student
func (m *MockStore) UpdateStudent(ctx context.Context, student *database.StoredStudent) error {
	if m.UpdateStudentError != nil {
		return m.UpdateStudentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.students[student.ID]
	if !ok {
		return database.ErrNotFound
	}
	if m.rollNumberTaken(student) {
		return database.ErrDuplicateRollNumber
	}
	existing.Name = student.Name
	existing.RollNumber = student.RollNumber
	existing.FaceEmbedding = student.FaceEmbedding
	existing.Photo = student.Photo
	return nil
}

// DeleteStudent removes a student and its attendance records
func (m *MockStore) DeleteStudent(ctx context.Context, id int64) error {
	if m.DeleteStudentError != nil {
		return m.DeleteStudentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[id]; !ok {
		return database.ErrNotFound
	}
	m.deleteStudentRecords(id)
	delete(m.students, id)
	return nil
}

func (m *MockStore) withStudent(r database.StoredAttendance) database.StoredAttendance {
	if s, ok := m.students[r.StudentID]; ok {
		r.StudentName = s.Name
		r.RollNumber = s.RollNumber
	}
	return r
}

// GetAttendance retrieves an attendance record by ID
func (m *MockStore) GetAttendance(ctx context.Context, id int64) (*database.StoredAttendance, error) {
	if m.GetAttendanceError != nil {
		return nil, m.GetAttendanceError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	out := m.withStudent(*r)
	return &out, nil
}

// ListAttendance returns records of a class, newest day first, then by student name
func (m *MockStore) ListAttendance(ctx context.Context, classID int64) ([]database.StoredAttendance, error) {
	if m.ListAttendanceError != nil {
		return nil, m.ListAttendanceError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.StoredAttendance
	for _, r := range m.records {
		if r.ClassID == classID {
			out = append(out, m.withStudent(*r))
		}
	}
	slices.SortFunc(out, func(a, b database.StoredAttendance) int {
		if c := b.Day.Compare(a.Day); c != 0 {
			return c
		}
		if c := cmp.Compare(a.StudentName, b.StudentName); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// ApplyMarks upserts one record per mark. The store lock makes the batch atomic.
func (m *MockStore) ApplyMarks(ctx context.Context, classID int64, day attendance.Day, marks []attendance.Mark, markedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ApplyMarksCalls++
	if m.ApplyMarksError != nil {
		return m.ApplyMarksError
	}
	if _, ok := m.classes[classID]; !ok {
		return &attendance.UnknownRosterError{ClassID: classID}
	}
	for _, mark := range marks {
		if _, ok := m.students[mark.StudentID]; !ok {
			return database.ErrNotFound
		}
	}
	for _, mark := range marks {
		key := attendanceKey{mark.StudentID, day}
		if id, ok := m.recordKeys[key]; ok {
			m.records[id].Present = mark.Present
			m.records[id].MarkedAt = markedAt
			continue
		}
		rec := &database.StoredAttendance{
			ID:        m.id(),
			StudentID: mark.StudentID,
			ClassID:   classID,
			Day:       day.Time(),
			Present:   mark.Present,
			MarkedAt:  markedAt,
		}
		m.records[rec.ID] = rec
		m.recordKeys[key] = rec.ID
	}
	return nil
}

// SetPresence overrides the presence flag of a record
func (m *MockStore) SetPresence(ctx context.Context, id int64, present bool, markedAt time.Time) error {
	if m.SetPresenceError != nil {
		return m.SetPresenceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return database.ErrNotFound
	}
	r.Present = present
	r.MarkedAt = markedAt
	return nil
}

// DeleteAttendance removes a record
func (m *MockStore) DeleteAttendance(ctx context.Context, id int64) error {
	if m.DeleteAttendError != nil {
		return m.DeleteAttendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return database.ErrNotFound
	}
	delete(m.recordKeys, attendanceKey{r.StudentID, attendance.DayOf(r.Day)})
	delete(m.records, id)
	return nil
}

var _ database.Store = (*MockStore)(nil)
