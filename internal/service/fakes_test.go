package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/proctor-go-api/internal/dto"
	"github.com/noah-isme/proctor-go-api/internal/models"
	"github.com/noah-isme/proctor-go-api/internal/proctor"
	"github.com/noah-isme/proctor-go-api/internal/repository"
)

type memoryExamRepo struct {
	exams  map[uint]models.Exam
	nextID uint
}

func newMemoryExamRepo() *memoryExamRepo {
	return &memoryExamRepo{exams: make(map[uint]models.Exam), nextID: 1}
}

func (m *memoryExamRepo) List(ctx context.Context) ([]models.Exam, error) {
	exams := make([]models.Exam, 0, len(m.exams))
	for _, exam := range m.exams {
		exams = append(exams, exam)
	}
	return exams, nil
}

func (m *memoryExamRepo) GetByID(ctx context.Context, id uint) (models.Exam, error) {
	exam, ok := m.exams[id]
	if !ok {
		return models.Exam{}, gorm.ErrRecordNotFound
	}
	return exam, nil
}

func (m *memoryExamRepo) Resolve(ctx context.Context, ref string) (models.Exam, error) {
	if id, err := strconv.ParseUint(strings.TrimSpace(ref), 10, 64); err == nil {
		if exam, ok := m.exams[uint(id)]; ok {
			return exam, nil
		}
	}
	for _, exam := range m.exams {
		if exam.LegacyCode != "" && exam.LegacyCode == ref {
			return exam, nil
		}
	}
	return models.Exam{}, gorm.ErrRecordNotFound
}

func (m *memoryExamRepo) Create(ctx context.Context, exam *models.Exam) error {
	exam.ID = m.nextID
	m.nextID++
	m.exams[exam.ID] = *exam
	return nil
}

func (m *memoryExamRepo) Update(ctx context.Context, exam *models.Exam) error {
	if _, ok := m.exams[exam.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.exams[exam.ID] = *exam
	return nil
}

func (m *memoryExamRepo) Delete(ctx context.Context, id uint) error {
	delete(m.exams, id)
	return nil
}

type memoryQuestionRepo struct {
	questions map[uint]models.Question
	nextID    uint
}

func newMemoryQuestionRepo() *memoryQuestionRepo {
	return &memoryQuestionRepo{questions: make(map[uint]models.Question), nextID: 1}
}

func (m *memoryQuestionRepo) ListByExam(ctx context.Context, examID uint) ([]models.Question, error) {
	questions := make([]models.Question, 0)
	for id := uint(1); id < m.nextID; id++ {
		if question, ok := m.questions[id]; ok && question.ExamID == examID {
			questions = append(questions, question)
		}
	}
	return questions, nil
}

func (m *memoryQuestionRepo) GetByID(ctx context.Context, id uint) (models.Question, error) {
	question, ok := m.questions[id]
	if !ok {
		return models.Question{}, gorm.ErrRecordNotFound
	}
	return question, nil
}

func (m *memoryQuestionRepo) Create(ctx context.Context, question *models.Question) error {
	question.ID = m.nextID
	m.nextID++
	m.questions[question.ID] = *question
	return nil
}

func (m *memoryQuestionRepo) Delete(ctx context.Context, id uint) error {
	delete(m.questions, id)
	return nil
}

func (m *memoryQuestionRepo) CountByExam(ctx context.Context, examID uint) (int64, error) {
	questions, _ := m.ListByExam(ctx, examID)
	return int64(len(questions)), nil
}

type memoryAssignmentRepo struct {
	assignments map[uint]models.ExamAssignment
	nextID      uint
}

func newMemoryAssignmentRepo() *memoryAssignmentRepo {
	return &memoryAssignmentRepo{assignments: make(map[uint]models.ExamAssignment), nextID: 1}
}

func (m *memoryAssignmentRepo) List(ctx context.Context, filter repository.AssignmentFilter) ([]models.ExamAssignment, error) {
	assignments := make([]models.ExamAssignment, 0, len(m.assignments))
	for _, assignment := range m.assignments {
		if filter.ExamID != nil && assignment.ExamID != *filter.ExamID {
			continue
		}
		if filter.StudentRoll != nil && assignment.StudentRoll != *filter.StudentRoll {
			continue
		}
		if filter.Status != nil && assignment.Status != *filter.Status {
			continue
		}
		assignments = append(assignments, assignment)
	}
	return assignments, nil
}

func (m *memoryAssignmentRepo) GetByID(ctx context.Context, id uint) (models.ExamAssignment, error) {
	assignment, ok := m.assignments[id]
	if !ok {
		return models.ExamAssignment{}, gorm.ErrRecordNotFound
	}
	return assignment, nil
}

func (m *memoryAssignmentRepo) GetByExamAndRoll(ctx context.Context, examID uint, roll string) (models.ExamAssignment, error) {
	for _, assignment := range m.assignments {
		if assignment.ExamID == examID && assignment.StudentRoll == roll {
			return assignment, nil
		}
	}
	return models.ExamAssignment{}, gorm.ErrRecordNotFound
}

func (m *memoryAssignmentRepo) Create(ctx context.Context, assignment *models.ExamAssignment) error {
	if _, err := m.GetByExamAndRoll(ctx, assignment.ExamID, assignment.StudentRoll); err == nil {
		return gorm.ErrDuplicatedKey
	}
	assignment.ID = m.nextID
	m.nextID++
	m.assignments[assignment.ID] = *assignment
	return nil
}

func (m *memoryAssignmentRepo) Update(ctx context.Context, assignment *models.ExamAssignment) error {
	if _, ok := m.assignments[assignment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.assignments[assignment.ID] = *assignment
	return nil
}

func (m *memoryAssignmentRepo) Delete(ctx context.Context, id uint) error {
	delete(m.assignments, id)
	return nil
}

type resultKey struct {
	studentID uint
	examID    uint
}

type memoryResultRepo struct {
	results map[resultKey]models.Result
	nextID  uint
}

func newMemoryResultRepo() *memoryResultRepo {
	return &memoryResultRepo{results: make(map[resultKey]models.Result), nextID: 1}
}

func (m *memoryResultRepo) ListByExam(ctx context.Context, examID uint) ([]models.Result, error) {
	results := make([]models.Result, 0)
	for key, result := range m.results {
		if key.examID == examID {
			results = append(results, result)
		}
	}
	return results, nil
}

func (m *memoryResultRepo) ListByStudent(ctx context.Context, studentID uint) ([]models.Result, error) {
	results := make([]models.Result, 0)
	for key, result := range m.results {
		if key.studentID == studentID {
			results = append(results, result)
		}
	}
	return results, nil
}

func (m *memoryResultRepo) GetByStudentAndExam(ctx context.Context, studentID, examID uint) (models.Result, error) {
	result, ok := m.results[resultKey{studentID: studentID, examID: examID}]
	if !ok {
		return models.Result{}, gorm.ErrRecordNotFound
	}
	return result, nil
}

func (m *memoryResultRepo) Upsert(ctx context.Context, result *models.Result) error {
	key := resultKey{studentID: result.StudentID, examID: result.ExamID}
	if existing, ok := m.results[key]; ok {
		result.ID = existing.ID
	} else {
		result.ID = m.nextID
		m.nextID++
	}
	m.results[key] = *result
	return nil
}

func (m *memoryResultRepo) Delete(ctx context.Context, id uint) error {
	for key, result := range m.results {
		if result.ID == id {
			delete(m.results, key)
		}
	}
	return nil
}

type memoryCheatingLogRepo struct {
	logs   map[uint]models.CheatingLog
	nextID uint
}

func newMemoryCheatingLogRepo() *memoryCheatingLogRepo {
	return &memoryCheatingLogRepo{logs: make(map[uint]models.CheatingLog), nextID: 1}
}

func (m *memoryCheatingLogRepo) List(ctx context.Context, filter repository.CheatingLogFilter) ([]models.CheatingLog, error) {
	logs := make([]models.CheatingLog, 0, len(m.logs))
	for _, log := range m.logs {
		if filter.ExamID != nil && log.ExamID != *filter.ExamID {
			continue
		}
		if filter.StudentEmail != nil && log.StudentEmail != *filter.StudentEmail {
			continue
		}
		logs = append(logs, log)
	}
	return logs, nil
}

func (m *memoryCheatingLogRepo) GetByID(ctx context.Context, id uint) (models.CheatingLog, error) {
	log, ok := m.logs[id]
	if !ok {
		return models.CheatingLog{}, gorm.ErrRecordNotFound
	}
	return log, nil
}

func (m *memoryCheatingLogRepo) Create(ctx context.Context, log *models.CheatingLog) error {
	log.ID = m.nextID
	m.nextID++
	m.logs[log.ID] = *log
	return nil
}

func (m *memoryCheatingLogRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := m.logs[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.logs, id)
	return nil
}

type memoryUserRepo struct {
	users  map[uint]models.User
	nextID uint
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[uint]models.User), nextID: 1}
}

func (m *memoryUserRepo) GetByID(ctx context.Context, id uint) (models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (m *memoryUserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (m *memoryUserRepo) GetByRoll(ctx context.Context, roll string) (models.User, error) {
	for _, user := range m.users {
		if user.RollNo == roll {
			return user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (m *memoryUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = *user
	return nil
}

func (m *memoryUserRepo) Update(ctx context.Context, user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memoryUserRepo) IncrementMalpractice(ctx context.Context, id uint, blockThreshold int) error {
	user, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.MalpracticeCount++
	if user.MalpracticeCount >= blockThreshold {
		user.IsBlocked = true
	}
	m.users[id] = user
	return nil
}

func (m *memoryUserRepo) Unblock(ctx context.Context, id uint) error {
	user, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.MalpracticeCount = 0
	user.IsBlocked = false
	m.users[id] = user
	return nil
}

type memoryGrantStore struct {
	grants map[string]bool
}

func newMemoryGrantStore() *memoryGrantStore {
	return &memoryGrantStore{grants: make(map[string]bool)}
}

func (m *memoryGrantStore) key(sessionID string, examID uint) string {
	return sessionID + "/" + strconv.FormatUint(uint64(examID), 10)
}

func (m *memoryGrantStore) Grant(ctx context.Context, sessionID string, examID uint) error {
	m.grants[m.key(sessionID, examID)] = true
	return nil
}

func (m *memoryGrantStore) HasGrant(ctx context.Context, sessionID string, examID uint) (bool, error) {
	return m.grants[m.key(sessionID, examID)], nil
}

// stubProctor hands Submit a canned draft, standing in for a live session
// registry.
type stubProctor struct {
	draft   proctor.Draft
	found   bool
	flushes int
}

func (s *stubProctor) StartSession(ctx context.Context, rc RequestContext, examRef string) (dto.ProctorSessionResponse, error) {
	return dto.ProctorSessionResponse{}, nil
}

func (s *stubProctor) HandleFrame(ctx context.Context, sessionID string, frame dto.FrameReport) []dto.ProctorAlert {
	return nil
}

func (s *stubProctor) Flush(sessionID string, studentID, examID uint) (proctor.Draft, bool) {
	s.flushes++
	if !s.found {
		return proctor.Draft{}, false
	}
	s.found = false
	return s.draft, true
}

// stubRunner echoes canned stdout per stdin, standing in for the sandbox.
type stubRunner struct {
	outputs map[string]string
	err     error
	runs    int
}

func (s *stubRunner) RunCode(ctx context.Context, language, source, stdin string) (string, string, error) {
	s.runs++
	if s.err != nil {
		return "", "", s.err
	}
	return s.outputs[stdin], "", nil
}

func choiceQuestion(examID uint, correctOption string) models.Question {
	options := []models.Option{
		{OptionID: "a", Text: "first", IsCorrect: correctOption == "a"},
		{OptionID: "b", Text: "second", IsCorrect: correctOption == "b"},
	}
	encoded, _ := json.Marshal(options)
	return models.Question{
		ExamID:  examID,
		Type:    models.QuestionTypeChoice,
		Marks:   1,
		Text:    "pick one",
		Options: datatypes.JSON(encoded),
	}
}

func codeQuestion(examID uint, cases []models.TestCase) models.Question {
	encoded, _ := json.Marshal(cases)
	return models.Question{
		ExamID:    examID,
		Type:      models.QuestionTypeCode,
		Marks:     1,
		Text:      "write a program",
		TestCases: datatypes.JSON(encoded),
	}
}

func liveExam(repo *memoryExamRepo, now time.Time) models.Exam {
	exam := models.Exam{
		Name:            "Data Structures Final",
		TotalQuestions:  2,
		DurationMinutes: 60,
		LiveAt:          now.Add(-time.Hour),
		DeadAt:          now.Add(time.Hour),
	}
	_ = repo.Create(context.Background(), &exam)
	return exam
}
