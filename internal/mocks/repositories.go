package mocks

import (
	"context"
	"sort"
	"strings"

	"github.com/opsdesk-api/internal/models"
	"github.com/opsdesk-api/internal/repository"
)

// NewRepositories wires a full set of in-memory repositories
func NewRepositories() *repository.Repositories {
	return &repository.Repositories{
		User:      NewMockUserRepository(),
		Job:       NewMockJobRepository(),
		StaffTime: NewMockStaffTimeRepository(),
		Wrapup:    NewMockWrapupRepository(),
		Task:      NewMockTaskRepository(),
		JobTask:   NewMockJobTaskRepository(),
		TimeEntry: NewMockTimeEntryRepository(),
		Lead:      NewMockLeadRepository(),
		Proposal:  NewMockProposalRepository(),
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	Users       map[string]*models.User
	InsertError error
}

var _ repository.UserRepository = (*MockUserRepository)(nil)

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{Users: make(map[string]*models.User)}
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	m.Users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.Users[id], nil
}

func (m *MockUserRepository) GetByAuthID(ctx context.Context, authUserID string) (*models.User, error) {
	for _, u := range m.Users {
		if u.AuthUserID == authUserID {
			return u, nil
		}
	}
	return nil, nil
}

func (m *MockUserRepository) List(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	var out []*models.User
	for _, u := range m.Users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Active != nil && u.Active != *filter.Active {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(u.FullName+" "+u.Email), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, id string, role models.Role) (bool, error) {
	u, ok := m.Users[id]
	if !ok {
		return false, nil
	}
	u.Role = role
	return true, nil
}

func (m *MockUserRepository) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	u, ok := m.Users[id]
	if !ok {
		return false, nil
	}
	u.Active = active
	return true, nil
}

// MockJobRepository is a mock implementation of JobRepository
type MockJobRepository struct {
	Jobs        map[string]*models.Job
	InsertError error
	UpdateError error
	UpdateCalls int
}

var _ repository.JobRepository = (*MockJobRepository)(nil)

func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{Jobs: make(map[string]*models.Job)}
}

func (m *MockJobRepository) Create(ctx context.Context, job *models.Job) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	m.Jobs[job.ID] = job
	return nil
}

func (m *MockJobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	job, ok := m.Jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (m *MockJobRepository) match(job *models.Job, filter models.JobFilter) bool {
	if filter.Status != "" && job.Status != filter.Status {
		return false
	}
	if filter.AssignedTo != "" && !contains(job.AssignedTo, filter.AssignedTo) {
		return false
	}
	if job.ScheduledDate != nil {
		if filter.From != nil && job.ScheduledDate.Before(*filter.From) {
			return false
		}
		if filter.To != nil && job.ScheduledDate.After(*filter.To) {
			return false
		}
	}
	return true
}

func (m *MockJobRepository) List(ctx context.Context, filter models.JobFilter) ([]*models.Job, error) {
	var out []*models.Job
	for _, job := range m.Jobs {
		if m.match(job, filter) {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockJobRepository) Update(ctx context.Context, job *models.Job) error {
	m.UpdateCalls++
	if m.UpdateError != nil {
		return m.UpdateError
	}
	cp := *job
	m.Jobs[job.ID] = &cp
	return nil
}

func (m *MockJobRepository) Count(ctx context.Context, filter models.JobFilter) (int, error) {
	jobs, _ := m.List(ctx, filter)
	return len(jobs), nil
}

// MockStaffTimeRepository is a mock implementation of StaffTimeRepository
type MockStaffTimeRepository struct {
	Rows      map[string]*models.StaffTime // keyed by job_id + "/" + staff_name
	SaveCalls int
}

var _ repository.StaffTimeRepository = (*MockStaffTimeRepository)(nil)

func NewMockStaffTimeRepository() *MockStaffTimeRepository {
	return &MockStaffTimeRepository{Rows: make(map[string]*models.StaffTime)}
}

func (m *MockStaffTimeRepository) Get(ctx context.Context, jobID, staffName string) (*models.StaffTime, error) {
	st, ok := m.Rows[jobID+"/"+staffName]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (m *MockStaffTimeRepository) ListByJob(ctx context.Context, jobID string) ([]*models.StaffTime, error) {
	var out []*models.StaffTime
	for _, st := range m.Rows {
		if st.JobID == jobID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StaffName < out[j].StaffName })
	return out, nil
}

// Save keeps stored check_in and check_out values like the SQL upsert does
func (m *MockStaffTimeRepository) Save(ctx context.Context, st *models.StaffTime) error {
	m.SaveCalls++
	key := st.JobID + "/" + st.StaffName
	if prev, ok := m.Rows[key]; ok {
		st.ID = prev.ID
		if prev.CheckIn != nil {
			st.CheckIn = prev.CheckIn
		}
		if prev.CheckOut != nil {
			st.CheckOut = prev.CheckOut
		}
	}
	cp := *st
	m.Rows[key] = &cp
	return nil
}

// MockWrapupRepository is a mock implementation of WrapupRepository
type MockWrapupRepository struct {
	Items map[string][]*models.WrapupItem
}

var _ repository.WrapupRepository = (*MockWrapupRepository)(nil)

func NewMockWrapupRepository() *MockWrapupRepository {
	return &MockWrapupRepository{Items: make(map[string][]*models.WrapupItem)}
}

func (m *MockWrapupRepository) ListByJob(ctx context.Context, jobID string) ([]*models.WrapupItem, error) {
	return m.Items[jobID], nil
}

func (m *MockWrapupRepository) Replace(ctx context.Context, jobID string, items []*models.WrapupItem) error {
	m.Items[jobID] = items
	return nil
}

// MockTaskRepository is a mock implementation of TaskRepository
type MockTaskRepository struct {
	Tasks       map[string]*models.GlobalTask
	Categories  map[string]*models.TaskCategory
	Tags        map[string]models.TaskTag
	InsertError error
	LinkTagsErr error
	LinkedTags  map[string][]string
	UpdateCalls int
}

var _ repository.TaskRepository = (*MockTaskRepository)(nil)

func NewMockTaskRepository() *MockTaskRepository {
	return &MockTaskRepository{
		Tasks:      make(map[string]*models.GlobalTask),
		Categories: make(map[string]*models.TaskCategory),
		Tags:       make(map[string]models.TaskTag),
		LinkedTags: make(map[string][]string),
	}
}

func (m *MockTaskRepository) Create(ctx context.Context, task *models.GlobalTask) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	cp := *task
	m.Tasks[task.ID] = &cp
	return nil
}

func (m *MockTaskRepository) LinkTags(ctx context.Context, taskID string, tagIDs []string) error {
	if m.LinkTagsErr != nil {
		return m.LinkTagsErr
	}
	m.LinkedTags[taskID] = append(m.LinkedTags[taskID], tagIDs...)
	return nil
}

// hydrate attaches category and tags the way the SQL join does
func (m *MockTaskRepository) hydrate(task *models.GlobalTask) *models.GlobalTask {
	cp := *task
	cp.Category = nil
	if cp.CategoryID != nil {
		cp.Category = m.Categories[*cp.CategoryID]
	}
	cp.Tags = []models.TaskTag{}
	for _, id := range m.LinkedTags[cp.ID] {
		if tag, ok := m.Tags[id]; ok {
			cp.Tags = append(cp.Tags, tag)
		}
	}
	return &cp
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id string) (*models.GlobalTask, error) {
	task, ok := m.Tasks[id]
	if !ok {
		return nil, nil
	}
	return m.hydrate(task), nil
}

func (m *MockTaskRepository) List(ctx context.Context, filter models.TaskFilter) ([]*models.GlobalTask, error) {
	out := make([]*models.GlobalTask, 0)
	for _, task := range m.Tasks {
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.CategoryID != "" && (task.CategoryID == nil || *task.CategoryID != filter.CategoryID) {
			continue
		}
		if filter.AssignedTo != "" && !contains(task.AssignedTo, filter.AssignedTo) {
			continue
		}
		if filter.CreatedBy != "" && task.CreatedBy != filter.CreatedBy {
			continue
		}
		out = append(out, m.hydrate(task))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockTaskRepository) UpdateStatus(ctx context.Context, task *models.GlobalTask) error {
	m.UpdateCalls++
	stored, ok := m.Tasks[task.ID]
	if !ok {
		return nil
	}
	stored.Status = task.Status
	stored.UpdatedAt = task.UpdatedAt
	return nil
}

func (m *MockTaskRepository) Count(ctx context.Context, filter models.TaskFilter) (int, error) {
	tasks, _ := m.List(ctx, filter)
	return len(tasks), nil
}

// MockJobTaskRepository is a mock implementation of JobTaskRepository
type MockJobTaskRepository struct {
	Tasks           map[string]*models.JobTask
	Logs            []models.TaskLog
	Assignments     map[string][]*models.TaskAssignment
	TransitionError error
}

var _ repository.JobTaskRepository = (*MockJobTaskRepository)(nil)

func NewMockJobTaskRepository() *MockJobTaskRepository {
	return &MockJobTaskRepository{
		Tasks:       make(map[string]*models.JobTask),
		Assignments: make(map[string][]*models.TaskAssignment),
	}
}

func (m *MockJobTaskRepository) Create(ctx context.Context, task *models.JobTask) error {
	cp := *task
	m.Tasks[task.ID] = &cp
	return nil
}

func (m *MockJobTaskRepository) GetByID(ctx context.Context, id string) (*models.JobTask, error) {
	task, ok := m.Tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *task
	return &cp, nil
}

func (m *MockJobTaskRepository) ListByJob(ctx context.Context, jobID string) ([]*models.JobTask, error) {
	var out []*models.JobTask
	for _, task := range m.Tasks {
		if task.JobID == jobID {
			out = append(out, task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ApplyTransition writes both or neither, like the transactional version
func (m *MockJobTaskRepository) ApplyTransition(ctx context.Context, task *models.JobTask, entry *models.TaskLog) error {
	if m.TransitionError != nil {
		return m.TransitionError
	}
	cp := *task
	m.Tasks[task.ID] = &cp
	m.Logs = append(m.Logs, *entry)
	return nil
}

func (m *MockJobTaskRepository) AddLog(ctx context.Context, entry *models.TaskLog) error {
	m.Logs = append(m.Logs, *entry)
	return nil
}

func (m *MockJobTaskRepository) ListLogs(ctx context.Context, taskID string) ([]models.TaskLog, error) {
	out := make([]models.TaskLog, 0)
	for _, l := range m.Logs {
		if l.TaskID == taskID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *MockJobTaskRepository) ListAssignments(ctx context.Context, taskID string) ([]*models.TaskAssignment, error) {
	return m.Assignments[taskID], nil
}

// MockTimeEntryRepository is a mock implementation of TimeEntryRepository
type MockTimeEntryRepository struct {
	Entries     map[string]*models.TimeEntry
	MovedTasks  []*models.GlobalTask
	SwitchError error
}

var _ repository.TimeEntryRepository = (*MockTimeEntryRepository)(nil)

func NewMockTimeEntryRepository() *MockTimeEntryRepository {
	return &MockTimeEntryRepository{Entries: make(map[string]*models.TimeEntry)}
}

func (m *MockTimeEntryRepository) ListOpenByUser(ctx context.Context, userID string) ([]*models.TimeEntry, error) {
	var out []*models.TimeEntry
	for _, e := range m.Entries {
		if e.UserID == userID && e.EndTime == nil {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockTimeEntryRepository) GetOpen(ctx context.Context, taskID, userID string) (*models.TimeEntry, error) {
	for _, e := range m.Entries {
		if e.TaskID == taskID && e.UserID == userID && e.EndTime == nil {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockTimeEntryRepository) SwitchTimer(ctx context.Context, closing []*models.TimeEntry, opening *models.TimeEntry, task *models.GlobalTask) error {
	if m.SwitchError != nil {
		return m.SwitchError
	}
	for _, e := range closing {
		cp := *e
		m.Entries[e.ID] = &cp
	}
	cp := *opening
	m.Entries[opening.ID] = &cp
	if task != nil {
		m.MovedTasks = append(m.MovedTasks, task)
	}
	return nil
}

func (m *MockTimeEntryRepository) Close(ctx context.Context, entry *models.TimeEntry) error {
	cp := *entry
	m.Entries[entry.ID] = &cp
	return nil
}

// MockLeadRepository is a mock implementation of LeadRepository
type MockLeadRepository struct {
	Leads []*models.Lead
}

var _ repository.LeadRepository = (*MockLeadRepository)(nil)

func NewMockLeadRepository() *MockLeadRepository {
	return &MockLeadRepository{}
}

func (m *MockLeadRepository) List(ctx context.Context, assignedTo string) ([]*models.Lead, error) {
	var out []*models.Lead
	for _, l := range m.Leads {
		if assignedTo != "" && (l.AssignedTo == nil || *l.AssignedTo != assignedTo) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *MockLeadRepository) Count(ctx context.Context, assignedTo string) (int, error) {
	leads, _ := m.List(ctx, assignedTo)
	return len(leads), nil
}

// MockProposalRepository is a mock implementation of ProposalRepository
type MockProposalRepository struct {
	Proposals map[string]*models.Proposal
}

var _ repository.ProposalRepository = (*MockProposalRepository)(nil)

func NewMockProposalRepository() *MockProposalRepository {
	return &MockProposalRepository{Proposals: make(map[string]*models.Proposal)}
}

func (m *MockProposalRepository) GetByID(ctx context.Context, id string) (*models.Proposal, error) {
	return m.Proposals[id], nil
}

func (m *MockProposalRepository) List(ctx context.Context, createdBy string) ([]*models.Proposal, error) {
	var out []*models.Proposal
	for _, p := range m.Proposals {
		if !p.IsLatest {
			continue
		}
		if createdBy != "" && (p.CreatedBy == nil || *p.CreatedBy != createdBy) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockProposalRepository) CreateRevision(ctx context.Context, base, rev *models.Proposal) error {
	if stored, ok := m.Proposals[base.ID]; !ok || !stored.IsLatest {
		return repository.ErrStale
	}
	for _, p := range m.Proposals {
		if p.LeadID == base.LeadID && p.Title == base.Title {
			p.IsLatest = false
		}
	}
	m.Proposals[rev.ID] = rev
	return nil
}

func (m *MockProposalRepository) CountOpen(ctx context.Context, createdBy string) (int, error) {
	proposals, _ := m.List(ctx, createdBy)
	n := 0
	for _, p := range proposals {
		if p.Status == models.ProposalStatusSent {
			n++
		}
	}
	return n, nil
}
