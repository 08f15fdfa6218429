package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/api"
	"github.com/opsdesk-api/internal/auth"
	"github.com/opsdesk-api/internal/config"
	"github.com/opsdesk-api/internal/idempotency"
	"github.com/opsdesk-api/internal/mocks"
	"github.com/opsdesk-api/internal/models"
	"github.com/opsdesk-api/internal/realtime"
	"github.com/opsdesk-api/internal/repository"
	"github.com/opsdesk-api/internal/service"
)

var (
	admin      = &models.User{ID: "u1", AuthUserID: "auth-admin", FullName: "Ada Admin", Role: models.RoleAdmin, Active: true}
	manager    = &models.User{ID: "u2", AuthUserID: "auth-manager", FullName: "Max Manager", Role: models.RoleManager, Active: true}
	technician = &models.User{ID: "u3", AuthUserID: "auth-tech", FullName: "Tess Tech", Role: models.RoleTechnician, Active: true}
	retired    = &models.User{ID: "u4", AuthUserID: "auth-retired", FullName: "Rex Retired", Role: models.RoleAdmin, Active: false}
)

type testEnv struct {
	router *gin.Engine
	repos  *repository.Repositories
	tokens *auth.Manager
	store  *idempotency.Store
	db     *stubDatabase
}

// stubDatabase stands in for the connection pool behind /health
type stubDatabase struct {
	pingErr error
}

func (d *stubDatabase) HealthCheck(ctx context.Context) error { return d.pingErr }

func (d *stubDatabase) Stats() sql.DBStats { return sql.DBStats{OpenConnections: 2, InUse: 1, Idle: 1} }

func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Auth: config.AuthConfig{JWTSecret: "test-secret", Issuer: "opsdesk", TokenTTL: time.Hour},
	}

	repos := mocks.NewRepositories()
	users := repos.User.(*mocks.MockUserRepository)
	for _, u := range []*models.User{admin, manager, technician, retired} {
		copied := *u
		users.Users[u.ID] = &copied
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	env := &testEnv{
		repos:  repos,
		tokens: auth.NewManager(cfg.Auth),
		store:  idempotency.NewStore(rdb, time.Hour),
		db:     &stubDatabase{},
	}
	services := service.NewServices(repos, cfg, zerolog.Nop())
	env.router = api.NewRouter(services, api.Dependencies{
		Tokens:      env.tokens,
		Idempotency: env.store,
		Hub:         realtime.NewHub(8),
		Database:    env.db,
	}, cfg, zerolog.Nop())
	return env
}

func (e *testEnv) request(t *testing.T, user *models.User, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, err := e.tokens.Issue(user.AuthUserID, time.Now())
		if err != nil {
			t.Fatalf("Failed to issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to parse response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestRouter(t)

	w := env.request(t, nil, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	resp := decode(t, w)
	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp["status"])
	}
	if resp["service"] != "opsdesk-api" {
		t.Errorf("Expected service 'opsdesk-api', got %v", resp["service"])
	}
}

func TestHealthReportsDatabase(t *testing.T) {
	env := setupTestRouter(t)

	w := env.request(t, nil, "GET", "/health", nil)
	resp := decode(t, w)
	if resp["database"] != "ok" {
		t.Errorf("Expected database 'ok', got %v", resp["database"])
	}
	conns, _ := resp["connections"].(map[string]interface{})
	if conns["open"] != float64(2) {
		t.Errorf("Expected 2 open connections, got %v", resp["connections"])
	}

	env.db.pingErr = errors.New("connection refused")
	w = env.request(t, nil, "GET", "/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d", w.Code)
	}
	resp = decode(t, w)
	if resp["status"] != "unhealthy" || resp["database"] != "connection refused" {
		t.Errorf("Unexpected unhealthy response: %v", resp)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestRouter(t)

	w := env.request(t, nil, "GET", "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "opsdesk_realtime_subscribers") {
		t.Error("Expected opsdesk metrics in exposition")
	}
}

func TestCORSHeaders(t *testing.T) {
	env := setupTestRouter(t)

	w := env.request(t, nil, "OPTIONS", "/v1/tasks", nil,
		"Origin", "http://localhost:3000",
		"Access-Control-Request-Method", "POST",
		"Access-Control-Request-Headers", "Authorization, Idempotency-Key",
	)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204 for preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Expected Access-Control-Allow-Origin '*', got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestAuthentication(t *testing.T) {
	env := setupTestRouter(t)

	w := env.request(t, nil, "GET", "/v1/me", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without token, got %d", w.Code)
	}

	w = env.request(t, nil, "GET", "/v1/me", nil, "Authorization", "Bearer not-a-token")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for garbage token, got %d", w.Code)
	}

	stranger := &models.User{AuthUserID: "auth-nobody"}
	w = env.request(t, stranger, "GET", "/v1/me", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for unknown user, got %d", w.Code)
	}
}

func TestMeNavigation(t *testing.T) {
	env := setupTestRouter(t)

	tests := []struct {
		name       string
		user       *models.User
		wantLabels []string
		wantField  bool
	}{
		{
			name:       "technician gets field menu",
			user:       technician,
			wantLabels: []string{"Dashboard", "My Tasks", "Time Tracking"},
			wantField:  true,
		},
		{
			name:       "manager gets office menu",
			user:       manager,
			wantLabels: []string{"Dashboard", "Leads", "Jobs", "Tasks", "Proposals"},
		},
		{
			name:       "inactive user gets nothing",
			user:       retired,
			wantLabels: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.request(t, tt.user, "GET", "/v1/me", nil)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			resp := decode(t, w)
			nav, _ := resp["navigation"].([]interface{})
			labels := make([]string, 0, len(nav))
			for _, n := range nav {
				labels = append(labels, n.(map[string]interface{})["label"].(string))
			}
			if strings.Join(labels, ",") != strings.Join(tt.wantLabels, ",") {
				t.Errorf("Expected navigation %v, got %v", tt.wantLabels, labels)
			}
			if resp["field_worker"] != tt.wantField {
				t.Errorf("Expected field_worker %v, got %v", tt.wantField, resp["field_worker"])
			}
		})
	}
}

func TestPageGating(t *testing.T) {
	env := setupTestRouter(t)

	tests := []struct {
		name   string
		user   *models.User
		path   string
		expect int
	}{
		{"technician lists assigned jobs", technician, "/v1/jobs", http.StatusOK},
		{"technician sees own tasks", technician, "/v1/tasks", http.StatusOK},
		{"manager lists jobs", manager, "/v1/jobs", http.StatusOK},
		{"manager cannot manage users", manager, "/v1/users", http.StatusForbidden},
		{"admin manages users", admin, "/v1/users", http.StatusOK},
		{"inactive admin is locked out", retired, "/v1/tasks", http.StatusForbidden},
		{"technician has no analytics", technician, "/v1/analytics/leads", http.StatusForbidden},
		{"manager has analytics", manager, "/v1/analytics/leads", http.StatusOK},
		{"everyone active gets a dashboard", technician, "/v1/dashboard", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.request(t, tt.user, "GET", tt.path, nil)
			if w.Code != tt.expect {
				t.Errorf("Expected status %d, got %d: %s", tt.expect, w.Code, w.Body.String())
			}
			if tt.expect == http.StatusForbidden && decode(t, w)["error"] != "access denied" {
				t.Errorf("Expected access denied body, got %s", w.Body.String())
			}
		})
	}
}

func TestCreateAndListTasks(t *testing.T) {
	env := setupTestRouter(t)

	w := env.request(t, admin, "POST", "/v1/tasks", map[string]interface{}{
		"title":      "Fix sink",
		"created_by": "u1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	created := decode(t, w)
	if created["success"] != true || created["message"] != "Task created successfully" {
		t.Errorf("Unexpected create response: %v", created)
	}

	w = env.request(t, admin, "GET", "/v1/tasks?created_by=u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	tasks, _ := decode(t, w)["tasks"].([]interface{})
	if len(tasks) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(tasks))
	}
	task := tasks[0].(map[string]interface{})
	if task["title"] != "Fix sink" {
		t.Errorf("Expected title 'Fix sink', got %v", task["title"])
	}
	if task["status"] != "todo" {
		t.Errorf("Expected status 'todo', got %v", task["status"])
	}
	if task["priority"] != "medium" {
		t.Errorf("Expected priority 'medium', got %v", task["priority"])
	}
	tags, ok := task["tags"].([]interface{})
	if !ok || len(tags) != 0 {
		t.Errorf("Expected empty tags array, got %v", task["tags"])
	}
}

func TestCreateTaskRejectsEmptyTitle(t *testing.T) {
	env := setupTestRouter(t)
	tasks := env.repos.Task.(*mocks.MockTaskRepository)

	w := env.request(t, admin, "POST", "/v1/tasks", map[string]interface{}{
		"title":      "",
		"created_by": "u1",
		"tags":       []string{"tag-1"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	if msg := decode(t, w)["error"]; msg != "title is required" {
		t.Errorf("Expected 'title is required', got %v", msg)
	}
	if len(tasks.Tasks) != 0 {
		t.Errorf("Expected no stored tasks, got %d", len(tasks.Tasks))
	}
	if len(tasks.LinkedTags) != 0 {
		t.Errorf("Expected no tag links, got %v", tasks.LinkedTags)
	}
}

func TestCreateTaskStoreError(t *testing.T) {
	env := setupTestRouter(t)
	env.repos.Task.(*mocks.MockTaskRepository).InsertError = errors.New(`insert or update on table "global_tasks" violates foreign key constraint`)

	w := env.request(t, admin, "POST", "/v1/tasks", map[string]interface{}{
		"title":       "Fix sink",
		"created_by":  "u1",
		"category_id": "missing",
	})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}
	if msg, _ := decode(t, w)["error"].(string); !strings.Contains(msg, "foreign key") {
		t.Errorf("Expected store message, got %q", msg)
	}
}

func TestCreateTaskInvalidPriority(t *testing.T) {
	env := setupTestRouter(t)

	w := env.request(t, admin, "POST", "/v1/tasks", map[string]interface{}{
		"title":      "Fix sink",
		"created_by": "u1",
		"priority":   "whenever",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	resp := decode(t, w)
	if _, ok := resp["details"].([]interface{}); !ok {
		t.Errorf("Expected field details, got %v", resp)
	}
}

func TestJobLifecycleEndpoints(t *testing.T) {
	env := setupTestRouter(t)

	w := env.request(t, manager, "POST", "/v1/jobs", map[string]interface{}{"title": "Roof repair"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	id := decode(t, w)["id"].(string)

	w = env.request(t, manager, "POST", "/v1/jobs/"+id+"/start", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on start, got %d", w.Code)
	}
	if decode(t, w)["status"] != "in_progress" {
		t.Errorf("Expected in_progress after start")
	}

	w = env.request(t, manager, "POST", "/v1/jobs/"+id+"/complete", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on complete, got %d", w.Code)
	}

	w = env.request(t, manager, "POST", "/v1/jobs/"+id+"/start", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 restarting a complete job, got %d", w.Code)
	}

	w = env.request(t, manager, "GET", "/v1/jobs/does-not-exist", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestCheckInIsIdempotent(t *testing.T) {
	env := setupTestRouter(t)

	w := env.request(t, manager, "POST", "/v1/jobs", map[string]interface{}{"title": "Fence"})
	id := decode(t, w)["id"].(string)
	body := map[string]interface{}{"staff_name": "Sam"}

	w = env.request(t, manager, "POST", "/v1/jobs/"+id+"/staff/check-in", body)
	if w.Code != http.StatusOK || decode(t, w)["changed"] != true {
		t.Fatalf("Expected first check-in to change state: %d %s", w.Code, w.Body.String())
	}

	w = env.request(t, manager, "POST", "/v1/jobs/"+id+"/staff/check-in", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if decode(t, w)["changed"] != false {
		t.Error("Expected repeated check-in to be a no-op")
	}

	w = env.request(t, manager, "POST", "/v1/jobs/"+id+"/staff/check-in", map[string]interface{}{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without staff_name, got %d", w.Code)
	}
}

func TestFieldWorkerJobFlow(t *testing.T) {
	env := setupTestRouter(t)

	w := env.request(t, manager, "POST", "/v1/jobs", map[string]interface{}{
		"title":       "Gutter clean",
		"assigned_to": []string{technician.ID},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	id := decode(t, w)["id"].(string)
	env.request(t, manager, "POST", "/v1/jobs", map[string]interface{}{"title": "Someone else's job"})

	w = env.request(t, technician, "GET", "/v1/jobs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 listing jobs, got %d: %s", w.Code, w.Body.String())
	}
	jobs, _ := decode(t, w)["jobs"].([]interface{})
	if len(jobs) != 1 || jobs[0].(map[string]interface{})["id"] != id {
		t.Errorf("Expected only the assigned job, got %v", jobs)
	}

	w = env.request(t, technician, "GET", "/v1/jobs/"+id, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 reading job, got %d", w.Code)
	}

	w = env.request(t, technician, "POST", "/v1/jobs/"+id+"/staff/check-in", map[string]interface{}{"staff_name": "Tess"})
	if w.Code != http.StatusOK || decode(t, w)["changed"] != true {
		t.Fatalf("Expected check-in to change state: %d %s", w.Code, w.Body.String())
	}

	w = env.request(t, technician, "POST", "/v1/jobs/"+id+"/start", nil)
	if w.Code != http.StatusOK || decode(t, w)["status"] != "in_progress" {
		t.Fatalf("Expected job started: %d %s", w.Code, w.Body.String())
	}

	w = env.request(t, manager, "POST", "/v1/jobs/"+id+"/tasks", map[string]interface{}{"title": "Clear downpipe"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 creating job task, got %d: %s", w.Code, w.Body.String())
	}
	taskID := decode(t, w)["id"].(string)

	w = env.request(t, technician, "POST", "/v1/job-tasks/"+taskID+"/start", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 starting job task, got %d: %s", w.Code, w.Body.String())
	}
	task, _ := decode(t, w)["task"].(map[string]interface{})
	if task["status"] != "in_progress" {
		t.Errorf("Expected task in_progress, got %v", task["status"])
	}

	w = env.request(t, technician, "POST", "/v1/job-tasks/"+taskID+"/complete", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 completing job task, got %d", w.Code)
	}

	w = env.request(t, technician, "POST", "/v1/jobs/"+id+"/staff/check-out", map[string]interface{}{"staff_name": "Tess"})
	if w.Code != http.StatusOK || decode(t, w)["changed"] != true {
		t.Errorf("Expected check-out to change state: %d %s", w.Code, w.Body.String())
	}

	w = env.request(t, technician, "POST", "/v1/jobs/"+id+"/complete", nil)
	if w.Code != http.StatusOK || decode(t, w)["status"] != "complete" {
		t.Errorf("Expected job complete: %d %s", w.Code, w.Body.String())
	}
}

func TestFieldWorkerStaysOnAssignedJobs(t *testing.T) {
	env := setupTestRouter(t)

	w := env.request(t, manager, "POST", "/v1/jobs", map[string]interface{}{"title": "Boiler service"})
	other := decode(t, w)["id"].(string)
	w = env.request(t, manager, "POST", "/v1/jobs/"+other+"/tasks", map[string]interface{}{"title": "Bleed radiators"})
	otherTask := decode(t, w)["id"].(string)

	w = env.request(t, manager, "POST", "/v1/jobs", map[string]interface{}{
		"title":       "Tile bathroom",
		"assigned_to": []string{technician.ID},
	})
	own := decode(t, w)["id"].(string)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"read unassigned job", "GET", "/v1/jobs/" + other, nil},
		{"check in on unassigned job", "POST", "/v1/jobs/" + other + "/staff/check-in", map[string]interface{}{"staff_name": "Tess"}},
		{"start unassigned job", "POST", "/v1/jobs/" + other + "/start", nil},
		{"start task of unassigned job", "POST", "/v1/job-tasks/" + otherTask + "/start", nil},
		{"create job", "POST", "/v1/jobs", map[string]interface{}{"title": "Own idea"}},
		{"cancel assigned job", "POST", "/v1/jobs/" + own + "/cancel", nil},
		{"correct times", "PATCH", "/v1/jobs/" + own + "/times", map[string]interface{}{"start_time": time.Now()}},
		{"list staff times", "GET", "/v1/jobs/" + own + "/staff", nil},
		{"create job task", "POST", "/v1/jobs/" + own + "/tasks", map[string]interface{}{"title": "Grout"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.request(t, technician, tt.method, tt.path, tt.body)
			if w.Code != http.StatusForbidden {
				t.Errorf("Expected status 403, got %d: %s", w.Code, w.Body.String())
			}
		})
	}

	job, _ := env.repos.Job.GetByID(context.Background(), other)
	if job.Status != models.JobStatusScheduled {
		t.Errorf("Unassigned job must stay scheduled, got %s", job.Status)
	}
}

func TestCreateTaskAcceptsNumericStringEstimate(t *testing.T) {
	env := setupTestRouter(t)

	w := env.request(t, admin, "POST", "/v1/tasks", map[string]interface{}{
		"title":           "Quote loft",
		"created_by":      "u1",
		"estimated_hours": "2.5",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	tasks := env.repos.Task.(*mocks.MockTaskRepository)
	for _, task := range tasks.Tasks {
		if task.EstimatedHours == nil || *task.EstimatedHours != 2.5 {
			t.Errorf("Expected estimated_hours 2.5, got %v", task.EstimatedHours)
		}
	}

	w = env.request(t, admin, "POST", "/v1/tasks", map[string]interface{}{
		"title":           "Quote garage",
		"created_by":      "u1",
		"estimated_hours": "a while",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a non-numeric estimate, got %d", w.Code)
	}
}

func TestRevisingSupersededProposalConflicts(t *testing.T) {
	env := setupTestRouter(t)
	proposals := env.repos.Proposal.(*mocks.MockProposalRepository)
	proposals.Proposals["p1"] = &models.Proposal{ID: "p1", LeadID: "l1", Title: "Deck", Version: 1, Status: models.ProposalStatusSent}
	proposals.Proposals["p2"] = &models.Proposal{ID: "p2", LeadID: "l1", Title: "Deck", Version: 2, Status: models.ProposalStatusDraft, IsLatest: true}

	w := env.request(t, manager, "POST", "/v1/proposals/p1/revisions", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d: %s", w.Code, w.Body.String())
	}

	w = env.request(t, manager, "POST", "/v1/proposals/p2/revisions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if decode(t, w)["version"] != float64(3) {
		t.Errorf("Expected version 3, got %s", w.Body.String())
	}
}

func TestCreateUser(t *testing.T) {
	env := setupTestRouter(t)
	body := map[string]interface{}{
		"auth_user_id": "auth-new",
		"full_name":    "Nia Newhire",
		"email":        "nia@example.com",
		"role":         "technician",
	}

	w := env.request(t, manager, "POST", "/v1/users", body)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for manager, got %d", w.Code)
	}

	w = env.request(t, admin, "POST", "/v1/users", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	// the new profile can authenticate right away
	w = env.request(t, &models.User{AuthUserID: "auth-new"}, "GET", "/v1/me", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected new user to authenticate, got %d", w.Code)
	}

	w = env.request(t, admin, "POST", "/v1/users", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a linked subject, got %d", w.Code)
	}

	body["auth_user_id"] = "auth-other"
	body["email"] = "not-an-email"
	w = env.request(t, admin, "POST", "/v1/users", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400 for bad email, got %d", w.Code)
	}
	if msg := decode(t, w)["error"]; msg != "email must be a valid email address" {
		t.Errorf("Unexpected message %v", msg)
	}
}

func TestUserSelfDeactivation(t *testing.T) {
	env := setupTestRouter(t)

	w := env.request(t, admin, "PATCH", "/v1/users/u1/active", map[string]interface{}{"active": false})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 deactivating self, got %d", w.Code)
	}

	w = env.request(t, admin, "PATCH", "/v1/users/u3/active", map[string]interface{}{"active": false})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	// the deactivated technician loses access on the next request
	w = env.request(t, technician, "GET", "/v1/tasks", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 after deactivation, got %d", w.Code)
	}
}

func TestIdempotentReplay(t *testing.T) {
	env := setupTestRouter(t)
	body := map[string]interface{}{"title": "Order parts", "created_by": "u1"}

	first := env.request(t, admin, "POST", "/v1/tasks", body, api.IdempotencyHeader, "key-1")
	if first.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", first.Code)
	}
	if first.Header().Get(api.ReplayedHeader) != "" {
		t.Error("First response must not be marked as replayed")
	}

	second := env.request(t, admin, "POST", "/v1/tasks", body, api.IdempotencyHeader, "key-1")
	if second.Code != http.StatusOK {
		t.Fatalf("Expected replayed status 200, got %d", second.Code)
	}
	if second.Header().Get(api.ReplayedHeader) != "true" {
		t.Error("Expected replay header on second response")
	}
	if second.Body.String() != first.Body.String() {
		t.Errorf("Expected identical bodies, got %s and %s", first.Body.String(), second.Body.String())
	}

	if n := len(env.repos.Task.(*mocks.MockTaskRepository).Tasks); n != 1 {
		t.Errorf("Expected exactly 1 stored task, got %d", n)
	}

	// the same key from another user is a different request
	third := env.request(t, manager, "POST", "/v1/tasks", body, api.IdempotencyHeader, "key-1")
	if third.Header().Get(api.ReplayedHeader) != "" {
		t.Error("Keys must not be shared across users")
	}
}

func TestIdempotencyPendingKey(t *testing.T) {
	env := setupTestRouter(t)

	key := idempotency.Key(admin.ID, "POST", "/v1/tasks", "key-2")
	if ok, err := env.store.Reserve(context.Background(), key); err != nil || !ok {
		t.Fatalf("Failed to reserve key: %v", err)
	}

	w := env.request(t, admin, "POST", "/v1/tasks",
		map[string]interface{}{"title": "Order parts", "created_by": "u1"},
		api.IdempotencyHeader, "key-2")
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 while key is pending, got %d", w.Code)
	}
	if n := len(env.repos.Task.(*mocks.MockTaskRepository).Tasks); n != 0 {
		t.Errorf("Expected no stored task, got %d", n)
	}
}

func TestIdempotencyServerErrorIsRetryable(t *testing.T) {
	env := setupTestRouter(t)
	tasks := env.repos.Task.(*mocks.MockTaskRepository)
	tasks.InsertError = errors.New("connection reset by peer")
	body := map[string]interface{}{"title": "Order parts", "created_by": "u1"}

	w := env.request(t, admin, "POST", "/v1/tasks", body, api.IdempotencyHeader, "key-3")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}

	tasks.InsertError = nil
	w = env.request(t, admin, "POST", "/v1/tasks", body, api.IdempotencyHeader, "key-3")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected retry to succeed, got %d", w.Code)
	}
	if w.Header().Get(api.ReplayedHeader) != "" {
		t.Error("Retry after a server error must run the handler again")
	}
}
