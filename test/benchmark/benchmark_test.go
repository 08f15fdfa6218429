package benchmark

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/opsdesk-api/internal/access"
	"github.com/opsdesk-api/internal/idempotency"
	"github.com/opsdesk-api/internal/lifecycle"
	"github.com/opsdesk-api/internal/mocks"
	"github.com/opsdesk-api/internal/models"
	"github.com/opsdesk-api/internal/realtime"
	"github.com/opsdesk-api/internal/validation"
)

// BenchmarkListTasks benchmarks filtered listing over 1000 tasks
func BenchmarkListTasks(b *testing.B) {
	repo := mocks.NewMockTaskRepository()
	now := time.Now()
	for i := 0; i < 1000; i++ {
		repo.Create(context.Background(), &models.GlobalTask{
			ID:         fmt.Sprintf("task-%04d", i),
			Title:      "Task",
			Status:     models.GlobalTaskTodo,
			Priority:   models.GlobalPriorityMedium,
			CreatedBy:  fmt.Sprintf("user-%d", i%10),
			AssignedTo: []string{fmt.Sprintf("user-%d", i%7)},
			CreatedAt:  now.Add(time.Duration(i) * time.Second),
		})
	}
	filter := models.TaskFilter{AssignedTo: "user-3"}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		repo.List(context.Background(), filter)
	}

	b.ReportMetric(float64(1000*b.N)/b.Elapsed().Seconds(), "rows/sec")
}

// BenchmarkNavigation benchmarks the per-request access decisions
func BenchmarkNavigation(b *testing.B) {
	user := &models.User{ID: "u1", Role: models.RoleManager, Active: true}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		access.NavigationFor(user)
		access.CanAccessPage(user, access.PageJobs)
		access.ScopeFor(user)
	}
}

// BenchmarkProgress benchmarks progress derivation over a long log
func BenchmarkProgress(b *testing.B) {
	logs := make([]models.TaskLog, 500)
	for i := range logs {
		logs[i] = models.TaskLog{LogType: models.LogTypeNote}
	}
	logs[len(logs)-1].LogType = models.LogTypeProgress

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		lifecycle.Progress(logs)
	}
}

// BenchmarkValidation benchmarks request validation with the custom rules
func BenchmarkValidation(b *testing.B) {
	v := validator.New()
	v.SetTagName("binding")
	if err := validation.Register(v); err != nil {
		b.Fatal(err)
	}

	req := &models.SaveWrapupRequest{Items: []models.WrapupItemInput{
		{Item: "Site cleaned"},
		{Item: "Tools collected"},
		{Item: "Client walkthrough"},
	}}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		v.Struct(req)
	}
}

// BenchmarkIdempotencyKey benchmarks key derivation
func BenchmarkIdempotencyKey(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		idempotency.Key("u1", "POST", "/v1/tasks", "0d6a1f7e-5d2b-4b7e-9b43-6c1f0b6c2a11")
	}
}

// BenchmarkHubFanout benchmarks publishing to 100 subscribers
func BenchmarkHubFanout(b *testing.B) {
	hub := realtime.NewHub(1)
	for i := 0; i < 100; i++ {
		sub := hub.Subscribe(nil)
		go func() {
			for range sub.C {
			}
		}()
	}
	ev := realtime.Event{Table: "jobs", Operation: "UPDATE"}

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			hub.Publish(ev)
		}
	})
}
