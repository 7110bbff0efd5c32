package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"taskStream/internal/app"
	"taskStream/internal/config"
	"taskStream/internal/logger"
	"taskStream/internal/models/task"
	"taskStream/internal/service"
	"time"

	"go.uber.org/zap"
)

// задачи создаются через сервис, поэтому подписчики получают task-created
func main() {
	configPath := flag.String("config", "", "путь к config.yml")
	random := flag.Int("random", 10, "сколько случайных задач добавить")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("загрузка конфигурации: %v", err)
	}

	ctx := context.Background()
	application, err := app.New(cfg).Init(ctx)
	if err != nil {
		log.Fatalf("инициализация приложения: %v", err)
	}
	application.StartBackground()

	created, err := seed(ctx, application.Service(), *random, time.Now())

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if stopErr := application.Stop(stopCtx); stopErr != nil {
		log.Printf("остановка: %v", stopErr)
	}

	if err != nil {
		log.Printf("заполнение базы: %v", err)
		os.Exit(1)
	}
	fmt.Printf("создано задач: %d\n", created)
}

func sampleInputs(now time.Time) []service.Input {
	day := func(offset int) string {
		return task.DateOf(now.AddDate(0, 0, offset)).String()
	}

	return []service.Input{
		{
			"title":       "Complete Project Documentation",
			"description": "Write comprehensive documentation for the project",
			"status":      string(task.StatusPending),
			"priority":    3,
			"due_date":    day(5),
		},
		{
			"title":       "Fix Bug in Authentication",
			"description": "Investigate and fix the authentication bug",
			"status":      string(task.StatusInProgress),
			"priority":    4,
			"due_date":    day(2),
		},
		{
			"title":       "Implement New Feature",
			"description": "Add the new feature as per requirements",
			"status":      string(task.StatusCompleted),
			"priority":    2,
			"due_date":    day(-1),
		},
		{
			"title":       "Code Review",
			"description": "Review the latest pull requests",
			"status":      string(task.StatusPending),
			"priority":    1,
			"due_date":    nil,
		},
	}
}

var (
	verbs    = []string{"Refactor", "Document", "Test", "Deploy", "Review", "Design", "Benchmark"}
	subjects = []string{"billing module", "search API", "login page", "cache layer", "CI pipeline", "reports"}
)

func randomInput(rnd *rand.Rand, now time.Time) service.Input {
	statuses := task.Statuses()
	in := service.Input{
		"title":    fmt.Sprintf("%s %s", verbs[rnd.IntN(len(verbs))], subjects[rnd.IntN(len(subjects))]),
		"status":   string(statuses[rnd.IntN(len(statuses))]),
		"priority": rnd.IntN(task.MaxPriority + 1),
	}
	if rnd.IntN(2) == 0 {
		in["description"] = "Generated by seed"
	}
	if rnd.IntN(3) > 0 {
		in["due_date"] = task.DateOf(now.AddDate(0, 0, rnd.IntN(60)-30)).String()
	}
	return in
}

func seed(ctx context.Context, svc *service.TaskService, random int, now time.Time) (int, error) {
	inputs := sampleInputs(now)
	rnd := rand.New(rand.NewPCG(uint64(now.UnixNano()), 0))
	for i := 0; i < random; i++ {
		inputs = append(inputs, randomInput(rnd, now))
	}

	created := 0
	for _, in := range inputs {
		t, err := svc.CreateTask(ctx, in)
		if err != nil {
			return created, fmt.Errorf("создание задачи %q: %w", in["title"], err)
		}
		logger.Info("Seed: Задача создана", zap.Int64("task_id", t.ID), zap.String("title", t.Title))
		created++
	}
	return created, nil
}
