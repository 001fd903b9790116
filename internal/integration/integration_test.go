package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/app"
	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/auth"
	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/domain"
	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/game"
	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/history"
	pgloader "github.com/ST4RKiLLaX/lets-go-quizzing/internal/infra/postgres"
	pgmigrations "github.com/ST4RKiLLaX/lets-go-quizzing/internal/infra/postgres/migrations"
	infraredis "github.com/ST4RKiLLaX/lets-go-quizzing/internal/infra/redis"
)

// nopBroadcaster satisfies the coordinator without a websocket transport; the
// lifecycle under test is storage through scoring, not fan-out.
type nopBroadcaster struct{}

func (nopBroadcaster) JoinRoom(string, string)                  {}
func (nopBroadcaster) BroadcastState(string, app.StateSnapshot) {}
func (nopBroadcaster) BroadcastRoom(string, app.StateSnapshot)  {}
func (nopBroadcaster) SendState(string, app.StateSnapshot)      {}
func (nopBroadcaster) SendRoom(string, app.StateSnapshot)       {}

func TestRoomLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuiz(t, ctx, pgURL, "capitals.yaml", sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewQuizLoader(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()
	quizRepo := infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute)

	rooms := game.NewRegistry(0)
	tokens := auth.NewTokenStore(0)
	creds := auth.NewService(tokens, auth.NewPasswordVerifier("hunter2", ""))
	limiter := auth.NewRateLimiter()
	exporter := history.NewExporter(t.TempDir())
	service := app.NewGameService(rooms, quizRepo, creds, limiter, exporter, nopBroadcaster{})

	host := &app.ConnContext{ConnID: "host-conn", RemoteAddr: "10.0.0.1"}
	created, err := service.CreateRoom(ctx, host, "capitals.yaml", "hunter2", "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if created.State.Quiz.Meta.Name != "Capitals" {
		t.Fatalf("quiz did not round-trip through postgres and redis: %+v", created.State.Quiz.Meta)
	}

	player := &app.ConnContext{ConnID: "p-conn", RemoteAddr: "10.0.0.2"}
	joined, err := service.JoinRoom(player, created.RoomID, "")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := service.RegisterPlayer(player, joined.PlayerID, "Alice", "🦊"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := service.Start(host); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := service.SubmitAnswer(player, "q1", intPtr(1), nil); err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap, err := service.Next(host)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if snap.Type != domain.StateRevealAnswer {
		t.Fatalf("expected RevealAnswer, got %s", snap.Type)
	}
	if len(snap.Players) != 1 || snap.Players[0].Score != 1 {
		t.Fatalf("expected Alice on 1 point, got %+v", snap.Players)
	}

	// Second room off the same ref should come straight from the Redis cache.
	otherHost := &app.ConnContext{ConnID: "host-2", RemoteAddr: "10.0.0.3"}
	if _, err := service.CreateRoom(ctx, otherHost, "capitals.yaml", "hunter2", ""); err != nil {
		t.Fatalf("create second room: %v", err)
	}
}

func intPtr(i int) *int { return &i }

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuiz(t *testing.T, ctx context.Context, dsn, ref string, quiz domain.Quiz) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(quiz)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (ref, data) VALUES (?, ?::jsonb) ON CONFLICT (ref) DO UPDATE SET data=EXCLUDED.data`, ref, string(data)); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		Meta: domain.QuizMeta{Name: "Capitals"},
		Rounds: []domain.Round{{
			Name: "Europe",
			Questions: []domain.Question{
				{ID: "q1", Type: domain.QuestionChoice, Text: "Capital of France?", Options: []string{"London", "Paris", "Berlin"}, Answer: 1},
			},
		}},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
