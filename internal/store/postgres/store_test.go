package postgres

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"marketchat/internal/domain"
)

var testDB *sql.DB

// TestMain starts a throwaway PostgreSQL container. Without Docker, or with
// -short, the integration tests in this package are skipped.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "marketchat",
				"POSTGRES_PASSWORD": "marketchat",
				"POSTGRES_DB":       "marketchat",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Printf("postgres container unavailable, skipping integration tests: %v", err)
		os.Exit(m.Run())
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("container host: %v", err)
	}
	if host == "" || host == "null" {
		host = "localhost"
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://marketchat:marketchat@%s:%s/marketchat?sslmode=disable", host, port.Port())
	testDB, err = Open(dsn)
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if err := Migrate(testDB); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	code := m.Run()

	_ = testDB.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func requireDB(t *testing.T) {
	t.Helper()
	if testDB == nil {
		t.Skip("postgres not available")
	}
}

func resetTables(t *testing.T) {
	t.Helper()
	_, err := testDB.Exec(`TRUNCATE messages, conversations, products, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	requireDB(t)
	require.NoError(t, Migrate(testDB))
}

func TestConversationRepo_ConcurrentCreateConverges(t *testing.T) {
	requireDB(t)
	resetTables(t)
	ctx := context.Background()
	convs := NewConversationRepo(testDB)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := int64(1), int64(2)
			if i%2 == 1 {
				a, b = b, a
			}
			now := time.Now()
			err := convs.Create(ctx, &domain.Conversation{ParticipantA: a, ParticipantB: b, ProductID: 5, CreatedAt: now, UpdatedAt: now})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case assert.ErrorIs(t, err, domain.ErrConflict):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, conflicts)

	list, err := convs.ListForUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMessageRepo_AppendAndMarkSeen(t *testing.T) {
	requireDB(t)
	resetTables(t)
	ctx := context.Background()
	convs := NewConversationRepo(testDB)
	msgs := NewMessageRepo(testDB)

	now := time.Now()
	c := &domain.Conversation{ParticipantA: 1, ParticipantB: 2, ProductID: 5, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, convs.Create(ctx, c))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := msgs.Append(ctx, c.ID, 1, "ping", time.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, err := msgs.Append(ctx, c.ID, 3, "nope", time.Now())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	history, err := msgs.ListForConversation(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 10)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].CreatedAt.Before(history[i-1].CreatedAt))
	}

	got, err := convs.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessageTime)
	assert.True(t, got.LastMessageTime.Equal(history[len(history)-1].CreatedAt))

	n, err := msgs.MarkSeen(ctx, c.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
	n, err = msgs.MarkSeen(ctx, c.ID, 2)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, convs.Delete(ctx, c.ID, 1))
	history, err = msgs.ListForConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestUserRepo_DuplicateEmail(t *testing.T) {
	requireDB(t)
	resetTables(t)
	ctx := context.Background()
	users := NewUserRepo(testDB)

	u := &domain.User{Name: "Ari", Email: "ari@example.com", HashedPassword: "x", Role: domain.RoleBuyer, CreatedAt: time.Now()}
	require.NoError(t, users.Create(ctx, u))

	dup := &domain.User{Name: "Ari 2", Email: "ari@example.com", HashedPassword: "x", Role: domain.RoleBuyer, CreatedAt: time.Now()}
	assert.ErrorIs(t, users.Create(ctx, dup), domain.ErrConflict)

	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ari", got.Name)
}
