package repository

import (
	"context"
	"database/sql"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/seand52/socialDev/internal/config"
	"github.com/seand52/socialDev/internal/db"
	"github.com/seand52/socialDev/internal/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()

	pool := setupPostgres(t)

	users := NewPgxUserRepository(pool)
	projects := NewPgxProjectRepository(pool)
	members := NewPgxCollaboratorRepository(pool)
	saved := NewPgxSavedProjectRepository(pool)
	meetings := NewPgxMeetingRepository(pool)
	conversations := NewPgxConversationRepository(pool)
	tx := db.NewPgxTransactor(pool)

	owner := &User{ID: uuid.NewString(), Name: "Owner", Email: "owner@example.com", Username: "owner", PasswordHash: "x"}
	dev := &User{ID: uuid.NewString(), Name: "Dev", Email: "dev@example.com", Username: "dev", PasswordHash: "x"}
	require.NoError(t, users.Create(ctx, owner))
	require.NoError(t, users.Create(ctx, dev))
	assert.Equal(t, "Bio is empty", owner.Bio)

	dup := &User{ID: uuid.NewString(), Name: "Other", Email: "other@example.com", Username: "owner", PasswordHash: "x"}
	require.ErrorIs(t, users.Create(ctx, dup), ErrAlreadyExists)

	fixture := []*Project{
		{Name: "react-starter", Skills: []string{"react", "javascript"}, Location: "Barcelona"},
		{Name: "reach", Skills: []string{"react", "javascript", "node"}, Location: "Barcelona"},
		{Name: "mongoose-api", Skills: []string{"mongoose", "javascript", "react"}, Location: "Barcelona, Spain"},
		{Name: "rpo", Skills: []string{"javascript"}, Location: "Madrid"},
		{Name: "oterea", Skills: []string{"javascript", "python"}, Location: "Madrid"},
		{Name: "señal", Skills: []string{"go"}, Location: "São Paulo"},
	}
	for _, pr := range fixture {
		pr.ID = uuid.NewString()
		pr.Description = "fixture"
		pr.MaxMembers = 3
		pr.OwnerID = owner.ID
		require.NoError(t, projects.Create(ctx, pr))
		assert.Equal(t, 1, pr.CurrentMembers)
		assert.True(t, pr.OnGoing)
	}

	t.Run("find agrees with in-memory evaluation", func(t *testing.T) {
		for _, raw := range []string{
			"q=&f=&c=",
			"q=REA",
			"f=javascript",
			"q=&f=react+javascript&c=Barcelona",
			"f=react+mongoose",
			"f=React",
			"q=rea&c=madrid",
			"q=c++",
			"q=.*",
			"q=SE%C3%91",
			"c=S%C3%83O",
		} {
			query, err := filter.Parse(raw)
			require.NoError(t, err, raw)

			found, err := projects.Find(ctx, query)
			require.NoError(t, err, raw)

			var want []string
			for _, pr := range fixture {
				if query.Matches(pr.Name, pr.Skills, pr.Location) {
					want = append(want, pr.ID)
				}
			}
			var got []string
			for _, pr := range found {
				got = append(got, pr.ID)
			}
			assert.ElementsMatch(t, want, got, raw)
		}

		for _, raw := range []string{"q=SE%C3%91", "c=S%C3%83O"} {
			query, err := filter.Parse(raw)
			require.NoError(t, err, raw)
			found, err := projects.Find(ctx, query)
			require.NoError(t, err, raw)
			require.Len(t, found, 1, raw)
			assert.Equal(t, fixture[5].ID, found[0].ID, raw)
		}
	})

	t.Run("membership", func(t *testing.T) {
		pr := fixture[0]
		require.NoError(t, members.Add(ctx, MembershipPending, pr.ID, dev.ID))
		require.NoError(t, members.Add(ctx, MembershipPending, pr.ID, dev.ID))

		pending, err := projects.ListWithPending(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, []string{dev.ID}, pending[0].PendingCollaborators)

		err = tx.WithinTransaction(ctx, func(ctx context.Context) error {
			if err := members.Remove(ctx, MembershipPending, pr.ID, dev.ID); err != nil {
				return err
			}
			if err := members.Add(ctx, MembershipCollaborator, pr.ID, dev.ID); err != nil {
				return err
			}
			return projects.AdjustMembers(ctx, pr.ID, 1)
		})
		require.NoError(t, err)

		got, err := projects.Get(ctx, pr.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.CurrentMembers)
		assert.Equal(t, []string{dev.ID}, got.Collaborators)
		assert.Empty(t, got.PendingCollaborators)

		ok, err := members.IsMember(ctx, MembershipCollaborator, pr.ID, dev.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		collaborating, err := projects.ListByCollaborator(ctx, dev.ID)
		require.NoError(t, err)
		require.Len(t, collaborating, 1)

		assert.ErrorIs(t, members.Remove(ctx, MembershipPending, pr.ID, dev.ID), ErrNotFound)
	})

	t.Run("member counter stays within capacity", func(t *testing.T) {
		pr := fixture[5]
		require.NoError(t, projects.AdjustMembers(ctx, pr.ID, 1))

		results := make(chan error, 2)
		var wg sync.WaitGroup
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- tx.WithinTransaction(ctx, func(ctx context.Context) error {
					return projects.AdjustMembers(ctx, pr.ID, 1)
				})
			}()
		}
		wg.Wait()
		close(results)

		var full int
		for err := range results {
			if err != nil {
				require.ErrorIs(t, err, ErrProjectFull)
				full++
			}
		}
		assert.Equal(t, 1, full)

		got, err := projects.Get(ctx, pr.ID)
		require.NoError(t, err)
		assert.Equal(t, got.MaxMembers, got.CurrentMembers)

		require.NoError(t, projects.AdjustMembers(ctx, pr.ID, -1))
		assert.ErrorIs(t, projects.AdjustMembers(ctx, uuid.NewString(), 1), ErrNotFound)
		assert.ErrorIs(t, projects.AdjustMembers(ctx, uuid.NewString(), -1), ErrNotFound)
	})

	t.Run("saved projects keep save order", func(t *testing.T) {
		require.NoError(t, saved.Save(ctx, dev.ID, fixture[3].ID))
		require.NoError(t, saved.Save(ctx, dev.ID, fixture[1].ID))
		require.NoError(t, saved.Save(ctx, dev.ID, fixture[3].ID))

		ids, err := saved.List(ctx, dev.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{fixture[3].ID, fixture[1].ID}, ids)

		require.NoError(t, saved.Remove(ctx, dev.ID, fixture[3].ID))
		ids, err = saved.List(ctx, dev.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{fixture[1].ID}, ids)
	})

	t.Run("meetings", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Microsecond)
		upcoming := &Meeting{ID: uuid.NewString(), ProjectID: fixture[0].ID, Date: now.Add(48 * time.Hour), Location: "Online", Description: "kickoff", Attending: []string{owner.ID}}
		past := &Meeting{ID: uuid.NewString(), ProjectID: fixture[0].ID, Date: now.Add(-60 * 24 * time.Hour), Location: "Office", Description: "old", Attending: []string{owner.ID}}
		require.NoError(t, meetings.Create(ctx, upcoming))
		require.NoError(t, meetings.Create(ctx, past))

		require.NoError(t, meetings.Attend(ctx, upcoming.ID, dev.ID))
		require.NoError(t, meetings.Attend(ctx, upcoming.ID, dev.ID))

		got, err := meetings.Get(ctx, upcoming.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{owner.ID, dev.ID}, got.Attending)
		assert.Equal(t, fixture[0].Name, got.ProjectName)

		attending, err := meetings.ListAttending(ctx, owner.ID, now)
		require.NoError(t, err)
		require.Len(t, attending, 1)
		assert.Equal(t, upcoming.ID, attending[0].ID)

		require.NoError(t, meetings.UnattendProject(ctx, fixture[0].ID, dev.ID))
		got, err = meetings.Get(ctx, upcoming.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{owner.ID}, got.Attending)

		n, err := meetings.DeleteBefore(ctx, now.Add(-30*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = meetings.Get(ctx, past.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("conversations", func(t *testing.T) {
		_, err := conversations.FindByMembers(ctx, owner.ID, dev.ID)
		require.ErrorIs(t, err, ErrNotFound)

		c := &Conversation{ID: uuid.NewString(), Created: time.Now(), Members: []string{owner.ID, dev.ID}}
		require.NoError(t, tx.WithinTransaction(ctx, func(ctx context.Context) error {
			return conversations.Create(ctx, c)
		}))

		found, err := conversations.FindByMembers(ctx, dev.ID, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, found.ID)
		assert.ElementsMatch(t, []string{owner.ID, dev.ID}, found.Members)

		sent := time.Now()
		first := &Message{ID: uuid.NewString(), ConversationID: c.ID, SenderID: owner.ID, Text: "hi", Sent: sent, Status: "pending"}
		second := &Message{ID: uuid.NewString(), ConversationID: c.ID, SenderID: owner.ID, Text: "there", Sent: sent.Add(time.Second), Status: "pending"}
		require.NoError(t, conversations.AddMessage(ctx, first))
		require.NoError(t, conversations.AddMessage(ctx, second))
		require.NoError(t, conversations.SetStatus(ctx, []string{second.ID}, "read"))

		messages, err := conversations.Messages(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, first.ID, messages[0].ID)
		assert.Equal(t, "pending", messages[0].Status)
		assert.Equal(t, "read", messages[1].Status)

		list, err := conversations.ListByMember(ctx, dev.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("delete project cascades", func(t *testing.T) {
		require.NoError(t, projects.Delete(ctx, fixture[0].ID))
		_, err := projects.Get(ctx, fixture[0].ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, projects.Delete(ctx, fixture[0].ID), ErrNotFound)

		list, err := meetings.ListByProject(ctx, fixture[0].ID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dockerPool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if err = dockerPool.Client.Ping(); err != nil {
		t.Skipf("docker unavailable: %v", err)
	}

	resource, err := dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_INITDB_ARGS=--encoding=UTF8 --locale=en_US.UTF-8",
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_USER=postgres",
			"POSTGRES_DB=socialdev",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = dockerPool.Purge(resource) })

	port, err := strconv.Atoi(resource.GetPort("5432/tcp"))
	require.NoError(t, err)

	cfg := config.PostgresConfig{
		Host:           "localhost",
		Port:           port,
		User:           "postgres",
		Password:       "postgres",
		DBName:         "socialdev",
		SSLMode:        "disable",
		QueryTimeout:   10 * time.Second,
		MigrateTimeout: 20 * time.Second,
		MaxConns:       4,
		MinConns:       1,
	}

	require.NoError(t, dockerPool.Retry(func() error {
		sqlDB, err := sql.Open("postgres", cfg.DSN())
		if err != nil {
			return err
		}
		defer func() { _ = sqlDB.Close() }()
		return sqlDB.Ping()
	}))

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx, cfg))

	pool, err := db.OpenPool(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}
