package postgres

import (
	"context"
	"os"
	"strconv"
	"testing"

	"quotes_service/internal/config"
	"quotes_service/internal/models"
	"quotes_service/internal/storage"

	"github.com/google/uuid"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
)

// TestPostgresIntegration spins up a throwaway postgres container and
// exercises the repository end to end: migrations, users, roles and the
// full quote/tag lifecycle.
func TestPostgresIntegration(t *testing.T) {
	if os.Getenv("SKIP_DOCKER") == "1" {
		t.Skip("SKIP_DOCKER=1 set; skipping integration test")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not available: %v", err)
	}

	options := &dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15-alpine",
		Env: []string{
			"POSTGRES_USER=test",
			"POSTGRES_PASSWORD=test",
			"POSTGRES_DB=quotes_test",
		},
	}
	resource, err := pool.RunWithOptions(options, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = pool.Purge(resource)
	})

	ctx := context.Background()

	var repo *PostgresRepo

	// retry until postgres accepts connections; New also runs migrations
	err = pool.Retry(func() error {
		port, err := strconv.Atoi(resource.GetPort("5432/tcp"))
		if err != nil {
			return err
		}

		cfg := &config.Config{Postgres: config.Postgres{
			Host:     "localhost",
			Port:     port,
			User:     "test",
			Password: "test",
			DBName:   "quotes_test",
			SSLMode:  "disable",
		}}

		repo, err = New(ctx, cfg)

		return err
	})
	require.NoError(t, err)
	defer repo.Close()

	// empty table: random selection is empty, not an error
	_, err = repo.RandomQuote(ctx)
	require.ErrorIs(t, err, storage.ErrQuoteNotFound)

	// users
	alice, err := repo.SaveUser(ctx, "alice@example.com", []byte("hash-a"))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, alice.ID)

	_, err = repo.SaveUser(ctx, "alice@example.com", []byte("hash-b"))
	require.ErrorIs(t, err, storage.ErrUserExists)

	bob, err := repo.SaveUser(ctx, "bob@example.com", []byte("hash-b"))
	require.NoError(t, err)

	got, err := repo.UserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)
	require.Nil(t, got.RefreshToken)

	_, err = repo.UserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, storage.ErrUserNotFound)

	// refresh token is a single overwritten value
	require.NoError(t, repo.UpdateRefreshToken(ctx, alice.ID, "token-1"))
	require.NoError(t, repo.UpdateRefreshToken(ctx, alice.ID, "token-2"))

	got, err = repo.UserByID(ctx, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RefreshToken)
	require.Equal(t, "token-2", *got.RefreshToken)

	// roles
	isAdmin, err := repo.IsInRole(ctx, alice.ID, models.RoleAdmin)
	require.NoError(t, err)
	require.False(t, isAdmin)

	require.NoError(t, repo.AddToRole(ctx, alice.ID, models.RoleAdmin))
	// idempotent
	require.NoError(t, repo.AddToRole(ctx, alice.ID, models.RoleAdmin))

	isAdmin, err = repo.IsInRole(ctx, alice.ID, models.RoleAdmin)
	require.NoError(t, err)
	require.True(t, isAdmin)

	roles, err := repo.UserRoles(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, []string{models.RoleAdmin}, roles)

	// quotes: create with tags and read back
	quoteA, err := repo.SaveQuote(ctx, models.Quote{
		ID:     uuid.New(),
		Text:   "A",
		Author: "Author A",
		UserID: alice.ID,
		Tags:   []models.TagType{models.TagFunny},
	})
	require.NoError(t, err)

	quoteB, err := repo.SaveQuote(ctx, models.Quote{
		ID:     uuid.New(),
		Text:   "B",
		Author: "Author B",
		UserID: bob.ID,
		Tags:   []models.TagType{models.TagWisdom},
	})
	require.NoError(t, err)

	quoteC, err := repo.SaveQuote(ctx, models.Quote{
		ID:     uuid.New(),
		Text:   "C",
		Author: "Author C",
		UserID: bob.ID,
		Tags:   []models.TagType{models.TagFunny, models.TagWisdom},
	})
	require.NoError(t, err)

	gotQuote, err := repo.Quote(ctx, quoteC.ID)
	require.NoError(t, err)
	require.Equal(t, "C", gotQuote.Text)
	require.ElementsMatch(t,
		[]models.TagType{models.TagFunny, models.TagWisdom}, gotQuote.Tags)

	all, err := repo.Quotes(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// tag filter has OR semantics: funny matches A and C
	funny, err := repo.QuotesByTags(ctx, []models.TagType{models.TagFunny})
	require.NoError(t, err)
	require.ElementsMatch(t,
		[]uuid.UUID{quoteA.ID, quoteC.ID}, ids(funny))

	either, err := repo.QuotesByTags(ctx, []models.TagType{models.TagFunny, models.TagWisdom})
	require.NoError(t, err)
	require.Len(t, either, 3)

	byBob, err := repo.QuotesByUser(ctx, bob.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []uuid.UUID{quoteB.ID, quoteC.ID}, ids(byBob))

	byBobFunny, err := repo.QuotesByUserAndTags(ctx, bob.ID, []models.TagType{models.TagFunny})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{quoteC.ID}, ids(byBobFunny))

	// random now returns something
	_, err = repo.RandomQuote(ctx)
	require.NoError(t, err)

	// update replaces the tag set wholesale
	quoteA.Text = "A updated"
	quoteA.Tags = []models.TagType{models.TagLife}
	require.NoError(t, repo.UpdateQuote(ctx, quoteA))

	gotQuote, err = repo.Quote(ctx, quoteA.ID)
	require.NoError(t, err)
	require.Equal(t, "A updated", gotQuote.Text)
	require.Equal(t, []models.TagType{models.TagLife}, gotQuote.Tags)

	err = repo.UpdateQuote(ctx, models.Quote{ID: uuid.New(), Text: "x", Author: "y"})
	require.ErrorIs(t, err, storage.ErrQuoteNotFound)

	// delete cascades to tags
	require.NoError(t, repo.DeleteQuote(ctx, quoteC.ID))

	_, err = repo.Quote(ctx, quoteC.ID)
	require.ErrorIs(t, err, storage.ErrQuoteNotFound)

	err = repo.DeleteQuote(ctx, quoteC.ID)
	require.ErrorIs(t, err, storage.ErrQuoteNotFound)

	remaining, err := repo.Quotes(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
}

func ids(quotes []models.Quote) []uuid.UUID {
	out := make([]uuid.UUID, len(quotes))
	for i, q := range quotes {
		out[i] = q.ID
	}

	return out
}
