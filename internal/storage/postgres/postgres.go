package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quotes_service/internal/config"
	"quotes_service/internal/models"
	"quotes_service/internal/storage"
	"quotes_service/internal/storage/postgres/migrations"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	dsn := dsn(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	if err := runMigrations(dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

// runMigrations applies embedded goose migrations through a short-lived
// database/sql handle; pgxpool is used for everything else.
func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.Up(db, ".")
}

func (r *PostgresRepo) SaveUser(ctx context.Context, email string, passHash []byte) (models.User, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (id, email, password_hash)
		VALUES ($1, $2, $3);
	`

	u := models.User{
		ID:       uuid.New(),
		Email:    email,
		PassHash: passHash,
	}

	_, err := r.pool.Exec(ctx, query, u.ID, u.Email, u.PassHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, storage.ErrUserExists
		}

		return models.User{}, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	query := `
		SELECT id, email, password_hash, refresh_token
		FROM users
		WHERE email = $1;
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PostgresRepo) UserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	query := `
		SELECT id, email, password_hash, refresh_token
		FROM users
		WHERE id = $1;
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresRepo) scanUser(row pgx.Row) (models.User, error) {
	var u models.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PassHash,
		&u.RefreshToken,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, err
	}

	return u, nil
}

// UpdateRefreshToken replaces the user's single stored refresh token,
// invalidating whatever was there before.
func (r *PostgresRepo) UpdateRefreshToken(ctx context.Context, userID uuid.UUID, token string) error {
	const op = "storage.postgres.UpdateRefreshToken"

	query := `UPDATE users SET refresh_token = $1 WHERE id = $2;`

	tag, err := r.pool.Exec(ctx, query, token, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (r *PostgresRepo) UserRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	const op = "storage.postgres.UserRoles"

	query := `
		SELECT r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY r.name;
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var roles []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		roles = append(roles, name)
	}

	return roles, rows.Err()
}

func (r *PostgresRepo) IsInRole(ctx context.Context, userID uuid.UUID, role string) (bool, error) {
	const op = "storage.postgres.IsInRole"

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM user_roles ur
			JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id = $1 AND r.name = $2
		);
	`

	var ok bool
	if err := r.pool.QueryRow(ctx, query, userID, role).Scan(&ok); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}

// AddToRole creates the role row if it does not exist yet and attaches the
// user to it. Re-adding an existing membership is a no-op.
func (r *PostgresRepo) AddToRole(ctx context.Context, userID uuid.UUID, role string) error {
	const op = "storage.postgres.AddToRole"

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)

	var roleID int64

	err = tx.QueryRow(ctx, `
		INSERT INTO roles (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id;
	`, role).Scan(&roleID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING;
	`, userID, roleID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return tx.Commit(ctx)
}

const quoteSelect = `
	SELECT q.id, q.text, q.author, q.user_id,
	       COALESCE(array_agg(t.type) FILTER (WHERE t.type IS NOT NULL), '{}') AS tags
	FROM quotes q
	LEFT JOIN quote_tags t ON t.quote_id = q.id
`

func (r *PostgresRepo) SaveQuote(ctx context.Context, q models.Quote) (models.Quote, error) {
	const op = "storage.postgres.SaveQuote"

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.Quote{}, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO quotes (id, text, author, user_id)
		VALUES ($1, $2, $3, $4);
	`, q.ID, q.Text, q.Author, q.UserID)
	if err != nil {
		return models.Quote{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := insertTags(ctx, tx, q.ID, q.Tags); err != nil {
		return models.Quote{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Quote{}, fmt.Errorf("%s: %w", op, err)
	}

	return q, nil
}

func (r *PostgresRepo) Quote(ctx context.Context, id uuid.UUID) (models.Quote, error) {
	const op = "storage.postgres.Quote"

	query := quoteSelect + `
		WHERE q.id = $1
		GROUP BY q.id;
	`

	q, err := scanQuote(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Quote{}, storage.ErrQuoteNotFound
		}

		return models.Quote{}, fmt.Errorf("%s: %w", op, err)
	}

	return q, nil
}

// RandomQuote returns one quote chosen uniformly at random. Returns
// storage.ErrQuoteNotFound when the table is empty.
func (r *PostgresRepo) RandomQuote(ctx context.Context) (models.Quote, error) {
	const op = "storage.postgres.RandomQuote"

	query := quoteSelect + `
		GROUP BY q.id
		ORDER BY random()
		LIMIT 1;
	`

	q, err := scanQuote(r.pool.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Quote{}, storage.ErrQuoteNotFound
		}

		return models.Quote{}, fmt.Errorf("%s: %w", op, err)
	}

	return q, nil
}

func (r *PostgresRepo) Quotes(ctx context.Context) ([]models.Quote, error) {
	query := quoteSelect + `GROUP BY q.id ORDER BY q.author, q.id;`

	return r.queryQuotes(ctx, query)
}

// QuotesByTags filters with OR semantics: a quote matches when its tag set
// intersects the requested set.
func (r *PostgresRepo) QuotesByTags(ctx context.Context, tags []models.TagType) ([]models.Quote, error) {
	query := quoteSelect + `
		WHERE EXISTS (
			SELECT 1 FROM quote_tags f
			WHERE f.quote_id = q.id AND f.type = ANY($1)
		)
		GROUP BY q.id ORDER BY q.author, q.id;
	`

	return r.queryQuotes(ctx, query, models.TagStrings(tags))
}

func (r *PostgresRepo) QuotesByUser(ctx context.Context, userID uuid.UUID) ([]models.Quote, error) {
	query := quoteSelect + `
		WHERE q.user_id = $1
		GROUP BY q.id ORDER BY q.author, q.id;
	`

	return r.queryQuotes(ctx, query, userID)
}

func (r *PostgresRepo) QuotesByUserAndTags(
	ctx context.Context,
	userID uuid.UUID,
	tags []models.TagType,
) ([]models.Quote, error) {
	query := quoteSelect + `
		WHERE q.user_id = $1 AND EXISTS (
			SELECT 1 FROM quote_tags f
			WHERE f.quote_id = q.id AND f.type = ANY($2)
		)
		GROUP BY q.id ORDER BY q.author, q.id;
	`

	return r.queryQuotes(ctx, query, userID, models.TagStrings(tags))
}

// UpdateQuote replaces text, author and the whole tag set in one
// transaction. Old tag rows are discarded and recreated.
func (r *PostgresRepo) UpdateQuote(ctx context.Context, q models.Quote) error {
	const op = "storage.postgres.UpdateQuote"

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE quotes SET text = $1, author = $2 WHERE id = $3;
	`, q.Text, q.Author, q.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrQuoteNotFound
	}

	_, err = tx.Exec(ctx, `DELETE FROM quote_tags WHERE quote_id = $1;`, q.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := insertTags(ctx, tx, q.ID, q.Tags); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return tx.Commit(ctx)
}

// DeleteQuote removes a quote; its tags go with it via ON DELETE CASCADE.
func (r *PostgresRepo) DeleteQuote(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.DeleteQuote"

	tag, err := r.pool.Exec(ctx, `DELETE FROM quotes WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrQuoteNotFound
	}

	return nil
}

func (r *PostgresRepo) queryQuotes(ctx context.Context, query string, args ...any) ([]models.Quote, error) {
	const op = "storage.postgres.queryQuotes"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	quotes := []models.Quote{}

	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		quotes = append(quotes, q)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: %w", op, rows.Err())
	}

	return quotes, nil
}

func scanQuote(row pgx.Row) (models.Quote, error) {
	var (
		q    models.Quote
		tags []string
	)

	err := row.Scan(&q.ID, &q.Text, &q.Author, &q.UserID, &tags)
	if err != nil {
		return models.Quote{}, err
	}

	q.Tags = make([]models.TagType, len(tags))
	for i, t := range tags {
		q.Tags[i] = models.TagType(t)
	}

	return q, nil
}

func insertTags(ctx context.Context, tx pgx.Tx, quoteID uuid.UUID, tags []models.TagType) error {
	for _, t := range tags {
		_, err := tx.Exec(ctx, `
			INSERT INTO quote_tags (id, quote_id, type)
			VALUES ($1, $2, $3);
		`, uuid.New(), quoteID, string(t))
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
