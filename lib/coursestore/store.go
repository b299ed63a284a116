package coursestore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"studyhub-backend/lib/config"
	"studyhub-backend/lib/coursestore/db"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("coursestore")

// Store keeps the list of current classes of each user.
type Store struct {
	db *sql.DB
}

func openDB(cfg config.Store) (*sql.DB, error) {
	if cfg.Url != "" {
		values := url.Values{}
		if cfg.AuthToken != "" {
			values.Add("authToken", cfg.AuthToken)
		}
		dsn := cfg.Url
		if len(values) > 0 {
			dsn += "?" + values.Encode()
		}
		return sql.Open("libsql", dsn)
	}

	if cfg.File == "" {
		return nil, fmt.Errorf("neither a store file nor a store url was specified")
	}
	database, err := sql.Open("sqlite", cfg.File)
	if err != nil {
		return nil, err
	}
	if cfg.File == ":memory:" || strings.Contains(cfg.File, "mode=memory") {
		// every connection to an in-memory database is a different database
		database.SetMaxOpenConns(1)
	}
	return database, nil
}

// Open connects to the remote libsql database when a url is configured and
// to the local sqlite file otherwise, then applies the schema.
func Open(ctx context.Context, cfg config.Store) (Store, error) {
	database, err := openDB(cfg)
	if err != nil {
		return Store{}, err
	}
	_, err = database.ExecContext(ctx, db.Schema)
	if err != nil {
		database.Close()
		return Store{}, fmt.Errorf("apply schema: %w", err)
	}
	return Store{db: database}, nil
}

func (s Store) Close() error {
	return s.db.Close()
}

// SetClasses replaces the class list of a user.
func (s Store) SetClasses(ctx context.Context, user string, names []string) error {
	ctx, span := tracer.Start(ctx, "SetClasses")
	defer span.End()
	span.SetAttributes(
		attribute.String("user", user),
		attribute.Int("class_count", len(names)),
	)

	if user == "" {
		span.SetStatus(codes.Error, "empty user")
		return fmt.Errorf("user is empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to begin transaction")
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "delete from user_class where user = ?", user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete previous classes")
		return err
	}
	for i, name := range names {
		_, err = tx.ExecContext(
			ctx,
			"insert into user_class (user, idx, name) values (?, ?, ?)",
			user, i, name,
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to insert class")
			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to commit")
		return err
	}
	return nil
}

// Classes returns the stored class list of a user, empty if the user is unknown.
func (s Store) Classes(ctx context.Context, user string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Classes")
	defer span.End()
	span.SetAttributes(attribute.String("user", user))

	rows, err := s.db.QueryContext(
		ctx,
		"select name from user_class where user = ? order by idx",
		user,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query classes")
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		err := rows.Scan(&name)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to scan class")
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
