// Package pgstore reads form definitions from Postgres.
//
// The expected layout is:
//
//	CREATE SCHEMA IF NOT EXISTS flexforms;
//	CREATE TABLE flexforms.forms (
//	  id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
//	  name text NOT NULL UNIQUE,
//	  label text NOT NULL DEFAULT '',
//	  description text NOT NULL DEFAULT '',
//	  format_version text NOT NULL DEFAULT '1.0.0'
//	);
//	CREATE TABLE flexforms.fields (
//	  form_id uuid NOT NULL REFERENCES flexforms.forms(id) ON DELETE CASCADE,
//	  position int NOT NULL,
//	  name text NOT NULL,
//	  type text NOT NULL,
//	  options jsonb NOT NULL DEFAULT '{}',
//	  PRIMARY KEY (form_id, position)
//	);
//	CREATE TABLE flexforms.field_modifiers (
//	  form_id uuid NOT NULL,
//	  field_position int NOT NULL,
//	  position int NOT NULL,
//	  attribute text NOT NULL,
//	  expression text NOT NULL,
//	  PRIMARY KEY (form_id, field_position, position),
//	  FOREIGN KEY (form_id, field_position) REFERENCES flexforms.fields(form_id, position) ON DELETE CASCADE
//	);
//
// Schema holds the same statements and Migrate applies them.
package pgstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/goliatone/go-flexforms/pkg/definition"
)

// Schema creates the tables read by Store.
const Schema = `
CREATE SCHEMA IF NOT EXISTS flexforms;
CREATE TABLE IF NOT EXISTS flexforms.forms (
  id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
  name text NOT NULL UNIQUE,
  label text NOT NULL DEFAULT '',
  description text NOT NULL DEFAULT '',
  format_version text NOT NULL DEFAULT '1.0.0'
);
CREATE TABLE IF NOT EXISTS flexforms.fields (
  form_id uuid NOT NULL REFERENCES flexforms.forms(id) ON DELETE CASCADE,
  position int NOT NULL,
  name text NOT NULL,
  type text NOT NULL,
  options jsonb NOT NULL DEFAULT '{}',
  PRIMARY KEY (form_id, position)
);
CREATE TABLE IF NOT EXISTS flexforms.field_modifiers (
  form_id uuid NOT NULL,
  field_position int NOT NULL,
  position int NOT NULL,
  attribute text NOT NULL,
  expression text NOT NULL,
  PRIMARY KEY (form_id, field_position, position),
  FOREIGN KEY (form_id, field_position) REFERENCES flexforms.fields(form_id, position) ON DELETE CASCADE
);
`

// ErrNotFound is returned when no form has the requested name.
var ErrNotFound = errors.New("pgstore: form not found")

// Querier is the subset of pgx used by Store. *pgxpool.Pool, *pgx.Conn and
// pgx.Tx satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Option customises a Store.
type Option func(*Store)

// WithLogger routes query diagnostics to logger.
func WithLogger(logger hclog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store loads definitions by name.
type Store struct {
	q      Querier
	logger hclog.Logger
}

// New wraps q.
func New(q Querier, opts ...Option) *Store {
	s := &Store{q: q, logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Open connects a pool to databaseURL. The returned close func releases it.
func Open(ctx context.Context, databaseURL string, opts ...Option) (*Store, func(), error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil, errors.New("pgstore: database url is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("pgstore: connect: %w", err)
	}
	return New(pool, opts...), pool.Close, nil
}

// Migrate creates the schema when it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.q.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("pgstore: migrate: %w", err)
	}
	return nil
}

// Names lists stored forms ordered by name.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	rows, err := s.q.Query(ctx, `SELECT name FROM flexforms.forms ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list forms: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("pgstore: list forms: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: list forms: %w", err)
	}
	return names, nil
}

// Form loads the form called name with its fields and modifiers in position
// order. The result is normalized and validated like any other definition.
func (s *Store) Form(ctx context.Context, name string) (definition.Form, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return definition.Form{}, errors.New("pgstore: form name is required")
	}

	var (
		rawID string
		form  definition.Form
	)
	err := s.q.QueryRow(ctx, `
SELECT id::text, name, label, description, format_version
FROM flexforms.forms
WHERE name = $1
`, name).Scan(&rawID, &form.Name, &form.Label, &form.Description, &form.FormatVersion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return definition.Form{}, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return definition.Form{}, fmt.Errorf("pgstore: form %q: %w", name, err)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return definition.Form{}, fmt.Errorf("pgstore: form %q: invalid id %q: %w", name, rawID, err)
	}
	if err := definition.CheckFormatVersion(form.FormatVersion); err != nil {
		return definition.Form{}, fmt.Errorf("pgstore: form %q: %w", name, err)
	}

	positions, err := s.loadFields(ctx, id, &form)
	if err != nil {
		return definition.Form{}, fmt.Errorf("pgstore: form %q: %w", name, err)
	}
	if err := s.loadModifiers(ctx, id, &form, positions); err != nil {
		return definition.Form{}, fmt.Errorf("pgstore: form %q: %w", name, err)
	}
	s.logger.Debug("loaded form", "form", form.Name, "id", id.String(), "fields", len(form.Fields))

	form = form.Normalize()
	if err := form.Validate(); err != nil {
		return definition.Form{}, fmt.Errorf("pgstore: form %q: %w", name, err)
	}
	return form, nil
}

// loadFields appends fields to form and returns the index of each stored
// position.
func (s *Store) loadFields(ctx context.Context, id uuid.UUID, form *definition.Form) (map[int]int, error) {
	rows, err := s.q.Query(ctx, `
SELECT position, name, type, options
FROM flexforms.fields
WHERE form_id = $1
ORDER BY position
`, id)
	if err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	defer rows.Close()

	positions := map[int]int{}
	for rows.Next() {
		var (
			position int
			field    definition.Field
			options  []byte
		)
		if err := rows.Scan(&position, &field.Name, &field.Type, &options); err != nil {
			return nil, fmt.Errorf("fields: %w", err)
		}
		field.Options, err = decodeOptions(options)
		if err != nil {
			return nil, fmt.Errorf("field %q options: %w", field.Name, err)
		}
		positions[position] = len(form.Fields)
		form.Fields = append(form.Fields, field)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	return positions, nil
}

func (s *Store) loadModifiers(ctx context.Context, id uuid.UUID, form *definition.Form, positions map[int]int) error {
	rows, err := s.q.Query(ctx, `
SELECT field_position, attribute, expression
FROM flexforms.field_modifiers
WHERE form_id = $1
ORDER BY field_position, position
`, id)
	if err != nil {
		return fmt.Errorf("modifiers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			position int
			mod      definition.Modifier
		)
		if err := rows.Scan(&position, &mod.Attribute, &mod.Expression); err != nil {
			return fmt.Errorf("modifiers: %w", err)
		}
		idx, ok := positions[position]
		if !ok {
			return fmt.Errorf("modifier %q refers to missing field position %d", mod.Attribute, position)
		}
		form.Fields[idx].Modifiers = append(form.Fields[idx].Modifiers, mod)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("modifiers: %w", err)
	}
	return nil
}

// decodeOptions reads a jsonb object. Whole numbers become int64.
func decodeOptions(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var options map[string]any
	if err := dec.Decode(&options); err != nil {
		return nil, err
	}
	for key, value := range options {
		options[key] = numbers(value)
	}
	if len(options) == 0 {
		return nil, nil
	}
	return options, nil
}

func numbers(value any) any {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case []any:
		for i := range v {
			v[i] = numbers(v[i])
		}
		return v
	case map[string]any:
		for key, item := range v {
			v[key] = numbers(item)
		}
		return v
	}
	return value
}
