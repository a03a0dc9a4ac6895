package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Dialect selects the SQL flavour spoken by the connection pool.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return DialectPostgres, nil
	case "sqlite":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// rebind rewrites ? placeholders into the dialect's native form.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var columns = map[Field]string{
	FieldName:  "name",
	FieldTaste: "taste",
	FieldScore: "score",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// lower names the SQL function that folds case the same way strings.ToLower
// does. SQLite's built-in LOWER only folds ASCII.
func (d Dialect) lower() string {
	if d == DialectSQLite {
		return sqliteLower
	}
	return "LOWER"
}

// whereClause renders preds as a WHERE clause with ? placeholders. Count and
// List both go through here so they always filter identically.
func (d Dialect) whereClause(preds []Predicate) (string, []any, error) {
	if err := validatePredicates(preds); err != nil {
		return "", nil, err
	}
	if len(preds) == 0 {
		return "", nil, nil
	}

	clauses := make([]string, 0, len(preds))
	args := make([]any, 0, len(preds))
	for _, p := range preds {
		col := columns[p.Field]
		switch p.Op {
		case OpContains:
			clauses = append(clauses, fmt.Sprintf(`%s(%s) LIKE ? ESCAPE '\'`, d.lower(), col))
			args = append(args, "%"+likeEscaper.Replace(strings.ToLower(p.Value.(string)))+"%")
		case OpEqual:
			clauses = append(clauses, col+" = ?")
			args = append(args, p.Value)
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

const beerColumns = "id, name, taste, score, version, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBeer(row rowScanner) (*Beer, error) {
	var beer Beer
	err := row.Scan(
		&beer.ID,
		&beer.Name,
		&beer.Taste,
		&beer.Score,
		&beer.Version,
		&beer.CreatedAt,
		&beer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &beer, nil
}

// BeerModel is the SQL implementation of Store. Removals are staged in
// memory and applied in a single transaction by Flush.
type BeerModel struct {
	DB      *sql.DB
	Dialect Dialect

	// flushMu is held from taking the staged ids until their transaction
	// has finished, so a Flush never returns while another one is still
	// applying removals it may have picked up.
	flushMu sync.Mutex

	mu      sync.Mutex
	removed []int64
}

var _ Store = (*BeerModel)(nil)

// NewBeerModel returns a BeerModel using db with the given dialect.
func NewBeerModel(db *sql.DB, dialect Dialect) *BeerModel {
	return &BeerModel{DB: db, Dialect: dialect}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Insert adds a new beer. The generated id is written back into beer along
// with version 1 and the creation timestamps.
func (m *BeerModel) Insert(ctx context.Context, beer *Beer) error {
	query := m.Dialect.rebind(`
		INSERT INTO beers (name, taste, score, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		RETURNING id`)

	ts := now()
	err := m.DB.QueryRowContext(ctx, query, beer.Name, beer.Taste, beer.Score, ts, ts).Scan(&beer.ID)
	if err != nil {
		return fmt.Errorf("insert beer: %w", err)
	}

	beer.Version = 1
	beer.CreatedAt = ts
	beer.UpdatedAt = ts
	return nil
}

// FindByID retrieves a single beer by its primary key.
func (m *BeerModel) FindByID(ctx context.Context, id int64) (*Beer, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := m.Dialect.rebind(`SELECT ` + beerColumns + ` FROM beers WHERE id = ?`)

	beer, err := scanBeer(m.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, fmt.Errorf("find beer %d: %w", id, err)
		}
	}
	return beer, nil
}

// Update saves beer's editable fields when its version still matches the
// stored row. The bumped version and update timestamp are written back.
func (m *BeerModel) Update(ctx context.Context, beer *Beer) error {
	if beer.IsNew() {
		return ErrRecordNotFound
	}

	query := m.Dialect.rebind(`
		UPDATE beers
		SET name = ?, taste = ?, score = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
		RETURNING version`)

	ts := now()
	err := m.DB.QueryRowContext(ctx, query,
		beer.Name,
		beer.Taste,
		beer.Score,
		ts,
		beer.ID,
		beer.Version,
	).Scan(&beer.Version)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("update beer %d: %w", beer.ID, err)
		}
		ok, existsErr := m.exists(ctx, beer.ID)
		switch {
		case existsErr != nil:
			return existsErr
		case !ok:
			return ErrRecordNotFound
		default:
			return ErrEditConflict
		}
	}

	beer.UpdatedAt = ts
	return nil
}

func (m *BeerModel) exists(ctx context.Context, id int64) (bool, error) {
	var n int
	err := m.DB.QueryRowContext(ctx, m.Dialect.rebind(`SELECT count(*) FROM beers WHERE id = ?`), id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check beer %d: %w", id, err)
	}
	return n > 0, nil
}

// Remove stages beer for deletion. It fails with ErrRecordNotFound when the
// row is already gone.
func (m *BeerModel) Remove(ctx context.Context, beer *Beer) error {
	if beer == nil || beer.IsNew() {
		return ErrRecordNotFound
	}

	ok, err := m.exists(ctx, beer.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRecordNotFound
	}

	m.mu.Lock()
	m.removed = append(m.removed, beer.ID)
	m.mu.Unlock()
	return nil
}

// Flush deletes every staged beer inside one transaction and returns once it
// has committed. If the transaction fails, the ids go back on the staging
// list so a later Flush retries them instead of reporting success.
func (m *BeerModel) Flush(ctx context.Context) error {
	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	m.mu.Lock()
	ids := m.removed
	m.removed = nil
	m.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}

	if err := m.deleteAll(ctx, ids); err != nil {
		m.mu.Lock()
		m.removed = append(ids, m.removed...)
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *BeerModel) deleteAll(ctx context.Context, ids []int64) error {
	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("flush: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := m.Dialect.rebind(`DELETE FROM beers WHERE id = ?`)
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("flush: delete beer %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("flush: commit: %w", err)
	}
	return nil
}

// Count returns the number of beers matching preds.
func (m *BeerModel) Count(ctx context.Context, preds []Predicate) (int, error) {
	where, args, err := m.Dialect.whereClause(preds)
	if err != nil {
		return 0, err
	}

	var total int
	query := m.Dialect.rebind(`SELECT count(*) FROM beers` + where)
	if err := m.DB.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count beers: %w", err)
	}
	return total, nil
}

// List returns one page of beers matching preds, ordered by id.
func (m *BeerModel) List(ctx context.Context, preds []Predicate, offset, limit int) ([]*Beer, error) {
	where, args, err := m.Dialect.whereClause(preds)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	query := m.Dialect.rebind(`SELECT ` + beerColumns + ` FROM beers` + where + ` ORDER BY id ASC LIMIT ? OFFSET ?`)
	args = append(args, limit, offset)
	return m.query(ctx, query, args...)
}

// ListAll returns every beer ordered by id.
func (m *BeerModel) ListAll(ctx context.Context) ([]*Beer, error) {
	return m.query(ctx, `SELECT `+beerColumns+` FROM beers ORDER BY id ASC`)
}

func (m *BeerModel) query(ctx context.Context, query string, args ...any) ([]*Beer, error) {
	rows, err := m.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list beers: %w", err)
	}
	defer rows.Close()

	beers := []*Beer{}
	for rows.Next() {
		beer, err := scanBeer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan beer: %w", err)
		}
		beers = append(beers, beer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list beers: %w", err)
	}
	return beers, nil
}
