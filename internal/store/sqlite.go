package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/monument-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path, enables WAL mode and
// foreign key enforcement.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS monuments (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	aliases           TEXT NOT NULL DEFAULT '[]',
	url               TEXT NOT NULL DEFAULT '',
	latitude          REAL,
	longitude         REAL,
	address           TEXT NOT NULL DEFAULT '',
	city              TEXT NOT NULL DEFAULT '',
	region            TEXT NOT NULL DEFAULT '',
	category          TEXT NOT NULL DEFAULT '',
	description       TEXT NOT NULL DEFAULT '',
	website           TEXT NOT NULL DEFAULT '',
	opening_hours     TEXT NOT NULL DEFAULT '',
	phone             TEXT NOT NULL DEFAULT '',
	encyclopedia_url  TEXT NOT NULL DEFAULT '',
	map_url           TEXT NOT NULL DEFAULT '',
	price_level       TEXT NOT NULL DEFAULT '',
	ticket_price      TEXT NOT NULL DEFAULT '',
	price_conditions  TEXT NOT NULL DEFAULT '',
	payment_methods   TEXT NOT NULL DEFAULT '',
	visiting_services TEXT NOT NULL DEFAULT '',
	provenance        TEXT NOT NULL DEFAULT '{}',
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS provider_metrics (
	monument_id TEXT NOT NULL REFERENCES monuments(id) ON DELETE CASCADE,
	source      TEXT NOT NULL,
	rating      REAL,
	votes       INTEGER,
	checkins    INTEGER,
	likes       INTEGER,
	PRIMARY KEY (monument_id, source)
);

CREATE TABLE IF NOT EXISTS provider_places (
	source            TEXT NOT NULL,
	source_id         TEXT NOT NULL,
	monument_id       TEXT NOT NULL REFERENCES monuments(id) ON DELETE CASCADE,
	name              TEXT NOT NULL,
	url               TEXT NOT NULL DEFAULT '',
	latitude          REAL,
	longitude         REAL,
	distance_m        REAL,
	similarity        REAL NOT NULL,
	domain_equivalent BOOLEAN NOT NULL DEFAULT 0,
	tier              TEXT NOT NULL,
	reason            TEXT NOT NULL,
	run_id            TEXT NOT NULL,
	matched_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (source, source_id)
);

CREATE TABLE IF NOT EXISTS field_provenance (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	monument_id  TEXT NOT NULL REFERENCES monuments(id) ON DELETE CASCADE,
	field        TEXT NOT NULL,
	source       TEXT NOT NULL,
	tier         TEXT NOT NULL,
	candidate_id TEXT NOT NULL,
	old_value    TEXT NOT NULL DEFAULT '',
	new_value    TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS adjudications (
	record_id     TEXT NOT NULL REFERENCES monuments(id) ON DELETE CASCADE,
	source        TEXT NOT NULL,
	candidate_id  TEXT NOT NULL,
	same_entity   BOOLEAN NOT NULL,
	justification TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (record_id, source, candidate_id)
);

CREATE TABLE IF NOT EXISTS provider_reviews (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	source      TEXT NOT NULL,
	source_id   TEXT NOT NULL,
	monument_id TEXT NOT NULL REFERENCES monuments(id) ON DELETE CASCADE,
	author      TEXT NOT NULL DEFAULT '',
	rating      REAL,
	text        TEXT NOT NULL DEFAULT '',
	language    TEXT NOT NULL DEFAULT '',
	polarity    REAL,
	review_time TEXT NOT NULL DEFAULT '',
	run_id      TEXT NOT NULL,
	FOREIGN KEY (source, source_id) REFERENCES provider_places(source, source_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_provider_places_monument ON provider_places(monument_id);
CREATE INDEX IF NOT EXISTS idx_provider_reviews_monument ON provider_reviews(monument_id);
CREATE INDEX IF NOT EXISTS idx_provider_reviews_place ON provider_reviews(source, source_id);
CREATE INDEX IF NOT EXISTS idx_field_provenance_monument ON field_provenance(monument_id);
CREATE INDEX IF NOT EXISTS idx_field_provenance_run ON field_provenance(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	if err := s.addMissingColumns(ctx, "monuments", sqliteLateColumns); err != nil {
		return err
	}
	for _, name := range ViewNames() {
		stmt := fmt.Sprintf("DROP VIEW IF EXISTS %s; CREATE VIEW %s AS %s", name, name, views[name])
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "sqlite: create view %s", name)
		}
	}
	return nil
}

// sqliteLateColumns were added to monuments after the first schema shipped.
var sqliteLateColumns = []string{
	"price_level", "ticket_price", "price_conditions", "payment_methods", "visiting_services",
}

// addMissingColumns brings databases created by an older schema up to date.
// SQLite has no ADD COLUMN IF NOT EXISTS.
func (s *SQLiteStore) addMissingColumns(ctx context.Context, table string, cols []string) error {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info('"+table+"')")
	if err != nil {
		return eris.Wrapf(err, "sqlite: table info %s", table)
	}
	have := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close() //nolint:errcheck
			return eris.Wrapf(err, "sqlite: scan table info %s", table)
		}
		have[name] = true
	}
	rows.Close() //nolint:errcheck
	if err := rows.Err(); err != nil {
		return eris.Wrapf(err, "sqlite: iterate table info %s", table)
	}
	for _, c := range cols {
		if have[c] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT NOT NULL DEFAULT ''", table, c)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "sqlite: add column %s.%s", table, c)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadBaseRecords(ctx context.Context) ([]model.BaseRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+strings.Join(monumentColumns, ", ")+" FROM monuments ORDER BY id")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query monuments")
	}
	defer rows.Close() //nolint:errcheck

	var records []model.BaseRecord
	index := make(map[string]int)
	for rows.Next() {
		var m monumentRow
		if err := rows.Scan(m.dest()...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan monument")
		}
		rec, err := m.record()
		if err != nil {
			return nil, err
		}
		index[rec.ID] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate monuments")
	}

	mrows, err := s.db.QueryContext(ctx,
		"SELECT "+strings.Join(metricColumns, ", ")+" FROM provider_metrics ORDER BY monument_id, source")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query provider metrics")
	}
	defer mrows.Close() //nolint:errcheck
	for mrows.Next() {
		var (
			id, src string
			mt      model.ProviderMetrics
		)
		if err := mrows.Scan(&id, &src, &mt.Rating, &mt.Votes, &mt.Checkins, &mt.Likes); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan provider metrics")
		}
		attachMetrics(records, index, id, model.Source(src), mt)
	}
	return records, eris.Wrap(mrows.Err(), "sqlite: iterate provider metrics")
}

// SaveMergedRecords upserts records and their metrics slots in one
// transaction.
func (s *SQLiteStore) SaveMergedRecords(ctx context.Context, records []model.BaseRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		upsert := sqliteUpsert("monuments", monumentColumns, []string{"id"}) +
			", updated_at = datetime('now')"
		metrics := sqliteUpsert("provider_metrics", metricColumns, []string{"monument_id", "source"})
		for _, r := range records {
			vals, err := monumentValues(r)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, upsert, vals...); err != nil {
				return eris.Wrapf(err, "sqlite: upsert monument %s", r.ID)
			}
			for _, row := range metricRows(r) {
				if _, err := tx.ExecContext(ctx, metrics, row...); err != nil {
					return eris.Wrapf(err, "sqlite: upsert metrics %s", r.ID)
				}
			}
		}
		return nil
	})
}

func (s *SQLiteStore) RecordProvenance(ctx context.Context, runID string, changes []model.FieldChange) error {
	if len(changes) == 0 {
		return nil
	}
	ids := distinctRecordIDs(changes, func(c model.FieldChange) string { return c.RecordID })
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := sqliteRequireRecords(ctx, tx, ids); err != nil {
			return err
		}
		stmt := sqliteInsert("field_provenance", provenanceColumns)
		for _, c := range changes {
			if _, err := tx.ExecContext(ctx, stmt, provenanceValues(runID, c)...); err != nil {
				return eris.Wrapf(err, "sqlite: insert provenance %s.%s", c.RecordID, c.Field)
			}
		}
		return nil
	})
}

// SaveProviderPlaces stores the candidate of every accepted decision with
// its reviews. A candidate is linked to one monument; a later run re-links
// it. A candidate that carries reviews replaces the stored ones.
func (s *SQLiteStore) SaveProviderPlaces(ctx context.Context, runID string, decisions []model.MatchDecision) error {
	places := acceptedPlaces(decisions)
	if len(places) == 0 {
		return nil
	}
	ids := distinctRecordIDs(places, func(d model.MatchDecision) string { return d.RecordID })
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := sqliteRequireRecords(ctx, tx, ids); err != nil {
			return err
		}
		stmt := sqliteUpsert("provider_places", placeColumns, []string{"source", "source_id"})
		insertReview := sqliteInsert("provider_reviews", reviewColumns)
		for _, d := range places {
			if _, err := tx.ExecContext(ctx, stmt, placeValues(runID, d)...); err != nil {
				return eris.Wrapf(err, "sqlite: upsert place %s/%s", d.Source, d.CandidateID())
			}
			if len(d.Candidate.Reviews) == 0 {
				if _, err := tx.ExecContext(ctx,
					`UPDATE provider_reviews SET monument_id = ? WHERE source = ? AND source_id = ?`,
					d.RecordID, string(d.Source), d.Candidate.SourceID,
				); err != nil {
					return eris.Wrapf(err, "sqlite: relink reviews %s/%s", d.Source, d.CandidateID())
				}
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM provider_reviews WHERE source = ? AND source_id = ?`,
				string(d.Source), d.Candidate.SourceID,
			); err != nil {
				return eris.Wrapf(err, "sqlite: clear reviews %s/%s", d.Source, d.CandidateID())
			}
			for _, row := range reviewRows(runID, d) {
				if _, err := tx.ExecContext(ctx, insertReview, row...); err != nil {
					return eris.Wrapf(err, "sqlite: insert review %s/%s", d.Source, d.CandidateID())
				}
			}
		}
		return nil
	})
}

func (s *SQLiteStore) GetVerdict(ctx context.Context, key model.DecisionKey) (*model.Verdict, error) {
	var v model.Verdict
	err := s.db.QueryRowContext(ctx,
		`SELECT same_entity, justification FROM adjudications WHERE record_id = ? AND source = ? AND candidate_id = ?`,
		key.RecordID, string(key.Source), key.CandidateID,
	).Scan(&v.SameEntity, &v.Justification)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get verdict %s", key)
	}
	return &v, nil
}

func (s *SQLiteStore) PutVerdict(ctx context.Context, key model.DecisionKey, v model.Verdict) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := sqliteRequireRecords(ctx, tx, []string{key.RecordID}); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO adjudications (record_id, source, candidate_id, same_entity, justification)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (record_id, source, candidate_id) DO UPDATE SET
			   same_entity = excluded.same_entity, justification = excluded.justification`,
			key.RecordID, string(key.Source), key.CandidateID, v.SameEntity, v.Justification,
		)
		return eris.Wrapf(err, "sqlite: put verdict %s", key)
	})
}

func (s *SQLiteStore) QueryView(ctx context.Context, name string) (*Table, error) {
	q, ok := viewQuery(name)
	if !ok {
		return nil, eris.Wrapf(ErrUnknownView, "sqlite: %s", name)
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query view %s", name)
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: view columns")
	}
	t := &Table{Name: name, Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan view %s", name)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		t.Rows = append(t.Rows, vals)
	}
	return t, eris.Wrapf(rows.Err(), "sqlite: iterate view %s", name)
}

func (s *SQLiteStore) Quality(ctx context.Context) (*QualityReport, error) {
	return buildQualityReport(ctx, func(ctx context.Context, q string, dest ...any) error {
		return s.db.QueryRowContext(ctx, q).Scan(dest...)
	})
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			zap.L().Warn("sqlite: rollback failed", zap.Error(rbErr))
		}
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

func sqliteRequireRecords(ctx context.Context, tx *sql.Tx, ids []string) error {
	for _, id := range ids {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM monuments WHERE id = ?`, id).Scan(&n); err != nil {
			return eris.Wrapf(err, "sqlite: check monument %s", id)
		}
		if n == 0 {
			return eris.Wrapf(ErrUnknownRecord, "sqlite: monument %s", id)
		}
	}
	return nil
}

func sqliteInsert(table string, cols []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
}

func sqliteUpsert(table string, cols, keys []string) string {
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	var sets []string
	for _, c := range cols {
		if !isKey[c] {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s",
		sqliteInsert(table, cols), strings.Join(keys, ", "), strings.Join(sets, ", "))
}

func attachMetrics(records []model.BaseRecord, index map[string]int, id string, src model.Source, mt model.ProviderMetrics) {
	i, ok := index[id]
	if !ok {
		return
	}
	if records[i].Metrics == nil {
		records[i].Metrics = make(map[model.Source]model.ProviderMetrics)
	}
	records[i].Metrics[src] = mt
}

var _ Store = (*SQLiteStore)(nil)
