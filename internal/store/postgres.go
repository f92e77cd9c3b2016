package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/monument-cli/internal/db"
	"github.com/sells-group/monument-cli/internal/geo"
	"github.com/sells-group/monument-cli/internal/model"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationLockID guards concurrent Migrate calls across processes.
const migrationLockID = 52716041

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// statements are prepared on each new connection.
var statements = map[string]string{
	"get_verdict": `SELECT same_entity, justification FROM adjudications WHERE record_id = $1 AND source = $2 AND candidate_id = $3`,
	"put_verdict": `INSERT INTO adjudications (record_id, source, candidate_id, same_entity, justification)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (record_id, source, candidate_id) DO UPDATE SET
		same_entity = EXCLUDED.same_entity, justification = EXCLUDED.justification`,
	"existing_ids": `SELECT id FROM monuments WHERE id = ANY($1)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range statements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Close is a no-op.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

// Migrate applies pending embedded migrations in lexicographic order under
// an advisory lock, then recreates the analytical views.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	log := zap.L().With(zap.String("component", "store.migrate"))

	if _, err := s.pool.Exec(ctx, fmt.Sprintf("SELECT pg_advisory_lock(%d)", migrationLockID)); err != nil {
		return eris.Wrap(err, "postgres: acquire migration advisory lock")
	}
	defer func() {
		if _, err := s.pool.Exec(ctx, fmt.Sprintf("SELECT pg_advisory_unlock(%d)", migrationLockID)); err != nil {
			log.Warn("postgres: failed to release migration advisory lock", zap.Error(err))
		}
	}()

	if _, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename   TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return eris.Wrap(err, "postgres: ensure migration table")
	}

	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return eris.Wrap(err, "postgres: read migration dir")
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if applied[name] {
			continue
		}
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return eris.Wrapf(err, "postgres: read migration %s", name)
		}
		log.Info("applying migration", zap.String("file", name))
		if _, err := s.pool.Exec(ctx, string(data)); err != nil {
			return eris.Wrapf(err, "postgres: apply migration %s", name)
		}
		if _, err := s.pool.Exec(ctx,
			"INSERT INTO schema_migrations (filename, applied_at) VALUES ($1, now())", name,
		); err != nil {
			return eris.Wrapf(err, "postgres: record migration %s", name)
		}
	}

	for _, name := range ViewNames() {
		stmt := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS %s", name, views[name])
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrapf(err, "postgres: create view %s", name)
		}
	}
	return nil
}

func (s *PostgresStore) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query applied migrations")
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan migration row")
		}
		applied[name] = true
	}
	return applied, eris.Wrap(rows.Err(), "postgres: iterate migrations")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) LoadBaseRecords(ctx context.Context) ([]model.BaseRecord, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+strings.Join(monumentColumns, ", ")+", geom FROM monuments ORDER BY id")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query monuments")
	}
	defer rows.Close()

	var records []model.BaseRecord
	index := make(map[string]int)
	for rows.Next() {
		var (
			m    monumentRow
			geom []byte
		)
		if err := rows.Scan(append(m.dest(), &geom)...); err != nil {
			return nil, eris.Wrap(err, "postgres: scan monument")
		}
		rec, err := m.record()
		if err != nil {
			return nil, err
		}
		c, err := geo.DecodeEWKB(geom)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: decode geom %s", rec.ID)
		}
		if c != nil {
			rec.Coordinates = c
		}
		index[rec.ID] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate monuments")
	}

	mrows, err := s.pool.Query(ctx,
		"SELECT "+strings.Join(metricColumns, ", ")+" FROM provider_metrics ORDER BY monument_id, source")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query provider metrics")
	}
	defer mrows.Close()
	for mrows.Next() {
		var (
			id, src string
			mt      model.ProviderMetrics
		)
		if err := mrows.Scan(&id, &src, &mt.Rating, &mt.Votes, &mt.Checkins, &mt.Likes); err != nil {
			return nil, eris.Wrap(err, "postgres: scan provider metrics")
		}
		attachMetrics(records, index, id, model.Source(src), mt)
	}
	return records, eris.Wrap(mrows.Err(), "postgres: iterate provider metrics")
}

// SaveMergedRecords bulk-upserts monuments, then their metrics slots.
func (s *PostgresStore) SaveMergedRecords(ctx context.Context, records []model.BaseRecord) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([][]any, 0, len(records))
	var metrics [][]any
	for _, r := range records {
		vals, err := monumentValues(r)
		if err != nil {
			return err
		}
		geom, err := geo.EncodeEWKB(r.Coordinates)
		if err != nil {
			return eris.Wrapf(err, "postgres: encode geom %s", r.ID)
		}
		rows = append(rows, append(vals, geom, now))
		metrics = append(metrics, metricRows(r)...)
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "monuments",
		Columns:      append(append([]string{}, monumentColumns...), "geom", "updated_at"),
		ConflictKeys: []string{"id"},
	}, rows)
	if err != nil {
		return eris.Wrap(err, "postgres: save monuments")
	}
	if _, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "provider_metrics",
		Columns:      metricColumns,
		ConflictKeys: []string{"monument_id", "source"},
	}, metrics); err != nil {
		return eris.Wrap(err, "postgres: save provider metrics")
	}
	zap.L().Debug("postgres: saved monuments", zap.Int64("rows", n), zap.Int("metrics", len(metrics)))
	return nil
}

func (s *PostgresStore) RecordProvenance(ctx context.Context, runID string, changes []model.FieldChange) error {
	if len(changes) == 0 {
		return nil
	}
	ids := distinctRecordIDs(changes, func(c model.FieldChange) string { return c.RecordID })
	if err := s.requireRecords(ctx, ids); err != nil {
		return err
	}
	rows := make([][]any, len(changes))
	for i, c := range changes {
		rows[i] = provenanceValues(runID, c)
	}
	if _, err := db.CopyFrom(ctx, s.pool, "field_provenance", provenanceColumns, rows); err != nil {
		return eris.Wrap(err, "postgres: record provenance")
	}
	return nil
}

// SaveProviderPlaces upserts the candidate of every accepted decision and
// replaces the stored reviews of candidates that carry any.
func (s *PostgresStore) SaveProviderPlaces(ctx context.Context, runID string, decisions []model.MatchDecision) error {
	places := acceptedPlaces(decisions)
	if len(places) == 0 {
		return nil
	}
	ids := distinctRecordIDs(places, func(d model.MatchDecision) string { return d.RecordID })
	if err := s.requireRecords(ctx, ids); err != nil {
		return err
	}
	rows := make([][]any, len(places))
	for i, d := range places {
		rows[i] = placeValues(runID, d)
	}
	if _, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "provider_places",
		Columns:      placeColumns,
		ConflictKeys: []string{"source", "source_id"},
	}, rows); err != nil {
		return eris.Wrap(err, "postgres: save provider places")
	}

	// Reviews follow their place when a later run re-links it.
	if _, err := s.pool.Exec(ctx, `UPDATE provider_reviews r SET monument_id = p.monument_id
		FROM provider_places p
		WHERE r.source = p.source AND r.source_id = p.source_id AND r.monument_id <> p.monument_id`); err != nil {
		return eris.Wrap(err, "postgres: relink reviews")
	}

	var (
		sources, sourceIDs []string
		reviews            [][]any
	)
	for _, d := range places {
		if len(d.Candidate.Reviews) == 0 {
			continue
		}
		sources = append(sources, string(d.Source))
		sourceIDs = append(sourceIDs, d.Candidate.SourceID)
		reviews = append(reviews, reviewRows(runID, d)...)
	}
	if len(reviews) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM provider_reviews r
		USING unnest($1::text[], $2::text[]) AS k(source, source_id)
		WHERE r.source = k.source AND r.source_id = k.source_id`, sources, sourceIDs); err != nil {
		return eris.Wrap(err, "postgres: clear reviews")
	}
	if _, err := db.CopyFrom(ctx, s.pool, "provider_reviews", reviewColumns, reviews); err != nil {
		return eris.Wrap(err, "postgres: save reviews")
	}
	zap.L().Debug("postgres: saved provider places",
		zap.Int("places", len(places)), zap.Int("reviews", len(reviews)))
	return nil
}

func (s *PostgresStore) GetVerdict(ctx context.Context, key model.DecisionKey) (*model.Verdict, error) {
	var v model.Verdict
	err := s.pool.QueryRow(ctx, statements["get_verdict"],
		key.RecordID, string(key.Source), key.CandidateID,
	).Scan(&v.SameEntity, &v.Justification)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get verdict %s", key)
	}
	return &v, nil
}

func (s *PostgresStore) PutVerdict(ctx context.Context, key model.DecisionKey, v model.Verdict) error {
	if err := s.requireRecords(ctx, []string{key.RecordID}); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, statements["put_verdict"],
		key.RecordID, string(key.Source), key.CandidateID, v.SameEntity, v.Justification,
	)
	return eris.Wrapf(err, "postgres: put verdict %s", key)
}

func (s *PostgresStore) QueryView(ctx context.Context, name string) (*Table, error) {
	q, ok := viewQuery(name)
	if !ok {
		return nil, eris.Wrapf(ErrUnknownView, "postgres: %s", name)
	}
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query view %s", name)
	}
	defer rows.Close()

	t := &Table{Name: name, Rows: [][]any{}}
	for _, fd := range rows.FieldDescriptions() {
		t.Columns = append(t.Columns, fd.Name)
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: scan view %s", name)
		}
		for i, v := range vals {
			vals[i] = plainValue(v)
		}
		t.Rows = append(t.Rows, vals)
	}
	return t, eris.Wrapf(rows.Err(), "postgres: iterate view %s", name)
}

func (s *PostgresStore) Quality(ctx context.Context) (*QualityReport, error) {
	return buildQualityReport(ctx, func(ctx context.Context, q string, dest ...any) error {
		return s.pool.QueryRow(ctx, q).Scan(dest...)
	})
}

func (s *PostgresStore) requireRecords(ctx context.Context, ids []string) error {
	rows, err := s.pool.Query(ctx, statements["existing_ids"], ids)
	if err != nil {
		return eris.Wrap(err, "postgres: check monuments")
	}
	defer rows.Close()

	found := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return eris.Wrap(err, "postgres: scan monument id")
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "postgres: iterate monument ids")
	}
	for _, id := range ids {
		if !found[id] {
			return eris.Wrapf(ErrUnknownRecord, "postgres: monument %s", id)
		}
	}
	return nil
}

// plainValue converts driver-specific numeric types to float64 so tables
// serialise cleanly.
func plainValue(v any) any {
	if n, ok := v.(pgtype.Numeric); ok {
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	}
	return v
}

var _ Store = (*PostgresStore)(nil)
