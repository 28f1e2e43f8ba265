package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/gaterace/internal/models"
	"github.com/abrezinsky/gaterace/internal/race"
)

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	// Run migrations
	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			gender TEXT NOT NULL DEFAULT 'MIX',
			birth_year_min INTEGER NOT NULL,
			birth_year_max INTEGER NOT NULL,
			override_enabled BOOLEAN NOT NULL DEFAULT 0,
			override_qualification BOOLEAN NOT NULL DEFAULT 0,
			override_quarter_final BOOLEAN NOT NULL DEFAULT 0,
			override_semi_final BOOLEAN NOT NULL DEFAULT 0,
			override_final_classes TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS riders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			plate TEXT NOT NULL,
			birth_year INTEGER NOT NULL,
			gender TEXT NOT NULL,
			absent BOOLEAN NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS heats (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			stage TEXT NOT NULL,
			batch INTEGER NOT NULL DEFAULT 0,
			moto INTEGER NOT NULL DEFAULT 0,
			number INTEGER NOT NULL DEFAULT 0,
			final_class TEXT NOT NULL DEFAULT '',
			heat_order INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'UPCOMING',
			published BOOLEAN NOT NULL DEFAULT 0,
			FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS heat_riders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			heat_id INTEGER NOT NULL,
			rider_id INTEGER NOT NULL,
			gate INTEGER,
			FOREIGN KEY (heat_id) REFERENCES heats(id) ON DELETE CASCADE,
			FOREIGN KEY (rider_id) REFERENCES riders(id),
			UNIQUE(heat_id, rider_id)
		)`,
		`CREATE TABLE IF NOT EXISTS heat_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			heat_id INTEGER NOT NULL,
			rider_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			finish_order INTEGER,
			FOREIGN KEY (heat_id) REFERENCES heats(id) ON DELETE CASCADE,
			FOREIGN KEY (rider_id) REFERENCES riders(id),
			UNIQUE(heat_id, rider_id)
		)`,
		`CREATE TABLE IF NOT EXISTS penalties (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			heat_id INTEGER NOT NULL,
			rider_id INTEGER NOT NULL,
			points INTEGER NOT NULL,
			reason TEXT,
			approved BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (heat_id) REFERENCES heats(id) ON DELETE CASCADE,
			FOREIGN KEY (rider_id) REFERENCES riders(id)
		)`,
		`CREATE TABLE IF NOT EXISTS stage_rules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category_id INTEGER NOT NULL,
			min_riders INTEGER NOT NULL,
			enable_qualification BOOLEAN NOT NULL DEFAULT 0,
			enable_quarter_final BOOLEAN NOT NULL DEFAULT 0,
			enable_semi_final BOOLEAN NOT NULL DEFAULT 0,
			final_classes TEXT,
			FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS stage_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category_id INTEGER NOT NULL,
			rider_id INTEGER NOT NULL,
			stage TEXT NOT NULL,
			batch INTEGER,
			final_class TEXT,
			position INTEGER,
			points INTEGER,
			FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_heats_category ON heats(category_id)`,
		`CREATE INDEX IF NOT EXISTS idx_heat_riders_heat ON heat_riders(heat_id)`,
		`CREATE INDEX IF NOT EXISTS idx_heat_results_heat ON heat_results(heat_id)`,
		`CREATE INDEX IF NOT EXISTS idx_penalties_heat ON penalties(heat_id)`,
		`CREATE INDEX IF NOT EXISTS idx_stage_results_category ON stage_results(category_id, stage)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back on error
func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func finalClassesJSON(classes []models.FinalClass) sql.NullString {
	if len(classes) == 0 {
		return sql.NullString{}
	}
	data, _ := json.Marshal(classes) // Marshal on a string slice never fails
	return sql.NullString{String: string(data), Valid: true}
}

func parseFinalClasses(s sql.NullString) ([]models.FinalClass, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var classes []models.FinalClass
	if err := json.Unmarshal([]byte(s.String), &classes); err != nil {
		return nil, fmt.Errorf("decode final classes: %w", err)
	}
	return classes, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// ==================== Category Methods ====================

const categoryColumns = `id, name, gender, birth_year_min, birth_year_max,
	override_enabled, override_qualification, override_quarter_final, override_semi_final, override_final_classes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (models.Category, error) {
	var cat models.Category
	var overrideEnabled bool
	var o models.StageOverride
	var classes sql.NullString
	if err := row.Scan(&cat.ID, &cat.Name, &cat.Gender, &cat.BirthYearMin, &cat.BirthYearMax,
		&overrideEnabled, &o.Qualification, &o.QuarterFinal, &o.SemiFinal, &classes); err != nil {
		return cat, err
	}
	if overrideEnabled {
		fc, err := parseFinalClasses(classes)
		if err != nil {
			return cat, err
		}
		o.FinalClasses = fc
		cat.Override = &o
	}
	return cat, nil
}

// ListCategories returns all categories
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}

// GetCategory returns a single category
func (r *Repository) GetCategory(ctx context.Context, id int) (*models.Category, error) {
	cat, err := scanCategory(r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// CreateCategory creates a new category without an override
func (r *Repository) CreateCategory(ctx context.Context, cat models.Category) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, gender, birth_year_min, birth_year_max) VALUES (?, ?, ?, ?)`,
		cat.Name, cat.Gender, cat.BirthYearMin, cat.BirthYearMax)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// SetStageOverride stores a manual stage override; nil clears it
func (r *Repository) SetStageOverride(ctx context.Context, categoryID int, override *models.StageOverride) error {
	var result sql.Result
	var err error
	if override == nil {
		result, err = r.db.ExecContext(ctx, `
			UPDATE categories SET override_enabled = 0, override_qualification = 0, override_quarter_final = 0,
				override_semi_final = 0, override_final_classes = NULL
			WHERE id = ?`, categoryID)
	} else {
		result, err = r.db.ExecContext(ctx, `
			UPDATE categories SET override_enabled = 1, override_qualification = ?, override_quarter_final = ?,
				override_semi_final = ?, override_final_classes = ?
			WHERE id = ?`,
			override.Qualification, override.QuarterFinal, override.SemiFinal, finalClassesJSON(override.FinalClasses), categoryID)
	}
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// CountEligibleRiders counts riders whose birth year and gender match the category.
// A MIX category accepts any gender.
func (r *Repository) CountEligibleRiders(ctx context.Context, categoryID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM riders rd
		JOIN categories c ON c.id = ?
		WHERE rd.birth_year BETWEEN c.birth_year_min AND c.birth_year_max
		  AND (c.gender = 'MIX' OR rd.gender = c.gender)
	`, categoryID).Scan(&count)
	return count, err
}

// ListStageRules returns the stage rule tiers of a category ordered by min_riders
func (r *Repository) ListStageRules(ctx context.Context, categoryID int) ([]models.StageRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category_id, min_riders, enable_qualification, enable_quarter_final, enable_semi_final, final_classes
		FROM stage_rules WHERE category_id = ? ORDER BY min_riders, id
	`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.StageRule
	for rows.Next() {
		var rule models.StageRule
		var classes sql.NullString
		if err := rows.Scan(&rule.ID, &rule.CategoryID, &rule.MinRiders, &rule.EnableQualification,
			&rule.EnableQuarterFinal, &rule.EnableSemiFinal, &classes); err != nil {
			return nil, err
		}
		if rule.FinalClasses, err = parseFinalClasses(classes); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// CreateStageRule adds a stage rule tier
func (r *Repository) CreateStageRule(ctx context.Context, rule models.StageRule) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO stage_rules (category_id, min_riders, enable_qualification, enable_quarter_final, enable_semi_final, final_classes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rule.CategoryID, rule.MinRiders, rule.EnableQualification, rule.EnableQuarterFinal, rule.EnableSemiFinal,
		finalClassesJSON(rule.FinalClasses))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ==================== Rider Methods ====================

// ListRiders returns all riders
func (r *Repository) ListRiders(ctx context.Context) ([]models.Rider, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, plate, birth_year, gender, absent FROM riders ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var riders []models.Rider
	for rows.Next() {
		var rd models.Rider
		if err := rows.Scan(&rd.ID, &rd.Name, &rd.Plate, &rd.BirthYear, &rd.Gender, &rd.Absent); err != nil {
			return nil, err
		}
		riders = append(riders, rd)
	}
	return riders, rows.Err()
}

// GetRider returns a single rider
func (r *Repository) GetRider(ctx context.Context, id int) (*models.Rider, error) {
	var rd models.Rider
	err := r.db.QueryRowContext(ctx, `SELECT id, name, plate, birth_year, gender, absent FROM riders WHERE id = ?`, id).
		Scan(&rd.ID, &rd.Name, &rd.Plate, &rd.BirthYear, &rd.Gender, &rd.Absent)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rd, nil
}

// CreateRider registers a rider
func (r *Repository) CreateRider(ctx context.Context, rider models.Rider) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO riders (name, plate, birth_year, gender, absent) VALUES (?, ?, ?, ?, ?)`,
		rider.Name, rider.Plate, rider.BirthYear, rider.Gender, rider.Absent)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// SetRiderAbsent sets the ABSENT flag on a rider
func (r *Repository) SetRiderAbsent(ctx context.Context, id int, absent bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE riders SET absent = ? WHERE id = ?`, absent, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ==================== Heat Methods ====================

const heatColumns = `id, category_id, name, stage, batch, moto, number, final_class, heat_order, status, published`

func scanHeat(row rowScanner) (models.Heat, error) {
	var h models.Heat
	var stage, class, status string
	if err := row.Scan(&h.ID, &h.CategoryID, &h.Name, &stage, &h.Ident.Batch, &h.Ident.Moto, &h.Ident.Number,
		&class, &h.Order, &status, &h.Published); err != nil {
		return h, err
	}
	h.Ident.Stage = models.Stage(stage)
	h.Ident.FinalClass = models.FinalClass(class)
	// rows imported from name-only schedules carry no stage columns
	if stage == "" {
		if ident, err := race.ParseHeatName(h.Name); err == nil {
			h.Ident = ident
		}
	}
	parsed, err := models.ParseHeatStatus(status)
	if err != nil {
		return h, err
	}
	h.Status = parsed
	return h, nil
}

// ListHeats returns a category's heats in running order
func (r *Repository) ListHeats(ctx context.Context, categoryID int) ([]models.Heat, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+heatColumns+` FROM heats WHERE category_id = ? ORDER BY heat_order, id`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var heats []models.Heat
	for rows.Next() {
		h, err := scanHeat(rows)
		if err != nil {
			return nil, err
		}
		heats = append(heats, h)
	}
	return heats, rows.Err()
}

// GetHeat returns a single heat
func (r *Repository) GetHeat(ctx context.Context, id int) (*models.Heat, error) {
	h, err := scanHeat(r.db.QueryRowContext(ctx, `SELECT `+heatColumns+` FROM heats WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// CreateHeat inserts a heat with its roster in one transaction. A zero Order
// appends the heat after the category's last heat.
func (r *Repository) CreateHeat(ctx context.Context, heat models.Heat, riderIDs []int) (int64, error) {
	var id int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		order := heat.Order
		if order == 0 {
			if err := tx.QueryRowContext(ctx,
				`SELECT COALESCE(MAX(heat_order), 0) + 1 FROM heats WHERE category_id = ?`, heat.CategoryID).Scan(&order); err != nil {
				return err
			}
		}
		result, err := tx.ExecContext(ctx, `
			INSERT INTO heats (category_id, name, stage, batch, moto, number, final_class, heat_order, status, published)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, heat.CategoryID, heat.Name, string(heat.Ident.Stage), heat.Ident.Batch, heat.Ident.Moto, heat.Ident.Number,
			string(heat.Ident.FinalClass), order, heat.Status.String(), heat.Published)
		if err != nil {
			return err
		}
		if id, err = result.LastInsertId(); err != nil {
			return err
		}
		return insertRoster(ctx, tx, int(id), riderIDs)
	})
	return id, err
}

func insertRoster(ctx context.Context, tx *sql.Tx, heatID int, riderIDs []int) error {
	for _, riderID := range riderIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO heat_riders (heat_id, rider_id) VALUES (?, ?)`, heatID, riderID); err != nil {
			return err
		}
	}
	return nil
}

// AddHeatRiders appends riders to a heat roster, ignoring riders already on it
func (r *Repository) AddHeatRiders(ctx context.Context, heatID int, riderIDs []int) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		return insertRoster(ctx, tx, heatID, riderIDs)
	})
}

// RemoveHeatRiders takes riders off a heat roster together with any results
// they have in it. Remaining gates are cleared so they can be reassigned as a
// contiguous permutation.
func (r *Repository) RemoveHeatRiders(ctx context.Context, heatID int, riderIDs []int) error {
	if len(riderIDs) == 0 {
		return nil
	}
	args := make([]any, 0, len(riderIDs)+1)
	args = append(args, heatID)
	for _, id := range riderIDs {
		args = append(args, id)
	}
	in := placeholders(len(riderIDs))
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM heat_results WHERE heat_id = ? AND rider_id IN (`+in+`)`, args...); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM heat_riders WHERE heat_id = ? AND rider_id IN (`+in+`)`, args...); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE heat_riders SET gate = NULL WHERE heat_id = ?`, heatID)
		return err
	})
}

// ListHeatRoster returns a heat's riders in arrival order with their gates
func (r *Repository) ListHeatRoster(ctx context.Context, heatID int) ([]models.RosterEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT hr.heat_id, hr.rider_id, rd.name, rd.plate, hr.gate
		FROM heat_riders hr
		JOIN riders rd ON rd.id = hr.rider_id
		WHERE hr.heat_id = ?
		ORDER BY hr.id
	`, heatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roster []models.RosterEntry
	for rows.Next() {
		var e models.RosterEntry
		var gate sql.NullInt64
		if err := rows.Scan(&e.HeatID, &e.RiderID, &e.Name, &e.Plate, &gate); err != nil {
			return nil, err
		}
		e.Gate = intPtr(gate)
		roster = append(roster, e)
	}
	return roster, rows.Err()
}

// SetGates writes gate positions for riders of a heat (rider ID -> gate)
func (r *Repository) SetGates(ctx context.Context, heatID int, gates map[int]int) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for riderID, gate := range gates {
			if _, err := tx.ExecContext(ctx,
				`UPDATE heat_riders SET gate = ? WHERE heat_id = ? AND rider_id = ?`, gate, heatID, riderID); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetHeatStatus stores a heat's lifecycle status
func (r *Repository) SetHeatStatus(ctx context.Context, id int, status models.HeatStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE heats SET status = ? WHERE id = ?`, status.String(), id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// SetHeatPublished stores a heat's published flag
func (r *Repository) SetHeatPublished(ctx context.Context, id int, published bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE heats SET published = ? WHERE id = ?`, published, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ==================== Result Methods ====================

// ListHeatResults returns the recorded results of a heat
func (r *Repository) ListHeatResults(ctx context.Context, heatID int) ([]models.HeatResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT heat_id, rider_id, status, finish_order FROM heat_results WHERE heat_id = ? ORDER BY id
	`, heatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.HeatResult
	for rows.Next() {
		var res models.HeatResult
		var status string
		var order sql.NullInt64
		if err := rows.Scan(&res.HeatID, &res.RiderID, &status, &order); err != nil {
			return nil, err
		}
		res.Status = models.ResultStatus(status)
		res.FinishOrder = intPtr(order)
		results = append(results, res)
	}
	return results, rows.Err()
}

// UpsertHeatResults writes results for a heat in one transaction, replacing
// any previous result of the same rider.
func (r *Repository) UpsertHeatResults(ctx context.Context, heatID int, results []models.HeatResult) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, res := range results {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO heat_results (heat_id, rider_id, status, finish_order) VALUES (?, ?, ?, ?)
				ON CONFLICT(heat_id, rider_id) DO UPDATE SET status = excluded.status, finish_order = excluded.finish_order
			`, heatID, res.RiderID, string(res.Status), res.FinishOrder); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreatePenalty records a pending penalty
func (r *Repository) CreatePenalty(ctx context.Context, p models.Penalty) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO penalties (heat_id, rider_id, points, reason, approved) VALUES (?, ?, ?, ?, ?)`,
		p.HeatID, p.RiderID, p.Points, p.Reason, p.Approved)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetPenalty returns a single penalty
func (r *Repository) GetPenalty(ctx context.Context, id int) (*models.Penalty, error) {
	var p models.Penalty
	var reason sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT id, heat_id, rider_id, points, reason, approved FROM penalties WHERE id = ?`, id).
		Scan(&p.ID, &p.HeatID, &p.RiderID, &p.Points, &reason, &p.Approved)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Reason = reason.String
	return &p, nil
}

// ApprovePenalty marks a penalty approved
func (r *Repository) ApprovePenalty(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `UPDATE penalties SET approved = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ListPenalties returns the penalties recorded in a heat
func (r *Repository) ListPenalties(ctx context.Context, heatID int) ([]models.Penalty, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, heat_id, rider_id, points, reason, approved FROM penalties WHERE heat_id = ? ORDER BY id`, heatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var penalties []models.Penalty
	for rows.Next() {
		var p models.Penalty
		var reason sql.NullString
		if err := rows.Scan(&p.ID, &p.HeatID, &p.RiderID, &p.Points, &reason, &p.Approved); err != nil {
			return nil, err
		}
		p.Reason = reason.String
		penalties = append(penalties, p)
	}
	return penalties, rows.Err()
}

// SumApprovedPenalties totals approved penalty points per rider across heats
func (r *Repository) SumApprovedPenalties(ctx context.Context, heatIDs []int) (map[int]int, error) {
	sums := make(map[int]int)
	if len(heatIDs) == 0 {
		return sums, nil
	}
	args := make([]any, len(heatIDs))
	for i, id := range heatIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT rider_id, SUM(points) FROM penalties
		WHERE approved = 1 AND heat_id IN (`+placeholders(len(heatIDs))+`)
		GROUP BY rider_id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var riderID, total int
		if err := rows.Scan(&riderID, &total); err != nil {
			return nil, err
		}
		sums[riderID] = total
	}
	return sums, rows.Err()
}

// ==================== Stage Result Methods ====================

// ListStageResults returns a category's stage results, optionally for one stage
func (r *Repository) ListStageResults(ctx context.Context, categoryID int, stage *models.Stage) ([]models.StageResult, error) {
	query := `SELECT category_id, rider_id, stage, batch, final_class, position, points FROM stage_results WHERE category_id = ?`
	args := []any{categoryID}
	if stage != nil {
		query += ` AND stage = ?`
		args = append(args, string(*stage))
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.StageResult
	for rows.Next() {
		var sr models.StageResult
		var st string
		var batch, position, points sql.NullInt64
		var class sql.NullString
		if err := rows.Scan(&sr.CategoryID, &sr.RiderID, &st, &batch, &class, &position, &points); err != nil {
			return nil, err
		}
		sr.Stage = models.Stage(st)
		sr.Batch = intPtr(batch)
		sr.FinalClass = models.FinalClass(class.String)
		sr.Position = intPtr(position)
		sr.Points = intPtr(points)
		results = append(results, sr)
	}
	return results, rows.Err()
}

func nullClass(c models.FinalClass) sql.NullString {
	return sql.NullString{String: string(c), Valid: c != ""}
}

// ReplaceQualificationResults swaps the qualification-derived rows of riders
// in one transaction. Rows carrying a batch are deleted and reinserted; an
// advancement row is skipped when the rider already has a row for that stage
// written by the elimination pass.
func (r *Repository) ReplaceQualificationResults(ctx context.Context, categoryID int, riderIDs []int, rows []models.StageResult) error {
	if len(riderIDs) == 0 {
		return nil
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		args := []any{categoryID}
		for _, id := range riderIDs {
			args = append(args, id)
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM stage_results
			WHERE category_id = ? AND rider_id IN (`+placeholders(len(riderIDs))+`)
			  AND (stage = 'QUALIFICATION' OR batch IS NOT NULL)
		`, args...); err != nil {
			return err
		}
		for _, sr := range rows {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO stage_results (category_id, rider_id, stage, batch, final_class, position, points)
				SELECT ?, ?, ?, ?, ?, ?, ?
				WHERE NOT EXISTS (
					SELECT 1 FROM stage_results WHERE category_id = ? AND rider_id = ? AND stage = ?
				)
			`, categoryID, sr.RiderID, string(sr.Stage), sr.Batch, nullClass(sr.FinalClass), sr.Position, sr.Points,
				categoryID, sr.RiderID, string(sr.Stage)); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceEliminationResults deletes every quarter-final, semi-final and final
// row of a category and inserts rows in one transaction.
func (r *Repository) ReplaceEliminationResults(ctx context.Context, categoryID int, rows []models.StageResult) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM stage_results
			WHERE category_id = ? AND stage IN ('QUARTER_FINAL', 'SEMI_FINAL', 'FINAL')
		`, categoryID); err != nil {
			return err
		}
		for _, sr := range rows {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO stage_results (category_id, rider_id, stage, batch, final_class, position, points)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, categoryID, sr.RiderID, string(sr.Stage), sr.Batch, nullClass(sr.FinalClass), sr.Position, sr.Points); err != nil {
				return err
			}
		}
		return nil
	})
}

// ==================== Settings Methods ====================

// GetSetting retrieves a setting value
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting updates a setting value
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
