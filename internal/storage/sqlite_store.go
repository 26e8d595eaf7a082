package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/habitual/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	user_id         TEXT PRIMARY KEY,
	user_name       TEXT UNIQUE NOT NULL,
	password_secret TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS habits (
	user_id      TEXT,
	habit_name   TEXT NOT NULL,
	description  TEXT,
	category     TEXT,
	created_date TEXT,
	interval     TEXT NOT NULL CHECK (interval IN ('Daily', 'Weekly')),
	is_custom    INTEGER NOT NULL DEFAULT 1,
	max_streak   INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, habit_name),
	FOREIGN KEY (user_id) REFERENCES users (user_id) ON DELETE CASCADE
);

CREATE UNIQUE INDEX IF NOT EXISTS habits_template_name ON habits (habit_name) WHERE user_id IS NULL;

CREATE TABLE IF NOT EXISTS checkins (
	user_id    TEXT NOT NULL,
	habit_name TEXT NOT NULL,
	check_date TEXT NOT NULL,
	check_time TEXT NOT NULL,
	repetition INTEGER NOT NULL DEFAULT 0,
	streak     INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, habit_name, check_date, check_time),
	UNIQUE (user_id, habit_name, check_date),
	FOREIGN KEY (user_id) REFERENCES users (user_id) ON DELETE CASCADE,
	FOREIGN KEY (user_id, habit_name) REFERENCES habits (user_id, habit_name) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_checkins_latest ON checkins (user_id, habit_name, check_date DESC, check_time DESC);
`

// SQLiteStore is the default embedded Provider. Predefined habit
// templates live in the habits table with a NULL owner; SQLite permits
// NULL in a composite primary key but treats each NULL as distinct, so
// a partial unique index on habit_name keeps the templates unique and
// lets re-running init stay idempotent.
type SQLiteStore struct {
	path string
	db   *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if s.db == nil {
		if err := s.open(); err != nil {
			return err
		}
	}

	if _, err := s.db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return s.seedTemplates()
}

func (s *SQLiteStore) Load() error {
	if s.db != nil {
		return nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return fmt.Errorf("storage not initialized, run 'habitual init' first")
	}

	return s.open()
}

func (s *SQLiteStore) open() error {
	// Foreign keys are off by default in SQLite; the cascade deletes
	// depend on them, so enable the pragma on every pooled connection.
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", s.path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) GetConfigPath() string {
	return s.path
}

// GetDB exposes the handle for test access.
func (s *SQLiteStore) GetDB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) seedTemplates() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO habits (user_id, habit_name, description, category, created_date, interval, is_custom, max_streak)
		VALUES (NULL, ?, ?, ?, ?, ?, 0, 0)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, h := range PredefinedHabits() {
		if _, err := stmt.Exec(h.Name, h.Description, h.Category, h.CreatedDate, string(h.Interval)); err != nil {
			return fmt.Errorf("failed to seed habit %q: %w", h.Name, err)
		}
	}

	return tx.Commit()
}

// Users

func (s *SQLiteStore) AddUser(u models.User) error {
	_, err := s.db.Exec(
		"INSERT INTO users (user_id, user_name, password_secret) VALUES (?, ?, ?)",
		u.ID, u.Name, u.PasswordSecret)
	if err != nil {
		return fmt.Errorf("failed to add user %q: %w", u.Name, err)
	}
	return nil
}

func (s *SQLiteStore) GetUser(id string) (models.User, error) {
	return s.scanUser(s.db.QueryRow(
		"SELECT user_id, user_name, password_secret FROM users WHERE user_id = ?", id))
}

func (s *SQLiteStore) GetUserByName(name string) (models.User, error) {
	return s.scanUser(s.db.QueryRow(
		"SELECT user_id, user_name, password_secret FROM users WHERE user_name = ?", name))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.PasswordSecret); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user: %w", ErrNotFound)
		}
		return models.User{}, err
	}
	return u, nil
}

func (s *SQLiteStore) UpdateUser(u models.User) error {
	res, err := s.db.Exec(
		"UPDATE users SET user_name = ?, password_secret = ? WHERE user_id = ?",
		u.Name, u.PasswordSecret, u.ID)
	if err != nil {
		return err
	}
	return requireRows(res, "user")
}

func (s *SQLiteStore) DeleteUser(id string) error {
	// Habits and check-ins go with the user via ON DELETE CASCADE;
	// predefined templates have a NULL owner and survive.
	res, err := s.db.Exec("DELETE FROM users WHERE user_id = ?", id)
	if err != nil {
		return err
	}
	return requireRows(res, "user")
}

// Habits

const habitColumns = "user_id, habit_name, description, category, created_date, interval, is_custom, max_streak"

func (s *SQLiteStore) AddHabit(h models.Habit) error {
	_, err := s.db.Exec(fmt.Sprintf(`
		INSERT INTO habits (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, habitColumns),
		ownerValue(h.UserID), h.Name, h.Description, h.Category, h.CreatedDate,
		string(h.Interval), h.IsCustom, h.MaxStreak)
	if err != nil {
		return fmt.Errorf("failed to add habit %q: %w", h.Name, err)
	}
	return nil
}

func (s *SQLiteStore) GetHabit(userID, name string) (models.Habit, error) {
	// The user's own habit shadows a template with the same name.
	row := s.db.QueryRow(fmt.Sprintf(`
		SELECT %s FROM habits
		WHERE LOWER(habit_name) = LOWER(?) AND (user_id = ? OR user_id IS NULL)
		ORDER BY user_id IS NULL
		LIMIT 1`, habitColumns), name, userID)
	return scanHabit(row)
}

func (s *SQLiteStore) GetOwnedHabit(userID, name string) (models.Habit, error) {
	row := s.db.QueryRow(fmt.Sprintf(`
		SELECT %s FROM habits
		WHERE user_id = ? AND LOWER(habit_name) = LOWER(?)`, habitColumns), userID, name)
	return scanHabit(row)
}

func (s *SQLiteStore) GetHabits(filter HabitFilter) ([]models.Habit, error) {
	query := fmt.Sprintf("SELECT %s FROM habits WHERE ", habitColumns)
	var args []any

	switch filter.Scope {
	case ScopePredefined:
		query += "user_id IS NULL AND is_custom = 0"
	case ScopeCustom:
		query += "user_id = ? AND is_custom = 1"
		args = append(args, filter.UserID)
	default:
		query += "(user_id = ? OR user_id IS NULL)"
		args = append(args, filter.UserID)
	}

	if filter.Interval != "" {
		query += " AND interval = ?"
		args = append(args, string(filter.Interval))
	}
	query += " ORDER BY habit_name"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var habits []models.Habit
	for rows.Next() {
		h, err := scanHabitRow(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func (s *SQLiteStore) SetHabitInterval(userID, name string, interval models.Interval) error {
	res, err := s.db.Exec(`
		UPDATE habits SET interval = ?
		WHERE user_id = ? AND LOWER(habit_name) = LOWER(?)`,
		string(interval), userID, name)
	if err != nil {
		return err
	}
	return requireRows(res, "habit")
}

func (s *SQLiteStore) DeleteHabit(userID, name string) error {
	// Check-in history goes with the habit via ON DELETE CASCADE.
	res, err := s.db.Exec(
		"DELETE FROM habits WHERE user_id = ? AND LOWER(habit_name) = LOWER(?)",
		userID, name)
	if err != nil {
		return err
	}
	return requireRows(res, "habit")
}

func (s *SQLiteStore) AdoptTemplate(userID, name string) error {
	res, err := s.db.Exec(`
		INSERT INTO habits (user_id, habit_name, description, category, created_date, interval, is_custom, max_streak)
		SELECT ?, habit_name, description, category, created_date, interval, 0, 0
		FROM habits
		WHERE user_id IS NULL AND is_custom = 0 AND LOWER(habit_name) = LOWER(?)`,
		userID, name)
	if err != nil {
		return fmt.Errorf("failed to adopt template %q: %w", name, err)
	}
	return requireRows(res, "template")
}

// Check-in writes

func (s *SQLiteStore) ApplyCheckIn(ev models.CheckIn, zeroPriorDate string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if zeroPriorDate != "" {
		_, err := tx.Exec(`
			UPDATE checkins SET streak = 0
			WHERE user_id = ? AND habit_name = ? AND check_date = ?`,
			ev.UserID, ev.HabitName, zeroPriorDate)
		if err != nil {
			return fmt.Errorf("failed to rewrite broken streak: %w", err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO checkins (user_id, habit_name, check_date, check_time, repetition, streak)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, habit_name, check_date) DO UPDATE SET
			repetition = repetition + excluded.repetition,
			streak = excluded.streak`,
		ev.UserID, ev.HabitName, ev.Date, ev.Time, ev.Repetition, ev.Streak)
	if err != nil {
		return fmt.Errorf("failed to record check-in: %w", err)
	}

	if err := bumpMaxStreak(tx, ev.UserID, ev.HabitName, ev.Streak); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) ReplaceStreak(ev models.CheckIn) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO checkins (user_id, habit_name, check_date, check_time, repetition, streak)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, habit_name, check_date) DO UPDATE SET
			streak = excluded.streak`,
		ev.UserID, ev.HabitName, ev.Date, ev.Time, ev.Repetition, ev.Streak)
	if err != nil {
		return fmt.Errorf("failed to replace streak: %w", err)
	}

	if err := bumpMaxStreak(tx, ev.UserID, ev.HabitName, ev.Streak); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) ReplaceRepetition(ev models.CheckIn) error {
	_, err := s.db.Exec(`
		INSERT INTO checkins (user_id, habit_name, check_date, check_time, repetition, streak)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, habit_name, check_date) DO UPDATE SET
			repetition = excluded.repetition`,
		ev.UserID, ev.HabitName, ev.Date, ev.Time, ev.Repetition, ev.Streak)
	if err != nil {
		return fmt.Errorf("failed to replace repetition: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ZeroLatestStreak(userID, habitName string) error {
	res, err := s.db.Exec(`
		UPDATE checkins SET streak = 0
		WHERE rowid = (
			SELECT rowid FROM checkins
			WHERE user_id = ? AND habit_name = ?
			ORDER BY check_date DESC, check_time DESC
			LIMIT 1
		)`, userID, habitName)
	if err != nil {
		return err
	}
	return requireRows(res, "check-in")
}

func (s *SQLiteStore) ZeroAllRepetitions(userID, habitName string) error {
	_, err := s.db.Exec(
		"UPDATE checkins SET repetition = 0 WHERE user_id = ? AND habit_name = ?",
		userID, habitName)
	return err
}

func bumpMaxStreak(tx *sql.Tx, userID, habitName string, streak int) error {
	_, err := tx.Exec(`
		UPDATE habits
		SET max_streak = CASE WHEN max_streak < ? THEN ? ELSE max_streak END
		WHERE user_id = ? AND habit_name = ?`,
		streak, streak, userID, habitName)
	if err != nil {
		return fmt.Errorf("failed to update max streak: %w", err)
	}
	return nil
}

// Check-in reads

const checkinColumns = "user_id, habit_name, check_date, check_time, repetition, streak"

func (s *SQLiteStore) LatestCheckIn(userID, habitName string) (models.CheckIn, error) {
	row := s.db.QueryRow(fmt.Sprintf(`
		SELECT %s FROM checkins
		WHERE user_id = ? AND habit_name = ?
		ORDER BY check_date DESC, check_time DESC
		LIMIT 1`, checkinColumns), userID, habitName)
	return scanCheckIn(row)
}

func (s *SQLiteStore) LatestCheckInBefore(userID, habitName, date string) (models.CheckIn, error) {
	row := s.db.QueryRow(fmt.Sprintf(`
		SELECT %s FROM checkins
		WHERE user_id = ? AND habit_name = ? AND check_date < ?
		ORDER BY check_date DESC, check_time DESC
		LIMIT 1`, checkinColumns), userID, habitName, date)
	return scanCheckIn(row)
}

func (s *SQLiteStore) LatestCheckInThrough(userID, habitName, date string) (models.CheckIn, error) {
	row := s.db.QueryRow(fmt.Sprintf(`
		SELECT %s FROM checkins
		WHERE user_id = ? AND habit_name = ? AND check_date <= ?
		ORDER BY check_date DESC, check_time DESC
		LIMIT 1`, checkinColumns), userID, habitName, date)
	return scanCheckIn(row)
}

func (s *SQLiteStore) CheckIns(userID, habitName string) ([]models.CheckIn, error) {
	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT %s FROM checkins
		WHERE user_id = ? AND habit_name = ?
		ORDER BY check_date, check_time`, checkinColumns), userID, habitName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.CheckIn
	for rows.Next() {
		var ev models.CheckIn
		if err := rows.Scan(&ev.UserID, &ev.HabitName, &ev.Date, &ev.Time, &ev.Repetition, &ev.Streak); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Analytics aggregates

func (s *SQLiteStore) LongestStreaks(userID, throughDate string) ([]models.HabitStreak, error) {
	rows, err := s.db.Query(`
		SELECT habit_name, MAX(streak) AS streak
		FROM checkins
		WHERE user_id = ? AND streak > 0 AND check_date <= ?
		GROUP BY habit_name
		ORDER BY streak DESC`, userID, throughDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStreaks(rows)
}

func (s *SQLiteStore) BrokenStreaks(userID, throughDate string) ([]models.HabitStreak, error) {
	// A habit counts as broken when its most recent row carries streak 0
	// (either never built up or retroactively zeroed by break detection).
	rows, err := s.db.Query(`
		SELECT c.habit_name, c.streak
		FROM checkins AS c
		JOIN (
			SELECT habit_name, MAX(check_date) AS last_date
			FROM checkins
			WHERE user_id = ? AND check_date <= ?
			GROUP BY habit_name
		) AS ld ON c.habit_name = ld.habit_name AND c.check_date = ld.last_date
		WHERE c.user_id = ? AND c.streak = 0
		ORDER BY c.habit_name`, userID, throughDate, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStreaks(rows)
}

func (s *SQLiteStore) TotalRepetitions(userID string) ([]models.HabitRepetitions, error) {
	rows, err := s.db.Query(`
		SELECT habit_name, SUM(repetition) AS repetitions
		FROM checkins
		WHERE user_id = ?
		GROUP BY habit_name
		ORDER BY repetitions DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []models.HabitRepetitions
	for rows.Next() {
		var r models.HabitRepetitions
		if err := rows.Scan(&r.HabitName, &r.Repetitions); err != nil {
			return nil, err
		}
		totals = append(totals, r)
	}
	return totals, rows.Err()
}

// Scan helpers shared with the Postgres store.

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHabit(row *sql.Row) (models.Habit, error) {
	h, err := scanHabitRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Habit{}, fmt.Errorf("habit: %w", ErrNotFound)
		}
		return models.Habit{}, err
	}
	return h, nil
}

func scanHabitRow(row rowScanner) (models.Habit, error) {
	var h models.Habit
	var owner sql.NullString
	var interval string
	if err := row.Scan(&owner, &h.Name, &h.Description, &h.Category, &h.CreatedDate, &interval, &h.IsCustom, &h.MaxStreak); err != nil {
		return models.Habit{}, err
	}
	if owner.Valid {
		h.UserID = owner.String
	}
	h.Interval = models.Interval(interval)
	return h, nil
}

func scanCheckIn(row *sql.Row) (models.CheckIn, error) {
	var ev models.CheckIn
	if err := row.Scan(&ev.UserID, &ev.HabitName, &ev.Date, &ev.Time, &ev.Repetition, &ev.Streak); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CheckIn{}, fmt.Errorf("check-in: %w", ErrNotFound)
		}
		return models.CheckIn{}, err
	}
	return ev, nil
}

func collectStreaks(rows *sql.Rows) ([]models.HabitStreak, error) {
	var streaks []models.HabitStreak
	for rows.Next() {
		var st models.HabitStreak
		if err := rows.Scan(&st.HabitName, &st.Streak); err != nil {
			return nil, err
		}
		streaks = append(streaks, st)
	}
	return streaks, rows.Err()
}

func requireRows(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func ownerValue(userID string) sql.NullString {
	if userID == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: userID, Valid: true}
}
