package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	_ "github.com/lib/pq"

	"github.com/julianstephens/habitual/internal/models"
)

// Postgres cannot put a nullable column in a primary key, so the habits
// table trades the composite PK for a pair of unique indexes: one over
// (user_id, habit_name) for owned habits and a partial one over
// habit_name for the ownerless templates. "interval" is reserved in
// Postgres and stays quoted.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	user_id         TEXT PRIMARY KEY,
	user_name       TEXT UNIQUE NOT NULL,
	password_secret TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS habits (
	user_id      TEXT REFERENCES users (user_id) ON DELETE CASCADE,
	habit_name   TEXT NOT NULL,
	description  TEXT,
	category     TEXT,
	created_date TEXT,
	"interval"   TEXT NOT NULL CHECK ("interval" IN ('Daily', 'Weekly')),
	is_custom    BOOLEAN NOT NULL DEFAULT TRUE,
	max_streak   INTEGER NOT NULL DEFAULT 0,
	UNIQUE (user_id, habit_name)
);

CREATE UNIQUE INDEX IF NOT EXISTS habits_template_name ON habits (habit_name) WHERE user_id IS NULL;

CREATE TABLE IF NOT EXISTS checkins (
	user_id    TEXT NOT NULL REFERENCES users (user_id) ON DELETE CASCADE,
	habit_name TEXT NOT NULL,
	check_date TEXT NOT NULL,
	check_time TEXT NOT NULL,
	repetition INTEGER NOT NULL DEFAULT 0,
	streak     INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, habit_name, check_date, check_time),
	UNIQUE (user_id, habit_name, check_date),
	FOREIGN KEY (user_id, habit_name) REFERENCES habits (user_id, habit_name) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_checkins_latest ON checkins (user_id, habit_name, check_date DESC, check_time DESC);
`

const pgHabitColumns = `user_id, habit_name, description, category, created_date, "interval", is_custom, max_streak`

// PostgresStore is the alternate Provider, selected when the config
// value is a postgres:// connection string.
type PostgresStore struct {
	connStr string
	db      *sql.DB
}

func NewPostgresStore(connStr string) *PostgresStore {
	return &PostgresStore{connStr: connStr}
}

// HasEmbeddedCredentials reports whether a connection string carries a
// password inline. Those are rejected at startup; credentials belong in
// the environment, .pgpass, or the OS keyring.
func HasEmbeddedCredentials(connStr string) bool {
	u, err := url.Parse(connStr)
	if err != nil || u.User == nil {
		return false
	}
	_, hasPassword := u.User.Password()
	return hasPassword
}

func (s *PostgresStore) Init() error {
	if err := s.open(); err != nil {
		return err
	}

	if _, err := s.db.Exec(postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return s.seedTemplates()
}

func (s *PostgresStore) Load() error {
	if s.db != nil {
		return nil
	}
	return s.open()
}

func (s *PostgresStore) open() error {
	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}
	s.db = db
	return nil
}

func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *PostgresStore) GetConfigPath() string {
	return s.connStr
}

func (s *PostgresStore) seedTemplates() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO habits (user_id, habit_name, description, category, created_date, "interval", is_custom, max_streak)
		VALUES (NULL, $1, $2, $3, $4, $5, FALSE, 0)
		ON CONFLICT DO NOTHING`)
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

func (s *PostgresStore) AddUser(u models.User) error {
	_, err := s.db.Exec(
		"INSERT INTO users (user_id, user_name, password_secret) VALUES ($1, $2, $3)",
		u.ID, u.Name, u.PasswordSecret)
	if err != nil {
		return fmt.Errorf("failed to add user %q: %w", u.Name, err)
	}
	return nil
}

func (s *PostgresStore) GetUser(id string) (models.User, error) {
	return s.scanUser(s.db.QueryRow(
		"SELECT user_id, user_name, password_secret FROM users WHERE user_id = $1", id))
}

func (s *PostgresStore) GetUserByName(name string) (models.User, error) {
	return s.scanUser(s.db.QueryRow(
		"SELECT user_id, user_name, password_secret FROM users WHERE user_name = $1", name))
}

func (s *PostgresStore) scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.PasswordSecret); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user: %w", ErrNotFound)
		}
		return models.User{}, err
	}
	return u, nil
}

func (s *PostgresStore) UpdateUser(u models.User) error {
	res, err := s.db.Exec(
		"UPDATE users SET user_name = $1, password_secret = $2 WHERE user_id = $3",
		u.Name, u.PasswordSecret, u.ID)
	if err != nil {
		return err
	}
	return requireRows(res, "user")
}

func (s *PostgresStore) DeleteUser(id string) error {
	res, err := s.db.Exec("DELETE FROM users WHERE user_id = $1", id)
	if err != nil {
		return err
	}
	return requireRows(res, "user")
}

// Habits

func (s *PostgresStore) AddHabit(h models.Habit) error {
	_, err := s.db.Exec(fmt.Sprintf(`
		INSERT INTO habits (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, pgHabitColumns),
		ownerValue(h.UserID), h.Name, h.Description, h.Category, h.CreatedDate,
		string(h.Interval), h.IsCustom, h.MaxStreak)
	if err != nil {
		return fmt.Errorf("failed to add habit %q: %w", h.Name, err)
	}
	return nil
}

func (s *PostgresStore) GetHabit(userID, name string) (models.Habit, error) {
	row := s.db.QueryRow(fmt.Sprintf(`
		SELECT %s FROM habits
		WHERE LOWER(habit_name) = LOWER($1) AND (user_id = $2 OR user_id IS NULL)
		ORDER BY user_id IS NULL
		LIMIT 1`, pgHabitColumns), name, userID)
	return scanHabit(row)
}

func (s *PostgresStore) GetOwnedHabit(userID, name string) (models.Habit, error) {
	row := s.db.QueryRow(fmt.Sprintf(`
		SELECT %s FROM habits
		WHERE user_id = $1 AND LOWER(habit_name) = LOWER($2)`, pgHabitColumns), userID, name)
	return scanHabit(row)
}

func (s *PostgresStore) GetHabits(filter HabitFilter) ([]models.Habit, error) {
	query := fmt.Sprintf("SELECT %s FROM habits WHERE ", pgHabitColumns)
	var args []any

	switch filter.Scope {
	case ScopePredefined:
		query += "user_id IS NULL AND is_custom = FALSE"
	case ScopeCustom:
		query += "user_id = $1 AND is_custom = TRUE"
		args = append(args, filter.UserID)
	default:
		query += "(user_id = $1 OR user_id IS NULL)"
		args = append(args, filter.UserID)
	}

	if filter.Interval != "" {
		query += fmt.Sprintf(` AND "interval" = $%d`, len(args)+1)
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

func (s *PostgresStore) SetHabitInterval(userID, name string, interval models.Interval) error {
	res, err := s.db.Exec(`
		UPDATE habits SET "interval" = $1
		WHERE user_id = $2 AND LOWER(habit_name) = LOWER($3)`,
		string(interval), userID, name)
	if err != nil {
		return err
	}
	return requireRows(res, "habit")
}

func (s *PostgresStore) DeleteHabit(userID, name string) error {
	res, err := s.db.Exec(
		"DELETE FROM habits WHERE user_id = $1 AND LOWER(habit_name) = LOWER($2)",
		userID, name)
	if err != nil {
		return err
	}
	return requireRows(res, "habit")
}

func (s *PostgresStore) AdoptTemplate(userID, name string) error {
	res, err := s.db.Exec(`
		INSERT INTO habits (user_id, habit_name, description, category, created_date, "interval", is_custom, max_streak)
		SELECT $1, habit_name, description, category, created_date, "interval", FALSE, 0
		FROM habits
		WHERE user_id IS NULL AND is_custom = FALSE AND LOWER(habit_name) = LOWER($2)`,
		userID, name)
	if err != nil {
		return fmt.Errorf("failed to adopt template %q: %w", name, err)
	}
	return requireRows(res, "template")
}

// Check-in writes

func (s *PostgresStore) ApplyCheckIn(ev models.CheckIn, zeroPriorDate string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if zeroPriorDate != "" {
		_, err := tx.Exec(`
			UPDATE checkins SET streak = 0
			WHERE user_id = $1 AND habit_name = $2 AND check_date = $3`,
			ev.UserID, ev.HabitName, zeroPriorDate)
		if err != nil {
			return fmt.Errorf("failed to rewrite broken streak: %w", err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO checkins (user_id, habit_name, check_date, check_time, repetition, streak)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, habit_name, check_date) DO UPDATE SET
			repetition = checkins.repetition + EXCLUDED.repetition,
			streak = EXCLUDED.streak`,
		ev.UserID, ev.HabitName, ev.Date, ev.Time, ev.Repetition, ev.Streak)
	if err != nil {
		return fmt.Errorf("failed to record check-in: %w", err)
	}

	if err := pgBumpMaxStreak(tx, ev.UserID, ev.HabitName, ev.Streak); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *PostgresStore) ReplaceStreak(ev models.CheckIn) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO checkins (user_id, habit_name, check_date, check_time, repetition, streak)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, habit_name, check_date) DO UPDATE SET
			streak = EXCLUDED.streak`,
		ev.UserID, ev.HabitName, ev.Date, ev.Time, ev.Repetition, ev.Streak)
	if err != nil {
		return fmt.Errorf("failed to replace streak: %w", err)
	}

	if err := pgBumpMaxStreak(tx, ev.UserID, ev.HabitName, ev.Streak); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *PostgresStore) ReplaceRepetition(ev models.CheckIn) error {
	_, err := s.db.Exec(`
		INSERT INTO checkins (user_id, habit_name, check_date, check_time, repetition, streak)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, habit_name, check_date) DO UPDATE SET
			repetition = EXCLUDED.repetition`,
		ev.UserID, ev.HabitName, ev.Date, ev.Time, ev.Repetition, ev.Streak)
	if err != nil {
		return fmt.Errorf("failed to replace repetition: %w", err)
	}
	return nil
}

func (s *PostgresStore) ZeroLatestStreak(userID, habitName string) error {
	res, err := s.db.Exec(`
		UPDATE checkins SET streak = 0
		WHERE ctid = (
			SELECT ctid FROM checkins
			WHERE user_id = $1 AND habit_name = $2
			ORDER BY check_date DESC, check_time DESC
			LIMIT 1
		)`, userID, habitName)
	if err != nil {
		return err
	}
	return requireRows(res, "check-in")
}

func (s *PostgresStore) ZeroAllRepetitions(userID, habitName string) error {
	_, err := s.db.Exec(
		"UPDATE checkins SET repetition = 0 WHERE user_id = $1 AND habit_name = $2",
		userID, habitName)
	return err
}

func pgBumpMaxStreak(tx *sql.Tx, userID, habitName string, streak int) error {
	_, err := tx.Exec(`
		UPDATE habits
		SET max_streak = GREATEST(max_streak, $1)
		WHERE user_id = $2 AND habit_name = $3`,
		streak, userID, habitName)
	if err != nil {
		return fmt.Errorf("failed to update max streak: %w", err)
	}
	return nil
}

// Check-in reads

func (s *PostgresStore) LatestCheckIn(userID, habitName string) (models.CheckIn, error) {
	row := s.db.QueryRow(fmt.Sprintf(`
		SELECT %s FROM checkins
		WHERE user_id = $1 AND habit_name = $2
		ORDER BY check_date DESC, check_time DESC
		LIMIT 1`, checkinColumns), userID, habitName)
	return scanCheckIn(row)
}

func (s *PostgresStore) LatestCheckInBefore(userID, habitName, date string) (models.CheckIn, error) {
	row := s.db.QueryRow(fmt.Sprintf(`
		SELECT %s FROM checkins
		WHERE user_id = $1 AND habit_name = $2 AND check_date < $3
		ORDER BY check_date DESC, check_time DESC
		LIMIT 1`, checkinColumns), userID, habitName, date)
	return scanCheckIn(row)
}

func (s *PostgresStore) LatestCheckInThrough(userID, habitName, date string) (models.CheckIn, error) {
	row := s.db.QueryRow(fmt.Sprintf(`
		SELECT %s FROM checkins
		WHERE user_id = $1 AND habit_name = $2 AND check_date <= $3
		ORDER BY check_date DESC, check_time DESC
		LIMIT 1`, checkinColumns), userID, habitName, date)
	return scanCheckIn(row)
}

func (s *PostgresStore) CheckIns(userID, habitName string) ([]models.CheckIn, error) {
	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT %s FROM checkins
		WHERE user_id = $1 AND habit_name = $2
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

func (s *PostgresStore) LongestStreaks(userID, throughDate string) ([]models.HabitStreak, error) {
	rows, err := s.db.Query(`
		SELECT habit_name, MAX(streak) AS streak
		FROM checkins
		WHERE user_id = $1 AND streak > 0 AND check_date <= $2
		GROUP BY habit_name
		ORDER BY streak DESC`, userID, throughDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStreaks(rows)
}

func (s *PostgresStore) BrokenStreaks(userID, throughDate string) ([]models.HabitStreak, error) {
	rows, err := s.db.Query(`
		SELECT c.habit_name, c.streak
		FROM checkins AS c
		JOIN (
			SELECT habit_name, MAX(check_date) AS last_date
			FROM checkins
			WHERE user_id = $1 AND check_date <= $2
			GROUP BY habit_name
		) AS ld ON c.habit_name = ld.habit_name AND c.check_date = ld.last_date
		WHERE c.user_id = $1 AND c.streak = 0
		ORDER BY c.habit_name`, userID, throughDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStreaks(rows)
}

func (s *PostgresStore) TotalRepetitions(userID string) ([]models.HabitRepetitions, error) {
	rows, err := s.db.Query(`
		SELECT habit_name, SUM(repetition) AS repetitions
		FROM checkins
		WHERE user_id = $1
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
