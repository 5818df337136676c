package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/qcom/authapi/internal/models"
	"github.com/sirupsen/logrus"
)

const mysqlDuplicateEntry = 1062

// MySQLUserRepository stores users in the `users` table. Email uniqueness is
// enforced by the table's unique index.
type MySQLUserRepository struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewMySQLUserRepository(db *sql.DB, logger *logrus.Logger) *MySQLUserRepository {
	return &MySQLUserRepository{db: db, logger: logger}
}

// OpenMySQL opens a connection pool for dsn and checks that it is reachable.
// UPDATEs report matched rows rather than changed rows.
func OpenMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mysql dsn: %w", err)
	}
	cfg.ClientFoundRows = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	return db, nil
}

const userColumns = `id, name, email, password_hash, otp, otp_expires_at, created_at, updated_at`

func (r *MySQLUserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.OTP, user.OTPExpiresAt, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateEmail
		}
		r.logger.WithError(err).Error("Failed to create user in MySQL")
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *MySQLUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *MySQLUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *MySQLUserRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var (
		user      models.User
		otp       sql.NullString
		otpExpiry sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &otp, &otpExpiry, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		r.logger.WithError(err).Error("Failed to get user from MySQL")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if otp.Valid {
		user.OTP = &otp.String
	}
	if otpExpiry.Valid {
		user.OTPExpiresAt = &otpExpiry.Time
	}

	return &user, nil
}

func (r *MySQLUserRepository) UpdateProfile(ctx context.Context, user *models.User, _ string) error {
	user.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?`,
		user.Name, user.Email, user.UpdatedAt, user.ID,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateEmail
		}
		r.logger.WithError(err).Error("Failed to update user in MySQL")
		return fmt.Errorf("failed to update user: %w", err)
	}

	return r.expectRow(ctx, res, user.ID)
}

func (r *MySQLUserRepository) SetOTP(ctx context.Context, userID, code string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET otp = ?, otp_expires_at = ?, updated_at = ? WHERE id = ?`,
		code, expiresAt.UTC(), time.Now().UTC(), userID,
	)
	if err != nil {
		r.logger.WithError(err).Error("Failed to store OTP in MySQL")
		return fmt.Errorf("failed to store OTP: %w", err)
	}

	return r.expectRow(ctx, res, userID)
}

func (r *MySQLUserRepository) ClearOTP(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET otp = NULL, otp_expires_at = NULL WHERE id = ?`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear OTP: %w", err)
	}

	return r.expectRow(ctx, res, userID)
}

// expectRow maps an UPDATE that touched no row to ErrUserNotFound. A
// connection without clientFoundRows reports unchanged rows as 0, so the
// user's existence is checked before giving up.
func (r *MySQLUserRepository) expectRow(ctx context.Context, res sql.Result, userID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	return nil
}

func isDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
