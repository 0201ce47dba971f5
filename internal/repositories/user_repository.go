package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chat-service/internal/apperrors"
	"chat-service/internal/models"
)

const userColumns = "id, first_name, last_name, email, password, profile_image_url"

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SearchByNameOrEmail(ctx context.Context, query string) ([]models.User, error)
	SearchFriends(ctx context.Context, query string, friendIDs []int64) ([]models.User, error)
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts the user and its empty friend record in one transaction so
// a signup can never leave a user without a friends marker.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	err = tx.QueryRowxContext(ctx, `
INSERT INTO users (first_name, last_name, email, password, profile_image_url)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`, user.FirstName, user.LastName, strings.ToLower(user.Email), user.Password, user.ProfileImageURL).Scan(&user.ID)
	if err != nil {
		tx.Rollback()
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return apperrors.Conflict("Email already in use")
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO friend_records (user_id) VALUES ($1)`, user.ID); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email=$1`, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) SearchByNameOrEmail(ctx context.Context, query string) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `
SELECT `+userColumns+`
FROM users
WHERE first_name ILIKE '%' || $1 || '%'
   OR last_name ILIKE '%' || $1 || '%'
   OR email ILIKE '%' || $1 || '%'
ORDER BY id
`, query)
	return users, err
}

// SearchFriends matches the query against name/email OR membership in the
// caller's friend set. The OR composition means results can include
// non-friends; upstream behaves this way and callers rely on it.
func (r *userRepository) SearchFriends(ctx context.Context, query string, friendIDs []int64) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `
SELECT `+userColumns+`
FROM users
WHERE first_name ILIKE '%' || $1 || '%'
   OR last_name ILIKE '%' || $1 || '%'
   OR email ILIKE '%' || $1 || '%'
   OR id = ANY($2)
ORDER BY id
`, query, pq.Array(friendIDs))
	return users, err
}
