package db

import (
	"context"
	"database/sql"

	"github.com/dailog/backend/internal/model"
)

const memberColumns = `id, email, name, nickname, password_hash, role, oauth2_login, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*model.Member, error) {
	var (
		m    model.Member
		hash sql.NullString
		role string
	)
	err := row.Scan(
		&m.ID,
		&m.Email,
		&m.Name,
		&m.Nickname,
		&hash,
		&role,
		&m.OAuth2Login,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, model.ErrMemberNotFound
		}
		return nil, err
	}
	m.PasswordHash = hash.String
	m.Role = model.Role(role)
	return &m, nil
}

// CreateMember - 소셜 로그인 회원은 password_hash 를 NULL 로 저장
func (db *Postgres) CreateMember(ctx context.Context, m *model.Member) (*model.Member, error) {
	query := `
		INSERT INTO members (email, name, nickname, password_hash, role, oauth2_login, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING ` + memberColumns

	hash := sql.NullString{String: m.PasswordHash, Valid: m.PasswordHash != ""}
	return scanMember(db.Pool.QueryRow(ctx, query,
		m.Email,
		m.Name,
		m.Nickname,
		hash,
		string(m.Role),
		m.OAuth2Login,
	))
}

func (db *Postgres) GetMemberByEmail(ctx context.Context, email string) (*model.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE email = $1`
	return scanMember(db.Pool.QueryRow(ctx, query, email))
}

func (db *Postgres) GetMemberByID(ctx context.Context, id int64) (*model.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`
	return scanMember(db.Pool.QueryRow(ctx, query, id))
}

func (db *Postgres) ExistsByNickname(ctx context.Context, nickname string) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM members WHERE nickname = $1)`, nickname).Scan(&exists)
	return exists, err
}

func (db *Postgres) DeleteMember(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrMemberNotFound
	}
	return nil
}
