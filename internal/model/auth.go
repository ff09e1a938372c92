package model

import (
	"errors"
	"time"
)

type Role string

const (
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
)

const (
	AuthorityMember = "ROLE_MEMBER"
	AuthorityAdmin  = "ROLE_ADMIN"
)

var ErrUnknownRole = errors.New("unknown role")

func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleMember:
		return RoleMember, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", ErrUnknownRole
	}
}

// Authorities - ADMIN 은 MEMBER 권한을 포함
func (r Role) Authorities() []string {
	switch r {
	case RoleAdmin:
		return []string{AuthorityAdmin, AuthorityMember}
	case RoleMember:
		return []string{AuthorityMember}
	default:
		return nil
	}
}

type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type JoinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
}

type LeaveRequest struct {
	Password string `json:"password"`
}

type MemberLoginInfo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
}

// Member - members 테이블 레코드. 소셜 로그인 회원은 PasswordHash 가 비어 있음
type Member struct {
	ID           int64
	Email        string
	Name         string
	Nickname     string
	PasswordHash string
	Role         Role
	OAuth2Login  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
