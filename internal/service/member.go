package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dailog/backend/internal/model"
)

var (
	ErrEmailAlreadyExists = errors.New("이미 가입된 이메일입니다.")
	ErrNicknameTaken      = errors.New("이미 존재하는 별명입니다.")
	ErrMemberPassword     = errors.New("현재 비밀번호가 올바르지 않습니다.")
	ErrNotMemberOwner     = errors.New("접근 권한이 없습니다.")
)

// ValidationError carries field-level messages for a rejected request body.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "잘못된 요청입니다."
}

type MemberService struct {
	members MemberRepository
	refresh RefreshStore
	logger  *zap.Logger
}

func NewMemberService(members MemberRepository, refresh RefreshStore, logger *zap.Logger) *MemberService {
	return &MemberService{members: members, refresh: refresh, logger: logger}
}

func (s *MemberService) Join(ctx context.Context, req model.JoinRequest) error {
	if err := validateJoin(req); err != nil {
		return err
	}

	if _, err := s.members.GetMemberByEmail(ctx, req.Email); err == nil {
		return ErrEmailAlreadyExists
	} else if !errors.Is(err, model.ErrMemberNotFound) {
		return err
	}

	taken, err := s.members.ExistsByNickname(ctx, req.Nickname)
	if err != nil {
		return err
	}
	if taken {
		return ErrNicknameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	created, err := s.members.CreateMember(ctx, &model.Member{
		Email:        req.Email,
		Name:         req.Name,
		Nickname:     req.Nickname,
		PasswordHash: string(hash),
		Role:         model.RoleMember,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailAlreadyExists
		}
		return err
	}

	s.logger.Info("member joined", zap.Int64("member_id", created.ID))
	return nil
}

func (s *MemberService) LoginInfo(ctx context.Context, email string) (*model.MemberLoginInfo, error) {
	member, err := s.members.GetMemberByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return &model.MemberLoginInfo{
		ID:       member.ID,
		Name:     member.Name,
		Nickname: member.Nickname,
		Role:     string(member.Role),
	}, nil
}

// Leave deletes the caller's own password account after re-checking the password.
func (s *MemberService) Leave(ctx context.Context, memberID int64, email, password string) error {
	member, err := s.owned(ctx, memberID, email)
	if err != nil {
		return err
	}

	if member.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)) != nil {
		return ErrMemberPassword
	}

	return s.remove(ctx, member)
}

func (s *MemberService) LeaveOAuth2(ctx context.Context, memberID int64, email string) error {
	member, err := s.owned(ctx, memberID, email)
	if err != nil {
		return err
	}
	return s.remove(ctx, member)
}

func (s *MemberService) DeleteByAdmin(ctx context.Context, memberID int64) error {
	member, err := s.members.GetMemberByID(ctx, memberID)
	if err != nil {
		return err
	}
	return s.remove(ctx, member)
}

func (s *MemberService) owned(ctx context.Context, memberID int64, email string) (*model.Member, error) {
	member, err := s.members.GetMemberByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if member.ID != memberID {
		return nil, ErrNotMemberOwner
	}
	return member, nil
}

// remove 는 회원 삭제와 함께 refresh 토큰도 제거
func (s *MemberService) remove(ctx context.Context, member *model.Member) error {
	if err := s.members.DeleteMember(ctx, member.ID); err != nil {
		return err
	}
	if err := s.refresh.DeleteByUsername(ctx, member.Email); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	s.logger.Info("member deleted", zap.Int64("member_id", member.ID))
	return nil
}

func validateJoin(req model.JoinRequest) error {
	fields := map[string]string{}
	switch {
	case strings.TrimSpace(req.Email) == "":
		fields["email"] = ErrEmptyEmail.Error()
	case !emailPattern.MatchString(req.Email):
		fields["email"] = ErrInvalidEmail.Error()
	}
	if strings.TrimSpace(req.Password) == "" {
		fields["password"] = ErrEmptyPassword.Error()
	}
	if strings.TrimSpace(req.Name) == "" {
		fields["name"] = "이름을 입력해 주세요."
	} else if len([]rune(req.Name)) > 8 {
		fields["name"] = "이름은 8자까지 입력해 주세요."
	}
	if strings.TrimSpace(req.Nickname) == "" {
		fields["nickname"] = "별명을 입력해 주세요."
	} else if len([]rune(req.Nickname)) > 8 {
		fields["nickname"] = "별명은 8자까지 입력해 주세요."
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
