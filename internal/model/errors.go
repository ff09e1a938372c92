package model

import "errors"

// 저장소 계층 공용 에러
var (
	ErrMemberNotFound  = errors.New("member not found")
	ErrRefreshNotFound = errors.New("refresh token not found")
)
