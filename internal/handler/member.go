package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dailog/backend/internal/model"
	"github.com/dailog/backend/internal/service"
)

type MemberHandler struct {
	svc *service.MemberService
}

func NewMemberHandler(svc *service.MemberService) *MemberHandler {
	return &MemberHandler{svc: svc}
}

// Join godoc
// @Summary Join
// @Tags member
// @Accept json
// @Produce json
// @Param request body model.JoinRequest true "Join request"
// @Success 200
// @Failure 400 {object} model.ErrorResponse
// @Failure 429 {object} model.ErrorResponse
// @Router /api/auth/join [post]
func (h *MemberHandler) Join(c *gin.Context) {
	var req model.JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "잘못된 요청입니다."))
		return
	}

	if err := h.svc.Join(c.Request.Context(), req); err != nil {
		writeAuthError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// Me godoc
// @Summary Get login info
// @Tags member
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.MemberLoginInfo
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/member/me [get]
func (h *MemberHandler) Me(c *gin.Context) {
	p := GetPrincipal(c)
	info, err := h.svc.LoginInfo(c.Request.Context(), p.Username())
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Leave godoc
// @Summary Leave (password account)
// @Tags member
// @Accept json
// @Security BearerAuth
// @Param memberId path int true "Member ID"
// @Param request body model.LeaveRequest true "Current password"
// @Success 200
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /api/auth/{memberId}/leave [post]
func (h *MemberHandler) Leave(c *gin.Context) {
	memberID, ok := parseMemberID(c)
	if !ok {
		return
	}

	var req model.LeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "잘못된 요청입니다."))
		return
	}

	if err := h.svc.Leave(c.Request.Context(), memberID, GetPrincipal(c).Username(), req.Password); err != nil {
		writeAuthError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// LeaveOAuth2 godoc
// @Summary Leave (OAuth2 account)
// @Tags member
// @Security BearerAuth
// @Param memberId path int true "Member ID"
// @Success 200
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /api/auth/{memberId}/leave-oauth2 [post]
func (h *MemberHandler) LeaveOAuth2(c *gin.Context) {
	memberID, ok := parseMemberID(c)
	if !ok {
		return
	}

	p := GetPrincipal(c)
	if !p.Federated() {
		c.JSON(http.StatusForbidden, model.NewErrorResponse(http.StatusForbidden, msgForbidden))
		return
	}

	if err := h.svc.LeaveOAuth2(c.Request.Context(), memberID, p.Username()); err != nil {
		writeAuthError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// AdminDelete godoc
// @Summary Delete member (admin)
// @Tags admin
// @Security BearerAuth
// @Param memberId path int true "Member ID"
// @Success 200
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/admin/{memberId}/delete [post]
func (h *MemberHandler) AdminDelete(c *gin.Context) {
	memberID, ok := parseMemberID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteByAdmin(c.Request.Context(), memberID); err != nil {
		writeAuthError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func parseMemberID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("memberId"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "잘못된 요청입니다."))
		return 0, false
	}
	return id, true
}
