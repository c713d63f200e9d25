package controller

import (
	"errors"

	"github.com/koolranch/flat-earth-training/internal/model"
	"github.com/koolranch/flat-earth-training/internal/service"
	"github.com/koolranch/flat-earth-training/internal/util"

	"github.com/gin-gonic/gin"
)

type InvitationController struct {
	InvitationService *service.InvitationService
}

func NewInvitationController(invitationService *service.InvitationService) *InvitationController {
	return &InvitationController{InvitationService: invitationService}
}

type InviteRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Role     string `json:"role" binding:"required"`
	CourseID *uint  `json:"courseId"`
}

type AcceptRequest struct {
	Token    string `json:"token" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// @Summary Invite someone into the org
// @Description Optionally attaches a course; the seat is reserved at acceptance, not here.
// @Tags invitations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param orgId path int true "organization id"
// @Param request body InviteRequest true "invitation"
// @Success 201 {object} util.Response
// @Router /api/orgs/{orgId}/invitations [post]
func (c *InvitationController) Invite(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req InviteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	inv, err := c.InvitationService.Invite(ctx.GetUint("orgID"), claims.UserID, req.Email, model.OrgRole(req.Role), req.CourseID)
	if err != nil {
		if errors.Is(err, util.ErrMembershipNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, inv)
}

// @Summary List org invitations
// @Tags invitations
// @Produce json
// @Security ApiKeyAuth
// @Param orgId path int true "organization id"
// @Success 200 {object} util.Response
// @Router /api/orgs/{orgId}/invitations [get]
func (c *InvitationController) List(ctx *gin.Context) {
	invitations, err := c.InvitationService.ListByOrg(ctx.GetUint("orgID"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, invitations)
}

// @Summary Accept an invitation
// @Description Creates the account if needed, seats the member, and enrolls them when a course is attached.
// @Tags invitations
// @Accept json
// @Produce json
// @Param request body AcceptRequest true "acceptance"
// @Success 200 {object} util.Response
// @Router /api/invitations/accept [post]
func (c *InvitationController) Accept(ctx *gin.Context) {
	var req AcceptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.InvitationService.Accept(req.Token, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrInvitationNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrInvitationExpired):
			util.Forbidden(ctx, err.Error())
		case errors.Is(err, util.ErrInvitationAccepted),
			errors.Is(err, util.ErrSeatsExhausted),
			errors.Is(err, util.ErrAlreadyEnrolled):
			util.Conflict(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, result)
}
