package controller

import (
	"encoding/csv"
	"errors"
	"strconv"

	"github.com/koolranch/flat-earth-training/internal/model"
	"github.com/koolranch/flat-earth-training/internal/service"
	"github.com/koolranch/flat-earth-training/internal/util"

	"github.com/gin-gonic/gin"
)

type OrgController struct {
	OrgService *service.OrgService
}

func NewOrgController(orgService *service.OrgService) *OrgController {
	return &OrgController{OrgService: orgService}
}

type CreateOrgRequest struct {
	Name         string `json:"name" binding:"required"`
	ContactEmail string `json:"contactEmail" binding:"omitempty,email"`
}

type AssignRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type SetSeatsRequest struct {
	CourseID uint `json:"courseId" binding:"required"`
	Total    int  `json:"total" binding:"min=0"`
}

// @Summary Create an organization
// @Description The caller becomes the org's owner.
// @Tags orgs
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body CreateOrgRequest true "organization"
// @Success 201 {object} util.Response
// @Router /api/orgs [post]
func (c *OrgController) Create(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CreateOrgRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	org, err := c.OrgService.CreateOrganization(req.Name, req.ContactEmail, claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, org)
}

// @Summary List org members
// @Tags orgs
// @Produce json
// @Security ApiKeyAuth
// @Param orgId path int true "organization id"
// @Success 200 {object} util.Response
// @Router /api/orgs/{orgId}/members [get]
func (c *OrgController) Members(ctx *gin.Context) {
	members, err := c.OrgService.Members(ctx.GetUint("orgID"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, members)
}

// @Summary Change a member's role
// @Description Unknown role names are coerced to viewer. The last owner cannot be demoted.
// @Tags orgs
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param orgId path int true "organization id"
// @Param userId path int true "member user id"
// @Param request body AssignRoleRequest true "new role"
// @Success 200 {object} util.Response
// @Router /api/orgs/{orgId}/members/{userId}/role [put]
func (c *OrgController) AssignRole(ctx *gin.Context) {
	userID, err := strconv.ParseUint(ctx.Param("userId"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	var req AssignRoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.OrgService.AssignRole(ctx.GetUint("orgID"), uint(userID), model.OrgRole(req.Role)); err != nil {
		c.mapOrgError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"role": model.NormalizeRole(req.Role)})
}

// @Summary Remove a member
// @Tags orgs
// @Produce json
// @Security ApiKeyAuth
// @Param orgId path int true "organization id"
// @Param userId path int true "member user id"
// @Success 200 {object} util.Response
// @Router /api/orgs/{orgId}/members/{userId} [delete]
func (c *OrgController) RemoveMember(ctx *gin.Context) {
	userID, err := strconv.ParseUint(ctx.Param("userId"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	if err := c.OrgService.RemoveMember(ctx.GetUint("orgID"), uint(userID)); err != nil {
		c.mapOrgError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"removed": true})
}

// @Summary Seat ledger
// @Tags orgs
// @Produce json
// @Security ApiKeyAuth
// @Param orgId path int true "organization id"
// @Success 200 {object} util.Response
// @Router /api/orgs/{orgId}/seats [get]
func (c *OrgController) Seats(ctx *gin.Context) {
	seats, err := c.OrgService.SeatLedger(ctx.GetUint("orgID"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, seats)
}

// @Summary Set seat total for a course
// @Description Total can never drop below seats already used.
// @Tags orgs
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param orgId path int true "organization id"
// @Param request body SetSeatsRequest true "seat total"
// @Success 200 {object} util.Response
// @Router /api/orgs/{orgId}/seats [put]
func (c *OrgController) SetSeats(ctx *gin.Context) {
	var req SetSeatsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.OrgService.SetSeats(ctx.GetUint("orgID"), req.CourseID, req.Total); err != nil {
		if errors.Is(err, util.ErrSeatsBelowUsed) {
			util.Conflict(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"total": req.Total})
}

// @Summary Progress roster
// @Description Every active enrollment in the org with its progress.
// @Tags orgs
// @Produce json
// @Security ApiKeyAuth
// @Param orgId path int true "organization id"
// @Success 200 {object} util.Response
// @Router /api/orgs/{orgId}/roster [get]
func (c *OrgController) Roster(ctx *gin.Context) {
	roster, err := c.OrgService.Roster(ctx.GetUint("orgID"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, roster)
}

// @Summary Certificates earned on the org's seats
// @Tags orgs
// @Produce json
// @Security ApiKeyAuth
// @Param orgId path int true "organization id"
// @Success 200 {object} util.Response
// @Router /api/orgs/{orgId}/certificates [get]
func (c *OrgController) Certificates(ctx *gin.Context) {
	certs, err := c.OrgService.Certificates(ctx.GetUint("orgID"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, certs)
}

// @Summary Export the roster as CSV
// @Description For compliance record keeping; OSHA audits want progress on paper.
// @Tags orgs
// @Produce text/csv
// @Security ApiKeyAuth
// @Param orgId path int true "organization id"
// @Success 200 {string} string "csv"
// @Router /api/orgs/{orgId}/roster/export [get]
func (c *OrgController) ExportRoster(ctx *gin.Context) {
	roster, err := c.OrgService.Roster(ctx.GetUint("orgID"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	ctx.Header("Content-Type", "text/csv")
	ctx.Header("Content-Disposition", `attachment; filename="roster.csv"`)

	w := csv.NewWriter(ctx.Writer)
	w.Write([]string{"name", "email", "course_id", "progress_pct", "passed"})
	for _, entry := range roster {
		w.Write([]string{
			entry.Name,
			entry.Email,
			strconv.FormatUint(uint64(entry.CourseID), 10),
			strconv.FormatFloat(entry.ProgressPct, 'f', 2, 64),
			strconv.FormatBool(entry.Passed),
		})
	}
	w.Flush()
}

func (c *OrgController) mapOrgError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrMembershipNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrLastOwner):
		util.Conflict(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
