package controller

import (
	"errors"
	"strconv"

	"github.com/koolranch/flat-earth-training/internal/service"
	"github.com/koolranch/flat-earth-training/internal/util"

	"github.com/gin-gonic/gin"
)

type TrainingController struct {
	CourseService      *service.CourseService
	ProgressionService *service.ProgressionService
	CertService        *service.CertificateService
}

func NewTrainingController(
	courseService *service.CourseService,
	progressionService *service.ProgressionService,
	certService *service.CertificateService,
) *TrainingController {
	return &TrainingController{
		CourseService:      courseService,
		ProgressionService: progressionService,
		CertService:        certService,
	}
}

// @Summary Course page for the calling learner
// @Description Modules with unlocked/complete flags derived from progress.
// @Tags training
// @Produce json
// @Security ApiKeyAuth
// @Param slug path string true "course slug"
// @Success 200 {object} util.Response
// @Router /api/training/courses/{slug} [get]
func (c *TrainingController) GetCourse(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.CourseService.GetCourseView(claims.UserID, ctx.Param("slug"))
	if err != nil {
		c.mapTrainingError(ctx, err)
		return
	}

	util.Success(ctx, view)
}

// @Summary Enroll into a published course
// @Tags training
// @Produce json
// @Security ApiKeyAuth
// @Param slug path string true "course slug"
// @Success 201 {object} util.Response
// @Router /api/training/courses/{slug}/enroll [post]
func (c *TrainingController) Enroll(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	enrollment, err := c.CourseService.Enroll(claims.UserID, ctx.Param("slug"))
	if err != nil {
		c.mapTrainingError(ctx, err)
		return
	}

	util.Created(ctx, enrollment)
}

// @Summary Start recertification
// @Description Supersedes the current enrollment and opens a fresh one.
// @Tags training
// @Produce json
// @Security ApiKeyAuth
// @Param slug path string true "course slug"
// @Success 201 {object} util.Response
// @Router /api/training/courses/{slug}/recertify [post]
func (c *TrainingController) Recertify(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	enrollment, err := c.CourseService.Recertify(claims.UserID, ctx.Param("slug"))
	if err != nil {
		c.mapTrainingError(ctx, err)
		return
	}

	util.Created(ctx, enrollment)
}

// @Summary Start (or resume) a module
// @Tags training
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "module id"
// @Success 200 {object} util.Response
// @Router /api/training/modules/{id}/start [post]
func (c *TrainingController) StartModule(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	moduleID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid module id")
		return
	}

	state, err := c.ProgressionService.StartModule(claims.UserID, uint(moduleID))
	if err != nil {
		c.mapTrainingError(ctx, err)
		return
	}

	util.Success(ctx, state)
}

// @Summary Report a phase completion signal
// @Description Advances the phase machine. Quiz signals carry answers.
// @Tags training
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "module id"
// @Param event body service.PhaseEvent true "completion signal"
// @Success 200 {object} util.Response
// @Router /api/training/modules/{id}/events [post]
func (c *TrainingController) PhaseEvent(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	moduleID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid module id")
		return
	}

	var event service.PhaseEvent
	if err := ctx.ShouldBindJSON(&event); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	state, err := c.ProgressionService.HandlePhaseEvent(claims.UserID, uint(moduleID), event)
	if err != nil {
		c.mapTrainingError(ctx, err)
		return
	}

	util.Success(ctx, state)
}

// @Summary Certificates of the calling learner
// @Tags training
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/training/certificates [get]
func (c *TrainingController) ListCertificates(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	certs, err := c.CertService.ListForUser(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, certs)
}

// @Summary Certificate for one course
// @Description 404 until the course is passed.
// @Tags training
// @Produce json
// @Security ApiKeyAuth
// @Param slug path string true "course slug"
// @Success 200 {object} util.Response
// @Router /api/training/courses/{slug}/certificate [get]
func (c *TrainingController) GetCertificate(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	enrollment, err := c.CourseService.ActiveEnrollment(claims.UserID, ctx.Param("slug"))
	if err != nil {
		c.mapTrainingError(ctx, err)
		return
	}

	cert, err := c.CertService.ForEnrollment(enrollment.ID)
	if err != nil {
		c.mapTrainingError(ctx, err)
		return
	}

	util.Success(ctx, cert)
}

func (c *TrainingController) mapTrainingError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrCourseNotFound),
		errors.Is(err, util.ErrModuleNotFound),
		errors.Is(err, util.ErrCertificateNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrCourseNotPublished),
		errors.Is(err, util.ErrNotEnrolled),
		errors.Is(err, util.ErrModuleLocked):
		util.Forbidden(ctx, err.Error())
	case errors.Is(err, util.ErrPhaseNotActive),
		errors.Is(err, util.ErrGuideTooFast),
		errors.Is(err, util.ErrQuizIncomplete):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrAlreadyEnrolled):
		util.Conflict(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
