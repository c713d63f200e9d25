package controller

import (
	"errors"
	"strconv"

	"github.com/koolranch/flat-earth-training/internal/model"
	"github.com/koolranch/flat-earth-training/internal/service"
	"github.com/koolranch/flat-earth-training/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// CourseInput is the authoring payload. It exists separately from
// model.Course because the correct answer index must be writable by
// staff while never appearing in learner-facing JSON.
type CourseInput struct {
	Slug        string        `json:"slug" binding:"required"`
	Title       string        `json:"title" binding:"required"`
	Description string        `json:"description"`
	Modules     []ModuleInput `json:"modules"`
}

type ModuleInput struct {
	Order     int                 `json:"order" binding:"required"`
	Title     string              `json:"title" binding:"required"`
	Kind      model.ModuleKind    `json:"kind" binding:"required"`
	GuideRef  string              `json:"guideRef"`
	VideoRef  string              `json:"videoRef"`
	GameRef   string              `json:"gameRef"`
	Questions []QuizQuestionInput `json:"questions"`
}

type QuizQuestionInput struct {
	Order        int      `json:"order"`
	Prompt       string   `json:"prompt" binding:"required"`
	Choices      []string `json:"choices" binding:"required"`
	CorrectIndex int      `json:"correctIndex"`
}

func (in *CourseInput) toModel() *model.Course {
	course := &model.Course{
		Slug:        in.Slug,
		Title:       in.Title,
		Description: in.Description,
	}
	for _, m := range in.Modules {
		module := model.Module{
			Order:    m.Order,
			Title:    m.Title,
			Kind:     m.Kind,
			GuideRef: m.GuideRef,
			VideoRef: m.VideoRef,
			GameRef:  m.GameRef,
		}
		for _, q := range m.Questions {
			module.Questions = append(module.Questions, model.QuizQuestion{
				Order:        q.Order,
				Prompt:       q.Prompt,
				Choices:      q.Choices,
				CorrectIndex: q.CorrectIndex,
			})
		}
		course.Modules = append(course.Modules, module)
	}
	return course
}

// @Summary Published course catalog
// @Tags courses
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/courses [get]
func (c *CourseController) Catalog(ctx *gin.Context) {
	courses, err := c.CourseService.Catalog()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// @Summary Create a draft course
// @Tags authoring
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param course body CourseInput true "course with modules"
// @Success 201 {object} util.Response
// @Router /api/admin/courses [post]
func (c *CourseController) Create(ctx *gin.Context) {
	var input CourseInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course := input.toModel()
	if err := c.CourseService.CreateCourse(course); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// @Summary Update a draft course
// @Tags authoring
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "course id"
// @Param course body CourseInput true "course with modules"
// @Success 200 {object} util.Response
// @Router /api/admin/courses/{id} [put]
func (c *CourseController) Update(ctx *gin.Context) {
	courseID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	var input CourseInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course := input.toModel()
	course.ID = uint(courseID)

	if err := c.CourseService.UpdateCourse(course); err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// @Summary Publish a course
// @Description Validates the module list; a malformed course cannot go live.
// @Tags authoring
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "course id"
// @Success 200 {object} util.Response
// @Router /api/admin/courses/{id}/publish [post]
func (c *CourseController) Publish(ctx *gin.Context) {
	courseID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	if err := c.CourseService.Publish(uint(courseID)); err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
			return
		}
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			util.BadRequest(ctx, verr.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"published": true})
}
