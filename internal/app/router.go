package app

import (
	"github.com/koolranch/flat-earth-training/docs"
	"github.com/koolranch/flat-earth-training/internal/config"
	"github.com/koolranch/flat-earth-training/internal/middleware"
	"github.com/koolranch/flat-earth-training/internal/model"
	"github.com/koolranch/flat-earth-training/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	a.registerPublicRoutes(router, c)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerLearnerRoutes(authGroup, c)
		a.registerOrgRoutes(authGroup, c, repos)
		a.registerStaffRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.GET("/courses", c.course.Catalog)

		// Invitees usually have no account yet, so acceptance is open.
		public.POST("/invitations/accept", c.invitation.Accept)
	}
}

func (a *App) registerLearnerRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)

	training := rg.Group("/training")
	{
		training.GET("/courses/:slug", c.training.GetCourse)
		training.POST("/courses/:slug/enroll", c.training.Enroll)
		training.POST("/courses/:slug/recertify", c.training.Recertify)
		training.POST("/modules/:id/start", c.training.StartModule)
		training.POST("/modules/:id/events", c.training.PhaseEvent)
		training.GET("/courses/:slug/certificate", c.training.GetCertificate)
		training.GET("/certificates", c.training.ListCertificates)
	}
}

func (a *App) registerOrgRoutes(rg *gin.RouterGroup, c *controllers, repos *repositories) {
	rg.POST("/orgs", c.org.Create)

	orgs := rg.Group("/orgs/:orgId")
	{
		orgs.GET("/members", middleware.RequireOrgPermission(repos.organization, model.PermOrgView), c.org.Members)
		orgs.PUT("/members/:userId/role", middleware.RequireOrgPermission(repos.organization, model.PermUsersAssign), c.org.AssignRole)
		orgs.DELETE("/members/:userId", middleware.RequireOrgPermission(repos.organization, model.PermOrgManage), c.org.RemoveMember)

		orgs.GET("/seats", middleware.RequireOrgPermission(repos.organization, model.PermOrgView), c.org.Seats)
		orgs.PUT("/seats", middleware.RequireOrgPermission(repos.organization, model.PermOrgManage), c.org.SetSeats)

		orgs.GET("/roster", middleware.RequireOrgPermission(repos.organization, model.PermTrainingView), c.org.Roster)
		orgs.GET("/roster/export", middleware.RequireOrgPermission(repos.organization, model.PermOrgExport), c.org.ExportRoster)
		orgs.GET("/certificates", middleware.RequireOrgPermission(repos.organization, model.PermTrainingView), c.org.Certificates)

		orgs.POST("/invitations", middleware.RequireOrgPermission(repos.organization, model.PermUsersInvite), c.invitation.Invite)
		orgs.GET("/invitations", middleware.RequireOrgPermission(repos.organization, model.PermUsersInvite), c.invitation.List)
	}
}

func (a *App) registerStaffRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.StaffMiddleware())
	{
		admin.POST("/courses", c.course.Create)
		admin.PUT("/courses/:id", c.course.Update)
		admin.POST("/courses/:id/publish", c.course.Publish)
	}
}
