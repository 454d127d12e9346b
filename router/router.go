package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lumenhotels/onboarding-app/config"
	"github.com/lumenhotels/onboarding-app/controllers"
	"github.com/lumenhotels/onboarding-app/middlewares"
	"github.com/lumenhotels/onboarding-app/models"
	"github.com/lumenhotels/onboarding-app/services"
)

func SetupRouter(db *gorm.DB, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigin))
	r.Use(middlewares.LoggerMiddleware())

	docs := services.NewDocumentService("")

	authCtrl := controllers.NewAuthController(db)
	propertyCtrl := controllers.NewPropertyController(db)
	applicationCtrl := controllers.NewApplicationController(db, cfg.OnboardingBaseURL)
	onboardingCtrl := controllers.NewOnboardingController(db, docs)
	managerCtrl := controllers.NewManagerController(db, docs)
	hrCtrl := controllers.NewHRController(db, cfg.OnboardingBaseURL)
	wsCtrl := controllers.NewWSController(db)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	public := r.Group("/")
	public.Use(middlewares.RateLimit("20-M"))
	{
		public.POST("/register", authCtrl.Register)
		public.POST("/login", authCtrl.Login)
		public.POST("/apply/:property_id", applicationCtrl.SubmitApplication)
		public.POST("/applications/:application_id/withdraw", applicationCtrl.WithdrawApplication)
	}

	// ----------------------------------------------------------------
	//                EMPLOYEE ROUTES (capability token)
	// ----------------------------------------------------------------
	onboarding := r.Group("/onboarding")
	onboarding.Use(middlewares.OnboardingAuthMiddleware(db))
	{
		onboarding.GET("/session", onboardingCtrl.GetSession)
		onboarding.POST("/step/:step_id/save", onboardingCtrl.SaveStep)
		onboarding.POST("/step/:step_id/complete", onboardingCtrl.CompleteStep)
		onboarding.POST("/submit", onboardingCtrl.SubmitEmployeePhase)
	}

	module := r.Group("/modules")
	module.Use(middlewares.ModuleAuthMiddleware(db))
	{
		module.GET("/form", onboardingCtrl.GetModuleForm)
		module.POST("/submit", onboardingCtrl.SubmitModuleForm)
	}

	// ----------------------------------------------------------------
	//                      STAFF ROUTES (JWT)
	// ----------------------------------------------------------------
	staff := r.Group("/")
	staff.Use(middlewares.AuthMiddleware())

	staff.GET("/profile", authCtrl.GetProfile)
	staff.GET("/properties", propertyCtrl.GetProperties)
	staff.GET("/compliance/deadlines", hrCtrl.ComplianceDeadlines)

	// APPLICATIONS (manager/hr, property-scoped inside the controller)
	staff.GET("/applications", applicationCtrl.GetApplications)
	staff.GET("/applications/:application_id", applicationCtrl.GetApplicationByID)
	staff.POST("/applications/:application_id/approve", applicationCtrl.ApproveApplication)
	staff.POST("/applications/:application_id/reject", applicationCtrl.RejectApplication)
	staff.POST("/applications/:application_id/talent-pool", applicationCtrl.TalentPoolApplication)
	staff.POST("/applications/:application_id/reactivate", applicationCtrl.ReactivateApplication)
	staff.POST("/applications/bulk-status-update", applicationCtrl.BulkStatusUpdate)

	// MODULE GRANTS (manager/hr)
	staff.POST("/modules", hrCtrl.IssueModule)

	// MANAGER REVIEW
	manager := staff.Group("/manager")
	manager.Use(middlewares.RequireRoles(models.RoleManager, models.RoleHR))
	{
		manager.GET("/onboarding/pending", managerCtrl.PendingReviews)
		manager.POST("/onboarding/:session_id/i9-section2", managerCtrl.CompleteI9Section2)
		manager.POST("/onboarding/:session_id/approve", managerCtrl.ManagerApprove)
		manager.POST("/onboarding/:session_id/request-changes", managerCtrl.ManagerRequestChanges)
	}

	// HR ONLY
	hr := staff.Group("/hr")
	hr.Use(middlewares.RequireRoles(models.RoleHR))
	{
		hr.GET("/onboarding/pending", hrCtrl.PendingSessions)
		hr.POST("/onboarding/:session_id/approve", hrCtrl.HRApprove)
		hr.POST("/onboarding/:session_id/reject", hrCtrl.HRReject)
		hr.POST("/onboarding/:session_id/request-changes", hrCtrl.HRRequestChanges)
		hr.GET("/audit-log", hrCtrl.AuditLog)
		hr.GET("/dashboard/stats", hrCtrl.DashboardStats)

		hr.POST("/properties", propertyCtrl.CreateProperty)
		hr.PATCH("/properties/:property_id", propertyCtrl.UpdateProperty)
		hr.DELETE("/properties/:property_id", propertyCtrl.DeactivateProperty)
		hr.POST("/properties/:property_id/managers", propertyCtrl.AssignManager)
		hr.DELETE("/properties/:property_id/managers/:user_id", propertyCtrl.UnassignManager)
	}

	// DASHBOARD WEBSOCKET
	ws := r.Group("/ws")
	ws.Use(middlewares.WebSocketAuthMiddleware())
	{
		ws.GET("/dashboard", wsCtrl.Dashboard)
	}

	return r
}
