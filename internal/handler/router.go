package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/elimu-labs/elimu-api/internal/middleware"
	"github.com/elimu-labs/elimu-api/internal/models"
	"github.com/elimu-labs/elimu-api/internal/policy"
	"github.com/elimu-labs/elimu-api/internal/repository"
	"github.com/elimu-labs/elimu-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth       *AuthHandler
	User       *UserHandler
	Student    *StudentHandler
	Class      *ClassHandler
	Subject    *SubjectHandler
	Assignment *AssignmentHandler
	Timetable  *TimetableHandler
	Assessment *AssessmentHandler
	Attendance *AttendanceHandler
	Perf       *PerformanceHandler
	Report     *ReportHandler
	Metrics    *MetricsHandler
}

// RegisterRoutes mounts every endpoint under the API prefix. All routes
// except registration, login and the token flows require a valid token.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, authSvc *service.AuthService, userRepo *repository.UserRepository) {
	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/forgot-password", h.Auth.ForgotPassword)
		auth.POST("/reset-password", h.Auth.ResetPassword)
		auth.GET("/verify-email", h.Auth.VerifyEmail)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", h.Auth.Logout)
		authed.POST("/change-password", h.Auth.ChangePassword)
		authed.GET("/me", h.Auth.Me)
	}

	protected := api.Group("", middleware.JWT(authSvc))

	users := protected.Group("/users")
	{
		users.GET("", middleware.Authorize(policy.ResourceUsers, policy.ActionList), h.User.List)
		users.GET("/:id", middleware.AuthorizeSelf(policy.ResourceUsers, policy.ActionRead, "id"), h.User.Get)
		users.PUT("/:id", middleware.AuthorizeSelf(policy.ResourceUsers, policy.ActionUpdate, "id"), h.User.Update)
		users.POST("/:id/approve", middleware.Authorize(policy.ResourceUsers, policy.ActionUpdate), middleware.Audit(userRepo, models.AuditActionApprove, policy.ResourceUsers), h.User.Approve)
		users.DELETE("/:id", middleware.Authorize(policy.ResourceUsers, policy.ActionDelete), middleware.Audit(userRepo, models.AuditActionDelete, policy.ResourceUsers), h.User.Delete)
		users.POST("/:id/roles", middleware.Authorize(policy.ResourceUsers, policy.ActionUpdate), h.User.AssignRole)
		users.DELETE("/:id/roles", middleware.Authorize(policy.ResourceUsers, policy.ActionUpdate), h.User.RemoveRole)
	}

	roles := protected.Group("/roles", middleware.Authorize(policy.ResourceRoles, policy.ActionList))
	{
		roles.GET("", h.User.ListRoles)
		roles.POST("", h.User.CreateRole)
	}

	students := protected.Group("/students")
	{
		students.GET("", middleware.Authorize(policy.ResourceStudents, policy.ActionList), h.Student.List)
		students.GET("/:id", middleware.Authorize(policy.ResourceStudents, policy.ActionRead), h.Student.Get)
		students.POST("", middleware.Authorize(policy.ResourceStudents, policy.ActionCreate), h.Student.Create)
		students.POST("/bulk", middleware.Authorize(policy.ResourceStudents, policy.ActionCreate), h.Student.BulkCreate)
		students.PUT("/:id", middleware.Authorize(policy.ResourceStudents, policy.ActionUpdate), h.Student.Update)
		students.DELETE("/:id", middleware.Authorize(policy.ResourceStudents, policy.ActionDelete), h.Student.Delete)
		students.GET("/:id/attendance", middleware.Authorize(policy.ResourceAttendance, policy.ActionRead), h.Student.AttendanceHistory)
		students.GET("/:id/performance", middleware.Authorize(policy.ResourcePerformance, policy.ActionRead), h.Student.Performances)
	}

	classes := protected.Group("/classes")
	{
		classes.GET("", middleware.Authorize(policy.ResourceClasses, policy.ActionList), h.Class.List)
		classes.GET("/:id", middleware.Authorize(policy.ResourceClasses, policy.ActionRead), h.Class.Get)
		classes.POST("", middleware.Authorize(policy.ResourceClasses, policy.ActionCreate), h.Class.Create)
		classes.PUT("/:id", middleware.Authorize(policy.ResourceClasses, policy.ActionUpdate), h.Class.Update)
		classes.DELETE("/:id", middleware.Authorize(policy.ResourceClasses, policy.ActionDelete), h.Class.Delete)
		classes.GET("/:id/timetable", middleware.Authorize(policy.ResourceTimetable, policy.ActionRead), h.Class.Timetable)
		classes.GET("/:id/performance", middleware.Authorize(policy.ResourcePerformance, policy.ActionRead), h.Class.PerformanceSummary)
		classes.GET("/:id/assignments", middleware.Authorize(policy.ResourceAssignments, policy.ActionRead), h.Assignment.ByClass)
	}

	subjects := protected.Group("/subjects")
	{
		subjects.GET("", middleware.Authorize(policy.ResourceSubjects, policy.ActionList), h.Subject.List)
		subjects.GET("/:id", middleware.Authorize(policy.ResourceSubjects, policy.ActionRead), h.Subject.Get)
		subjects.POST("", middleware.Authorize(policy.ResourceSubjects, policy.ActionCreate), h.Subject.Create)
		subjects.PUT("/:id", middleware.Authorize(policy.ResourceSubjects, policy.ActionUpdate), h.Subject.Update)
		subjects.DELETE("/:id", middleware.Authorize(policy.ResourceSubjects, policy.ActionDelete), h.Subject.Delete)
	}

	assignments := protected.Group("/assignments")
	{
		assignments.GET("", middleware.Authorize(policy.ResourceAssignments, policy.ActionList), h.Assignment.List)
		assignments.GET("/:id", middleware.Authorize(policy.ResourceAssignments, policy.ActionRead), h.Assignment.Get)
		assignments.POST("", middleware.Authorize(policy.ResourceAssignments, policy.ActionCreate), h.Assignment.Create)
		assignments.POST("/bulk", middleware.Authorize(policy.ResourceAssignments, policy.ActionCreate), h.Assignment.BulkCreate)
		assignments.DELETE("/:id", middleware.Authorize(policy.ResourceAssignments, policy.ActionDelete), h.Assignment.Delete)
	}

	teachers := protected.Group("/teachers")
	{
		teachers.GET("/:id/assignments", middleware.Authorize(policy.ResourceAssignments, policy.ActionRead), h.Assignment.ByTeacher)
		teachers.GET("/:id/timetable", middleware.Authorize(policy.ResourceTimetable, policy.ActionRead), h.Timetable.TeacherTimetable)
	}

	timetable := protected.Group("/timetable")
	{
		timetable.GET("", middleware.Authorize(policy.ResourceTimetable, policy.ActionList), h.Timetable.List)
		timetable.GET("/:id", middleware.Authorize(policy.ResourceTimetable, policy.ActionRead), h.Timetable.Get)
		timetable.POST("", middleware.Authorize(policy.ResourceTimetable, policy.ActionCreate), h.Timetable.Create)
		timetable.POST("/check-conflicts", middleware.Authorize(policy.ResourceTimetable, policy.ActionRead), h.Timetable.CheckConflicts)
		timetable.PUT("/:id", middleware.Authorize(policy.ResourceTimetable, policy.ActionUpdate), h.Timetable.Update)
		timetable.DELETE("/:id", middleware.Authorize(policy.ResourceTimetable, policy.ActionDelete), h.Timetable.Delete)
	}

	assessments := protected.Group("/assessments")
	{
		assessments.GET("", middleware.Authorize(policy.ResourceAssessments, policy.ActionList), h.Assessment.List)
		assessments.GET("/:id", middleware.Authorize(policy.ResourceAssessments, policy.ActionRead), h.Assessment.Get)
		assessments.POST("", middleware.Authorize(policy.ResourceAssessments, policy.ActionCreate), h.Assessment.Create)
		assessments.PUT("/:id", middleware.Authorize(policy.ResourceAssessments, policy.ActionUpdate), h.Assessment.Update)
		assessments.DELETE("/:id", middleware.Authorize(policy.ResourceAssessments, policy.ActionDelete), h.Assessment.Delete)
		assessments.GET("/:id/results", middleware.Authorize(policy.ResourcePerformance, policy.ActionRead), h.Assessment.Results)
	}

	attendance := protected.Group("/attendance")
	{
		attendance.GET("", middleware.Authorize(policy.ResourceAttendance, policy.ActionList), h.Attendance.List)
		attendance.GET("/daily-summary", middleware.RequireRoles(models.RoleAdmin, models.RoleHeadteacher), h.Attendance.DailySummary)
		attendance.GET("/:id", middleware.Authorize(policy.ResourceAttendance, policy.ActionRead), h.Attendance.Get)
		attendance.POST("", middleware.Authorize(policy.ResourceAttendance, policy.ActionCreate), h.Attendance.Create)
		attendance.PUT("/:id", middleware.Authorize(policy.ResourceAttendance, policy.ActionUpdate), h.Attendance.Update)
		attendance.DELETE("/:id", middleware.Authorize(policy.ResourceAttendance, policy.ActionDelete), h.Attendance.Delete)
	}

	performance := protected.Group("/performance")
	{
		performance.GET("", middleware.Authorize(policy.ResourcePerformance, policy.ActionList), h.Perf.List)
		performance.GET("/:id", middleware.Authorize(policy.ResourcePerformance, policy.ActionRead), h.Perf.Get)
		performance.POST("", middleware.Authorize(policy.ResourcePerformance, policy.ActionCreate), h.Perf.Create)
		performance.PUT("/:id", middleware.Authorize(policy.ResourcePerformance, policy.ActionUpdate), h.Perf.Update)
		performance.DELETE("/:id", middleware.Authorize(policy.ResourcePerformance, policy.ActionDelete), h.Perf.Delete)
	}

	reports := protected.Group("/reports", middleware.Authorize(policy.ResourceReports, policy.ActionRead))
	{
		reports.GET("/attendance/summary", h.Report.AttendanceSummary)
		reports.GET("/attendance/details", h.Report.AttendanceDetails)
		reports.GET("/performance/summary", h.Report.PerformanceSummary)
		reports.GET("/performance/details", h.Report.PerformanceDetails)
		reports.GET("/students/:id/progress", h.Report.StudentProgress)
	}

	metrics := protected.Group("/metrics", middleware.RequireRoles(models.RoleAdmin))
	{
		metrics.GET("", h.Metrics.Snapshot)
	}
}
