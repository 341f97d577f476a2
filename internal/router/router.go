package router

import (
	"github.com/certolo/certolo-backend/config"
	"github.com/certolo/certolo-backend/internal/app/controller"
	"github.com/certolo/certolo-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type Router struct {
	authController        *controller.AuthController
	standardController    *controller.StandardController
	applicationController *controller.ApplicationController
	certificateController *controller.CertificateController
	customerController    *controller.CustomerController
	uploadController      *controller.UploadController
	authMiddleware        *middleware.AuthMiddleware
	csrfMiddleware        gin.HandlerFunc
	config                *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	standardController *controller.StandardController,
	applicationController *controller.ApplicationController,
	certificateController *controller.CertificateController,
	customerController *controller.CustomerController,
	uploadController *controller.UploadController,
	authMiddleware *middleware.AuthMiddleware,
	csrfMiddleware gin.HandlerFunc,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:        authController,
		standardController:    standardController,
		applicationController: applicationController,
		certificateController: certificateController,
		customerController:    customerController,
		uploadController:      uploadController,
		authMiddleware:        authMiddleware,
		csrfMiddleware:        csrfMiddleware,
		config:                cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "CERTOLO API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/refresh", r.authController.Refresh)
			auth.POST("/logout", r.authController.Logout)
			auth.GET("/csrf", r.authMiddleware.Authenticate(), r.authController.GetCSRFToken)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
			auth.PUT("/me", r.authMiddleware.Authenticate(), r.csrfMiddleware, r.authController.UpdateMe)
		}

		// Browsing the catalog is public; the policy layer narrows
		// anonymous callers to active standards.
		standards := v1.Group("/standards")
		{
			standards.GET("", r.authMiddleware.OptionalAuthenticate(), r.standardController.ListStandards)
			standards.GET("/:id", r.authMiddleware.OptionalAuthenticate(), r.standardController.GetStandard)
			standards.GET("/:id/criteria", r.authMiddleware.OptionalAuthenticate(), r.standardController.ListCriteria)

			certifierOnly := standards.Group("",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole("certifier"),
				r.csrfMiddleware,
			)
			{
				certifierOnly.POST("", r.standardController.CreateStandard)
				certifierOnly.PUT("/:id", r.standardController.UpdateStandard)
				certifierOnly.DELETE("/:id", r.standardController.DeleteStandard)
				certifierOnly.POST("/:id/file", r.standardController.UploadReferenceFile)
				certifierOnly.POST("/:id/criteria", r.standardController.AddCriterion)
			}
		}

		criteria := v1.Group("/criteria",
			r.authMiddleware.Authenticate(),
			r.authMiddleware.RequireRole("certifier"),
			r.csrfMiddleware,
		)
		{
			criteria.PUT("/:id", r.standardController.UpdateCriterion)
			criteria.DELETE("/:id", r.standardController.DeleteCriterion)
		}

		applications := v1.Group("/applications", r.authMiddleware.Authenticate(), r.csrfMiddleware)
		{
			applications.GET("", r.applicationController.ListApplications)
			applications.GET("/:id", r.applicationController.GetApplication)
			applications.GET("/:id/documents/:documentID", r.applicationController.DownloadDocument)

			applicantOnly := applications.Group("", r.authMiddleware.RequireRole("applicant"))
			{
				applicantOnly.POST("", r.applicationController.CreateApplication)
				applicantOnly.DELETE("/:id", r.applicationController.DeleteApplication)
				applicantOnly.PUT("/:id/responses", r.applicationController.SaveResponse)
				applicantOnly.POST("/:id/documents", r.applicationController.UploadDocument)
				applicantOnly.DELETE("/:id/documents/:documentID", r.applicationController.DeleteDocument)
				applicantOnly.POST("/:id/submit", r.applicationController.Submit)
			}

			certifierOnly := applications.Group("", r.authMiddleware.RequireRole("certifier"))
			{
				certifierOnly.POST("/:id/review", r.applicationController.StartReview)
				certifierOnly.POST("/:id/approve", r.applicationController.Approve)
				certifierOnly.POST("/:id/reject", r.applicationController.Reject)
				certifierOnly.POST("/:id/issue", r.applicationController.Issue)
			}
		}

		certificates := v1.Group("/certificates")
		{
			// Verification needs no account at all.
			certificates.GET("/verify/:number", r.certificateController.VerifyCertificate)

			authed := certificates.Group("", r.authMiddleware.Authenticate())
			{
				authed.GET("", r.certificateController.ListCertificates)
				authed.GET("/:id", r.certificateController.GetCertificate)
			}

			certifierOnly := certificates.Group("",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole("certifier"),
				r.csrfMiddleware,
			)
			{
				certifierOnly.POST("/:id/revoke", r.certificateController.RevokeCertificate)
				certifierOnly.PUT("/:id/file", r.certificateController.AttachArtifact)
			}
		}

		customers := v1.Group("/customers",
			r.authMiddleware.Authenticate(),
			r.authMiddleware.RequireRole("certifier"),
		)
		{
			customers.GET("", r.customerController.ListCustomers)
			customers.GET("/export", r.customerController.ExportCustomers)
		}

		upload := v1.Group("/upload",
			r.authMiddleware.Authenticate(),
			r.authMiddleware.RequireRole("certifier"),
			r.csrfMiddleware,
		)
		{
			upload.POST("/presigned-url", r.uploadController.GeneratePresignedURL)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
