package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"code-bounty/internal/client"
	"code-bounty/internal/middleware"
)

type RouterConfig struct {
	Deps             client.Deps
	Jobs             *JobProcessor
	CloudTasksSecret string
}

// NewRouter wires every route onto a new gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoggingMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := NewAPIHandler()
	apiGroup := router.Group("/api", middleware.ClientMiddleware(cfg.Deps))
	{
		apiGroup.POST("/auth/signup", api.SignUp)
		apiGroup.POST("/auth/signin", api.SignIn)
		apiGroup.POST("/auth/signout", api.SignOut)
		apiGroup.GET("/me", api.GetMe)
		apiGroup.PATCH("/me", api.UpdateMe)
		apiGroup.GET("/session", api.GetSession)

		apiGroup.GET("/bounties", api.ListBounties)
		apiGroup.POST("/bounties", api.CreateBounty)
		apiGroup.GET("/bounties/:id", api.GetBounty)
		apiGroup.POST("/bounties/:id/submissions", api.SubmitSolution)

		apiGroup.GET("/companies/:id", api.GetCompany)
		apiGroup.GET("/companies/:id/bounties", api.ListCompanyBounties)
		apiGroup.GET("/companies/:id/submissions", api.ListCompanySubmissions)
		apiGroup.GET("/developers/:id", api.GetDeveloper)
		apiGroup.GET("/developers/:id/submissions", api.ListDeveloperSubmissions)

		apiGroup.GET("/notifications", api.ListNotifications)
		apiGroup.GET("/transactions", api.ListTransactions)
	}

	if cfg.Jobs != nil {
		router.POST("/internal/jobs", middleware.CloudTasksAuthMiddleware(cfg.CloudTasksSecret), cfg.Jobs.ServeJob)
	}

	return router
}
