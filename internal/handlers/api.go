package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"code-bounty/internal/middleware"
	"code-bounty/internal/models"
	"code-bounty/internal/services"
)

// APIHandler serves the JSON API. Every handler works through the request's
// client, so session state never leaks between requests.
type APIHandler struct {
	now func() time.Time
}

func NewAPIHandler() *APIHandler {
	return &APIHandler{now: time.Now}
}

type authResponse struct {
	User        *models.ProfileView `json:"user"`
	DisplayName string              `json:"displayName"`
	Token       string              `json:"token"`
}

type userResponse struct {
	User        *models.ProfileView `json:"user"`
	DisplayName string              `json:"displayName,omitempty"`
}

func newUserResponse(data *services.UserData) userResponse {
	if data == nil {
		return userResponse{}
	}
	return userResponse{User: models.NewProfileView(data.Profile), DisplayName: data.DisplayName}
}

func (h *APIHandler) SignUp(c *gin.Context) {
	var in services.SignUpInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeBadRequest(c, err)
		return
	}

	result, err := middleware.ClientFrom(c).Users.SignUp(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, authResponse{
		User:        models.NewProfileView(result.Profile),
		DisplayName: result.DisplayName,
		Token:       result.Token,
	})
}

func (h *APIHandler) SignIn(c *gin.Context) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		writeBadRequest(c, err)
		return
	}

	result, err := middleware.ClientFrom(c).Users.SignIn(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{
		User:        models.NewProfileView(result.Profile),
		DisplayName: result.DisplayName,
		Token:       result.Token,
	})
}

func (h *APIHandler) SignOut(c *gin.Context) {
	if err := middleware.ClientFrom(c).Users.SignOut(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *APIHandler) GetMe(c *gin.Context) {
	data, err := middleware.ClientFrom(c).Users.GetCurrentUserData(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(data))
}

func (h *APIHandler) UpdateMe(c *gin.Context) {
	var in struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		writeBadRequest(c, err)
		return
	}

	data, err := middleware.ClientFrom(c).Users.UpdateUserProfile(c.Request.Context(), in.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(data))
}

// GetSession reports the session store's view once its first notification
// has been processed.
func (h *APIHandler) GetSession(c *gin.Context) {
	ctx := c.Request.Context()
	state, err := middleware.ClientFrom(c).Session(ctx).Wait(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "backend", Message: "Session is still loading"})
		return
	}

	resp := gin.H{"loading": state.Loading, "user": nil}
	if state.User != nil {
		resp["user"] = models.NewProfileView(state.User.Profile)
		resp["displayName"] = state.User.Principal.DisplayName
	}
	c.JSON(http.StatusOK, resp)
}

func (h *APIHandler) ListBounties(c *gin.Context) {
	bounties, err := middleware.ClientFrom(c).Bounties.GetAllBounties(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bounties": bounties})
}

func (h *APIHandler) CreateBounty(c *gin.Context) {
	var in services.CreateBountyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeBadRequest(c, err)
		return
	}

	bounty, err := middleware.ClientFrom(c).Bounties.CreateBounty(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bounty)
}

func (h *APIHandler) GetBounty(c *gin.Context) {
	bounty, err := middleware.ClientFrom(c).Bounties.GetBountyByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bounty)
}

func (h *APIHandler) SubmitSolution(c *gin.Context) {
	var in services.SubmitSolutionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeBadRequest(c, err)
		return
	}
	in.BountyID = c.Param("id")

	submission, err := middleware.ClientFrom(c).Submissions.SubmitSolution(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, submission)
}

func (h *APIHandler) GetCompany(c *gin.Context) {
	company, err := middleware.ClientFrom(c).Bounties.GetCompanyByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewProfileView(company))
}

func (h *APIHandler) ListCompanyBounties(c *gin.Context) {
	bounties, err := middleware.ClientFrom(c).Bounties.GetBountiesByCompanyID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bounties": bounties})
}

func (h *APIHandler) ListCompanySubmissions(c *gin.Context) {
	submissions, err := middleware.ClientFrom(c).Submissions.GetSubmissionsForCompany(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": submissions})
}

func (h *APIHandler) GetDeveloper(c *gin.Context) {
	developer, err := middleware.ClientFrom(c).Submissions.GetDeveloperByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewProfileView(developer))
}

func (h *APIHandler) ListDeveloperSubmissions(c *gin.Context) {
	submissions, err := middleware.ClientFrom(c).Submissions.GetSubmissionsByDeveloperID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": submissions})
}

func (h *APIHandler) ListNotifications(c *gin.Context) {
	notifications, err := middleware.ClientFrom(c).Notifications.ListMine(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (h *APIHandler) ListTransactions(c *gin.Context) {
	ledger := middleware.ClientFrom(c).Ledger
	txs := ledger.RecentTransactions(h.now())
	c.JSON(http.StatusOK, gin.H{
		"transactions": txs,
		"summary":      ledger.Summarize(txs),
	})
}
