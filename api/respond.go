package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/warehub_backend/utils"
	"bitbucket.org/mmdatafocus/warehub_backend/workflow"
)

func abortError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func abortBadRequest(c *gin.Context, err error) {
	abortError(c, http.StatusBadRequest, err.Error())
}

// requireSession rejects requests that carry no session identity.
func requireSession(c *gin.Context) bool {
	if _, ok := utils.GetUsernameFromContext(c.Request.Context()); !ok {
		abortError(c, http.StatusUnauthorized, "unauthorized")
		return false
	}
	return true
}

func requireAdmin(c *gin.Context) bool {
	if !requireSession(c) {
		return false
	}
	if isAdmin, ok := utils.GetIsAdminFromContext(c.Request.Context()); !ok || !isAdmin {
		abortError(c, http.StatusUnauthorized, "unauthorized")
		return false
	}
	return true
}

func idParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		abortError(c, http.StatusBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string) (*int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		abortError(c, http.StatusBadRequest, name+" must be an integer")
		return nil, false
	}
	return &n, true
}

func strQuery(c *gin.Context, name string) *string {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	return &raw
}

// requestKey reads the per-attempt idempotency key. Callers generate a fresh
// key per attempt and reuse it only when retrying that same attempt.
func requestKey(c *gin.Context) string {
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		return key
	}
	return c.Query("request_key")
}

// procedureStatus maps gateway error codes onto HTTP statuses.
func procedureStatus(result workflow.Result) int {
	if result.IsOk() {
		return http.StatusOK
	}
	if result.Error == nil {
		return http.StatusInternalServerError
	}
	switch result.Error.Code {
	case workflow.ErrCodeValidation:
		return http.StatusBadRequest
	case workflow.ErrCodeNotFound:
		return http.StatusNotFound
	case workflow.ErrCodeConflict, workflow.ErrCodeInsufficient, workflow.ErrCodeReconciliation:
		return http.StatusConflict
	case workflow.ErrCodeInProgress:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeResult(c *gin.Context, result workflow.Result) {
	c.JSON(procedureStatus(result), result)
}
