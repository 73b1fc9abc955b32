package shopifysync

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/warehub_backend/config"
	"bitbucket.org/mmdatafocus/warehub_backend/models"
	"bitbucket.org/mmdatafocus/warehub_backend/utils"
)

// shopScope is the tenant context every handler starts from: the resolved
// business and a DB handle carrying it.
type shopScope struct {
	businessId string
	db         *gorm.DB
}

func requireShopScope(c *gin.Context) (*shopScope, bool) {
	businessId, err := resolveBusinessID(c)
	if err != nil {
		respondErr(c, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
	return &shopScope{businessId: businessId, db: config.GetDB().WithContext(ctx)}, true
}

func respondErr(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func (s *shopScope) connection() (*models.IntegrationConnection, error) {
	var conn models.IntegrationConnection
	err := s.db.Where("business_id = ? AND provider = ?", s.businessId, models.IntegrationProviderShopify).
		Take(&conn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conn, nil
}

func StatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := requireShopScope(c)
		if !ok {
			return
		}
		conn, err := scope.connection()
		if err != nil {
			respondErr(c, http.StatusInternalServerError, err.Error())
			return
		}
		if conn == nil {
			c.JSON(http.StatusOK, StatusResponse{
				Connection: ConnectionResponse{Status: models.IntegrationStatusDisconnected},
				Modules:    DefaultModules(),
			})
			return
		}
		c.JSON(http.StatusOK, StatusResponse{
			Connection: ConnectionResponse{
				Status:     conn.Status,
				ShopDomain: conn.StoreId,
				ShopName:   conn.StoreName,
			},
			LastSyncAt:        formatTime(conn.LastSyncAt),
			LastSuccessSyncAt: formatTime(conn.LastSuccessSyncAt),
			Modules:           DecodeModules(conn.SettingsJSON),
		})
	}
}

func ConnectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := requireShopScope(c)
		if !ok {
			return
		}
		var req ConnectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, http.StatusBadRequest, "invalid request")
			return
		}

		shopDomain, err := NormalizeShopDomain(req.ShopDomain)
		if err != nil {
			respondErr(c, http.StatusBadRequest, err.Error())
			return
		}
		if err := ValidateAccessToken(req.AccessToken); err != nil {
			respondErr(c, http.StatusBadRequest, err.Error())
			return
		}

		conn, err := scope.connection()
		if err != nil {
			respondErr(c, http.StatusInternalServerError, err.Error())
			return
		}

		shopName := strings.TrimSpace(req.ShopName)
		if shopName == "" {
			shopName = strings.TrimSuffix(shopDomain, shopDomainSuffix)
		}

		if conn == nil {
			conn = &models.IntegrationConnection{
				BusinessId:    scope.businessId,
				Provider:      models.IntegrationProviderShopify,
				Status:        models.IntegrationStatusConnected,
				AuthType:      "access_token",
				AuthSecretRef: strings.TrimSpace(req.AccessToken),
				StoreId:       shopDomain,
				StoreName:     shopName,
				SettingsJSON:  EncodeModules(DefaultModules()),
				UpdatedAt:     time.Now(),
			}
			if err := scope.db.Create(conn).Error; err != nil {
				respondErr(c, http.StatusInternalServerError, err.Error())
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "shopDomain": shopDomain})
			return
		}

		update := map[string]interface{}{
			"status":          models.IntegrationStatusConnected,
			"auth_type":       "access_token",
			"auth_secret_ref": strings.TrimSpace(req.AccessToken),
			"store_id":        shopDomain,
			"store_name":      shopName,
			"updated_at":      time.Now(),
		}
		if len(conn.SettingsJSON) == 0 {
			update["settings_json"] = EncodeModules(DefaultModules())
		}
		if err := scope.db.Model(conn).Updates(update).Error; err != nil {
			respondErr(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "shopDomain": shopDomain})
	}
}

func DisconnectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := requireShopScope(c)
		if !ok {
			return
		}
		conn, err := scope.connection()
		if err != nil {
			respondErr(c, http.StatusInternalServerError, err.Error())
			return
		}
		if conn == nil {
			c.JSON(http.StatusOK, gin.H{"success": true})
			return
		}
		// the token is dropped, reconnecting requires a fresh one
		if err := scope.db.Model(conn).Updates(map[string]interface{}{
			"status":          models.IntegrationStatusDisconnected,
			"auth_secret_ref": "",
			"updated_at":      time.Now(),
		}).Error; err != nil {
			respondErr(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func UpdateSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := requireShopScope(c)
		if !ok {
			return
		}
		var req UpdateSettingsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, http.StatusBadRequest, "invalid request")
			return
		}
		conn, err := scope.connection()
		if err != nil {
			respondErr(c, http.StatusInternalServerError, err.Error())
			return
		}

		settings := EncodeModules(req.Modules)
		if conn == nil {
			conn = &models.IntegrationConnection{
				BusinessId:   scope.businessId,
				Provider:     models.IntegrationProviderShopify,
				Status:       models.IntegrationStatusDisconnected,
				SettingsJSON: settings,
			}
			if err := scope.db.Create(conn).Error; err != nil {
				respondErr(c, http.StatusInternalServerError, err.Error())
				return
			}
		} else if err := scope.db.Model(conn).Updates(map[string]interface{}{
			"settings_json": settings,
			"updated_at":    time.Now(),
		}).Error; err != nil {
			respondErr(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func TriggerSyncHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := requireShopScope(c)
		if !ok {
			return
		}
		var req TriggerSyncRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, http.StatusBadRequest, "invalid request")
			return
		}
		conn, err := scope.connection()
		if err != nil {
			respondErr(c, http.StatusInternalServerError, err.Error())
			return
		}
		if conn == nil || conn.Status != models.IntegrationStatusConnected {
			respondErr(c, http.StatusConflict, "shopify is not connected")
			return
		}

		modules := req.Modules
		if isEmptyModules(modules) {
			modules = DecodeModules(conn.SettingsJSON)
		}

		run := models.IntegrationSyncRun{
			BusinessId:   scope.businessId,
			ConnectionId: conn.ID,
			Provider:     models.IntegrationProviderShopify,
			Status:       models.SyncRunStatusQueued,
			TriggeredBy:  models.SyncTriggeredManual,
			ModulesJSON:  EncodeModules(modules),
		}
		if err := scope.db.Create(&run).Error; err != nil {
			respondErr(c, http.StatusInternalServerError, err.Error())
			return
		}
		_ = PublishSyncRun(c.Request.Context(), run.ID, scope.businessId, conn.ID)
		c.JSON(http.StatusOK, gin.H{"id": run.ID})
	}
}

func SyncHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := requireShopScope(c)
		if !ok {
			return
		}
		limit := 20
		if v := strings.TrimSpace(c.Query("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}

		var runs []models.IntegrationSyncRun
		if err := scope.db.
			Where("business_id = ? AND provider = ?", scope.businessId, models.IntegrationProviderShopify).
			Order("id desc").
			Limit(limit).
			Find(&runs).Error; err != nil {
			respondErr(c, http.StatusInternalServerError, err.Error())
			return
		}

		items := make([]SyncRunResponse, 0, len(runs))
		for _, run := range runs {
			items = append(items, mapRunToResponse(run))
		}
		c.JSON(http.StatusOK, SyncHistoryResponse{Items: items})
	}
}

func SyncRunDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := requireShopScope(c)
		if !ok {
			return
		}
		run, ok := scope.syncRunParam(c)
		if !ok {
			return
		}

		var errs []models.IntegrationSyncError
		if err := scope.db.Where("sync_run_id = ?", run.ID).Order("id desc").Find(&errs).Error; err != nil {
			respondErr(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, SyncRunDetailResponse{
			SyncRunResponse: mapRunToResponse(*run),
			Errors:          mapErrors(errs),
		})
	}
}

func RetrySyncRunHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := requireShopScope(c)
		if !ok {
			return
		}
		run, ok := scope.syncRunParam(c)
		if !ok {
			return
		}

		retry := models.IntegrationSyncRun{
			BusinessId:   scope.businessId,
			ConnectionId: run.ConnectionId,
			Provider:     run.Provider,
			Status:       models.SyncRunStatusQueued,
			TriggeredBy:  models.SyncTriggeredRetry,
			ModulesJSON:  run.ModulesJSON,
			ParentRunId:  &run.ID,
		}
		if err := scope.db.Create(&retry).Error; err != nil {
			respondErr(c, http.StatusInternalServerError, err.Error())
			return
		}
		_ = PublishSyncRun(c.Request.Context(), retry.ID, scope.businessId, run.ConnectionId)
		c.JSON(http.StatusOK, gin.H{"id": retry.ID})
	}
}

// syncRunParam loads the :id run inside the tenant scope, writing the error
// response itself when it fails.
func (s *shopScope) syncRunParam(c *gin.Context) (*models.IntegrationSyncRun, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondErr(c, http.StatusBadRequest, "invalid run id")
		return nil, false
	}
	var run models.IntegrationSyncRun
	if err := s.db.Where("id = ? AND business_id = ?", id, s.businessId).Take(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondErr(c, http.StatusNotFound, "not found")
			return nil, false
		}
		respondErr(c, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return &run, true
}

// resolveBusinessID maps the session user to a business. Admin sessions may
// act on another business via the business_id query param; everyone else is
// pinned to their own.
func resolveBusinessID(c *gin.Context) (string, error) {
	username, ok := utils.GetUsernameFromContext(c.Request.Context())
	if !ok || strings.TrimSpace(username) == "" {
		return "", errors.New("unauthorized")
	}

	user, err := loadUserByUsername(c.Request.Context(), username)
	if err != nil {
		return "", err
	}

	if requested := strings.TrimSpace(c.Query("business_id")); requested != "" {
		if user.Role != models.UserRoleAdmin && user.BusinessId != requested {
			return "", errors.New("unauthorized")
		}
		return requested, nil
	}

	businessId := strings.TrimSpace(user.BusinessId)
	if businessId == "" {
		return "", errors.New("business_id is required")
	}
	return businessId, nil
}

func loadUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}
	if exists {
		return &user, nil
	}
	db := config.GetDB()
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, errors.New("unauthorized")
	}
	return &user, nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func mapRunToResponse(run models.IntegrationSyncRun) SyncRunResponse {
	return SyncRunResponse{
		ID:            run.ID,
		Status:        run.Status,
		StartedAt:     formatTime(run.StartedAt),
		FinishedAt:    formatTime(run.FinishedAt),
		DurationMs:    run.DurationMs,
		RecordsSynced: run.RecordsSynced,
		ErrorCount:    run.ErrorCount,
		TriggeredBy:   run.TriggeredBy,
	}
}

func mapErrors(errorsList []models.IntegrationSyncError) []SyncErrorResponse {
	out := make([]SyncErrorResponse, 0, len(errorsList))
	for _, errItem := range errorsList {
		out = append(out, SyncErrorResponse{
			ID:         errItem.ID,
			EntityType: errItem.EntityType,
			ExternalId: errItem.ExternalId,
			Message:    errItem.Message,
			Retryable:  errItem.Retryable,
		})
	}
	return out
}

func isEmptyModules(mod SyncModules) bool {
	return !mod.Products && !mod.Customers && !mod.Orders
}
