package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/warehub_backend/config"
	"bitbucket.org/mmdatafocus/warehub_backend/models"
	"bitbucket.org/mmdatafocus/warehub_backend/utils"
)

// IdentityMiddleware resolves the session user (SessionMiddleware put the
// username in context) and attaches business id, user id and display name.
// Requests without a session pass through untouched; handlers that need an
// identity reject them.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		username, ok := utils.GetUsernameFromContext(ctx)
		if !ok || username == "" {
			c.Next()
			return
		}

		var user models.User
		exists, err := config.GetRedisObject("User:"+username, &user)
		if err != nil || !exists {
			db := config.GetDB()
			if db == nil {
				c.Next()
				return
			}
			if err := db.WithContext(ctx).Model(&models.User{}).
				Where("username = ?", username).Take(&user).Error; err != nil {
				c.Next()
				return
			}
			_ = config.SetRedisObject("User:"+username, user, 24*time.Hour)
		}

		ctx = utils.SetUserIdInContext(ctx, user.ID)
		ctx = utils.SetUserNameInContext(ctx, user.Name)
		if user.BusinessId != "" {
			ctx = utils.SetBusinessIdInContext(ctx, user.BusinessId)
		}
		ctx = utils.SetIsAdminInContext(ctx, user.Role == models.UserRoleAdmin)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
