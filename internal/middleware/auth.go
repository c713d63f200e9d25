package middleware

import (
	"strconv"
	"strings"

	"github.com/koolranch/flat-earth-training/internal/config"
	"github.com/koolranch/flat-earth-training/internal/model"
	"github.com/koolranch/flat-earth-training/internal/repository"
	"github.com/koolranch/flat-earth-training/internal/util"

	"github.com/gin-gonic/gin"
)

func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("user", claims)
		c.Next()
	}
}

// StaffMiddleware guards site-level authoring routes.
func StaffMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		if claims == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}
		if !claims.Staff {
			util.Forbidden(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireOrgPermission resolves the caller's role inside the :orgId
// org and checks it against the capability table. Unknown roles and
// missing memberships both deny.
func RequireOrgPermission(orgRepo *repository.OrganizationRepository, perm model.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		if claims == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		orgID, err := strconv.ParseUint(c.Param("orgId"), 10, 32)
		if err != nil {
			util.BadRequest(c, "invalid organization id")
			c.Abort()
			return
		}

		membership, err := orgRepo.FindMembership(nil, uint(orgID), claims.UserID)
		if err != nil {
			util.LogInternalError(c, err)
			c.Abort()
			return
		}
		if membership == nil || !model.Can(membership.Role, perm) {
			util.Forbidden(c, util.ErrPermissionDenied.Error())
			c.Abort()
			return
		}

		c.Set("orgID", uint(orgID))
		c.Set("orgRole", membership.Role)
		c.Next()
	}
}

type UserActivityRepo interface {
	UpdateLastSeen(userID uint) error
}

func ActivityMiddleware(repo UserActivityRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		if claims != nil {
			// Async so the request path never waits on this write.
			go repo.UpdateLastSeen(claims.UserID)
		}
		c.Next()
	}
}
