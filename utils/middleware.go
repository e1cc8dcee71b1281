package utils

import (
	"github.com/E-ugine/apartment-mgmt-system-backend/models"
	"github.com/E-ugine/apartment-mgmt-system-backend/storage"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// ActorMiddleware loads the authenticated user behind the access token and
// stores it in the request context. Every downstream authorization decision
// takes this actor explicitly, there is no ambient current-user state.
func ActorMiddleware(ctx iris.Context) {
	claims := jwt.Get(ctx).(*AccessToken)

	var actor models.User
	if err := storage.DB.First(&actor, claims.ID).Error; err != nil {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}
	if !actor.Active() {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	ctx.Values().Set("actor", &actor)
	ctx.Next()
}

// Actor returns the user loaded by ActorMiddleware.
func Actor(ctx iris.Context) *models.User {
	if v := ctx.Values().Get("actor"); v != nil {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// RequireRoles gates a route to the given roles. Unknown roles are denied.
func RequireRoles(roles ...string) iris.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(ctx iris.Context) {
		claims := jwt.Get(ctx).(*AccessToken)
		if _, ok := allowed[claims.Role]; !ok {
			CreateForbidden(ctx)
			return
		}
		ctx.Next()
	}
}
