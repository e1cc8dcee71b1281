package main

import (
	"fmt"
	"log"
	"os"

	"github.com/E-ugine/apartment-mgmt-system-backend/models"
	"github.com/E-ugine/apartment-mgmt-system-backend/routes"
	"github.com/E-ugine/apartment-mgmt-system-backend/storage"
	"github.com/E-ugine/apartment-mgmt-system-backend/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	storage.InitializeDB()
	storage.InitializeRedis()

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	// JWT verifiers. Both read tokens from the Authorization header or the
	// auth cookies, so browser and API clients work the same way.
	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifier.Extractors = append(accessTokenVerifier.Extractors, func(ctx iris.Context) string {
		return ctx.GetCookie(utils.AccessTokenCookie)
	})
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors,
		func(ctx iris.Context) string {
			return ctx.GetCookie(utils.RefreshTokenCookie)
		},
		func(ctx iris.Context) string {
			var tokenInput utils.RefreshTokenInput
			err := ctx.ReadJSON(&tokenInput)
			if err != nil {
				return ""
			}
			return tokenInput.RefreshToken
		})

	authenticated := func(handlers ...iris.Handler) []iris.Handler {
		return append([]iris.Handler{accessTokenVerifierMiddleware, utils.ActorMiddleware}, handlers...)
	}

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	auth := app.Party("/api/auth")
	{
		auth.Post("/register", accessTokenVerifierMiddleware, utils.ActorMiddleware, routes.Register)
		auth.Post("/login", routes.Login)
		auth.Post("/logout", routes.Logout)
		auth.Post("/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)
	}

	profile := app.Party("/api/profile", authenticated()...)
	{
		profile.Get("/", routes.GetProfile)
		profile.Patch("/", routes.UpdateProfile)
	}

	property := app.Party("/api/properties", authenticated()...)
	{
		property.Get("/", routes.ListProperties)
		property.Post("/", routes.CreateProperty)
		property.Get("/{id:uint}", routes.GetProperty)
		property.Patch("/{id:uint}", routes.UpdateProperty)
		property.Delete("/{id:uint}", routes.DeleteProperty)
	}

	unit := app.Party("/api/units", authenticated()...)
	{
		unit.Get("/", routes.ListUnits)
		unit.Post("/", routes.CreateUnit)
		unit.Get("/available", routes.ListAvailableUnits)
		unit.Get("/{id:uint}", routes.GetUnit)
		unit.Patch("/{id:uint}", routes.UpdateUnit)
		unit.Delete("/{id:uint}", routes.DeleteUnit)
		unit.Post("/{id:uint}/assign-tenant", routes.AssignTenant)
	}

	payment := app.Party("/api/payments", authenticated()...)
	{
		payment.Get("/", routes.ListPayments)
		payment.Post("/", routes.CreatePayment)
		payment.Get("/summary", utils.RequireRoles(models.RoleLandlord, models.RoleCaretaker), routes.PaymentSummary)
		payment.Get("/monthly-report", utils.RequireRoles(models.RoleLandlord), routes.MonthlyReport)
		payment.Get("/{id:uint}", routes.GetPayment)
	}

	notice := app.Party("/api/notices", authenticated()...)
	{
		notice.Get("/", routes.ListNotices)
		notice.Post("/", routes.CreateNotice)
		notice.Get("/feed", utils.RequireRoles(models.RoleTenant), routes.NoticeFeed)
		notice.Get("/stats", routes.NoticeStats)
		notice.Get("/{id:uint}", routes.GetNotice)
		notice.Patch("/{id:uint}", routes.UpdateNotice)
		notice.Delete("/{id:uint}", routes.DeleteNotice)
		notice.Post("/{id:uint}/read", routes.MarkNoticeAsRead)
		notice.Get("/{id:uint}/read-report", routes.NoticeReadReport)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
