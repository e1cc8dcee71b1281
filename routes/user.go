package routes

import (
	"strings"

	"github.com/E-ugine/apartment-mgmt-system-backend/models"
	"github.com/E-ugine/apartment-mgmt-system-backend/storage"
	"github.com/E-ugine/apartment-mgmt-system-backend/utils"
	"github.com/kataras/iris/v12"
	"golang.org/x/crypto/bcrypt"
)

// Register creates accounts under the role workflow: caretakers can only be
// created by landlords, landlords and agents are seeded out of band, and
// any authenticated staff account can create tenants. The new user logs in
// separately, no tokens are issued here.
func Register(ctx iris.Context) {
	actor := utils.Actor(ctx)
	if actor == nil {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}

	var userInput RegisterUserInput
	err := ctx.ReadJSON(&userInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	role := userInput.Role
	if role == "" {
		role = models.RoleTenant
	}

	switch role {
	case models.RoleCaretaker:
		if !actor.IsLandlord() {
			utils.CreateError(iris.StatusForbidden, "Forbidden",
				"Only landlords can create caretaker accounts", ctx)
			return
		}
	case models.RoleLandlord, models.RoleAgent:
		utils.CreateError(iris.StatusForbidden, "Forbidden",
			"Landlords and agents must be created by the system admin", ctx)
		return
	case models.RoleTenant:
	default:
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Unknown role", ctx)
		return
	}

	var newUser models.User
	userExists, userExistsErr := getAndHandleUserExists(&newUser, userInput.Email)
	if userExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if userExists {
		utils.CreateEmailAlreadyRegistered(ctx)
		return
	}

	hashedPassword, hashErr := hashAndSaltPassword(userInput.Password)
	if hashErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	newUser = models.User{
		FirstName: userInput.FirstName,
		LastName:  userInput.LastName,
		Email:     strings.ToLower(userInput.Email),
		Phone:     userInput.Phone,
		Password:  hashedPassword,
		Role:      role,
	}

	if err := storage.DB.Create(&newUser).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "user.register", "user", newUser.ID, nil, newUser)

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{
		"user":    newUser,
		"message": strings.Title(role) + " account created successfully",
	})
}

func Login(ctx iris.Context) {
	var userInput LoginUserInput
	err := ctx.ReadJSON(&userInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var existingUser models.User
	errorMsg := "Invalid email or password."
	userExists, userExistsErr := getAndHandleUserExists(&existingUser, userInput.Email)
	if userExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if !userExists {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	if !existingUser.Active() {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", "Account is deactivated.", ctx)
		return
	}

	passwordErr := bcrypt.CompareHashAndPassword([]byte(existingUser.Password), []byte(userInput.Password))
	if passwordErr != nil {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	returnUser(existingUser, ctx)
}

// Logout clears the auth cookies and revokes the refresh token. Tokens live
// in httpOnly cookies, so the browser cannot delete them itself.
func Logout(ctx iris.Context) {
	if refresh := ctx.GetCookie(utils.RefreshTokenCookie); refresh != "" {
		utils.RevokeRefreshToken(refresh)
	}
	utils.ClearAuthCookies(ctx)
	ctx.JSON(iris.Map{"message": "Logout successful"})
}

func GetProfile(ctx iris.Context) {
	actor := utils.Actor(ctx)
	if actor == nil {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}
	ctx.JSON(actor)
}

func UpdateProfile(ctx iris.Context) {
	actor := utils.Actor(ctx)
	if actor == nil {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}

	var input UpdateProfileInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	// Role is immutable through the API
	if input.FirstName != "" {
		actor.FirstName = input.FirstName
	}
	if input.LastName != "" {
		actor.LastName = input.LastName
	}
	if input.Phone != "" {
		actor.Phone = input.Phone
	}

	if err := storage.DB.Model(actor).
		Select("first_name", "last_name", "phone").
		Updates(actor).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(actor)
}

func returnUser(user models.User, ctx iris.Context) {
	tokenPair, tokenErr := utils.CreateTokenPair(user.ID)
	if tokenErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.SetAuthCookies(ctx, tokenPair)
	ctx.JSON(iris.Map{
		"ID":           user.ID,
		"firstName":    user.FirstName,
		"lastName":     user.LastName,
		"email":        user.Email,
		"phone":        user.Phone,
		"role":         user.Role,
		"isVerified":   user.IsVerified,
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}

func getAndHandleUserExists(user *models.User, email string) (exists bool, err error) {
	userExistsQuery := storage.DB.Where("email = ?", strings.ToLower(email)).Limit(1).Find(&user)

	if userExistsQuery.Error != nil {
		return false, userExistsQuery.Error
	}

	return userExistsQuery.RowsAffected > 0, nil
}

func hashAndSaltPassword(password string) (hashedPassword string, err error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(bytes), nil
}

type RegisterUserInput struct {
	FirstName string `json:"firstName" validate:"required,max=256"`
	LastName  string `json:"lastName" validate:"required,max=256"`
	Email     string `json:"email" validate:"required,max=256,email"`
	Phone     string `json:"phone" validate:"max=15"`
	Password  string `json:"password" validate:"required,min=8,max=256"`
	Role      string `json:"role" validate:"omitempty,oneof=landlord caretaker tenant agent"`
}

type LoginUserInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileInput struct {
	FirstName string `json:"firstName" validate:"omitempty,max=256"`
	LastName  string `json:"lastName" validate:"omitempty,max=256"`
	Phone     string `json:"phone" validate:"omitempty,max=15"`
}
