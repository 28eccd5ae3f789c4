package api

import (
	"errors"
	"net/http"
	"time"

	db "github.com/florelle/veiling-BE/internal/db/sqlc"
	"github.com/florelle/veiling-BE/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type createUserRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"omitempty,oneof=buyer seller"`
}

// @Summary		Register a new account
// @Description	Creates a buyer or seller account with email and password
// @Tags			auth
// @Accept			json
// @Produce		json
// @Param			request	body		createUserRequest	true	"Account details"
// @Success		201		{object}	db.User
// @Failure		409		{object}	object	"Email already registered"
// @Router			/v1/users [post]
func (server *Server) createUser(ctx *gin.Context) {
	req := new(createUserRequest)

	if err := ctx.ShouldBindJSON(req); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	hashedPassword, err := util.HashPassword(req.Password)
	if err != nil {
		log.Err(err).Msg("failed to hash password")
		ctx.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	role := req.Role
	if role == "" {
		role = "buyer"
	}

	user, err := server.dbStore.CreateUser(ctx, db.CreateUserParams{
		ID:             uuid.NewString(),
		FullName:       req.FullName,
		Email:          req.Email,
		HashedPassword: hashedPassword,
		Role:           role,
	})
	if err != nil {
		if errCode, _ := db.ErrorDescription(err); errCode == db.UniqueViolationCode {
			err = errors.New("email is already registered")
			ctx.JSON(http.StatusConflict, errorResponse(err))
			return
		}

		log.Err(err).Msg("failed to create user")
		ctx.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	ctx.JSON(http.StatusCreated, user)
}

type loginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginUserResponse struct {
	AccessToken          string    `json:"access_token"`
	AccessTokenExpiresAt time.Time `json:"access_token_expires_at"`
	User                 db.User   `json:"user"`
}

// @Summary		Log in with email and password
// @Tags			auth
// @Accept			json
// @Produce		json
// @Param			request	body		loginUserRequest	true	"Credentials"
// @Success		200		{object}	loginUserResponse
// @Failure		401		{object}	object	"Incorrect password"
// @Router			/v1/auth/login [post]
func (server *Server) loginUser(ctx *gin.Context) {
	req := new(loginUserRequest)

	if err := ctx.ShouldBindJSON(req); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	user, err := server.dbStore.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, db.ErrRecordNotFound) {
			err = errors.New("email not found")
			ctx.JSON(http.StatusNotFound, errorResponse(err))
			return
		}

		log.Err(err).Msg("failed to find user")
		ctx.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	err = util.CheckPassword(req.Password, user.HashedPassword)
	if err != nil {
		err = errors.New("incorrect password")
		ctx.JSON(http.StatusUnauthorized, errorResponse(err))
		return
	}

	accessToken, accessPayload, err := server.tokenMaker.CreateToken(user.ID, server.config.AccessTokenDuration)
	if err != nil {
		log.Err(err).Msg("failed to create access token")
		ctx.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	resp := loginUserResponse{
		AccessToken:          accessToken,
		AccessTokenExpiresAt: accessPayload.ExpiresAt.Time,
		User:                 user,
	}
	ctx.JSON(http.StatusOK, resp)
}
