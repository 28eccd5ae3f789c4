package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/florelle/veiling-BE/internal/token"
	"github.com/gin-gonic/gin"
)

const (
	authorizationHeaderKey  = "Authorization"
	authorizationTypeBearer = "Bearer"
	authorizationPayloadKey = "authPayload"
)

// authMiddleware authenticates the user and stores the verified token
// payload on the request context.
func authMiddleware(tokenMaker token.Maker) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		accessToken, err := extractBearerToken(ctx.GetHeader(authorizationHeaderKey))
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(err))
			return
		}

		payload, err := tokenMaker.VerifyToken(accessToken)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(err))
			return
		}

		ctx.Set(authorizationPayloadKey, payload)
		ctx.Next()
	}
}

func extractBearerToken(authorizationHeader string) (string, error) {
	if authorizationHeader == "" {
		return "", errors.New("authorization header is not provided")
	}

	fields := strings.Fields(authorizationHeader)
	if len(fields) != 2 {
		return "", errors.New("invalid authorization header format")
	}
	if fields[0] != authorizationTypeBearer {
		return "", errors.New("unsupported authorization header type")
	}

	return fields[1], nil
}

// authenticatedUserID returns the user id carried in the verified token.
func authenticatedUserID(ctx *gin.Context) string {
	payload := ctx.MustGet(authorizationPayloadKey).(*token.Payload)
	return payload.Subject
}
