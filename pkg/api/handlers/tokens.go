package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/lakegate/lakegate/pkg/api/auth"
)

// TokenHandler exchanges refresh tokens for fresh token pairs. Initial
// tokens are minted out of band with the token CLI command; the identity
// provider in front of LakeGate owns passwords.
type TokenHandler struct {
	jwtService *auth.JWTService
}

// NewTokenHandler creates a new token handler.
func NewTokenHandler(jwtService *auth.JWTService) *TokenHandler {
	return &TokenHandler{jwtService: jwtService}
}

// RefreshRequest is the body of POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /v1/auth/refresh. Unauthenticated: the refresh
// token itself is the credential.
func (h *TokenHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		BadRequest(w, "refresh_token is required")
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		Unauthorized(w, "invalid or expired refresh token")
		return
	}

	pair, err := h.jwtService.GenerateTokenPair(auth.Identity{
		Username: claims.Username,
		Groups:   claims.Groups,
		Role:     claims.Role,
	})
	if err != nil {
		InternalServerError(w, "failed to generate tokens")
		return
	}

	WriteJSONOK(w, pair)
}
