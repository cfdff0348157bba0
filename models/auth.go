package models

// TokenResponse is returned after a successful login
type TokenResponse struct {
	Token string          `json:"token"`
	User  CaseParticipant `json:"user"`
}
