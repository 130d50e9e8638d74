package models

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	Device   string `json:"device,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Device   string `json:"device,omitempty"`
}

// TokenPair carries both credentials inside the service. The refresh secret
// never appears in a JSON body; the controller moves it into an HTTP-only
// cookie before responding.
type TokenPair struct {
	AccessToken   string
	RefreshSecret string
}

type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
