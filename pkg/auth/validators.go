package auth

type RegisterPayload struct {
	FirstName string `json:"first_name" mod:"trim" validate:"required,max=100"`
	LastName  string `json:"last_name" mod:"trim" validate:"required,max=100"`
	Email     string `json:"email" mod:"trim,lcase" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72,password"`
}

type AuthenticatePayload struct {
	Email    string `json:"email" mod:"trim,lcase" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type ActivateQuery struct {
	Token string `query:"token" json:"token" validate:"required,len=6,numeric"`
}

type AuthenticateResponse struct {
	Token string `json:"token"`
}

// MeResponse represents the current user response.
type MeResponse struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	RoleName  string `json:"role_name"`
}
