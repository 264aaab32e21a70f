package models

// Tokens is the access/refresh pair issued at login.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (t Tokens) Empty() bool {
	return t.Access == "" && t.Refresh == ""
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Ack is a bare confirmation body.
type Ack struct {
	Message string `json:"message"`
}
