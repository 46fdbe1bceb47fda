package models

// User is the public profile. The stored document additionally carries a
// passwordHash field that never leaves the service layer.
type User struct {
	ID         string `json:"id,omitempty"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"` // admin | technician | user
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
	Phone      string `json:"phone,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

// BulkUserRow mirrors the spreadsheet columns accepted by /users/bulk.
type BulkUserRow struct {
	Nome         string `json:"Nome"`
	Email        string `json:"Email"`
	Senha        string `json:"Senha"`
	Papel        string `json:"Papel"`
	Departamento string `json:"Departamento"`
	Cargo        string `json:"Cargo"`
	Telefone     string `json:"Telefone"`
}
