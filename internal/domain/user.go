package domain

import "time"

// User representa um funcionário municipal no sistema.
// O município do funcionário define o escopo de tudo que ele vê e faz:
// navega recursos dos OUTROS municípios e decide solicitações sobre os do SEU.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Oculta o hash da senha no JSON de resposta
	Municipality string    `json:"municipality"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRole é um tipo string para representar o papel do usuário no sistema.
type UserRole string

// Constantes para os papéis de usuário.
const (
	RoleAdmin    UserRole = "admin"
	RoleEmployee UserRole = "employee"
)

// UserRegistration representa o payload de entrada para o registro.
type UserRegistration struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Municipality string `json:"municipality"`
}
