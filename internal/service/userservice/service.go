package userservice

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"gomuni/internal/domain"
	apperror "gomuni/internal/errors"
	"gomuni/internal/pkg/logger"
	"gomuni/internal/pkg/token"
)

// UserRepository define o contrato de persistência de funcionários municipais.
type UserRepository interface {
	Save(ctx context.Context, user domain.User) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
}

// Service encapsula a lógica de registro e autenticação de funcionários.
type Service struct {
	repo     UserRepository
	tokenSvc token.TokenService
	logger   logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Usuários.
func NewService(repo UserRepository, tokenSvc token.TokenService, logger logger.Logger) *Service {
	return &Service{repo: repo, tokenSvc: tokenSvc, logger: logger}
}

// Register valida os dados, gera o hash da senha e salva o funcionário com o
// município de lotação. Todo registro entra como RoleEmployee; promoção a
// admin é operação manual no banco.
func (s *Service) Register(ctx context.Context, input domain.UserRegistration) (domain.User, error) {
	s.logger.Debug("Iniciando registro de funcionário no serviço.", map[string]interface{}{
		"email":        input.Email,
		"municipality": input.Municipality,
	})

	if strings.TrimSpace(input.Email) == "" || !strings.Contains(input.Email, "@") {
		return domain.User{}, apperror.NewValidationError("O e-mail fornecido é inválido.")
	}
	if len(input.Password) < 8 {
		return domain.User{}, apperror.NewValidationError("A senha deve ter pelo menos 8 caracteres.")
	}
	if strings.TrimSpace(input.Municipality) == "" {
		return domain.User{}, apperror.NewValidationError("O município de lotação é obrigatório.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("Falha ao gerar o hash da senha.", err)
		return domain.User{}, apperror.NewInternalError("Falha ao processar a senha.", err)
	}

	user := domain.User{
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: string(hash),
		Municipality: strings.TrimSpace(input.Municipality),
		Role:         domain.RoleEmployee,
	}

	created, err := s.repo.Save(ctx, user)
	if err != nil {
		return domain.User{}, err
	}

	s.logger.Info("Funcionário registrado com sucesso.", map[string]interface{}{
		"user_id":      created.ID,
		"municipality": created.Municipality,
	})
	return created, nil
}

// Login autentica o funcionário e emite um JWT carregando o município, que é a
// identidade usada por todas as operações do fluxo de intercâmbio.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		// Não revelar se o e-mail existe ou não.
		if _, ok := err.(*apperror.NotFoundError); ok {
			return "", apperror.NewUnauthorizedError("Credenciais inválidas.")
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", apperror.NewUnauthorizedError("Credenciais inválidas.")
	}

	tokenString, err := s.tokenSvc.GenerateToken(user.ID, user.Municipality, string(user.Role))
	if err != nil {
		s.logger.Error("Falha ao gerar o token de acesso.", err)
		return "", apperror.NewInternalError("Falha ao gerar o token de acesso.", err)
	}

	s.logger.Info("Login efetuado com sucesso.", map[string]interface{}{
		"user_id":      user.ID,
		"municipality": user.Municipality,
	})
	return tokenString, nil
}
