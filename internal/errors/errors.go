package errors

import (
	"fmt"
	"net/http"

	"gomuni/internal/domain"
)

// AppError é a interface central para todos os erros customizados do GoMuni.
// Ela permite que o código externo (Handler) acesse a Categoria e a Mensagem do erro.
type AppError interface {
	Error() string    // Implementa a interface error padrão do Go
	Category() string // Categoria do erro (e.g., "VALIDATION_ERROR", "NOT_FOUND")
	HTTPStatus() int  // Código HTTP sugerido para o Handler
	Unwrap() error    // Permite encapsular erros subjacentes (original error)
}

// --- Tipos de Erro Genéricos ---

// ValidationError representa falhas de validação de dados de entrada.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string    { return fmt.Sprintf("Erro de Validação: %s", e.Msg) }
func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest } // 400
func (e *ValidationError) Unwrap() error    { return nil }

// NewValidationError cria um novo erro de validação.
func NewValidationError(msg string) AppError {
	return &ValidationError{Msg: msg}
}

// NotFoundError representa a ausência de um recurso ou solicitação.
// ID carrega o identificador ausente para mensagens do chamador.
type NotFoundError struct {
	ID  string
	Msg string
}

func (e *NotFoundError) Error() string    { return fmt.Sprintf("Não encontrado: %s", e.Msg) }
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound } // 404
func (e *NotFoundError) Unwrap() error    { return nil }

// NewNotFoundError cria um novo erro de não encontrado, registrando o ID ausente.
func NewNotFoundError(id string, msg string) AppError {
	return &NotFoundError{ID: id, Msg: msg}
}

// UnauthorizedError representa falhas de autenticação (token ausente/inválido,
// credenciais incorretas).
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string    { return fmt.Sprintf("Não autorizado: %s", e.Msg) }
func (e *UnauthorizedError) Category() string { return "UNAUTHORIZED" }
func (e *UnauthorizedError) HTTPStatus() int  { return http.StatusUnauthorized } // 401
func (e *UnauthorizedError) Unwrap() error    { return nil }

// NewUnauthorizedError cria um novo erro de autenticação.
func NewUnauthorizedError(msg string) AppError {
	return &UnauthorizedError{Msg: msg}
}

// ConflictError representa um conflito genérico de regra de negócio (e.g., e-mail duplicado).
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string    { return fmt.Sprintf("Conflito de estado: %s", e.Msg) }
func (e *ConflictError) Category() string { return "CONFLICT" }
func (e *ConflictError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *ConflictError) Unwrap() error    { return nil }

// NewConflictError cria um novo erro de conflito.
func NewConflictError(msg string) AppError {
	return &ConflictError{Msg: msg}
}

// --- Erros do Fluxo de Intercâmbio ---
// Todos são falhas de validação síncronas: nenhum é retentado automaticamente;
// cabe ao chamador corrigir a entrada. Cada um carrega os identificadores e
// valores ofensores para que a camada de apresentação monte uma mensagem
// acionável sem consultar o núcleo novamente.

// InvalidQuantityError indica que a quantidade solicitada não é um inteiro positivo.
type InvalidQuantityError struct {
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("Quantidade inválida: %d. A quantidade solicitada deve ser um inteiro positivo.", e.Quantity)
}
func (e *InvalidQuantityError) Category() string { return "INVALID_QUANTITY" }
func (e *InvalidQuantityError) HTTPStatus() int  { return http.StatusBadRequest } // 400
func (e *InvalidQuantityError) Unwrap() error    { return nil }

// NewInvalidQuantityError cria um novo erro de quantidade inválida.
func NewInvalidQuantityError(quantity int) AppError {
	return &InvalidQuantityError{Quantity: quantity}
}

// QuantityExceedsAvailableError indica que a quantidade solicitada excede a
// disponibilidade atual do recurso. Ocorre na submissão e também na aprovação,
// quando outras aprovações já consumiram o estoque.
type QuantityExceedsAvailableError struct {
	ResourceID string
	Requested  int
	Available  int
}

func (e *QuantityExceedsAvailableError) Error() string {
	return fmt.Sprintf("Quantidade indisponível para o recurso %s: solicitado %d, disponível %d.",
		e.ResourceID, e.Requested, e.Available)
}
func (e *QuantityExceedsAvailableError) Category() string { return "QUANTITY_EXCEEDS_AVAILABLE" }
func (e *QuantityExceedsAvailableError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *QuantityExceedsAvailableError) Unwrap() error    { return nil }

// NewQuantityExceedsAvailableError cria um novo erro de disponibilidade insuficiente.
func NewQuantityExceedsAvailableError(resourceID string, requested, available int) AppError {
	return &QuantityExceedsAvailableError{ResourceID: resourceID, Requested: requested, Available: available}
}

// MissingJustificationError indica que a justificativa da solicitação está vazia.
type MissingJustificationError struct {
	ResourceID string
}

func (e *MissingJustificationError) Error() string {
	return fmt.Sprintf("A justificativa é obrigatória para solicitar o recurso %s.", e.ResourceID)
}
func (e *MissingJustificationError) Category() string { return "MISSING_JUSTIFICATION" }
func (e *MissingJustificationError) HTTPStatus() int  { return http.StatusBadRequest } // 400
func (e *MissingJustificationError) Unwrap() error    { return nil }

// NewMissingJustificationError cria um novo erro de justificativa ausente.
func NewMissingJustificationError(resourceID string) AppError {
	return &MissingJustificationError{ResourceID: resourceID}
}

// DuplicateRequestError indica que o município solicitante já possui uma
// solicitação Pendente para o mesmo recurso.
type DuplicateRequestError struct {
	ResourceID   string
	Municipality string
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("Já existe uma solicitação pendente de %s para o recurso %s.",
		e.Municipality, e.ResourceID)
}
func (e *DuplicateRequestError) Category() string { return "DUPLICATE_REQUEST" }
func (e *DuplicateRequestError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *DuplicateRequestError) Unwrap() error    { return nil }

// NewDuplicateRequestError cria um novo erro de solicitação duplicada.
func NewDuplicateRequestError(resourceID, municipality string) AppError {
	return &DuplicateRequestError{ResourceID: resourceID, Municipality: municipality}
}

// InvalidTransitionError indica uma tentativa de transição a partir de um
// estado terminal. A solicitação permanece exatamente como estava.
type InvalidTransitionError struct {
	RequestID string
	Current   domain.RequestStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("A solicitação %s já foi decidida (status atual: %s) e não pode transicionar novamente.",
		e.RequestID, e.Current)
}
func (e *InvalidTransitionError) Category() string { return "INVALID_TRANSITION" }
func (e *InvalidTransitionError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *InvalidTransitionError) Unwrap() error    { return nil }

// NewInvalidTransitionError cria um novo erro de transição inválida.
func NewInvalidTransitionError(requestID string, current domain.RequestStatus) AppError {
	return &InvalidTransitionError{RequestID: requestID, Current: current}
}

// --- Tipos de Erro de Infraestrutura (Encapsulamento) ---

// InternalError representa falhas inesperadas no servidor, serviço ou repositório.
type InternalError struct {
	Msg string
	Err error // Erro original subjacente (e.g., erro do driver SQL)
}

func (e *InternalError) Error() string    { return fmt.Sprintf("Erro Interno: %s", e.Msg) }
func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *InternalError) Unwrap() error    { return e.Err }

// NewInternalError cria um erro de servidor (para falhas de lógica ou código não esperado).
func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// NewDBError é um atalho para criar um InternalError específico de falhas no DB.
func NewDBError(msg string, err error) AppError {
	return NewInternalError(fmt.Sprintf("%s (DB): %s", msg, err.Error()), err)
}

// --- Helper para o Handler (Tradução Final) ---

// MapToHTTPStatus recebe um erro e o traduz para o código HTTP e corpo de resposta.
func MapToHTTPStatus(err error) (int, string, string) {
	if appErr, ok := err.(AppError); ok {
		// O erro é tipado (ValidationError, DuplicateRequestError, etc.)
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}

	// Erro não tipado (e.g., erro simples de pacote Go que não implementa AppError)
	// Tratar como erro interno genérico.
	return http.StatusInternalServerError, "UNKNOWN_ERROR", "Ocorreu um erro inesperado."
}
