package domain

// ErrorResponse é a estrutura padronizada para respostas de erro na API.
// @Description Estrutura padronizada para respostas de erro na API.
type ErrorResponse struct {
	Code     int    `json:"code" example:"400"`
	Category string `json:"category" example:"INVALID_QUANTITY"`
	Message  string `json:"message" example:"A quantidade solicitada deve ser um inteiro positivo."`
}
