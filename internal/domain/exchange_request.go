package domain

import "time"

// RequestStatus é um tipo string para o ciclo de vida de uma solicitação de empréstimo.
type RequestStatus string

// Constantes para os estados do ciclo de vida. Pending é o único estado
// não-terminal: uma solicitação transiciona exatamente uma vez.
const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// IsValid informa se o status pertence à enumeração.
func (s RequestStatus) IsValid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// IsTerminal informa se o status encerra o ciclo de vida da solicitação.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// DecisionOutcome é o desfecho escolhido pelo município proprietário.
type DecisionOutcome string

const (
	OutcomeApprove DecisionOutcome = "approve"
	OutcomeReject  DecisionOutcome = "reject"
)

// ExchangeRequest representa a solicitação de um município para tomar emprestada
// uma quantidade de um recurso de outro município. É criada apenas via submissão
// bem-sucedida, nunca é deletada nem reaberta.
type ExchangeRequest struct {
	ID                     string        `json:"id"`
	ResourceID             string        `json:"resource_id"`
	RequestingMunicipality string        `json:"requesting_municipality"`
	RequesterID            string        `json:"requester_id"`
	Quantity               int           `json:"quantity"`
	Justification          string        `json:"justification"`
	Status                 RequestStatus `json:"status"`
	SubmittedAt            time.Time     `json:"submitted_at"`
	DecidedAt              *time.Time    `json:"decided_at,omitempty"`

	// Campos de junção para exibição (nem sempre populados).
	ResourceName      string `json:"resource_name,omitempty"`
	OwnerMunicipality string `json:"owner_municipality,omitempty"`
}

// SubmitRequest é o payload de entrada para a submissão de uma solicitação.
type SubmitRequest struct {
	ResourceID    string `json:"resource_id"`
	Quantity      int    `json:"quantity"`
	Justification string `json:"justification"`
}

// DecisionRequest é o payload de entrada para a decisão de uma solicitação.
type DecisionRequest struct {
	Outcome DecisionOutcome `json:"outcome"`
}

// RequestFilter define os parâmetros de consulta do livro de solicitações.
type RequestFilter struct {
	Status                 RequestStatus // Correspondência exata, vazio = todos
	RequestingMunicipality string        // Solicitações enviadas por este município
	OwnerMunicipality      string        // Solicitações sobre recursos deste município
}

// Requester identifica o funcionário municipal autenticado que executa uma
// operação do fluxo de intercâmbio. A identidade é sempre explícita (extraída
// do token), nunca um estado global.
type Requester struct {
	EmployeeID   string
	Municipality string
}
