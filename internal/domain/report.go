package domain

// StatusCounts agrega o livro de solicitações por estado do ciclo de vida.
type StatusCounts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// ReportSummary é a projeção somente-leitura consumida pela camada de relatórios.
// É computada sob demanda a partir de snapshots do catálogo e do livro de
// solicitações; nunca é armazenada de forma redundante.
type ReportSummary struct {
	TotalResources      int             `json:"total_resources"`
	ResourcesByCategory []CategoryCount `json:"resources_by_category"`
	RequestsByStatus    StatusCounts    `json:"requests_by_status"`
	DecidedRequests     int             `json:"decided_requests"`
	ApprovalRate        float64         `json:"approval_rate"` // Aprovadas / decididas; 0 quando nada foi decidido
}
