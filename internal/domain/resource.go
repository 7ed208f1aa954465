package domain

import (
	"time"
)

// ResourceCategory é um tipo string para a enumeração fixa de categorias de recursos.
type ResourceCategory string

// Constantes para as categorias de recursos (enumeração fechada; novas categorias
// exigem migração, nunca são derivadas dos dados).
const (
	CategoryMachinery             ResourceCategory = "machinery"
	CategoryVehicles              ResourceCategory = "vehicles"
	CategoryEquipment             ResourceCategory = "equipment"
	CategoryTools                 ResourceCategory = "tools"
	CategoryConstructionMaterials ResourceCategory = "construction_materials"
	CategoryOther                 ResourceCategory = "other"
)

// Categories retorna todas as categorias válidas, na ordem de exibição.
func Categories() []ResourceCategory {
	return []ResourceCategory{
		CategoryMachinery,
		CategoryVehicles,
		CategoryEquipment,
		CategoryTools,
		CategoryConstructionMaterials,
		CategoryOther,
	}
}

// IsValid informa se a categoria pertence à enumeração.
func (c ResourceCategory) IsValid() bool {
	for _, valid := range Categories() {
		if c == valid {
			return true
		}
	}
	return false
}

// Resource representa um recurso emprestável (máquina, veículo, equipamento)
// pertencente a exatamente um município. A quantidade é o total disponível
// para empréstimo e nunca fica negativa.
type Resource struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Category     ResourceCategory `json:"category"`
	Quantity     int              `json:"quantity"`
	Unit         string           `json:"unit"` // Unidade de medida para exibição (e.g., "Unidades", "Quilos")
	Municipality string           `json:"municipality"`
	LocationHint string           `json:"location_hint"` // Distância/proximidade; apenas informativo, nunca usado em validação
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ResourceFilter define os parâmetros de busca do catálogo.
// Todos os filtros compõem com AND lógico; filtro vazio retorna o catálogo inteiro
// na ordem de inserção.
type ResourceFilter struct {
	TextQuery    string           // Substring no nome, sem diferenciar maiúsculas
	Category     ResourceCategory // Correspondência exata
	Municipality string           // Correspondência exata no município proprietário

	// ExcludeMunicipality restringe a listagem a "recursos de outros municípios":
	// o município do observador é sempre excluído da navegação.
	ExcludeMunicipality string
}

// CategoryCount é a projeção de contagem de recursos por categoria, usada em relatórios.
type CategoryCount struct {
	Category ResourceCategory `json:"category"`
	Count    int              `json:"count"`
}
