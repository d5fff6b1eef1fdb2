package domain

type ModelID string

const (
	ModelFluxSchnell ModelID = "flux.schnell"
	ModelFluxKreaDev ModelID = "flux.krea-dev"
	ModelFluxPro     ModelID = "flux.pro"

	// ModelCustom is the catalog entry that lets the user type any model ID.
	ModelCustom ModelID = "custom"

	DefaultCustomIcon = "🛠️"
)

// ModelInfo describes a model shown in the model picker.
type ModelInfo struct {
	ID          ModelID `json:"id"                     yaml:"id"`
	Name        string  `json:"name"                   yaml:"name"`
	Description string  `json:"description"            yaml:"description"`
	Reliability string  `json:"reliability,omitempty"  yaml:"reliability"`
	Icon        string  `json:"icon"                   yaml:"icon"`
}

// Label returns the picker label, icon first.
func (m ModelInfo) Label() string {
	return m.Icon + " " + m.Name
}

// Catalog is the ordered list of built-in models.
var Catalog = []ModelInfo{
	{ID: ModelFluxSchnell, Name: "Flux Schnell", Description: "Fastest and most stable", Reliability: "high", Icon: "⚡"},
	{ID: ModelFluxKreaDev, Name: "Flux Krea Dev", Description: "Creative development", Reliability: "medium", Icon: "🎨"},
	{ID: ModelFluxPro, Name: "Flux Pro", Description: "Flagship quality", Reliability: "medium", Icon: "👑"},
	{ID: ModelCustom, Name: "Custom model", Description: "Any model ID", Reliability: "unknown", Icon: DefaultCustomIcon},
}

// LookupModel returns the catalog entry for id.
func LookupModel(id ModelID) (ModelInfo, bool) {
	for _, m := range Catalog {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// NewCustomModel fills in the defaults for a user-registered model.
func NewCustomModel(id, name, description, icon string) ModelInfo {
	if name == "" {
		name = "Custom model " + id
	}
	if description == "" {
		description = "Custom model"
	}
	if icon == "" {
		icon = DefaultCustomIcon
	}
	return ModelInfo{
		ID:          ModelID(id),
		Name:        name,
		Description: description,
		Reliability: "unknown",
		Icon:        icon,
	}
}
