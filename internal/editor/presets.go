package editor

// Preset 内置的编辑指令模板
type Preset struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Instruction string `json:"instruction"`
	Icon        string `json:"icon"`
}

var presets = []Preset{
	{
		ID:          "navidad-full",
		Label:       "Transformación Navideña Completa",
		Description: "Gorro de Santa y fondo de oficina reemplazado por decoración festiva.",
		Instruction: "Reemplaza el fondo de la oficina por una escena de sala de estar navideña acogedora con un árbol de navidad desenfocado y luces cálidas. Agrega un gorro de Papá Noel rojo y blanco realista en la cabeza de la persona. Asegura que la iluminación sea natural y coherente.",
		Icon:        "🎄",
	},
	{
		ID:          "navidad-fondo",
		Label:       "Solo Fondo Navideño",
		Description: "Cambia el fondo de oficina por una escena invernal nevada.",
		Instruction: "Cambia el fondo de la imagen por un paisaje invernal con nieve suave y pinos. Mantén a la persona intacta pero ajusta la iluminación para que coincida con el ambiente.",
		Icon:        "❄️",
	},
	{
		ID:          "navidad-gorro",
		Label:       "Solo Gorro de Santa",
		Description: "Agrega un gorro festivo manteniendo el fondo actual.",
		Instruction: "Agrega un gorro de Papá Noel realista y de alta calidad sobre la cabeza de la persona. No cambies el fondo.",
		Icon:        "🎅",
	},
}

// Presets 返回预设列表的副本
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// FindPreset 按 ID 查找预设
func FindPreset(id string) (Preset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}
