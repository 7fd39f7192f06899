package taxonomy

// Default returns the styling registry used in production.
func Default() *Registry {
	r, err := NewRegistry(DefaultAttributes(), DefaultCategories())
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultAttributes declares the seven styling attributes.
func DefaultAttributes() []Attribute {
	return []Attribute{
		NewAttribute(Message, "Mensagem", "message_titles", []string{
			"Elegante", "Romântica", "Moderna", "Clássica", "Sensual",
			"Despojada", "Criativa", "Natural", "Dramática",
		}),
		NewAttribute(Line, "Linha", "line", []string{
			"Reta | Geométrica", "Curva | Sinuosa", "Ampla | Volumosa",
			"Ajustada | Justa", "Evasê", "Assimétrica",
		}),
		NewAttribute(Material, "Material", "material", []string{
			"Algodão", "Linho", "Seda", "Viscose", "Couro", "Jeans", "Lã", "Veludo",
			"Tricô", "Malha | Retilínea", "Tecido festivo", "Tecido plano", "Sintético",
		}),
		NewAttribute(Structure, "Estrutura", "structure", []string{
			"Leve | Fluido", "Médio | Maleável", "Pesado | Estruturado",
		}),
		NewAttribute(Texture, "Textura", "texture", []string{
			"Lisa", "Canelada", "Rendada", "Bordada", "Felpuda", "Acetinada", "Texturizada",
		}),
		NewAttribute(Surface, "Superfície", "surface", []string{
			"Fosca", "Brilhante", "Acetinada", "Metalizada", "Transparente", "Estampada",
		}),
		NewAttribute(Color, "Cor", "color", []string{
			"Branco", "Preto", "Neutros", "Pastéis", "Terrosos", "Vibrantes", "Metálicos", "Escuros",
		}),
	}
}

// DefaultCategories lists the catalog's product categories.
func DefaultCategories() []string {
	return []string{
		"Vestido", "Saia", "Calça", "Short", "Blusa", "Camisa",
		"Blazer", "Casaco", "Macacão", "Sapato", "Bolsa", "Acessório",
	}
}
