package world

var descriptions = map[TileKind]string{
	KindPlain:           "Open plain: travel, search the area or pitch a quick camp.",
	KindVillage:         "Village: shops, rest and local quests.",
	KindStartingVillage: "Starting village: a safe zone to recruit and prepare.",
	KindBattlefield:     "Battlefield: high danger, high rewards.",
	KindMerchant:        "Travelling merchant: rare items and supplies.",
}

var contextActions = map[TileKind][]string{
	KindPlain:           {"Search the area", "Pitch a camp"},
	KindVillage:         {"Enter the tavern", "Accept a quest", "Heal the hero"},
	KindStartingVillage: {"Talk to the mentor", "Buy basic equipment"},
	KindBattlefield:     {"Start a tactical fight", "Scout the enemy lines"},
	KindMerchant:        {"Haggle for items", "Sell the loot"},
}

func Describe(kind TileKind) string {
	if d, ok := descriptions[kind]; ok {
		return d
	}
	return "Neutral zone."
}

// ContextActions are the flavour actions shown for a tile. They are local
// only and cost nothing.
func ContextActions(kind TileKind) []string {
	if a, ok := contextActions[kind]; ok {
		return append([]string(nil), a...)
	}
	return []string{"Look around"}
}
