package services

// Every 100 XP advances one level, starting at level 1.
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/100 + 1
}

// TierForLevel maps a level to the avatar evolution stage and its display
// title.
func TierForLevel(level int) (tier, title string) {
	switch {
	case level >= 31:
		return "conjurer", "Conjurer"
	case level >= 21:
		return "guardian", "Guardian"
	case level >= 11:
		return "hunter", "Hunter"
	default:
		return "aspirant", "Aspirant"
	}
}
