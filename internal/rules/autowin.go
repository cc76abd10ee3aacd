package rules

// CheckAutoWin applies the automatic-win rule immediately after dealing,
// before any action is taken. Precedence: AUTO_TRIPLE beats REGULAR; ties
// within a tier go to the earliest seat.
//
// Returns RoundEndNone if no auto-win applies.
func CheckAutoWin(g *GameState) (reason RoundEndReason, winnerID string) {
	for _, p := range g.Players {
		v := p.HandValue()
		if v == 41 || v <= 11 {
			return RoundEndAutoTriple, p.UserID
		}
	}
	for _, p := range g.Players {
		v := p.HandValue()
		if v == 50 || v == 47 {
			return RoundEndRegular, p.UserID
		}
	}
	return RoundEndNone, ""
}

// CheckReem reports whether player has exactly two spreads and an empty
// hand — the Reem win condition, checked after every spread action.
func CheckReem(p *PlayerState) bool {
	return len(p.Spreads) == 2 && len(p.Hand) == 0
}
