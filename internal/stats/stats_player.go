package stats

// apply folds a single event into the player's line.
func (b *BoxScore) apply(e Event) {
	switch e.Type {
	case EventShot:
		b.Fga++
		if e.IsThree() {
			b.ThreePa++
		}
		if e.Made {
			b.Fgm++
			b.Pts += e.Points
			if e.IsThree() {
				b.ThreePm++
			}
		}
	case EventFreeThrow:
		b.Fta++
		if e.Made {
			b.Ftm++
			b.Pts++
		}
	case EventRebound:
		b.Reb++
		if e.ReboundType == ReboundOffensive {
			b.Oreb++
		} else {
			b.Dreb++
		}
	case EventTurnover:
		b.Tov++
	case EventSteal:
		b.Stl++
	case EventBlock:
		b.Blk++
	case EventFoul:
		b.Pf++
	case EventAssist:
		b.Ast++
	}
}
