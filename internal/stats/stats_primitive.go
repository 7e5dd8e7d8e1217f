package stats

// BoxScore is one player's line for one game.
type BoxScore struct {
	Pts            int  `json:"pts"`
	Fga            int  `json:"fga"`
	Fgm            int  `json:"fgm"`
	ThreePa        int  `json:"3pa"`
	ThreePm        int  `json:"3pm"`
	Fta            int  `json:"fta"`
	Ftm            int  `json:"ftm"`
	Reb            int  `json:"reb"`
	Oreb           int  `json:"oreb"`
	Dreb           int  `json:"dreb"`
	Ast            int  `json:"ast"`
	Tov            int  `json:"tov"`
	Stl            int  `json:"stl"`
	Blk            int  `json:"blk"`
	Pf             int  `json:"pf"`
	IsDoubleDouble bool `json:"is_double_double"`
	IsTripleDouble bool `json:"is_triple_double"`
}

const doubleFigures = 10

// TwoPa and TwoPm are derived, two-point shots are not tracked separately.
func (b BoxScore) TwoPa() int {
	return b.Fga - b.ThreePa
}

func (b BoxScore) TwoPm() int {
	return b.Fgm - b.ThreePm
}

// doubleFigureCategories counts how many of pts, reb, ast, stl and blk reached ten.
func (b BoxScore) doubleFigureCategories() int {
	var count int
	for _, v := range []int{b.Pts, b.Reb, b.Ast, b.Stl, b.Blk} {
		if v >= doubleFigures {
			count++
		}
	}
	return count
}

func (b *BoxScore) classify() {
	categories := b.doubleFigureCategories()
	b.IsTripleDouble = categories >= 3
	b.IsDoubleDouble = categories >= 2
}

func (b BoxScore) FgPercent() string {
	return float64ToPercent(ratio(b.Fgm, b.Fga))
}

func (b BoxScore) ThreePercent() string {
	return float64ToPercent(ratio(b.ThreePm, b.ThreePa))
}

func (b BoxScore) FtPercent() string {
	return float64ToPercent(ratio(b.Ftm, b.Fta))
}
