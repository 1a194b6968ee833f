package tricktable

type CombinationKind string

const (
	Combination_FourOfAKind CombinationKind = "four_of_a_kind"
	Combination_ThreeSevens CombinationKind = "three_sevens"
	Combination_Tia         CombinationKind = "tia"
)

const (
	combinationPriority_FourOfAKind = 3
	combinationPriority_ThreeSevens = 2
	combinationPriority_Tia         = 1

	// TiaThreshold is the exclusive upper bound on the rank sum of a tia.
	TiaThreshold = 21
)

// Combination is a qualifying 5-card pattern. It is derived on demand and
// never stored on the table state.
type Combination struct {
	Kind     CombinationKind `json:"kind"`
	Priority int             `json:"priority"`
	Rank     Rank            `json:"rank,omitempty"` // four-of-a-kind rank
	Sum      int             `json:"sum,omitempty"`  // tia rank sum
}

func (c *Combination) Describe() string {
	switch c.Kind {
	case Combination_FourOfAKind:
		return "four of a kind"
	case Combination_ThreeSevens:
		return "three sevens"
	case Combination_Tia:
		return "tia"
	}
	return string(c.Kind)
}

// FindBestCombination returns the best qualifying combination of a hand, or
// nil when the hand matches none. Checks run in priority order and the first
// match wins. Callers gate on showingCards and an intact 5-card hand; the
// evaluator itself is pure.
func FindBestCombination(hand []Card) *Combination {
	if len(hand) == 0 {
		return nil
	}

	if combo := findFourOfAKind(hand); combo != nil {
		return combo
	}
	if combo := findThreeSevens(hand); combo != nil {
		return combo
	}
	return findTia(hand)
}

func findFourOfAKind(hand []Card) *Combination {
	counts := make(map[Rank]int)
	for _, card := range hand {
		counts[card.Rank]++
	}

	for rank, count := range counts {
		if count == 4 {
			return &Combination{
				Kind:     Combination_FourOfAKind,
				Priority: combinationPriority_FourOfAKind,
				Rank:     rank,
			}
		}
	}
	return nil
}

func findThreeSevens(hand []Card) *Combination {
	sevens := 0
	for _, card := range hand {
		if card.Rank == 7 {
			sevens++
		}
	}

	if sevens == 3 {
		return &Combination{
			Kind:     Combination_ThreeSevens,
			Priority: combinationPriority_ThreeSevens,
		}
	}
	return nil
}

func findTia(hand []Card) *Combination {
	sum := 0
	for _, card := range hand {
		sum += int(card.Rank)
	}

	if sum < TiaThreshold {
		return &Combination{
			Kind:     Combination_Tia,
			Priority: combinationPriority_Tia,
			Sum:      sum,
		}
	}
	return nil
}

// CompareCombinations returns a positive value when a beats b, negative when
// b beats a and 0 on a tie. Higher priority wins; equal four-of-a-kinds
// compare by rank, equal tias by smaller sum.
func CompareCombinations(a, b *Combination) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	if a.Priority != b.Priority {
		return a.Priority - b.Priority
	}

	switch a.Kind {
	case Combination_FourOfAKind:
		return int(a.Rank) - int(b.Rank)
	case Combination_Tia:
		return b.Sum - a.Sum
	}
	return 0
}
