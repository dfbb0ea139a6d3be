package schema

// StageOrder is the fixed, closed set of activity stages in their canonical
// sequence. Storage ordering and display ordering both follow this list, never
// timestamps or insertion order.
var StageOrder = []string{
	"PREPARATION",
	"FIRE_MAKING",
	"COOKING_RICE",
	"COOKING_DISHES",
	"SHOWCASE",
	"CLEANING",
	"COMPLETED",
}

// UnknownStageRank sorts names outside the fixed set after every known stage.
const UnknownStageRank = 999

var stageRank = func() map[string]int {
	ranks := make(map[string]int, len(StageOrder))
	for i, name := range StageOrder {
		ranks[name] = i + 1
	}
	return ranks
}()

func StageRank(name string) int {
	if rank, ok := stageRank[name]; ok {
		return rank
	}
	return UnknownStageRank
}

func ValidStage(name string) bool {
	_, ok := stageRank[name]
	return ok
}
