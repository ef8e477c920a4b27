package stats

// Achievement ids. Membership in the unlocked set is append-only for the
// life of a session.
const (
	AchievementFirstOperation = "first_operation"
	AchievementDataHidden1MB  = "data_hidden_1mb"
	AchievementDataHidden10MB = "data_hidden_10mb"
	AchievementOperations10   = "operations_10"
	AchievementOperations50   = "operations_50"
	AchievementPerfectionist  = "perfectionist"
)

// Threshold constants backing the achievement rules.
const (
	dataHidden1MB            = 1 << 20
	dataHidden10MB           = 10 << 20
	operationsTier1          = 10
	operationsTier2          = 50
	perfectionistSampleFloor = 10
)

// Achievement describes one unlockable milestone.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// rule pairs an achievement with its unlock predicate over current stats.
type rule struct {
	achievement Achievement
	unlocked    func(Stats) bool
}

// catalog holds every implemented achievement in unlock-check order.
// "audio expert", "image master" and the password-reuse milestones from the
// original UI are intentionally absent: their thresholds were never defined.
var catalog = []rule{
	{
		achievement: Achievement{
			ID:          AchievementFirstOperation,
			Name:        "First Steps",
			Description: "Complete your first successful operation",
		},
		unlocked: func(s Stats) bool { return s.SuccessfulOperations >= 1 },
	},
	{
		achievement: Achievement{
			ID:          AchievementDataHidden1MB,
			Name:        "Data Smuggler",
			Description: "Hide more than 1 MiB of data in total",
		},
		unlocked: func(s Stats) bool { return s.DataHiddenBytes >= dataHidden1MB },
	},
	{
		achievement: Achievement{
			ID:          AchievementDataHidden10MB,
			Name:        "Deep Cover",
			Description: "Hide more than 10 MiB of data in total",
		},
		unlocked: func(s Stats) bool { return s.DataHiddenBytes >= dataHidden10MB },
	},
	{
		achievement: Achievement{
			ID:          AchievementOperations10,
			Name:        "Regular",
			Description: "Complete 10 successful operations",
		},
		unlocked: func(s Stats) bool { return s.SuccessfulOperations >= operationsTier1 },
	},
	{
		achievement: Achievement{
			ID:          AchievementOperations50,
			Name:        "Veteran",
			Description: "Complete 50 successful operations",
		},
		unlocked: func(s Stats) bool { return s.SuccessfulOperations >= operationsTier2 },
	},
	{
		achievement: Achievement{
			ID:          AchievementPerfectionist,
			Name:        "Perfectionist",
			Description: "Keep a perfect success rate over at least 10 operations",
		},
		unlocked: func(s Stats) bool {
			return s.FilesProcessed >= perfectionistSampleFloor &&
				s.SuccessfulOperations == s.FilesProcessed
		},
	},
}

// Catalog returns every defined achievement.
func Catalog() []Achievement {
	out := make([]Achievement, len(catalog))
	for i, r := range catalog {
		out[i] = r.achievement
	}
	return out
}

// EvaluateAchievements returns the achievements newly unlocked by the given
// stats. Pure and deterministic: identical inputs yield identical outputs,
// and ids already present in unlocked are never reported again.
func EvaluateAchievements(s Stats, unlocked map[string]bool) []Achievement {
	var fresh []Achievement
	for _, r := range catalog {
		if unlocked[r.achievement.ID] {
			continue
		}
		if r.unlocked(s) {
			fresh = append(fresh, r.achievement)
		}
	}
	return fresh
}

// levelBreakpoints define the monotone step function behind UserLevel,
// ordered by ascending threshold on FilesProcessed.
var levelBreakpoints = []struct {
	threshold int64
	label     string
}{
	{0, "Novice"},
	{5, "Apprentice"},
	{20, "Specialist"},
	{50, "Expert"},
	{100, "Master"},
}

// UserLevel maps a filesProcessed count to its tier label.
func UserLevel(filesProcessed int64) string {
	label := levelBreakpoints[0].label
	for _, bp := range levelBreakpoints {
		if filesProcessed >= bp.threshold {
			label = bp.label
		}
	}
	return label
}
