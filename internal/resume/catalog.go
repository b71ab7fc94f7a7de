package resume

// Category groups related skill tokens.
type Category struct {
	Name   string
	Skills []string
}

// Catalog is the fixed skill catalog in reporting order.
var Catalog = []Category{
	{Name: "programming", Skills: []string{"python", "java", "javascript", "c++", "c#", "php", "ruby", "go", "rust", "swift", "kotlin"}},
	{Name: "web", Skills: []string{"html", "css", "react", "angular", "vue", "node.js", "express", "django", "flask", "spring"}},
	{Name: "database", Skills: []string{"sql", "mysql", "postgresql", "mongodb", "redis", "elasticsearch", "oracle", "sqlite"}},
	{Name: "cloud", Skills: []string{"aws", "azure", "gcp", "docker", "kubernetes", "terraform", "jenkins", "ci/cd"}},
	{Name: "data", Skills: []string{"pandas", "numpy", "matplotlib", "scikit-learn", "tensorflow", "pytorch", "spark", "hadoop"}},
	{Name: "tools", Skills: []string{"git", "jira", "confluence", "slack", "trello", "figma", "photoshop", "excel"}},
}

// Experience levels.
const (
	LevelJunior  = "junior"
	LevelMid     = "mid"
	LevelSenior  = "senior"
	LevelUnknown = "unknown"
)

type levelKeywords struct {
	level    string
	keywords []string
}

// experienceLevels is scanned in order and the first level with a hit wins.
// A text mentioning both "intern" and "senior" is therefore junior.
var experienceLevels = []levelKeywords{
	{level: LevelJunior, keywords: []string{"junior", "entry", "associate", "intern", "0-2 years", "graduate"}},
	{level: LevelMid, keywords: []string{"mid", "intermediate", "2-5 years", "3-7 years", "experienced"}},
	{level: LevelSenior, keywords: []string{"senior", "lead", "principal", "5+ years", "7+ years", "expert", "architect"}},
}

var educationKeywords = []string{"bachelor", "master", "phd", "degree", "university", "college", "b.s.", "m.s.", "b.a.", "m.a."}
