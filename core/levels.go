package core

// LevelLabel is the display label pair derived from a level number.
type LevelLabel struct {
	Name string
	Year string
}

// Academic-flavored display ladder. Levels past the table clamp to the top
// entry so a rule table extending beyond it still renders something sane.
var levelLabels = map[int]LevelLabel{
	1:  {Name: "applicant"},
	2:  {Name: "bachelor", Year: "year 1"},
	3:  {Name: "bachelor", Year: "year 2"},
	4:  {Name: "bachelor", Year: "year 3"},
	5:  {Name: "bachelor", Year: "year 4"},
	6:  {Name: "master", Year: "year 1"},
	7:  {Name: "master", Year: "year 2"},
	8:  {Name: "doctoral student", Year: "year 1"},
	9:  {Name: "doctoral student", Year: "year 2"},
	10: {Name: "doctoral student", Year: "year 3"},
	11: {Name: "doctoral student", Year: "year 4"},
	12: {Name: "candidate of sciences"},
	13: {Name: "doctor of sciences"},
	14: {Name: "doctor of sciences"},
	15: {Name: "doctor of sciences"},
}

const maxLabeledLevel = 15

// LabelForLevel returns the display label for a level, clamping out-of-range
// levels into the table.
func LabelForLevel(level int) LevelLabel {
	if level < 1 {
		level = 1
	}
	if level > maxLabeledLevel {
		level = maxLabeledLevel
	}
	return levelLabels[level]
}
