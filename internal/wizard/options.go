package wizard

// Option is a selectable vibe tag.
type Option struct {
	ID    string
	Label string
}

var MoodOptions = []Option{
	{"cozy", "Cozy & intimate"},
	{"big_family", "Big family energy"},
	{"fancy", "Fancy dinner party"},
	{"chill", "Chill & casual"},
}

var EffortOptions = []Option{
	{"simple", "Keep it simple"},
	{"happy_to_cook", "Happy to cook"},
	{"all_out", "Going all out"},
}

var DietaryOptions = []Option{
	{"vegetarian", "Vegetarian-friendly"},
	{"nut_free", "Nut-free"},
	{"dairy_free", "Dairy-free"},
	{"no_restrictions", "No restrictions"},
}

func known(options []Option, id string) bool {
	if id == "" {
		return true
	}
	for _, o := range options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Vibe holds the optional mood, effort and dietary tags.
type Vibe struct {
	Mood          string
	CookingEffort string
	Dietary       string
}

func (v Vibe) valid() bool {
	return known(MoodOptions, v.Mood) && known(EffortOptions, v.CookingEffort) && known(DietaryOptions, v.Dietary)
}
