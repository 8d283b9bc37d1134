// Package vocab holds the word lists that drive question analysis and answer
// extraction. Defaults are compiled in and can be overridden from YAML.
package vocab

import (
	"strings"

	"auroraqa/internal/domain"
)

// Vocabulary is the full set of lookup tables. All entries are lower-case
// except where a field says otherwise.
type Vocabulary struct {
	// QuestionCues maps a question type tag to the phrases that select it.
	QuestionCues map[string][]string `yaml:"question_cues"`
	StopWords    []string            `yaml:"stop_words"`

	TemporalWords []string `yaml:"temporal_words"`
	QuantityWords []string `yaml:"quantity_words"`
	LocationWords []string `yaml:"location_words"`

	PreferenceWords []string `yaml:"preference_words"`
	BookingWords    []string `yaml:"booking_words"`

	// NumberWords are spelled-out numbers; position i denotes i+1.
	NumberWords   []string `yaml:"number_words"`
	QuantityUnits []string `yaml:"quantity_units"`

	LocationPrepositions []string `yaml:"location_prepositions"`
	LocationExclusions   []string `yaml:"location_exclusions"`
	KnownCities          []string `yaml:"known_cities"`

	Weekdays          []string `yaml:"weekdays"`
	TemporalModifiers []string `yaml:"temporal_modifiers"`
	RelativeTimes     []string `yaml:"relative_times"`

	VenueKeywords  []string `yaml:"venue_keywords"`
	VenueCues      []string `yaml:"venue_cues"`
	VenueSkipWords []string `yaml:"venue_skip_words"`
	VenueStopWords []string `yaml:"venue_stop_words"`

	stop, temporal, quantity, location     map[string]struct{}
	units, prepositions, exclusions        map[string]struct{}
	cities, weekdays, modifiers, relatives map[string]struct{}
	venueSkip, venueStop                   map[string]struct{}
	numbers                                map[string]int
	cues                                   map[domain.QuestionType][]string
}

// Default returns the built-in vocabulary.
func Default() *Vocabulary {
	v := &Vocabulary{
		QuestionCues: map[string][]string{
			"when":     {"when", "what time", "schedule", "date", "time"},
			"how_many": {"how many", "how much", "count", "number of", "quantity"},
			"what":     {"what", "which", "what are", "what is"},
			"where":    {"where", "location", "place", "destination"},
			"who":      {"who", "which person", "whose"},
			"why":      {"why", "reason", "because"},
			"how":      {"how", "method", "way"},
		},
		StopWords: []string{
			"when", "what", "where", "who", "why", "how", "is", "are", "was", "were",
			"have", "has", "had", "do", "does", "did", "will", "would", "could", "should",
			"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for", "of",
			"with", "by", "about", "from", "up", "out", "down", "off", "over", "under",
			"many", "much", "some", "any", "all", "most", "few", "several", "planning",
			"going", "visiting", "traveling", "trip", "cars", "restaurants", "time",
			"favorite", "preferred", "best", "good", "great", "nice", "today", "tomorrow",
			"yesterday", "this", "that", "these", "those", "here", "there",
		},
		TemporalWords: []string{
			"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
			"january", "february", "march", "april", "may", "june", "july", "august",
			"september", "october", "november", "december",
			"today", "tomorrow", "yesterday", "tonight", "morning", "afternoon", "evening", "night",
			"this", "next", "last", "now", "soon", "later",
		},
		QuantityWords: []string{
			"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten",
			"eleven", "twelve", "few", "several", "many", "multiple", "couple", "pair", "dozen",
		},
		LocationWords: []string{
			"paris", "london", "milan", "rome", "barcelona", "madrid", "berlin", "amsterdam",
			"dubai", "tokyo", "sydney", "york", "angeles", "francisco",
			"restaurant", "hotel", "theater", "theatre", "opera", "airport", "station",
			"mall", "park", "museum", "cafe", "bar", "city", "country", "state",
		},
		PreferenceWords: []string{"favorite", "prefer", "like", "love"},
		BookingWords:    []string{"book", "reserve", "schedule"},
		NumberWords: []string{
			"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten",
			"eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen", "seventeen",
			"eighteen", "nineteen", "twenty",
		},
		QuantityUnits: []string{
			"people", "person", "guest", "guests", "ticket", "tickets",
			"table", "tables", "car", "cars", "room", "rooms", "item", "items",
		},
		LocationPrepositions: []string{"to", "in", "at", "from", "near"},
		LocationExclusions: []string{
			"this", "that", "the", "next", "last", "today", "tomorrow", "tonight",
			"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
		},
		KnownCities: []string{
			"paris", "london", "milan", "rome", "barcelona", "madrid", "berlin",
			"amsterdam", "dubai", "tokyo", "sydney", "york", "angeles", "francisco",
		},
		Weekdays:          []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"},
		TemporalModifiers: []string{"this", "next", "last"},
		RelativeTimes:     []string{"today", "tomorrow", "tonight", "yesterday"},
		VenueKeywords:     []string{"restaurant", "place", "venue"},
		VenueCues:         []string{"reservation", "dinner", "lunch", "table", "book", "restaurant", "at"},
		VenueSkipWords:    []string{"a", "an", "the", "at", "in", "on", "for", "to", "of", "with"},
		VenueStopWords:    []string{"the", "for", "tonight", "today", "tomorrow"},
	}
	v.index()
	return v
}

func (v *Vocabulary) index() {
	v.stop = toSet(v.StopWords)
	v.temporal = toSet(v.TemporalWords)
	v.quantity = toSet(v.QuantityWords)
	v.location = toSet(v.LocationWords)
	v.units = toSet(v.QuantityUnits)
	v.prepositions = toSet(v.LocationPrepositions)
	v.exclusions = toSet(v.LocationExclusions)
	v.cities = toSet(v.KnownCities)
	v.weekdays = toSet(v.Weekdays)
	v.modifiers = toSet(v.TemporalModifiers)
	v.relatives = toSet(v.RelativeTimes)
	v.venueSkip = toSet(v.VenueSkipWords)
	v.venueStop = toSet(v.VenueStopWords)

	v.numbers = make(map[string]int, len(v.NumberWords))
	for i, w := range v.NumberWords {
		v.numbers[strings.ToLower(w)] = i + 1
	}

	v.cues = make(map[domain.QuestionType][]string, len(v.QuestionCues))
	for tag, phrases := range v.QuestionCues {
		t, err := domain.ParseQuestionType(tag)
		if err != nil || t == domain.QuestionGeneral {
			continue
		}
		lowered := make([]string, len(phrases))
		for i, p := range phrases {
			lowered[i] = strings.ToLower(p)
		}
		v.cues[t] = lowered
	}
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

func has(set map[string]struct{}, w string) bool {
	_, ok := set[w]
	return ok
}

// Cues returns the cue phrases for a question type.
func (v *Vocabulary) Cues(t domain.QuestionType) []string { return v.cues[t] }

func (v *Vocabulary) IsStopWord(w string) bool         { return has(v.stop, w) }
func (v *Vocabulary) IsTemporal(w string) bool         { return has(v.temporal, w) }
func (v *Vocabulary) IsQuantity(w string) bool         { return has(v.quantity, w) }
func (v *Vocabulary) IsLocation(w string) bool         { return has(v.location, w) }
func (v *Vocabulary) IsUnit(w string) bool             { return has(v.units, w) }
func (v *Vocabulary) IsPreposition(w string) bool      { return has(v.prepositions, w) }
func (v *Vocabulary) IsLocationExcluded(w string) bool { return has(v.exclusions, w) }
func (v *Vocabulary) IsKnownCity(w string) bool        { return has(v.cities, w) }
func (v *Vocabulary) IsWeekday(w string) bool          { return has(v.weekdays, w) }
func (v *Vocabulary) IsModifier(w string) bool         { return has(v.modifiers, w) }
func (v *Vocabulary) IsRelativeTime(w string) bool     { return has(v.relatives, w) }
func (v *Vocabulary) IsVenueSkip(w string) bool        { return has(v.venueSkip, w) }
func (v *Vocabulary) IsVenueStop(w string) bool        { return has(v.venueStop, w) }

// NumberValue returns the integer for a spelled-out number word.
func (v *Vocabulary) NumberValue(w string) (int, bool) {
	n, ok := v.numbers[w]
	return n, ok
}
