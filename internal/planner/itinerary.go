package planner

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"

	"github.com/Podtech-AI/tabichan-go/domain"
)

const maxDays = 7

var dayPattern = regexp.MustCompile(`(\d+)[- ]day`)

var catalog = map[domain.Country][]string{
	domain.CountryJapan: {
		"Senso-ji Temple", "Meiji Shrine", "Tsukiji Outer Market", "Shibuya Crossing",
		"teamLab Planets", "Ueno Park", "Fushimi Inari Taisha", "Kinkaku-ji",
		"Arashiyama Bamboo Grove", "Nara Park", "Dotonbori", "Hakone Open-Air Museum",
	},
	domain.CountryFrance: {
		"Louvre Museum", "Eiffel Tower", "Musee d'Orsay", "Montmartre",
		"Sainte-Chapelle", "Le Marais", "Palace of Versailles", "Mont Saint-Michel",
		"Vieux Lyon", "Promenade des Anglais", "Calanques de Marseille", "Chateau de Chambord",
	},
}

// Itinerary is the result payload produced by the sandbox.
type Itinerary struct {
	Query       string `json:"query"`
	Country     string `json:"country"`
	Preferences string `json:"preferences,omitempty"`
	Days        []Day  `json:"days"`
	Summary     string `json:"summary"`
}

// Day is one day of an itinerary.
type Day struct {
	Day   int      `json:"day"`
	Spots []string `json:"spots"`
}

// BuildItinerary produces a deterministic itinerary for query. The number of
// days is read from phrases like "2-day"; answer is the user's reply to the
// clarifying question, if any.
func BuildItinerary(query string, country domain.Country, answer string) json.RawMessage {
	country = country.OrDefault()
	spots, ok := catalog[country]
	if !ok {
		spots = catalog[domain.CountryJapan]
	}

	days := tripDays(query)
	offset := int(hash(query) % uint32(len(spots)))

	it := Itinerary{
		Query:       query,
		Country:     string(country),
		Preferences: answer,
		Days:        make([]Day, 0, days),
	}
	for d := 0; d < days; d++ {
		day := Day{Day: d + 1}
		for s := 0; s < 2; s++ {
			day.Spots = append(day.Spots, spots[(offset+d*2+s)%len(spots)])
		}
		it.Days = append(it.Days, day)
	}
	it.Summary = fmt.Sprintf("%d-day trip in %s", days, strings.ToUpper(string(country[:1]))+string(country[1:]))

	data, err := json.Marshal(it)
	if err != nil {
		// Itinerary holds only strings and ints.
		panic(err)
	}
	return data
}

func tripDays(query string) int {
	m := dayPattern.FindStringSubmatch(strings.ToLower(query))
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 1
	}
	return min(n, maxDays)
}

func hash(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
