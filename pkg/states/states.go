// Package states holds the fixed table of state FIPS codes and the rules
// deriving a state key from a county identifier.
package states

import (
	"sort"
	"strings"
)

// KeyWidth is the zero-padded width of a county FIPS identifier
const KeyWidth = 5

// State is one entry of the code table
type State struct {
	Code string // two-digit FIPS code, e.g. "01"
	Name string // display name, e.g. "New Hampshire"
}

// FileStem returns the display name with spaces replaced by underscores
func (s State) FileStem() string {
	return strings.ReplaceAll(s.Name, " ", "_")
}

// 50 states plus the District of Columbia. Territories are deliberately absent.
var table = map[string]string{
	"01": "Alabama", "02": "Alaska", "04": "Arizona", "05": "Arkansas",
	"06": "California", "08": "Colorado", "09": "Connecticut", "10": "Delaware",
	"11": "District of Columbia", "12": "Florida", "13": "Georgia", "15": "Hawaii",
	"16": "Idaho", "17": "Illinois", "18": "Indiana", "19": "Iowa", "20": "Kansas",
	"21": "Kentucky", "22": "Louisiana", "23": "Maine", "24": "Maryland",
	"25": "Massachusetts", "26": "Michigan", "27": "Minnesota", "28": "Mississippi",
	"29": "Missouri", "30": "Montana", "31": "Nebraska", "32": "Nevada",
	"33": "New Hampshire", "34": "New Jersey", "35": "New Mexico", "36": "New York",
	"37": "North Carolina", "38": "North Dakota", "39": "Ohio", "40": "Oklahoma",
	"41": "Oregon", "42": "Pennsylvania", "44": "Rhode Island", "45": "South Carolina",
	"46": "South Dakota", "47": "Tennessee", "48": "Texas", "49": "Utah",
	"50": "Vermont", "51": "Virginia", "53": "Washington", "54": "West Virginia",
	"55": "Wisconsin", "56": "Wyoming",
}

// KeyFor derives the state key of a county identifier: the identifier is
// left-padded with '0' to KeyWidth characters and its first two
// characters are returned.
func KeyFor(id string) string {
	runes := []rune(id)
	if n := KeyWidth - len(runes); n > 0 {
		padded := make([]rune, 0, KeyWidth)
		for i := 0; i < n; i++ {
			padded = append(padded, '0')
		}
		runes = append(padded, runes...)
	}
	return string(runes[:2])
}

// Lookup returns the state registered under code
func Lookup(code string) (State, bool) {
	name, ok := table[code]
	if !ok {
		return State{}, false
	}
	return State{Code: code, Name: name}, true
}

// ForID resolves the state a county identifier belongs to. The derived key
// is returned even when it is unknown.
func ForID(id string) (State, string, bool) {
	key := KeyFor(id)
	s, ok := Lookup(key)
	return s, key, ok
}

// All returns the table sorted by code
func All() []State {
	out := make([]State, 0, len(table))
	for code, name := range table {
		out = append(out, State{Code: code, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Len returns the number of known states
func Len() int {
	return len(table)
}
