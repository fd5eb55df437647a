package harness

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed battery.toml
var batteryTOML []byte

// Case is one hand-chosen pattern/text pair.
type Case struct {
	Name    string
	Pattern []byte
	Text    []byte
	// Expect is the oracle count pinned by the battery, or -1.
	Expect int
}

type specCase struct {
	Name          string `toml:"name"`
	Pattern       string `toml:"pattern"`
	PatternRepeat int    `toml:"pattern_repeat"`
	Text          string `toml:"text"`
	TextRepeat    int    `toml:"text_repeat"`
	Expect        *int   `toml:"expect"`
}

type specRoot struct {
	Cases []specCase `toml:"cases"`
}

// FixedBattery returns the embedded battery.
func FixedBattery() ([]Case, error) {
	return ParseBattery(batteryTOML)
}

// ParseBattery converts a battery TOML document into runnable cases.
func ParseBattery(data []byte) ([]Case, error) {
	var root specRoot
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse battery: %w", err)
	}
	cases := make([]Case, 0, len(root.Cases))
	for i, sc := range root.Cases {
		if sc.Pattern == "" {
			return nil, fmt.Errorf("battery case %d (%s) has an empty pattern", i, sc.Name)
		}
		if sc.Text == "" {
			return nil, fmt.Errorf("battery case %d (%s) has an empty text", i, sc.Name)
		}
		c := Case{
			Name:    sc.Name,
			Pattern: []byte(strings.Repeat(sc.Pattern, max(1, sc.PatternRepeat))),
			Text:    []byte(strings.Repeat(sc.Text, max(1, sc.TextRepeat))),
			Expect:  -1,
		}
		if sc.Expect != nil {
			c.Expect = *sc.Expect
		}
		cases = append(cases, c)
	}
	return cases, nil
}
