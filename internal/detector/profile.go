package detector

import (
	"fmt"
	"sort"
)

const (
	ProfileAccurate = "accurate"
	ProfileFast     = "fast"
)

var profiles = map[string]func() DetectorOptions{
	ProfileAccurate: DefaultOptions,
	ProfileFast:     FastOptions,
}

// ProfileOptions returns the base options of a named detection profile.
// An empty name selects the accurate profile.
func ProfileOptions(name string) (DetectorOptions, error) {
	if name == "" {
		name = ProfileAccurate
	}
	build, ok := profiles[name]
	if !ok {
		return DetectorOptions{}, fmt.Errorf("unknown detector profile %q (known: %v)", name, Profiles())
	}
	return build(), nil
}

// Profiles lists the known profile names
func Profiles() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
