package profile

import "sort"

// Profile is a named set of conversion defaults.
type Profile struct {
	Name       string
	Quality    int  // single conversion quality 0-100
	MinQuality int  // sweep lower bound
	MaxQuality int  // sweep upper bound
	Lossless   bool // ask encoders for lossless output
}

// Default is used for unknown names.
const Default = "web"

// Built-in profiles.
var profiles = map[string]Profile{
	"web": {
		Name:       "web",
		Quality:    82,
		MinQuality: 60,
		MaxQuality: 90,
	},
	"photo": {
		Name:       "photo",
		Quality:    85,
		MinQuality: 70,
		MaxQuality: 95,
	},
	"archive": {
		Name:       "archive",
		Quality:    100,
		MinQuality: 90,
		MaxQuality: 100,
		Lossless:   true,
	},
	"thumbnail": {
		Name:       "thumbnail",
		Quality:    70,
		MinQuality: 40,
		MaxQuality: 80,
	},
}

// Get returns a profile by name. Falls back to web if unknown.
func Get(name string) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	p := profiles[Default]
	p.Name = name // preserve requested name
	return p
}

// Known reports whether name is a built-in profile.
func Known(name string) bool {
	_, ok := profiles[name]
	return ok
}

// Names lists the built-in profiles, sorted.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
