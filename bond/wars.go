package bond

import "strings"

// warContains maps fragments of a war's long name to its short label.
// Checked in order, before the prefix and exact tables.
var warContains = []struct{ fragment, label string }{
	{"Ancient Ocean of the Dreadnought Gods, Atlantis", "LB5.1 - Atlantis"},
	{"Interstellar Mountainous City, Olympus", "LB5.2 - Olympus"},
	{"Golden Sea of Trees, Nahui Mictlān", "LB7 - Nahui Mictlān"},
	{"Zero Compass Inner Domain", "Paper Moon"},
	{"Naraka Mandala", "Heian-kyo"},
	{"Realm of the Thanatos Impulse", "Traum"},
}

// Epic of Remnant chapters are named "Pseudo-Singularity N:" on older
// data and "Epic of Remnant N:" on newer data.
var warPrefixes = []struct {
	prefixes []string
	label    string
}{
	{[]string{"Pseudo-Singularity I:", "Epic of Remnant I:"}, "EoR 1 - Shinjuku"},
	{[]string{"Pseudo-Singularity II:", "Epic of Remnant II:"}, "EoR 2 - Agartha"},
	{[]string{"Pseudo-Singularity III:", "Epic of Remnant III:"}, "EoR 3 - Shimousa"},
	{[]string{"Pseudo-Singularity IV", "Epic of Remnant IV:"}, "EoR 4 - Salem"},
}

var warExact = map[string]string{
	"Singularity F":               "Singularity F - Fuyuki",
	"Observer on Timeless Temple": "Part 1",
	"Cosmos in the Lostbelt":      "Part 2",
	"Lostbelt No.1":               "LB1 - Anastasia",
	"Lostbelt No.2":               "LB2 - Götterdämmerung",
	"Lostbelt No.3":               "LB3 - SIN",
	"Lostbelt No.4":               "LB4 - Yuga Kshetra",
	"Lostbelt No.5":               "LB5 - Atlantis/Olympus",
	"Lostbelt No.6":               "LB6 - Avalon le Fae",
	"Lostbelt No.7":               "LB7 - Nahui Mictlān",
}

// WarDisplayName shortens a war's long name for quest labels.
// Unknown names are returned unchanged.
func WarDisplayName(longName string) string {
	for _, w := range warContains {
		if strings.Contains(longName, w.fragment) {
			return w.label
		}
	}
	// "Pseudo-Parallel World" is Shimousa's subtitle on some servers
	if strings.Contains(longName, "Pseudo-Parallel World") {
		return "EoR 3 - Shimousa"
	}
	for _, w := range warPrefixes {
		for _, p := range w.prefixes {
			if strings.HasPrefix(longName, p) {
				return w.label
			}
		}
	}
	if label, ok := warExact[longName]; ok {
		return label
	}
	return longName
}
