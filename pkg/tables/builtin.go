package tables

import "github.com/bodrovis/mojibake-repair-core/pkg/subst"

// Patterns are spelled as raw bytes on purpose: the corrupted sequences are
// themselves valid UTF-8 and would be unreadable (or silently normalized by an
// editor) if written as text.

func rule(name, pattern, replacement string) subst.Rule {
	return subst.Rule{Name: name, Pattern: []byte(pattern), Replacement: []byte(replacement)}
}

// UTF-8 emoji read as CP1252 and saved again as UTF-8.
var emoji = Table{
	Name:        "emoji",
	Description: "emoji whose UTF-8 bytes were read as CP1252 and re-encoded",
	Rules: []subst.Rule{
		rule("chart", "\xc3\xb0\xc5\xb8\xe2\x80\x9c\xc5\xa0", "\xf0\x9f\x93\x8a"),
		rule("package", "\xc3\xb0\xc5\xb8\xe2\x80\x9c\xc2\xa6", "\xf0\x9f\x93\xa6"),
		rule("clipboard", "\xc3\xb0\xc5\xb8\xe2\x80\x9c\xe2\x80\xb9", "\xf0\x9f\x93\x8b"),
		rule("clock", "\xc3\xb0\xc5\xb8\xe2\x80\xa2\xc2\x90", "\xf0\x9f\x95\x90"),
		rule("warning", "\xc3\xa2\xc5\xa1\xc2\xa0\xc3\xaf\xc2\xb8\xc2\x8f", "\xe2\x9a\xa0\xef\xb8\x8f"),
		rule("check", "\xc3\xa2\xc5\x93\xe2\x80\xa6", "\xe2\x9c\x85"),
		rule("cross", "\xc3\xa2\xc2\x9d\xc5\x92", "\xe2\x9d\x8c"),
		rule("zap", "\xc3\xa2\xc5\xa1\xc2\xa1", "\xe2\x9a\xa1"),
		rule("return-arrow", "\xc3\xa2\xe2\x80\xa0\xc2\xa9", "\xe2\x86\xa9"),
		rule("left-arrow", "\xc3\xa2\xe2\x80\xa0\xc2\x90", "\xe2\x86\x90"),
	},
}

// Whole words first, then the bare sequences they contain.
var spanishTriple = Table{
	Name:        "spanish-triple",
	Description: "accented capitals and symbols that went through CP1252 more than once",
	Rules: []subst.Rule{
		rule("creacion", "CREACI\xc3\x83\xc2\xa2\xe2\x82\xac\xc5\x93N", "CREACI\xc3\x93N"),
		rule("actualizacion", "ACTUALIZACI\xc3\x83\xc2\xa2\xe2\x82\xac\xc5\x93N", "ACTUALIZACI\xc3\x93N"),
		rule("tambien", "TAMBI\xc3\x83\xe2\x80\xb0N", "TAMBI\xc3\x89N"),
		rule("cambio", "CAMBI\xc3\x83\xe2\x80\x9c", "CAMBI\xc3\x93"),
		rule("O-acute", "\xc3\x83\xe2\x80\x9c", "\xc3\x93"),
		rule("E-acute", "\xc3\x83\xe2\x80\xb0", "\xc3\x89"),
		rule("times", "\xc3\x83\xe2\x80\x94", "\xc3\x97"),
		rule("euro", "\xc3\xa2\xe2\x80\x9a\xc2\xac", "\xe2\x82\xac"),
	},
}

var spanishDouble = Table{
	Name:        "spanish-double",
	Description: "lowercase accents and inverted punctuation encoded to UTF-8 twice",
	Rules: []subst.Rule{
		rule("o-acute", "\xc3\x83\xc2\xb3", "\xc3\xb3"),
		rule("i-acute", "\xc3\x83\xc2\xad", "\xc3\xad"),
		rule("n-tilde", "\xc3\x83\xc2\xb1", "\xc3\xb1"),
		rule("a-acute", "\xc3\x83\xc2\xa1", "\xc3\xa1"),
		rule("e-acute", "\xc3\x83\xc2\xa9", "\xc3\xa9"),
		rule("u-acute", "\xc3\x83\xc2\xba", "\xc3\xba"),
		rule("inverted-question", "\xc3\x82\xc2\xbf", "\xc2\xbf"),
		rule("inverted-exclamation", "\xc3\x82\xc2\xa1", "\xc2\xa1"),
		rule("cent-question", "\xc2\xa2\xc2\xbf", "\xc2\xbf"),
		rule("cent-exclamation", "\xc2\xa2\xc2\xa1", "\xc2\xa1"),
	},
}

// U+FFFD (EF BF BD) left where a Latin-1 byte was decoded lossily. Only
// safe with the surrounding word, so this table is opt-in.
var replacementChar = Table{
	Name:        "replacement-char",
	Description: "U+FFFD inside known Spanish words",
	Rules: []subst.Rule{
		rule("anadido", "a\xef\xbf\xbdadido", "a\xc3\xb1adido"),
		rule("anadir", "a\xef\xbf\xbdadir", "a\xc3\xb1adir"),
		rule("esta-seleccionado", "est\xef\xbf\xbd seleccionado", "est\xc3\xa1 seleccionado"),
		rule("tambien", "tambi\xef\xbf\xbdn", "tambi\xc3\xa9n"),
		rule("Tambien", "Tambi\xef\xbf\xbdn", "Tambi\xc3\xa9n"),
		rule("sesion", "sesi\xef\xbf\xbdn", "sesi\xc3\xb3n"),
		rule("Sesion", "Sesi\xef\xbf\xbdn", "Sesi\xc3\xb3n"),
		rule("seleccion", "selecci\xef\xbf\xbdn", "selecci\xc3\xb3n"),
		rule("credito", "cr\xef\xbf\xbddito", "cr\xc3\xa9dito"),
		rule("multiples", "m\xef\xbf\xbdltiples", "m\xc3\xbaltiples"),
		rule("duracion", "duraci\xef\xbf\xbdn", "duraci\xc3\xb3n"),
		rule("Duracion", "Duraci\xef\xbf\xbdn", "Duraci\xc3\xb3n"),
		rule("numero", "n\xef\xbf\xbdmero", "n\xc3\xbamero"),
		rule("Numero", "N\xef\xbf\xbdmero", "N\xc3\xbamero"),
		rule("propagacion", "propagaci\xef\xbf\xbdn", "propagaci\xc3\xb3n"),
		rule("despues", "despu\xef\xbf\xbds", "despu\xc3\xa9s"),
		rule("logica", "l\xef\xbf\xbdgica", "l\xc3\xb3gica"),
		rule("rapidamente", "r\xef\xbf\xbdpidamente", "r\xc3\xa1pidamente"),
		rule("error-mark", "\xef\xbf\xbd Error", "\xe2\x9d\x8c Error"),
	},
}

func init() {
	mustRegister(emoji)
	mustRegister(spanishTriple)
	mustRegister(spanishDouble)
	mustRegister(replacementChar)
}
