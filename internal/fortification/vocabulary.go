package fortification

// namingTerms decides whether a name derived from the article URL should
// replace the link label. It intentionally differs from filterTerms.
var namingTerms = []string{
	"castelo",
	"forte",
	"fortaleza",
	"muralha",
	"muralhas",
	"torre",
	"cidadela",
	"fortificação",
	"bateria",
	"baluarte",
	"atalaia",
	"reduto",
	"praça-forte",
}

// filterTerms decides whether a listing link is likely a fortification.
var filterTerms = []string{
	"castelo",
	"forte",
	"fortaleza",
	"muralha",
	"torre",
	"cidadela",
	"fortificação",
	"bateria",
	"baluarte",
	"atalaia",
	"reduto",
}

// NamingTerms returns a copy of the naming vocabulary.
func NamingTerms() []string {
	return append([]string(nil), namingTerms...)
}

// FilterTerms returns a copy of the filter vocabulary.
func FilterTerms() []string {
	return append([]string(nil), filterTerms...)
}
