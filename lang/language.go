package lang

// ID is the canonical identifier of a language understood by the eval backend.
type ID string

const (
	Bash       ID = "bash"
	C          ID = "c"
	CPP        ID = "cpp"
	CSharp     ID = "csharp"
	Go         ID = "go"
	Java       ID = "java"
	JavaScript ID = "javascript"
	Kotlin     ID = "kotlin"
	Python     ID = "python"
	Text       ID = "text"
	TypeScript ID = "typescript"
)

// all keeps declaration order for listings.
var all = []ID{Bash, C, CPP, CSharp, Go, Java, JavaScript, Kotlin, Python, Text, TypeScript}

// aliases maps every accepted token to its language. Lookup is case-sensitive.
var aliases = map[string]ID{
	"cs":  CSharp,
	"js":  JavaScript,
	"kt":  Kotlin,
	"py":  Python,
	"txt": Text,
	"ts":  TypeScript,
}

var table = buildTable()

func buildTable() map[string]ID {
	t := make(map[string]ID, len(all)+len(aliases))
	for _, id := range all {
		t[string(id)] = id
	}
	for alias, id := range aliases {
		t[alias] = id
	}
	return t
}

// Resolve returns the language for a user supplied token such as "py" or "python".
// The second result is false when the token is unknown.
func Resolve(token string) (ID, bool) {
	id, ok := table[token]
	return id, ok
}

// All returns the canonical languages in declaration order.
func All() []ID {
	out := make([]ID, len(all))
	copy(out, all)
	return out
}

// Names returns the canonical identifiers as strings.
func Names() []string {
	names := make([]string, len(all))
	for i, id := range all {
		names[i] = string(id)
	}
	return names
}

func (id ID) String() string { return string(id) }
