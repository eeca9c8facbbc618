package manual

type builder func(normalized string) (Statement, bool)

var builders = map[Intent]builder{
	IntentInsert: buildInsert,
	IntentUpdate: buildUpdate,
	IntentDelete: buildDelete,
	IntentSelect: buildSelect,
}

// Outcome is the result of compiling one sentence. A nil Statement means the
// sentence was not understood.
type Outcome struct {
	Intent    Intent
	Statement Statement
}

func (o Outcome) Recognized() bool {
	return o.Statement != nil
}

func (o Outcome) String() string {
	if o.Statement == nil {
		return Sentinel
	}
	return o.Statement.SQL()
}

// Compile translates a single sentence. The boolean is false when the
// sentence is blank and should produce no output at all.
func Compile(sentence string) (Outcome, bool) {
	normalized := Normalize(sentence)
	if normalized == "" {
		return Outcome{}, false
	}
	intent := Classify(normalized)
	build, ok := builders[intent]
	if !ok {
		return Outcome{Intent: IntentUnknown}, true
	}
	stmt, ok := build(normalized)
	if !ok {
		return Outcome{Intent: intent}, true
	}
	return Outcome{Intent: intent, Statement: stmt}, true
}

func TranslateAll(sentences []string) []Outcome {
	outcomes := make([]Outcome, 0, len(sentences))
	for _, sentence := range sentences {
		outcome, ok := Compile(sentence)
		if !ok {
			continue
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// Translate returns one SQL statement or Sentinel per non-blank sentence, in
// input order.
func Translate(sentences []string) []string {
	outcomes := TranslateAll(sentences)
	out := make([]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		out = append(out, outcome.String())
	}
	return out
}
